package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/storageopt/core/optimiser"
)

// flowSeries are plotted on the power chart when present.
var flowSeries = []string{
	optimiser.ChargeGrid,
	optimiser.ChargeGeneration,
	optimiser.DischargeDemand,
	optimiser.DischargeGrid,
	optimiser.BTMNetImport,
	optimiser.BTMNetExport,
	optimiser.LocalNetImport,
	optimiser.LocalNetExport,
	optimiser.LocalDemandTransfer,
}

// WriteHTML renders the state of charge and the storage flows as line
// charts on a single page.
func WriteHTML(w io.Writer, s Schedule) error {
	r := s.Result
	axis := make([]string, r.Intervals)
	for i := range axis {
		if t := s.IntervalTime(i); !t.IsZero() {
			axis[i] = t.Format("2006-01-02 15:04")
		} else {
			axis[i] = strconv.Itoa(i)
		}
	}

	soc := charts.NewLine()
	soc.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: s.Name}),
		charts.WithTitleOpts(opts.Title{Title: "State of charge", Subtitle: subtitle(s)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Interval"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "kWh"}),
	)
	soc.SetXAxis(axis).AddSeries("state of charge", lineData(r.Series[optimiser.StateOfCharge]))

	flows := charts.NewLine()
	flows.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Energy flows"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Interval"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "kWh"}),
	)
	flows.SetXAxis(axis)
	for _, name := range flowSeries {
		if v, ok := r.Series[name]; ok {
			flows.AddSeries(name, lineData(v))
		}
	}

	page := components.NewPage()
	page.PageTitle = s.Name
	page.AddCharts(soc, flows)
	if bar := meritChart(r.Merit()); bar != nil {
		page.AddCharts(bar)
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// meritChart compares the schedule with the idle storage baseline on the
// figures both are defined for. It is nil when there are none.
func meritChart(m optimiser.Merit) *charts.Bar {
	var names []string
	var schedule, baseline []opts.BarData
	for _, p := range []struct {
		name     string
		with, wo *float64
	}{
		{optimiser.MeritCost, m.Cost, m.BaselineCost},
		{optimiser.MeritSelfSufficiency, m.SelfSufficiency, m.BaselineSelfSufficiency},
		{optimiser.MeritSelfConsumption, m.SelfConsumption, m.BaselineSelfConsumption},
	} {
		if p.with == nil || p.wo == nil {
			continue
		}
		names = append(names, p.name)
		schedule = append(schedule, opts.BarData{Value: *p.with})
		baseline = append(baseline, opts.BarData{Value: *p.wo})
	}
	if len(names) == 0 {
		return nil
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{
		Title:    "Figures of merit",
		Subtitle: fmt.Sprintf("import %.4g kWh, export %.4g kWh", m.Import, m.Export),
	}))
	bar.SetXAxis(names).
		AddSeries("schedule", schedule).
		AddSeries("baseline", baseline)
	return bar
}

func subtitle(s Schedule) string {
	r := s.Result
	out := fmt.Sprintf("%s, %s, objective %.4g", r.Variant, r.Status, r.Objective)
	if !s.Start.IsZero() {
		out += ", from " + s.Start.Format(time.RFC3339)
	}
	return out
}

func lineData(v []float64) []opts.LineData {
	out := make([]opts.LineData, len(v))
	for i, x := range v {
		out[i] = opts.LineData{Value: x}
	}
	return out
}
