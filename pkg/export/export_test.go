package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/storageopt/core/milp"
	"github.com/kilianp07/storageopt/core/optimiser"
)

func schedule() Schedule {
	return Schedule{
		Name:            "site a/2024",
		RunID:           "r1",
		Start:           time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		IntervalMinutes: 30,
		Result: &optimiser.Result{
			Variant:   optimiser.BTM,
			Status:    milp.StatusOptimal,
			Objective: -1.5,
			Intervals: 2,
			Series: map[string][]float64{
				optimiser.StateOfCharge: {5, 2.5},
				optimiser.ChargeGrid:    {5, 0},
			},
			Scalars: map[string]float64{optimiser.PeakImport: 10},
			Params:  map[string][]float64{optimiser.ParamImportTariff: {0.2, 0.3}},
		},
	}
}

// shifted stores the surplus of the first interval and serves the demand
// of the second from it, so nothing crosses the connection point.
func shifted() Schedule {
	s := schedule()
	r := *s.Result
	r.Series = map[string][]float64{
		optimiser.StateOfCharge:    {1, 0},
		optimiser.ChargeGeneration: {1, 0},
		optimiser.DischargeDemand:  {0, -1},
		optimiser.BTMNetImport:     {0, 0},
		optimiser.BTMNetExport:     {0, 0},
	}
	r.Params = map[string][]float64{
		optimiser.ParamDemand:        {1, 1},
		optimiser.ParamGenerationMax: {-2, 0},
		optimiser.ParamImportTariff:  {0.25, 0.5},
		optimiser.ParamExportTariff:  {0.125, 0.125},
	}
	s.Result = &r
	return s
}

func TestParseFormats(t *testing.T) {
	got, err := ParseFormats([]string{"csv,JSON", " html ", "csv"})
	require.NoError(t, err)
	assert.Equal(t, []Format{CSV, JSON, HTML}, got)

	_, err = ParseFormats([]string{"xlsx"})
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, schedule()))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"interval", "time", optimiser.ChargeGrid, optimiser.StateOfCharge, optimiser.ParamImportTariff}, rows[0])
	assert.Equal(t, []string{"0", "2024-06-01T00:00:00Z", "5", "5", "0.2"}, rows[1])
	assert.Equal(t, []string{"1", "2024-06-01T00:30:00Z", "0", "2.5", "0.3"}, rows[2])
}

func TestWriteCSV_NoStart(t *testing.T) {
	s := schedule()
	s.Start = time.Time{}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, s))
	assert.Contains(t, buf.String(), "\n1,,0,2.5,0.3\n")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, schedule()))
	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "btm", doc["variant"])
	assert.Equal(t, "optimal", doc["status"])
	assert.Equal(t, -1.5, doc["objective"])
	assert.Equal(t, "2024-06-01T00:00:00Z", doc["start"])
	series := doc["series"].(map[string]any)
	assert.Equal(t, []any{5.0, 2.5}, series[optimiser.StateOfCharge])
	assert.Equal(t, 10.0, doc["scalars"].(map[string]any)[optimiser.PeakImport])
}

func TestWriteJSON_Merit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, shifted()))
	var doc struct {
		Merit map[string]float64 `json:"merit"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 0.0, doc.Merit[optimiser.MeritCost])
	assert.Equal(t, 0.375, doc.Merit[optimiser.MeritBaselineCost])
	assert.Equal(t, 1.0, doc.Merit[optimiser.MeritSelfSufficiency])
	assert.Equal(t, 0.5, doc.Merit[optimiser.MeritBaselineSelfSufficiency])
	assert.NotContains(t, doc.Merit, optimiser.MeritCustomerCost)
}

func TestWriteMeritCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMeritCSV(&buf, shifted()))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 13)
	assert.Equal(t, []string{"figure", "value"}, rows[0])
	assert.Equal(t, []string{optimiser.MeritImport, "0"}, rows[1])
	assert.Equal(t, []string{optimiser.MeritBaselineCost, "0.375"}, rows[8])
	assert.Equal(t, []string{optimiser.MeritBaselineSelfConsumption, "0.5"}, rows[12])
}

func TestWriteHTML_MeritChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, shifted()))
	assert.Contains(t, buf.String(), "Figures of merit")

	buf.Reset()
	require.NoError(t, WriteHTML(&buf, schedule()))
	assert.NotContains(t, buf.String(), "Figures of merit")
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, schedule()))
	out := buf.String()
	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "State of charge")
	assert.Contains(t, out, optimiser.ChargeGrid)
	assert.NotContains(t, out, optimiser.LocalNetImport)
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteFiles(dir, schedule(), []Format{CSV, JSON, HTML})
	require.NoError(t, err)
	require.Len(t, paths, 4)
	assert.Equal(t, filepath.Join(dir, "site_a_2024.csv"), paths[0])
	assert.Equal(t, filepath.Join(dir, "site_a_2024_merit.csv"), paths[1])
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}

	_, err = WriteFiles(dir, Schedule{Name: "empty"}, []Format{CSV})
	assert.Error(t, err)
	assert.True(t, strings.HasSuffix(fileName(""), "schedule"))
}
