package optimiser

// Figure of merit names, in the order Figures reports them.
const (
	MeritImport                  = "import_energy"
	MeritExport                  = "export_energy"
	MeritPeakImport              = "peak_import"
	MeritPeakImportInterval      = "peak_import_interval"
	MeritPeakExport              = "peak_export"
	MeritPeakExportInterval      = "peak_export_interval"
	MeritCost                    = "cost"
	MeritBaselineCost            = "baseline_cost"
	MeritCustomerCost            = "customer_cost"
	MeritBatteryCost             = "battery_cost"
	MeritNetworkCost             = "network_cost"
	MeritSelfSufficiency         = "self_sufficiency"
	MeritBaselineSelfSufficiency = "baseline_self_sufficiency"
	MeritSelfConsumption         = "self_consumption"
	MeritBaselineSelfConsumption = "baseline_self_consumption"
)

// Merit summarises a schedule at the connection point. Energies are per
// interval, imports positive and exports negative. The baseline is the
// same site with the storage idle and generation uncurtailed. Figures the
// result holds no inputs for are nil.
type Merit struct {
	Import             float64
	Export             float64
	PeakImport         float64
	PeakImportInterval int
	PeakExport         float64
	PeakExportInterval int

	// Cost settles the connection point at the site tariff.
	Cost         *float64
	BaselineCost *float64

	// Local market settlement, split between the customer, the storage
	// and the network operator.
	CustomerCost *float64
	BatteryCost  *float64
	NetworkCost  *float64

	SelfSufficiency         *float64
	BaselineSelfSufficiency *float64
	SelfConsumption         *float64
	BaselineSelfConsumption *float64
}

// Figure is one named figure of merit.
type Figure struct {
	Name  string
	Value float64
}

// Merit computes the figures of merit of the schedule.
func (r *Result) Merit() Merit {
	var m Merit
	flow := r.connectionFlow()
	for i, f := range flow {
		if f > 0 {
			m.Import += f
		} else {
			m.Export += f
		}
		if f > m.PeakImport {
			m.PeakImport, m.PeakImportInterval = f, i
		}
		if f < m.PeakExport {
			m.PeakExport, m.PeakExportInterval = f, i
		}
	}

	demand, genMax := r.Params[ParamDemand], r.Params[ParamGenerationMax]
	baseline := make([]float64, r.Intervals)
	for i := range baseline {
		baseline[i] = valueAt(demand, i) + valueAt(genMax, i)
	}
	baseImport, baseExport := split(baseline)

	imp, exp := r.Params[ParamImportTariff], r.Params[ParamExportTariff]
	if imp != nil && exp != nil {
		m.Cost = figure(settle(flow, imp, exp))
		m.BaselineCost = figure(settle(baseline, imp, exp))
	}
	if r.Variant == Local {
		r.localCosts(&m)
	}

	consumed, available := total(demand), total(genMax)
	if consumed > 0 && available < 0 {
		m.SelfSufficiency = figure(1 - m.Import/consumed)
		m.BaselineSelfSufficiency = figure(1 - baseImport/consumed)
	}
	if available < 0 {
		m.BaselineSelfConsumption = figure(1 - baseExport/available)
		generated := available
		if g, ok := r.Series[SystemGeneration]; ok {
			generated = total(g)
		}
		if generated < 0 {
			m.SelfConsumption = figure(1 - m.Export/generated)
		}
	}
	return m
}

// connectionFlow is the net energy crossing the connection point in each
// interval.
func (r *Result) connectionFlow() []float64 {
	parts := []string{BTMNetImport, BTMNetExport}
	if r.Variant == Local {
		parts = []string{ChargeGrid, DischargeGrid, LocalNetImport, LocalNetExport}
	}
	out := make([]float64, r.Intervals)
	for _, name := range parts {
		v := r.Series[name]
		for i := range out {
			out[i] += valueAt(v, i)
		}
	}
	return out
}

// localCosts settles the local market flows. Exported energy is counted
// as a positive quantity against the export tariffs.
func (r *Result) localCosts(m *Merit) {
	tariff := func(name string) []float64 { return r.Params[name] }
	leImp, leExp := tariff(ParamLocalEnergyImport), tariff(ParamLocalEnergyExport)
	ltImp, ltExp := tariff(ParamLocalTransportImport), tariff(ParamLocalTransportExport)
	reImp, reExp := tariff(ParamRemoteEnergyImport), tariff(ParamRemoteEnergyExport)
	rtImp, rtExp := tariff(ParamRemoteTransportImport), tariff(ParamRemoteTransportExport)
	if leImp == nil || reImp == nil {
		return
	}

	var customer, battery, network float64
	for i := 0; i < r.Intervals; i++ {
		gridLoad := valueAt(r.Series[LocalNetImport], i)
		solarGrid := -valueAt(r.Series[LocalNetExport], i)
		batteryLoad := -valueAt(r.Series[DischargeDemand], i)
		solarBattery := valueAt(r.Series[ChargeGeneration], i)
		solarLoad := valueAt(r.Series[LocalDemandTransfer], i)
		gridBattery := valueAt(r.Series[ChargeGrid], i)
		batteryGrid := -valueAt(r.Series[DischargeGrid], i)

		le, lei := valueAt(leExp, i), valueAt(leImp, i)
		lt, lti := valueAt(ltExp, i), valueAt(ltImp, i)
		re, rei := valueAt(reExp, i), valueAt(reImp, i)
		rt, rti := valueAt(rtExp, i), valueAt(rtImp, i)

		customer += gridLoad*(rei+rti) + batteryLoad*(lei+lti) +
			solarGrid*(rt-re) + solarBattery*(lt-le) + solarLoad*(lti+lt)
		battery += solarBattery*(lei+lti) + batteryLoad*(lt-le) +
			gridBattery*(rei+rti) + batteryGrid*(rt-re)
		network -= (gridLoad+gridBattery)*rti + batteryGrid*rt +
			(batteryLoad+solarBattery+solarLoad)*(lti+lt)
	}
	m.CustomerCost = figure(customer)
	m.BatteryCost = figure(battery)
	m.NetworkCost = figure(network)
}

// Figures lists the defined figures of merit by name.
func (m Merit) Figures() []Figure {
	out := []Figure{
		{MeritImport, m.Import},
		{MeritExport, m.Export},
		{MeritPeakImport, m.PeakImport},
		{MeritPeakImportInterval, float64(m.PeakImportInterval)},
		{MeritPeakExport, m.PeakExport},
		{MeritPeakExportInterval, float64(m.PeakExportInterval)},
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{MeritCost, m.Cost},
		{MeritBaselineCost, m.BaselineCost},
		{MeritCustomerCost, m.CustomerCost},
		{MeritBatteryCost, m.BatteryCost},
		{MeritNetworkCost, m.NetworkCost},
		{MeritSelfSufficiency, m.SelfSufficiency},
		{MeritBaselineSelfSufficiency, m.BaselineSelfSufficiency},
		{MeritSelfConsumption, m.SelfConsumption},
		{MeritBaselineSelfConsumption, m.BaselineSelfConsumption},
	} {
		if f.v != nil {
			out = append(out, Figure{f.name, *f.v})
		}
	}
	return out
}

func settle(flow, imp, exp []float64) float64 {
	var cost float64
	for i, f := range flow {
		if f > 0 {
			cost += f * valueAt(imp, i)
		} else {
			cost += f * valueAt(exp, i)
		}
	}
	return cost
}

// split sums the positive and the negative entries of v.
func split(v []float64) (pos, neg float64) {
	for _, x := range v {
		if x > 0 {
			pos += x
		} else {
			neg += x
		}
	}
	return pos, neg
}

func total(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

func valueAt(v []float64, i int) float64 {
	if i >= len(v) {
		return 0
	}
	return v[i]
}

func figure(v float64) *float64 { return &v }
