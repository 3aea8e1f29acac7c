package export

import (
	"encoding/json"
	"io"
	"time"
)

type jsonSchedule struct {
	Name            string               `json:"name"`
	RunID           string               `json:"run_id,omitempty"`
	Variant         string               `json:"variant"`
	Status          string               `json:"status"`
	Objective       float64              `json:"objective"`
	Start           *time.Time           `json:"start,omitempty"`
	IntervalMinutes float64              `json:"interval_minutes"`
	Intervals       int                  `json:"intervals"`
	Series          map[string][]float64 `json:"series"`
	Scalars         map[string]float64   `json:"scalars"`
	Params          map[string][]float64 `json:"params"`
	Merit           map[string]float64   `json:"merit"`
}

// WriteJSON writes the schedule as an indented JSON document.
func WriteJSON(w io.Writer, s Schedule) error {
	r := s.Result
	doc := jsonSchedule{
		Name:            s.Name,
		RunID:           s.RunID,
		Variant:         string(r.Variant),
		Status:          r.Status.String(),
		Objective:       r.Objective,
		IntervalMinutes: s.IntervalMinutes,
		Intervals:       r.Intervals,
		Series:          r.Series,
		Scalars:         r.Scalars,
		Params:          r.Params,
		Merit:           make(map[string]float64),
	}
	for _, f := range r.Merit().Figures() {
		doc.Merit[f.Name] = f.Value
	}
	if !s.Start.IsZero() {
		start := s.Start
		doc.Start = &start
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
