package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// WriteCSV writes one row per interval: the index, the interval start when
// known, every variable series and every parameter series.
func WriteCSV(w io.Writer, s Schedule) error {
	r := s.Result
	vars, params := r.Names(), r.ParamNames()
	cw := csv.NewWriter(w)
	header := append([]string{"interval", "time"}, vars...)
	header = append(header, params...)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for i := 0; i < r.Intervals; i++ {
		row[0] = strconv.Itoa(i)
		row[1] = ""
		if t := s.IntervalTime(i); !t.IsZero() {
			row[1] = t.Format(time.RFC3339)
		}
		col := 2
		for _, name := range vars {
			row[col] = value(r.Series[name], i)
			col++
		}
		for _, name := range params {
			row[col] = value(r.Params[name], i)
			col++
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMeritCSV writes the figures of merit of the schedule, one per row.
func WriteMeritCSV(w io.Writer, s Schedule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"figure", "value"}); err != nil {
		return err
	}
	for _, f := range s.Result.Merit().Figures() {
		if err := cw.Write([]string{f.Name, strconv.FormatFloat(f.Value, 'f', -1, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func value(v []float64, i int) string {
	if i >= len(v) {
		return ""
	}
	return strconv.FormatFloat(v[i], 'f', -1, 64)
}
