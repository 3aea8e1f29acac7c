package scenario

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/storageopt/core/model"
)

// Period is a time-of-use window. Start and End are "HH:MM" wall clock
// times in the scenario start's location; an End before Start wraps past
// midnight and equal times cover the whole day. Days restricts the window
// to ISO weekdays (1 is Monday, 7 is Sunday); empty means every day.
type Period struct {
	Start  string  `json:"start" yaml:"start"`
	End    string  `json:"end" yaml:"end"`
	Days   []int   `json:"days,omitempty" yaml:"days"`
	Import float64 `json:"import" yaml:"import"`
	Export float64 `json:"export" yaml:"export"`
}

// Clock maps interval indices onto wall clock times.
type Clock struct {
	Start           time.Time
	IntervalMinutes float64
}

// At returns the start of interval i.
func (c Clock) At(i int) time.Time {
	return c.Start.Add(time.Duration(float64(i) * c.IntervalMinutes * float64(time.Minute)))
}

type window struct {
	from, to int // minutes of day
	days     map[time.Weekday]bool
}

func parseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: time %q is not HH:MM", ErrScenario, s)
	}
	hh, err1 := strconv.Atoi(h)
	mm, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hh < 0 || mm < 0 || mm > 59 || hh > 24 || (hh == 24 && mm != 0) {
		return 0, fmt.Errorf("%w: time %q is not HH:MM", ErrScenario, s)
	}
	return hh*60 + mm, nil
}

func (p Period) window() (window, error) {
	from, err := parseClock(p.Start)
	if err != nil {
		return window{}, err
	}
	to, err := parseClock(p.End)
	if err != nil {
		return window{}, err
	}
	w := window{from: from % (24 * 60), to: to % (24 * 60)}
	if len(p.Days) > 0 {
		w.days = make(map[time.Weekday]bool, len(p.Days))
		for _, d := range p.Days {
			if d < 1 || d > 7 {
				return window{}, fmt.Errorf("%w: weekday %d outside 1..7", ErrScenario, d)
			}
			w.days[time.Weekday(d%7)] = true
		}
	}
	return w, nil
}

// contains reports whether t falls in the window. For windows wrapping
// midnight the weekday is that of the window start.
func (w window) contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	day := t.Weekday()
	switch {
	case w.from == w.to:
	case w.from < w.to:
		if m < w.from || m >= w.to {
			return false
		}
	default:
		if m >= w.to && m < w.from {
			return false
		}
		if m < w.to {
			day = (day + 6) % 7
		}
	}
	return w.days == nil || w.days[day]
}

func windows(periods []Period) ([]window, error) {
	out := make([]window, len(periods))
	for i, p := range periods {
		w, err := p.window()
		if err != nil {
			return nil, fmt.Errorf("period %d: %w", i, err)
		}
		out[i] = w
	}
	return out, nil
}

// ExpandPrices turns TOU periods into n per-interval import and export
// prices. Overlapping periods add up; intervals outside every period are
// priced at zero.
func ExpandPrices(periods []Period, c Clock, n int) (imp, exp model.Series, err error) {
	ws, err := windows(periods)
	if err != nil {
		return nil, nil, err
	}
	imp = make(model.Series, n)
	exp = make(model.Series, n)
	for i := 0; i < n; i++ {
		t := c.At(i)
		for j, w := range ws {
			if w.contains(t) {
				imp[i] += periods[j].Import
				exp[i] += periods[j].Export
			}
		}
	}
	return imp, exp, nil
}

// ExpandActive marks with 1 the intervals covered by any period.
func ExpandActive(periods []Period, c Clock, n int) (model.Series, error) {
	ws, err := windows(periods)
	if err != nil {
		return nil, err
	}
	out := make(model.Series, n)
	for i := range out {
		t := c.At(i)
		for _, w := range ws {
			if w.contains(t) {
				out[i] = 1
				break
			}
		}
	}
	return out, nil
}
