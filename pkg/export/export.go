// Package export writes optimisation results as CSV, JSON or an HTML chart.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kilianp07/storageopt/core/optimiser"
)

// Format names an output encoding.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	HTML Format = "html"
)

var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormats validates a list of format names. Names may also be given
// comma separated.
func ParseFormats(names []string) ([]Format, error) {
	var out []Format
	seen := map[Format]bool{}
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			f := Format(strings.ToLower(strings.TrimSpace(part)))
			if f == "" || seen[f] {
				continue
			}
			switch f {
			case CSV, JSON, HTML:
			default:
				return nil, fmt.Errorf("%w %q", ErrUnknownFormat, part)
			}
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// Schedule is a result placed on the calendar.
type Schedule struct {
	Name            string
	RunID           string
	Start           time.Time
	IntervalMinutes float64
	Result          *optimiser.Result
}

// IntervalTime returns the start of interval i. It is zero when the
// schedule has no start time.
func (s Schedule) IntervalTime(i int) time.Time {
	if s.Start.IsZero() {
		return time.Time{}
	}
	return s.Start.Add(time.Duration(float64(i) * s.IntervalMinutes * float64(time.Minute)))
}

// WriteFiles writes one file per format into dir, named after the
// schedule, and returns the written paths. CSV also writes the figures of
// merit to a second file suffixed _merit.
func WriteFiles(dir string, s Schedule, formats []Format) ([]string, error) {
	if s.Result == nil {
		return nil, errors.New("export: schedule has no result")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	base := fileName(s.Name)
	var paths []string
	for _, f := range formats {
		outs, ok := outputs[f]
		if !ok {
			return paths, fmt.Errorf("%w %q", ErrUnknownFormat, f)
		}
		for _, o := range outs {
			path := filepath.Join(dir, base+o.suffix)
			if err := writeFile(path, s, o.write); err != nil {
				return paths, fmt.Errorf("write %s: %w", path, err)
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

type output struct {
	suffix string
	write  func(io.Writer, Schedule) error
}

var outputs = map[Format][]output{
	CSV:  {{".csv", WriteCSV}, {"_merit.csv", WriteMeritCSV}},
	JSON: {{".json", WriteJSON}},
	HTML: {{".html", WriteHTML}},
}

func writeFile(path string, s Schedule, write func(io.Writer, Schedule) error) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	return write(out, s)
}

// fileName keeps letters, digits, dashes and underscores.
func fileName(name string) string {
	if name == "" {
		return "schedule"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
