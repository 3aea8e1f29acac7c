package scenario

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Profile holds the demand and generation columns of a profile CSV.
type Profile struct {
	Demand     []float64
	Generation []float64
}

// ReadProfileFile opens path and parses it with ReadProfile.
func ReadProfileFile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := ReadProfile(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ReadProfile parses a CSV with a header row naming at least one of the
// demand and generation columns. Other columns such as timestamps are
// ignored; a missing column reads as zeros.
//
//	time,demand,generation
//	2024-01-01T00:00:00Z,1.2,-0.4
func ReadProfile(r io.Reader) (*Profile, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading profile header: %v", ErrScenario, err)
	}
	demandCol, genCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "demand":
			demandCol = i
		case "generation":
			genCol = i
		}
	}
	if demandCol < 0 && genCol < 0 {
		return nil, fmt.Errorf("%w: profile needs a demand or generation column", ErrScenario)
	}

	p := &Profile{}
	line := 1
	for {
		line++
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading profile line %d: %v", ErrScenario, line, err)
		}
		d, err := cell(rec, demandCol, line)
		if err != nil {
			return nil, err
		}
		g, err := cell(rec, genCol, line)
		if err != nil {
			return nil, err
		}
		p.Demand = append(p.Demand, d)
		p.Generation = append(p.Generation, g)
	}
	if len(p.Demand) == 0 {
		return nil, fmt.Errorf("%w: empty profile", ErrScenario)
	}
	return p, nil
}

func cell(rec []string, col, line int) (float64, error) {
	if col < 0 {
		return 0, nil
	}
	if col >= len(rec) {
		return 0, fmt.Errorf("%w: line %d has no column %d", ErrScenario, line, col+1)
	}
	s := strings.TrimSpace(rec[col])
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d column %d: %v", ErrScenario, line, col+1, err)
	}
	return v, nil
}
