package solver

import (
	"bufio"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilianp07/storageopt/core/milp"
	coresolver "github.com/kilianp07/storageopt/core/solver"
)

// ExternalConfig configures an engine run as a separate process.
type ExternalConfig struct {
	Executable string `json:"executable"`
	// WorkDir receives the LP and solution files. A temporary directory is
	// used and removed when empty.
	WorkDir string `json:"work_dir"`
	// KeepFiles leaves the files in place after the run.
	KeepFiles bool     `json:"keep_files"`
	ExtraArgs []string `json:"extra_args"`
}

// dialect describes how one solver is invoked and how its solution file
// is read.
type dialect struct {
	name       string
	executable string
	args       func(lpPath, solPath string, extra []string) []string
	parse      func(r io.Reader, m *milp.Model) (*milp.Solution, error)
	quadratic  func(m *milp.Model) bool
	// squares describes which models with squared objective terms the
	// solver accepts.
	squares string
}

// External writes the model to an LP file, runs the solver executable and
// parses its solution file.
type External struct {
	d   dialect
	cfg ExternalConfig
}

func newExternal(d dialect, cfg ExternalConfig) *External {
	if cfg.Executable == "" {
		cfg.Executable = d.executable
	}
	return &External{d: d, cfg: cfg}
}

// NewCBC returns an engine driving COIN-OR CBC. CBC has no quadratic
// objective support.
func NewCBC(cfg ExternalConfig) *External { return newExternal(cbcDialect, cfg) }

// NewHiGHS returns an engine driving the HiGHS command line. HiGHS accepts
// quadratic objectives on continuous models only.
func NewHiGHS(cfg ExternalConfig) *External { return newExternal(highsDialect, cfg) }

// NewSCIP returns an engine driving the SCIP shell.
func NewSCIP(cfg ExternalConfig) *External { return newExternal(scipDialect, cfg) }

// NewCPLEX returns an engine driving the CPLEX interactive optimizer.
func NewCPLEX(cfg ExternalConfig) *External { return newExternal(cplexDialect, cfg) }

func (e *External) Name() string { return e.d.name }

// Describe implements core/solver.Describer.
func (e *External) Describe() string {
	return fmt.Sprintf("%s process, %s", e.cfg.Executable, e.d.squares)
}

// Solve implements core/solver.Solver. Cancelling ctx kills the process.
func (e *External) Solve(ctx context.Context, m *milp.Model) (*milp.Solution, error) {
	if m.Objective().IsQuadratic() && !e.d.quadratic(m) {
		return nil, fmt.Errorf("%s: %w: it accepts %s; objectives with squared terms such as %s need gonum, scip or cplex",
			e.d.name, coresolver.ErrQuadraticUnsupported, e.d.squares, "equal_storage_actions")
	}
	dir, err := os.MkdirTemp(e.cfg.WorkDir, "storageopt-"+e.d.name+"-")
	if err != nil {
		return nil, fmt.Errorf("%s: work dir: %w", e.d.name, err)
	}
	if !e.cfg.KeepFiles {
		defer os.RemoveAll(dir)
	}
	lpPath := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "model.sol")

	f, err := os.Create(lpPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.d.name, err)
	}
	if err := WriteLP(f, m); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: write lp: %w", e.d.name, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", e.d.name, err)
	}

	cmd := exec.CommandContext(ctx, e.cfg.Executable, e.d.args(lpPath, solPath, e.cfg.ExtraArgs)...)
	cmd.Dir = dir
	out, runErr := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	sf, err := os.Open(solPath)
	if err != nil {
		if runErr != nil {
			return nil, fmt.Errorf("%s: %w: %s", e.d.name, runErr, tail(out))
		}
		// Some solvers write no solution file for infeasible models.
		if st := statusFromText(string(out)); st != milp.StatusOther {
			return &milp.Solution{Status: st, Message: tail(out)}, nil
		}
		return nil, fmt.Errorf("%s: no solution file: %w", e.d.name, err)
	}
	defer sf.Close()
	sol, err := e.d.parse(sf, m)
	if err != nil {
		return nil, fmt.Errorf("%s: parse solution: %w", e.d.name, err)
	}
	if sol.HasValues() {
		sol.Objective = m.Objective().Eval(sol.Values)
	}
	return sol, nil
}

func tail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > 512 {
		s = s[len(s)-512:]
	}
	return s
}

// statusFromText maps a solver status line onto the three statuses.
func statusFromText(s string) milp.Status {
	l := strings.ToLower(s)
	switch {
	case strings.Contains(l, "infeasible") && !strings.Contains(l, "unbounded"):
		return milp.StatusInfeasible
	case strings.Contains(l, "optimal") && !strings.Contains(l, "not optimal") && !strings.Contains(l, "stopped"):
		return milp.StatusOptimal
	}
	return milp.StatusOther
}

// assign stores value under the variable called name. Unknown names are
// reported so that a mismatched model cannot be read silently.
func assign(m *milp.Model, values []float64, name string, value float64) error {
	id, ok := m.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown variable %q", name)
	}
	values[id] = value
	return nil
}

func never(*milp.Model) bool  { return false }
func always(*milp.Model) bool { return true }

var cbcDialect = dialect{
	name:       "cbc",
	executable: "cbc",
	args: func(lpPath, solPath string, extra []string) []string {
		args := append([]string{lpPath}, extra...)
		return append(args, "-solve", "-solu", solPath)
	},
	parse:     parseCBC,
	quadratic: never,
	squares:   "linear objectives only",
}

// parseCBC reads the CBC solution format: a status line followed by
// "index name value reduced-cost" rows for non-zero variables.
func parseCBC(r io.Reader, m *milp.Model) (*milp.Solution, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		return nil, errors.New("empty solution file")
	}
	head := strings.TrimSpace(sc.Text())
	sol := &milp.Solution{Status: statusFromText(head), Message: head}
	if sol.Status == milp.StatusInfeasible {
		return sol, nil
	}
	values := make([]float64, m.NumVars())
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		// Infeasible rows are flagged with a leading "**".
		if fields[0] == "**" {
			fields = fields[1:]
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("value of %s: %w", fields[1], err)
		}
		if err := assign(m, values, fields[1], v); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	sol.Values = values
	return sol, nil
}

var highsDialect = dialect{
	name:       "highs",
	executable: "highs",
	args: func(lpPath, solPath string, extra []string) []string {
		return append([]string{"--model_file", lpPath, "--solution_file", solPath}, extra...)
	},
	parse:     parseHiGHS,
	quadratic: func(m *milp.Model) bool { return !m.HasIntegers() },
	squares:   "squared objective terms on models without binaries only",
}

// parseHiGHS reads the raw HiGHS solution format.
func parseHiGHS(r io.Reader, m *milp.Model) (*milp.Solution, error) {
	sc := bufio.NewScanner(r)
	sol := &milp.Solution{Status: milp.StatusOther}
	var values []float64
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "Model status":
			if sc.Scan() {
				st := strings.TrimSpace(sc.Text())
				sol.Message = st
				sol.Status = statusFromText(st)
			}
		case strings.HasPrefix(line, "# Columns"):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "# Columns")))
			if err != nil {
				return nil, fmt.Errorf("column count: %w", err)
			}
			values = make([]float64, m.NumVars())
			for i := 0; i < n && sc.Scan(); i++ {
				fields := strings.Fields(sc.Text())
				if len(fields) < 2 {
					return nil, fmt.Errorf("malformed column line %q", sc.Text())
				}
				v, err := strconv.ParseFloat(fields[1], 64)
				if err != nil {
					return nil, fmt.Errorf("value of %s: %w", fields[0], err)
				}
				if err := assign(m, values, fields[0], v); err != nil {
					return nil, err
				}
			}
			// Only the primal section carries values of interest.
			if sol.Status == milp.StatusInfeasible {
				values = nil
			}
			sol.Values = values
			return sol, sc.Err()
		}
	}
	return sol, sc.Err()
}

var scipDialect = dialect{
	name:       "scip",
	executable: "scip",
	args: func(lpPath, solPath string, extra []string) []string {
		args := []string{"-c", "read " + lpPath}
		for _, x := range extra {
			args = append(args, "-c", x)
		}
		return append(args, "-c", "optimize", "-c", "write solution "+solPath, "-c", "quit")
	},
	parse:     parseSCIP,
	quadratic: always,
	squares:   "squared objective terms",
}

// parseSCIP reads the solution file written by "write solution".
func parseSCIP(r io.Reader, m *milp.Model) (*milp.Solution, error) {
	sc := bufio.NewScanner(r)
	sol := &milp.Solution{Status: milp.StatusOther}
	values := make([]float64, m.NumVars())
	var found bool
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "solution status:"):
			st := strings.TrimSpace(strings.TrimPrefix(line, "solution status:"))
			sol.Message = st
			sol.Status = statusFromText(st)
		case strings.HasPrefix(line, "objective value:"), strings.HasPrefix(line, "no solution available"):
			continue
		default:
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("value of %s: %w", fields[0], err)
			}
			if err := assign(m, values, fields[0], v); err != nil {
				return nil, err
			}
			found = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if found || sol.Status == milp.StatusOptimal {
		sol.Values = values
	}
	return sol, nil
}

var cplexDialect = dialect{
	name:       "cplex",
	executable: "cplex",
	args: func(lpPath, solPath string, extra []string) []string {
		args := []string{"-c", "read " + lpPath}
		args = append(args, extra...)
		return append(args, "optimize", "write "+solPath+" sol", "quit")
	},
	parse:     parseCPLEX,
	quadratic: always,
	squares:   "squared objective terms",
}

type cplexSolution struct {
	Header struct {
		StatusValue  int    `xml:"solutionStatusValue,attr"`
		StatusString string `xml:"solutionStatusString,attr"`
	} `xml:"header"`
	Variables []struct {
		Name  string  `xml:"name,attr"`
		Value float64 `xml:"value,attr"`
	} `xml:"variables>variable"`
}

// parseCPLEX reads the XML solution format.
func parseCPLEX(r io.Reader, m *milp.Model) (*milp.Solution, error) {
	var doc cplexSolution
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	sol := &milp.Solution{Message: doc.Header.StatusString}
	switch doc.Header.StatusValue {
	case 1, 101, 102:
		sol.Status = milp.StatusOptimal
	case 3, 103:
		sol.Status = milp.StatusInfeasible
		return sol, nil
	default:
		sol.Status = milp.StatusOther
	}
	values := make([]float64, m.NumVars())
	for _, v := range doc.Variables {
		if err := assign(m, values, v.Name, v.Value); err != nil {
			return nil, err
		}
	}
	sol.Values = values
	return sol, nil
}
