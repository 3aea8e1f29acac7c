package solver

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/kilianp07/storageopt/core/milp"
)

// maxTermsPerLine keeps LP lines under the length limits of the readers.
const maxTermsPerLine = 6

func formatNum(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

type lpWriter struct {
	w     *bufio.Writer
	terms int
}

func (l *lpWriter) printf(format string, args ...any) {
	fmt.Fprintf(l.w, format, args...)
}

func (l *lpWriter) term(coef float64, name string, first bool) {
	if l.terms > 0 && l.terms%maxTermsPerLine == 0 {
		l.w.WriteString("\n   ")
	}
	l.terms++
	switch {
	case first && coef < 0:
		l.printf(" - %s %s", formatNum(-coef), name)
	case first:
		l.printf(" %s %s", formatNum(coef), name)
	case coef < 0:
		l.printf(" - %s %s", formatNum(-coef), name)
	default:
		l.printf(" + %s %s", formatNum(coef), name)
	}
}

// WriteLP writes m in CPLEX LP format. Variables keep their model names.
// The objective constant is omitted since not every reader accepts it.
func WriteLP(w io.Writer, m *milp.Model) error {
	vars := m.Vars()
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.Name()
	}
	l := &lpWriter{w: bufio.NewWriter(w)}
	l.printf("\\ Problem: %s\nMinimize\n obj:", m.Name)

	lin, quad, _ := m.Objective().Expand()
	ids := make([]milp.VarID, 0, len(lin))
	for id, c := range lin {
		if c != 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for k, id := range ids {
		l.term(lin[id], names[id], k == 0)
	}
	if len(ids) == 0 && len(quad) == 0 && len(names) > 0 {
		l.printf(" 0 %s", names[0])
	}
	if len(quad) > 0 {
		keys := make([]milp.QuadKey, 0, len(quad))
		for k, c := range quad {
			if c != 0 {
				keys = append(keys, k)
			}
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].I != keys[j].I {
				return keys[i].I < keys[j].I
			}
			return keys[i].J < keys[j].J
		})
		l.printf(" + [")
		l.terms = 0
		for k, key := range keys {
			// The bracket is halved by the format, hence the doubling.
			c := 2 * quad[key]
			name := names[key.I] + " ^ 2"
			if key.I != key.J {
				name = names[key.I] + " * " + names[key.J]
			}
			l.term(c, name, k == 0)
		}
		l.printf(" ] / 2")
	}

	l.printf("\nSubject To\n")
	seen := make(map[string]bool, len(m.Constraints()))
	for i, c := range m.Constraints() {
		name := lpName(c.Name)
		if name == "" || seen[name] {
			name = fmt.Sprintf("%s_r%d", name, i)
		}
		seen[name] = true
		l.printf(" %s:", name)
		l.terms = 0
		if len(c.Expr.Terms) == 0 {
			if len(names) == 0 {
				return fmt.Errorf("constraint %s has no variables", c.Name)
			}
			l.printf(" 0 %s", names[0])
		}
		for k, t := range c.Expr.Terms {
			l.term(t.Coef, names[t.Var], k == 0)
		}
		l.printf(" %s %s\n", c.Sense, formatNum(c.RHS))
	}

	l.printf("Bounds\n")
	var binaries []string
	for i, v := range vars {
		switch {
		case v.Domain == milp.Binary:
			binaries = append(binaries, names[i])
			l.printf(" %s <= %s <= %s\n", formatNum(v.Lower), names[i], formatNum(v.Upper))
		case v.Lower == v.Upper:
			l.printf(" %s = %s\n", names[i], formatNum(v.Lower))
		case math.IsInf(v.Lower, -1) && math.IsInf(v.Upper, 1):
			l.printf(" %s free\n", names[i])
		default:
			l.printf(" %s <= %s <= %s\n", formatNum(v.Lower), names[i], formatNum(v.Upper))
		}
	}
	if len(binaries) > 0 {
		l.printf("Binaries\n")
		for _, b := range binaries {
			l.printf(" %s\n", b)
		}
	}
	l.printf("End\n")
	return l.w.Flush()
}

// lpName replaces characters the LP format does not accept in names.
func lpName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
			return r
		}
		return '_'
	}, s)
}
