package mip

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// lineWidth is where long expressions wrap in the LP file.
const lineWidth = 200

// WriteLP writes the model in CPLEX LP format, readable by CBC, GLPK, HiGHS
// and most other MIP solvers.
func WriteLP(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)

	if m.Name != "" {
		fmt.Fprintf(bw, "\\ Problem: %s\n", m.Name)
	}
	if m.Maximize {
		bw.WriteString("Maximize\n")
	} else {
		bw.WriteString("Minimize\n")
	}
	writeExpr(bw, m, "obj", m.Objective, "")

	bw.WriteString("Subject To\n")
	for _, c := range m.Constraints {
		writeExpr(bw, m, c.Name, c.Terms, " "+c.Sense.String()+" "+formatNum(c.RHS))
	}

	bounds := boundLines(m)
	if len(bounds) > 0 {
		bw.WriteString("Bounds\n")
		for _, l := range bounds {
			bw.WriteString(l)
		}
	}

	var bins []string
	for _, v := range m.Vars {
		if v.Kind == Binary {
			bins = append(bins, v.Name)
		}
	}
	if len(bins) > 0 {
		bw.WriteString("Binaries\n")
		writeWrapped(bw, bins)
	}

	bw.WriteString("End\n")
	return bw.Flush()
}

// WriteLPFile writes the model to path.
func WriteLPFile(path string, m *Model) error {
	f, err := os.Create(path) //nolint:gosec // caller-chosen output path
	if err != nil {
		return fmt.Errorf("creating LP file: %w", err)
	}
	if err := WriteLP(f, m); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing LP file: %w", err)
	}
	return f.Close()
}

func writeExpr(bw *bufio.Writer, m *Model, name string, terms []Term, tail string) {
	parts := make([]string, 0, len(terms)+1)
	for _, t := range terms {
		if t.Coef == 0 {
			continue
		}
		parts = append(parts, formatTerm(t.Coef, m.Vars[t.Var].Name, len(parts) == 0))
	}
	if len(parts) == 0 {
		// LP format needs at least one term per row.
		first := "0"
		if len(m.Vars) > 0 {
			first = "0 " + m.Vars[0].Name
		}
		parts = append(parts, first)
	}

	bw.WriteString(" " + name + ":")
	writeWrapped(bw, append(parts, strings.TrimSpace(tail)))
}

func writeWrapped(bw *bufio.Writer, tokens []string) {
	width := 0
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if width > 0 && width+len(tok) > lineWidth {
			bw.WriteString("\n")
			width = 0
		}
		bw.WriteString(" " + tok)
		width += len(tok) + 1
	}
	bw.WriteString("\n")
}

func formatTerm(coef float64, name string, first bool) string {
	var sign string
	switch {
	case coef < 0 && first:
		sign = "-"
	case coef < 0:
		sign = "- "
	case !first:
		sign = "+ "
	}
	coef = math.Abs(coef)
	if coef == 1 {
		return sign + name
	}
	return sign + formatNum(coef) + " " + name
}

func boundLines(m *Model) []string {
	var lines []string
	for _, v := range m.Vars {
		if v.Kind == Binary {
			continue
		}
		hasUpper := !math.IsInf(v.Upper, 1)
		switch {
		case v.Lower == 0 && !hasUpper:
		case math.IsInf(v.Lower, -1) && !hasUpper:
			lines = append(lines, fmt.Sprintf(" %s free\n", v.Name))
		case hasUpper:
			lines = append(lines, fmt.Sprintf(" %s <= %s <= %s\n", formatNum(v.Lower), v.Name, formatNum(v.Upper)))
		default:
			lines = append(lines, fmt.Sprintf(" %s >= %s\n", v.Name, formatNum(v.Lower)))
		}
	}
	return lines
}

func formatNum(f float64) string {
	if math.IsInf(f, 1) {
		return "+inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
