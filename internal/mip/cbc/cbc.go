// Package cbc solves models with the COIN-OR CBC command-line solver. The
// model is written as an LP file and the solution file is read back.
package cbc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/cfplan/internal/mip"
)

// ErrNotInstalled is returned when the cbc binary cannot be found.
var ErrNotInstalled = errors.New("cbc: solver binary not found")

// Options configure the external process.
type Options struct {
	Path      string // binary name or path; "cbc" when empty
	TimeLimit time.Duration
	Gap       float64
	Threads   int
	WorkDir   string // parent of the scratch directory; os.TempDir when empty
	KeepFiles bool
	Logger    logrus.FieldLogger
}

// Solver implements mip.Solver.
type Solver struct {
	opts Options
}

// New returns a CBC-backed solver.
func New(opts Options) *Solver {
	if opts.Path == "" {
		opts.Path = "cbc"
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}
	return &Solver{opts: opts}
}

// Args returns the command line used for a model and solution path.
func (s *Solver) Args(lpPath, solPath string) []string {
	args := []string{lpPath}
	if s.opts.TimeLimit > 0 {
		args = append(args, "sec", strconv.Itoa(int(s.opts.TimeLimit.Seconds())))
	}
	if s.opts.Gap > 0 {
		args = append(args, "ratioGap", strconv.FormatFloat(s.opts.Gap, 'g', -1, 64))
	}
	if s.opts.Threads > 1 {
		args = append(args, "threads", strconv.Itoa(s.opts.Threads))
	}
	return append(args, "solve", "solution", solPath)
}

// Solve writes the model, runs cbc and parses its solution file.
func (s *Solver) Solve(ctx context.Context, m *mip.Model) (*mip.Solution, error) {
	bin, err := exec.LookPath(s.opts.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInstalled, s.opts.Path)
	}

	dir, err := os.MkdirTemp(s.opts.WorkDir, "cfplan-cbc-*")
	if err != nil {
		return nil, fmt.Errorf("cbc: creating scratch dir: %w", err)
	}
	log := s.opts.Logger.WithFields(logrus.Fields{"backend": "cbc", "dir": dir})
	if !s.opts.KeepFiles {
		defer func() { _ = os.RemoveAll(dir) }()
	}

	lpPath := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "solution.txt")
	if err := mip.WriteLPFile(lpPath, m); err != nil {
		return nil, fmt.Errorf("cbc: %w", err)
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, bin, s.Args(lpPath, solPath)...) //nolint:gosec // binary chosen by config
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("cbc: %w", ctxErr)
		}
		return nil, fmt.Errorf("cbc: run failed: %w: %s", err, lastLines(string(out), 5))
	}
	log.WithField("elapsed", elapsed.String()).Debug("cbc finished")

	f, err := os.Open(solPath) //nolint:gosec // path inside our scratch dir
	if err != nil {
		return nil, fmt.Errorf("cbc: no solution file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sol, err := ParseSolution(f, m)
	if err != nil {
		return nil, err
	}
	sol.Duration = elapsed
	return sol, nil
}

// ParseSolution reads a CBC solution file. The first line carries the status;
// each following line is "index name value reduced-cost", optionally
// prefixed by "**" for values outside their bounds. The objective is
// recomputed from the values.
func ParseSolution(r io.Reader, m *mip.Model) (*mip.Solution, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("cbc: reading solution: %w", err)
		}
		return nil, errors.New("cbc: empty solution file")
	}
	header := strings.TrimSpace(sc.Text())
	sol := &mip.Solution{Backend: "cbc", Status: parseStatus(header)}

	values := make([]float64, len(m.Vars))
	for i, v := range m.Vars {
		values[i] = v.Lower
	}
	seen := 0
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) > 0 && fields[0] == "**" {
			fields = fields[1:]
		}
		if len(fields) < 3 {
			continue
		}
		idx, ok := m.VarIndex(fields[1])
		if !ok {
			return nil, fmt.Errorf("cbc: unknown variable %q in solution", fields[1])
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("cbc: value of %s: %w", fields[1], err)
		}
		values[idx] = v
		seen++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("cbc: reading solution: %w", err)
	}

	if sol.Status == mip.NoSolution && seen > 0 && strings.HasPrefix(header, "Stopped") {
		sol.Status = mip.Feasible
	}
	if sol.Status.HasValues() {
		sol.Values = values
		sol.Objective = m.Evaluate(values)
	}
	return sol, nil
}

func parseStatus(header string) mip.Status {
	h := strings.ToLower(header)
	switch {
	case strings.HasPrefix(h, "optimal"):
		return mip.Optimal
	case strings.Contains(h, "infeasible"):
		return mip.Infeasible
	case strings.Contains(h, "unbounded"):
		return mip.Unbounded
	default:
		return mip.NoSolution
	}
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
