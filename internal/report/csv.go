package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/cfplan/internal/model"
)

var positionHeader = []string{"start_date", "days_between", "end_date", "value", "interests", "type"}

// FileName is the conventional export name for a horizon.
func FileName(start, end civil.Date) string {
	return fmt.Sprintf("cfo_between_%s_and_%s.csv", start, end)
}

// WriteCSV writes positions with amounts rounded to cents.
func WriteCSV(w io.Writer, positions []model.Position) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(positionHeader); err != nil {
		return err
	}
	for _, p := range positions {
		rec := []string{
			p.From.String(),
			strconv.Itoa(p.Days),
			p.To.String(),
			Money(p.Amount),
			Money(p.Interest),
			string(p.Kind),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes positions to dir/FileName(start, end) and returns the
// path.
func WriteCSVFile(dir string, start, end civil.Date, positions []model.Position) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(dir, FileName(start, end))

	f, err := os.Create(path) //nolint:gosec // output dir from config or flags
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteCSV(f, positions); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, f.Close()
}

// Money rounds to two decimals and drops trailing zeros.
func Money(v float64) string {
	return decimal.NewFromFloat(v).Round(2).String()
}

// SweepRow is one solver configuration tried by a parameter sweep.
type SweepRow struct {
	Branch    string
	NodeSel   string
	Gap       float64
	Status    string
	Objective float64
	Nodes     int
	Duration  time.Duration
}

var sweepHeader = []string{"Branch", "NodeSel", "MipGap", "Status", "Objective", "Nodes", "Duration"}

// AppendSweep appends rows to a sweep log, writing the header when the file
// is new or empty.
func AppendSweep(path string, rows []SweepRow) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644) //nolint:gosec // caller-chosen path
	if err != nil {
		return fmt.Errorf("opening sweep log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat sweep log: %w", err)
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(sweepHeader); err != nil {
			_ = f.Close()
			return err
		}
	}
	for _, r := range rows {
		rec := []string{
			r.Branch,
			r.NodeSel,
			strconv.FormatFloat(r.Gap, 'f', 6, 64),
			r.Status,
			Money(r.Objective),
			strconv.Itoa(r.Nodes),
			strconv.FormatFloat(r.Duration.Seconds(), 'f', 6, 64),
		}
		if err := cw.Write(rec); err != nil {
			_ = f.Close()
			return err
		}
	}
	cw.Flush()
	return errors.Join(cw.Error(), f.Close())
}
