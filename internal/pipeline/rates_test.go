package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/theirongolddev/cfplan/internal/config"
	"github.com/theirongolddev/cfplan/internal/mip/bnb"
	"github.com/theirongolddev/cfplan/internal/mip/cbc"
	"github.com/theirongolddev/cfplan/internal/rates"
	"github.com/theirongolddev/cfplan/internal/store"
)

const sheet = `dLinf,dLsup,term,unit,11/1/2024
30,59,30 a 59,dias,0.0850
60,89,60 a 89,dias,0.0890
`

func writeSheet(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rates.csv")
	if err := os.WriteFile(path, []byte(sheet), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "cfplan.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadRates_Priority(t *testing.T) {
	file := writeSheet(t)
	db := openStore(t)
	ctx := context.Background()

	// Empty store falls through to the file.
	tbl, origin, err := LoadRates(ctx, RateSources{Store: db, RatesDate: ratesDate, File: file}, nil)
	if err != nil {
		t.Fatalf("LoadRates: %v", err)
	}
	if origin != file || tbl.MaxDuration() != 89 {
		t.Fatalf("origin = %q, max = %d; want the file", origin, tbl.MaxDuration())
	}

	if err := db.SaveBuckets([]rates.Bucket{{MinDays: 30, MaxDays: 1799, Effective: ratesDate, Rate: 0.1}}, "test"); err != nil {
		t.Fatal(err)
	}
	tbl, origin, err = LoadRates(ctx, RateSources{Store: db, RatesDate: ratesDate, File: file}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if origin != "database" || tbl.MaxDuration() != 1799 {
		t.Fatalf("origin = %q, max = %d; want the database", origin, tbl.MaxDuration())
	}

	// A stored sheet newer than the rates date is skipped.
	early := civil.Date{Year: 2024, Month: 10, Day: 1}
	if _, origin, _ = LoadRates(ctx, RateSources{Store: db, RatesDate: early, File: file}, nil); origin != file {
		t.Fatalf("origin = %q, want %q", origin, file)
	}

	// So is a stored sheet that took effect before the rates date.
	later := civil.Date{Year: 2024, Month: 11, Day: 6}
	if _, origin, _ = LoadRates(ctx, RateSources{Store: db, RatesDate: later, File: file}, nil); origin != file {
		t.Fatalf("origin for %s = %q, want %q", later, origin, file)
	}

	// An explicit override beats the store.
	if _, origin, _ = LoadRates(ctx, RateSources{Override: file, Store: db, RatesDate: ratesDate}, nil); origin != file {
		t.Fatalf("origin = %q, want override %q", origin, file)
	}
}

func TestLoadRates_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(sheet))
	}))
	defer srv.Close()
	ctx := context.Background()

	tbl, origin, err := LoadRates(ctx, RateSources{URL: srv.URL, Client: srv.Client()}, nil)
	if err != nil {
		t.Fatalf("LoadRates(URL): %v", err)
	}
	if origin != srv.URL || tbl.Len() != 2 {
		t.Fatalf("origin = %q, buckets = %d", origin, tbl.Len())
	}

	if _, origin, err = LoadRates(ctx, RateSources{Override: srv.URL, Client: srv.Client()}, nil); err != nil || origin != srv.URL {
		t.Fatalf("LoadRates(override URL) = %q, %v", origin, err)
	}
}

func TestLoadRates_NoSource(t *testing.T) {
	if _, _, err := LoadRates(context.Background(), RateSources{Store: openStore(t), RatesDate: ratesDate}, nil); !errors.Is(err, ErrNoRateSource) {
		t.Fatalf("LoadRates = %v, want ErrNoRateSource", err)
	}
}

func TestIsURL(t *testing.T) {
	for loc, want := range map[string]bool{
		"https://bank.example/rates.csv": true,
		"http://localhost:8080/r":        true,
		"data/rates.csv":                 false,
		"/abs/https.csv":                 false,
	} {
		if got := IsURL(loc); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", loc, got, want)
		}
	}
}

func TestNewSolver(t *testing.T) {
	sc := config.DefaultConfig().Solver

	sc.Backend = config.BackendBranchAndBound
	sc.NodeSelect = "depth"
	s, err := NewSolver(sc, nil)
	if err != nil {
		t.Fatalf("NewSolver(bnb): %v", err)
	}
	b, ok := s.(*bnb.Solver)
	if !ok {
		t.Fatalf("NewSolver(bnb) = %T", s)
	}
	if b.Options().NodeSelect != bnb.DepthFirst || b.Options().NodeLimit != sc.NodeLimit {
		t.Fatalf("bnb options = %+v", b.Options())
	}

	sc.Backend = config.BackendCBC
	if s, err = NewSolver(sc, nil); err != nil {
		t.Fatalf("NewSolver(cbc): %v", err)
	}
	if _, ok := s.(*cbc.Solver); !ok {
		t.Fatalf("NewSolver(cbc) = %T", s)
	}

	sc.Backend = "glpk"
	if _, err := NewSolver(sc, nil); !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("NewSolver(glpk) = %v, want ErrInvalidConfig", err)
	}
}
