// Package cmd implements the cfplan CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"cloud.google.com/go/civil"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/cfplan/internal/config"
	"github.com/theirongolddev/cfplan/internal/mip"
	"github.com/theirongolddev/cfplan/internal/pipeline"
	"github.com/theirongolddev/cfplan/internal/rates"
	"github.com/theirongolddev/cfplan/internal/store"
)

var (
	flagStart     string
	flagEnd       string
	flagRatesDate string
	flagRates     string
	flagDB        string
	flagLogLevel  string
	flagQuiet     bool
	flagNoStore   bool
)

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "cfplan",
	Short: "Cash-flow investment planner",
	Long: "Plan when to move savings into fixed-term deposits so every bill is paid\n" +
		"and the cash left at the end of the horizon is as large as possible.",
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	RunE:              runPlan,
}

// Execute is the main entry point called from main.go.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagStart, "start", "", "First day of the horizon (YYYY-MM-DD, default from config)")
	pf.StringVar(&flagEnd, "end", "", "Last day of the horizon (YYYY-MM-DD, default from config)")
	pf.StringVar(&flagRatesDate, "rates-date", "", "Date whose rate sheet prices the deposits")
	pf.StringVarP(&flagRates, "rates", "r", "", "Rate sheet CSV file or http(s) URL (overrides the database)")
	pf.StringVar(&flagDB, "db", "", "SQLite database path")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	pf.BoolVar(&flagNoStore, "no-store", false, "Do not read rates from or save runs to the database")
}

// setupLogging configures the shared logger from flag, environment and
// config, in that order of precedence.
func setupLogging(_ *cobra.Command, _ []string) error {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level := flagLogLevel
	if level == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		level = cfg.General.LogLevel
	}
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("%w: log level %q", config.ErrInvalidConfig, level)
	}
	if flagQuiet && lvl > logrus.WarnLevel {
		lvl = logrus.WarnLevel
	}
	log.SetLevel(lvl)
	return nil
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if flagDB != "" {
		cfg.General.Database = flagDB
	}
	for _, o := range []struct {
		flag string
		dst  *civil.Date
	}{
		{flagStart, &cfg.Horizon.Start},
		{flagEnd, &cfg.Horizon.End},
		{flagRatesDate, &cfg.Horizon.RatesDate},
	} {
		if o.flag == "" {
			continue
		}
		d, err := civil.ParseDate(o.flag)
		if err != nil {
			return cfg, fmt.Errorf("%w: date %q: %v", config.ErrInvalidConfig, o.flag, err)
		}
		*o.dst = d
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openStore opens the configured database.
func openStore(cfg config.Config) (*store.Store, error) {
	st, err := store.Open(config.DatabasePath(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return st, nil
}

// planInputs is everything a command needs to build a plan.
type planInputs struct {
	cfg   config.Config
	rates *rates.Table
	store *store.Store // nil with --no-store
}

func (in *planInputs) Close() {
	if in.store != nil {
		_ = in.store.Close()
	}
}

func (in *planInputs) prepare() (*pipeline.Plan, error) {
	h := in.cfg.Horizon
	p, err := pipeline.Prepare(in.cfg, in.rates, h.Start, h.End, h.RatesDate, log)
	if errors.Is(err, rates.ErrNoRate) && !in.rates.HasSheet(h.RatesDate) {
		if eff, ok := in.rates.EffectiveDate(h.RatesDate); ok {
			return nil, fmt.Errorf("%w; try --rates-date %s", err, eff)
		}
	}
	return p, err
}

func (in *planInputs) solver() (mip.Solver, error) {
	return pipeline.NewSolver(in.cfg.Solver, log)
}

// loadInputs loads config, opens the store and finds a rate sheet.
func loadInputs(ctx context.Context) (*planInputs, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	var st *store.Store
	if !flagNoStore {
		if st, err = openStore(cfg); err != nil {
			log.WithError(err).Warn("database unavailable, continuing without it")
			st = nil
		}
	}

	tbl, origin, err := pipeline.LoadRates(ctx, pipeline.RateSources{
		Override:  flagRates,
		Store:     st,
		RatesDate: cfg.Horizon.RatesDate,
		File:      cfg.General.RatesFile,
		URL:       cfg.General.RatesURL,
	}, log)
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		if errors.Is(err, pipeline.ErrNoRateSource) {
			return nil, fmt.Errorf("%w: pass --rates, set general.rates_file or run `cfplan rates import`", err)
		}
		return nil, fmt.Errorf("loading rates: %w", err)
	}
	log.WithFields(logrus.Fields{"origin": origin, "buckets": tbl.Len()}).Info("rates loaded")

	return &planInputs{cfg: cfg, rates: tbl, store: st}, nil
}

func progressf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
