// Package config loads the planner configuration from TOML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cloud.google.com/go/civil"
	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all cfplan configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Horizon    HorizonConfig    `toml:"horizon"`
	Schedule   Schedule         `toml:"schedule"`
	Amounts    Amounts          `toml:"amounts"`
	Increments Increments       `toml:"increments"`
	Model      ModelConfig      `toml:"model"`
	Solver     SolverConfig     `toml:"solver"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds file locations and logging preferences.
type GeneralConfig struct {
	RatesFile string `toml:"rates_file,omitempty"`
	RatesURL  string `toml:"rates_url,omitempty"`
	Database  string `toml:"database,omitempty"`
	LogLevel  string `toml:"log_level"`
	OutputDir string `toml:"output_dir,omitempty"`
}

// HorizonConfig holds the default planning window.
type HorizonConfig struct {
	Start     civil.Date `toml:"start"`
	End       civil.Date `toml:"end"`
	RatesDate civil.Date `toml:"rates_date"`
}

// ModelConfig holds the MIP formulation constants.
type ModelConfig struct {
	BigM          float64 `toml:"big_m"`
	ToleranceBand float64 `toml:"tolerance_band"`
	MinPosition   float64 `toml:"min_position"`
}

// SolverConfig selects and tunes the MIP backend.
type SolverConfig struct {
	Backend       string  `toml:"backend"`
	CBCPath       string  `toml:"cbc_path,omitempty"`
	TimeLimitSecs int     `toml:"time_limit_secs"`
	Gap           float64 `toml:"gap"`
	NodeLimit     int     `toml:"node_limit"`
	Threads       int     `toml:"threads"`
	NodeSelect    string  `toml:"node_select"`
	Branch        string  `toml:"branch"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// Solver backends.
const (
	BackendBranchAndBound = "bnb"
	BackendCBC            = "cbc"
)

// ErrInvalidConfig is returned by Validate for settings outside their domain.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			RatesFile: "data/rates.csv",
			LogLevel:  "info",
		},
		Horizon: HorizonConfig{
			Start:     civil.Date{Year: 2024, Month: 11, Day: 6},
			End:       civil.Date{Year: 2025, Month: 12, Day: 31},
			RatesDate: civil.Date{Year: 2024, Month: 11, Day: 1},
		},
		Schedule:   DefaultSchedule(),
		Amounts:    DefaultAmounts(),
		Increments: DefaultIncrements(),
		Model: ModelConfig{
			BigM:          13_000_000,
			ToleranceBand: 500_000,
			MinPosition:   1,
		},
		Solver: SolverConfig{
			Backend:       BackendCBC,
			CBCPath:       "cbc",
			TimeLimitSecs: 300,
			Gap:           1e-4,
			NodeLimit:     20_000,
			Threads:       1,
			NodeSelect:    "best",
			Branch:        "most-fractional",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cfplan")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cfplan")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// CacheDir returns the platform-appropriate data directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "cfplan")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "cfplan")
}

// DatabasePath returns the configured SQLite path or the default one.
func DatabasePath(cfg Config) string {
	if cfg.General.Database != "" {
		return cfg.General.Database
	}
	return filepath.Join(CacheDir(), "cfplan.db")
}

// Load reads the config file, returning defaults if it doesn't exist.
// Environment overrides, including those from a .env file in the working
// directory, are applied on top.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()
	ApplyEnv(&cfg)

	return cfg, nil
}

// ApplyEnv overrides file settings with CFPLAN_* environment variables.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("CFPLAN_RATES_FILE"); v != "" {
		cfg.General.RatesFile = v
	}
	if v := os.Getenv("CFPLAN_RATES_URL"); v != "" {
		cfg.General.RatesURL = v
	}
	if v := os.Getenv("CFPLAN_DB"); v != "" {
		cfg.General.Database = v
	}
	if v := os.Getenv("CFPLAN_LOG_LEVEL"); v != "" {
		cfg.General.LogLevel = v
	}
	if v := os.Getenv("CFPLAN_SOLVER"); v != "" {
		cfg.Solver.Backend = v
	}
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// Validate checks every section and returns the first problem found.
func (c Config) Validate() error {
	if err := c.Schedule.Validate(); err != nil {
		return err
	}
	if !c.Horizon.Start.IsValid() || !c.Horizon.End.IsValid() || !c.Horizon.RatesDate.IsValid() {
		return fmt.Errorf("%w: horizon dates must be set", ErrInvalidConfig)
	}
	if !c.Horizon.Start.Before(c.Horizon.End) {
		return fmt.Errorf("%w: horizon end %s is not after start %s", ErrInvalidConfig, c.Horizon.End, c.Horizon.Start)
	}
	if err := c.Amounts.Validate(); err != nil {
		return err
	}
	if err := c.Increments.Validate(); err != nil {
		return err
	}
	if c.Model.ToleranceBand <= 0 || c.Model.BigM <= c.Model.ToleranceBand {
		return fmt.Errorf("%w: big_m (%g) must exceed tolerance_band (%g) > 0", ErrInvalidConfig, c.Model.BigM, c.Model.ToleranceBand)
	}
	if c.Model.MinPosition < 0 {
		return fmt.Errorf("%w: min_position must be >= 0", ErrInvalidConfig)
	}
	switch c.Solver.Backend {
	case BackendBranchAndBound, BackendCBC:
	default:
		return fmt.Errorf("%w: unknown solver backend %q", ErrInvalidConfig, c.Solver.Backend)
	}
	if c.Solver.Gap < 0 {
		return fmt.Errorf("%w: solver gap must be >= 0", ErrInvalidConfig)
	}
	return nil
}
