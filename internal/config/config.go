package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"lease-audit/internal/domain"
	"lease-audit/internal/mapping"
	"lease-audit/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

// DefaultPath is read when no config file is given.
const DefaultPath = "config.toml"

// Config is the application configuration.
type Config struct {
	// Version is recorded on every run so results can be traced to settings.
	Version        string                      `toml:"version"`
	Server         ServerConfig                `toml:"server"`
	Storage        StorageConfig               `toml:"storage"`
	Reconciliation ReconciliationConfig        `toml:"reconciliation"`
	Rules          RulesConfig                 `toml:"rules"`
	Sources        map[string]SourceConfig     `toml:"sources"`
	Mappings       map[string]mapping.Override `toml:"mappings"`
}

type ServerConfig struct {
	Addr         string   `toml:"addr"`
	Mode         string   `toml:"mode"`
	AllowOrigins []string `toml:"allow_origins"`
}

// StorageConfig selects the database behind the result sink and exception
// store. An empty DSN for postgres is built from POSTGRES_* variables.
type StorageConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

type ReconciliationConfig struct {
	AmountTolerance   string `toml:"amount_tolerance"`
	SecondaryMatching bool   `toml:"secondary_matching"`
	TertiaryMatching  bool   `toml:"tertiary_matching"`
	MaxMonthDrift     int    `toml:"max_month_drift"`
	InvariantPolicy   string `toml:"invariant_policy"`
}

type BandConfig struct {
	Min      string `toml:"min"`
	Severity string `toml:"severity"`
}

type RulesConfig struct {
	SeverityByStatus map[string]string `toml:"severity_by_status"`
	MaterialBands    []BandConfig      `toml:"material_bands"`
	MiscodedCharge   bool              `toml:"miscoded_charge"`
	TimingShift      bool              `toml:"timing_shift"`
}

// SourceConfig locates the raw input of one source. Format is required;
// inputs are never recognized by name or content.
type SourceConfig struct {
	Format string   `toml:"format"`
	Paths  []string `toml:"paths"`
	Sheet  string   `toml:"sheet"`
}

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// DefaultConfig returns settings that reconcile exactly and keep results in a
// local SQLite file.
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			Addr: ":8080",
			Mode: "release",
		},
		Storage: StorageConfig{
			Driver: "sqlite3",
			DSN:    "data/lease-audit.db",
		},
		Reconciliation: ReconciliationConfig{
			AmountTolerance:   "0",
			SecondaryMatching: true,
			TertiaryMatching:  true,
			MaxMonthDrift:     2,
			InvariantPolicy:   string(usecase.PolicyFail),
		},
		Rules: RulesConfig{
			SeverityByStatus: map[string]string{
				string(domain.StatusScheduledNotBilled): string(domain.SeverityHigh),
				string(domain.StatusBilledNotScheduled): string(domain.SeverityMedium),
				string(domain.StatusAmountMismatch):     string(domain.SeverityHigh),
			},
			MaterialBands: []BandConfig{
				{Min: "1000", Severity: string(domain.SeverityHigh)},
				{Min: "5000", Severity: string(domain.SeverityCritical)},
			},
			MiscodedCharge: true,
			TimingShift:    true,
		},
		Sources:  map[string]SourceConfig{},
		Mappings: map[string]mapping.Override{},
	}
}

// Load reads .env (if present), then the TOML file at path (defaults apply
// when it does not exist), then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	// A missing .env is normal; the process environment is used as is.
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LEASE_AUDIT_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LEASE_AUDIT_DB_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("LEASE_AUDIT_DB_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("LEASE_AUDIT_AMOUNT_TOLERANCE"); v != "" {
		c.Reconciliation.AmountTolerance = v
	}
	if v := os.Getenv("LEASE_AUDIT_INVARIANT_POLICY"); v != "" {
		c.Reconciliation.InvariantPolicy = v
	}
	if v := os.Getenv("LEASE_AUDIT_MAX_MONTH_DRIFT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Reconciliation.MaxMonthDrift = n
		}
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		c.Storage.DSN = postgresDSN()
	}
}

func postgresDSN() string {
	return "host=" + getEnv("POSTGRES_HOST", "localhost") +
		" port=" + getEnv("POSTGRES_PORT", "5432") +
		" user=" + getEnv("POSTGRES_USER", "lease_audit") +
		" password=" + getEnv("POSTGRES_PASSWORD", "") +
		" dbname=" + getEnv("POSTGRES_DB", "lease_audit") +
		" sslmode=" + getEnv("POSTGRES_SSLMODE", "disable")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []string
	if _, err := c.ReconcileConfig(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.RulesConfig(); err != nil {
		problems = append(problems, err.Error())
	}
	switch usecase.InvariantPolicy(c.Reconciliation.InvariantPolicy) {
	case usecase.PolicyFail, usecase.PolicySkip:
	default:
		problems = append(problems, fmt.Sprintf("reconciliation.invariant_policy must be fail or skip, got %q", c.Reconciliation.InvariantPolicy))
	}
	switch c.Storage.Driver {
	case "sqlite3", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("storage.driver must be sqlite3 or postgres, got %q", c.Storage.Driver))
	}

	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		src := c.Sources[name]
		switch src.Format {
		case FormatCSV:
			if len(src.Paths) == 0 {
				problems = append(problems, fmt.Sprintf("sources.%s needs at least one path", name))
			}
		case FormatXLSX:
			if len(src.Paths) != 1 || strings.TrimSpace(src.Sheet) == "" {
				problems = append(problems, fmt.Sprintf("sources.%s needs exactly one path and a sheet name", name))
			}
		default:
			problems = append(problems, fmt.Sprintf("sources.%s.format must be csv or xlsx, got %q", name, src.Format))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ReconcileConfig converts the [reconciliation] section.
func (c *Config) ReconcileConfig() (usecase.ReconcileConfig, error) {
	tol, err := decimal.NewFromString(c.Reconciliation.AmountTolerance)
	if err != nil {
		return usecase.ReconcileConfig{}, fmt.Errorf("reconciliation.amount_tolerance %q is not a number", c.Reconciliation.AmountTolerance)
	}
	rc := usecase.ReconcileConfig{
		AmountTolerance:   tol,
		SecondaryMatching: c.Reconciliation.SecondaryMatching,
		TertiaryMatching:  c.Reconciliation.TertiaryMatching,
		MaxMonthDrift:     c.Reconciliation.MaxMonthDrift,
	}
	if err := rc.Validate(); err != nil {
		return usecase.ReconcileConfig{}, fmt.Errorf("reconciliation: %w", err)
	}
	return rc, nil
}

// RulesConfig converts the [rules] section.
func (c *Config) RulesConfig() (usecase.RulesConfig, error) {
	rc := usecase.RulesConfig{
		SeverityByStatus: usecase.DefaultSeverityByStatus(),
		MiscodedCharge:   c.Rules.MiscodedCharge,
		TimingShift:      c.Rules.TimingShift,
	}
	for status, sev := range c.Rules.SeverityByStatus {
		if !validStatus(domain.Status(status)) {
			return usecase.RulesConfig{}, fmt.Errorf("rules.severity_by_status: unknown status %q", status)
		}
		if !domain.Severity(sev).Valid() {
			return usecase.RulesConfig{}, fmt.Errorf("rules.severity_by_status: unknown severity %q", sev)
		}
		rc.SeverityByStatus[domain.Status(status)] = domain.Severity(sev)
	}
	for _, b := range c.Rules.MaterialBands {
		floor, err := decimal.NewFromString(b.Min)
		if err != nil || floor.IsNegative() {
			return usecase.RulesConfig{}, fmt.Errorf("rules.material_bands: bad minimum %q", b.Min)
		}
		if !domain.Severity(b.Severity).Valid() {
			return usecase.RulesConfig{}, fmt.Errorf("rules.material_bands: unknown severity %q", b.Severity)
		}
		rc.VarianceBands = append(rc.VarianceBands, usecase.VarianceBand{Min: floor, Severity: domain.Severity(b.Severity)})
	}
	return rc, nil
}

// Options builds the pipeline options.
func (c *Config) Options() (usecase.Options, error) {
	rec, err := c.ReconcileConfig()
	if err != nil {
		return usecase.Options{}, err
	}
	rules, err := c.RulesConfig()
	if err != nil {
		return usecase.Options{}, err
	}
	return usecase.Options{
		Reconcile:     rec,
		Rules:         usecase.DefaultRules(rules),
		Policy:        usecase.InvariantPolicy(c.Reconciliation.InvariantPolicy),
		ConfigVersion: c.Version,
	}, nil
}

// Registry returns the built-in mappings with overrides applied.
func (c *Config) Registry() (*mapping.Registry, error) {
	reg := mapping.Builtin()
	if err := reg.Configure(c.Mappings); err != nil {
		return nil, err
	}
	return reg, nil
}

func validStatus(s domain.Status) bool {
	for _, known := range domain.Statuses {
		if s == known {
			return true
		}
	}
	return false
}
