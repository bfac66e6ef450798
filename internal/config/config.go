// Package config loads the run-time configuration surface spec.md §6
// defines (MIN_SUCCESS_THRESHOLD, MAX_CAPACITY_RATIO, OVERLAP_BUFFER_MIN,
// ...) from a TOML file.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/fieldforce/dispatchopt/internal/domain"
	"github.com/fieldforce/dispatchopt/internal/policy"
	"github.com/fieldforce/dispatchopt/internal/rundriver"
)

// OptimizerConfig mirrors spec.md §6's "Configuration surface" table.
type OptimizerConfig struct {
	MaxAcceptableDistanceKM float64 `toml:"max_acceptable_distance_km"`
	OverlapBufferMin        int     `toml:"overlap_buffer_min"`
	EnableHybridScoring     bool    `toml:"enable_hybrid_scoring"`
	RuleWeight              float64 `toml:"rule_weight"`
	UseSkillCascade         bool    `toml:"use_skill_cascade"`
	ScoringMode             string  `toml:"scoring_mode"`
	PostOptPasses           int     `toml:"post_opt_passes"`
	Seed                    int64   `toml:"seed"`
}

// PolicyConfig mirrors internal/policy.Config plus the manual-strategy
// override thresholds (spec.md §6's SEASONAL_STRATEGY=manual case).
type PolicyConfig struct {
	Strategy              string  `toml:"strategy"`
	DemandBaseline        float64 `toml:"demand_baseline"`
	HighAvailabilityCount int     `toml:"high_availability_count"`
	LowAvailabilityCount  int     `toml:"low_availability_count"`
	PeakHours             []int   `toml:"peak_hours"`
	PriorityOrder         []string `toml:"priority_order"`

	ManualMinSuccessThreshold float64 `toml:"manual_min_success_threshold"`
	ManualMaxCapacityRatio    float64 `toml:"manual_max_capacity_ratio"`
}

// ServerConfig configures the introspection HTTP server (internal/api).
type ServerConfig struct {
	ListenAddr      string `toml:"listen_addr"`
	MetricsEnabled  bool   `toml:"metrics_enabled"`
}

// StorageConfig configures run-history persistence (internal/store).
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path"`
}

// Config is the full file shape. A zero Config is invalid; use
// DefaultConfig or Load.
type Config struct {
	Optimizer OptimizerConfig `toml:"optimizer"`
	Policy    PolicyConfig    `toml:"policy"`
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
}

// DefaultConfig returns the reference configuration: §6's configuration
// surface defaults. It carries no preset thresholds: under the default
// intelligent_auto strategy the adaptive policy picks them, and the
// manual_* thresholds are left at zero.
func DefaultConfig() Config {
	return Config{
		Optimizer: OptimizerConfig{
			MaxAcceptableDistanceKM: 200,
			OverlapBufferMin:        30,
			EnableHybridScoring:     false,
			RuleWeight:              0.7,
			UseSkillCascade:         false,
			ScoringMode:             string(domain.ScoringPureSuccess),
			PostOptPasses:           3,
			Seed:                    1,
		},
		Policy: PolicyConfig{
			Strategy:              string(domain.StrategyIntelligentAuto),
			DemandBaseline:        10,
			HighAvailabilityCount: 50,
			LowAvailabilityCount:  20,
			PeakHours:             []int{8, 9, 16, 17, 18},
			PriorityOrder:         []string{"demand", "availability", "time"},
		},
		Server: ServerConfig{
			ListenAddr:     "127.0.0.1:8080",
			MetricsEnabled: true,
		},
		Storage: StorageConfig{
			SQLitePath: "dispatchopt.db",
		},
	}
}

// Load reads a TOML file, starting from DefaultConfig so an omitted
// section keeps its preset value rather than zeroing out.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating or truncating the file.
func Save(path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}
	return nil
}

// Validate enforces the fatal-config class of spec.md §7's error taxonomy
// (exit code 1): a config violating these is rejected before any ingest
// is attempted.
func (c Config) Validate() error {
	if c.Optimizer.MaxAcceptableDistanceKM <= 0 {
		return fmt.Errorf("%w: optimizer.max_acceptable_distance_km must be positive", domain.ErrFatalConfig)
	}
	if c.Optimizer.RuleWeight < 0 || c.Optimizer.RuleWeight > 1 {
		return fmt.Errorf("%w: optimizer.rule_weight must be in [0,1]", domain.ErrFatalConfig)
	}
	switch domain.ScoringMode(c.Optimizer.ScoringMode) {
	case domain.ScoringPureSuccess, domain.ScoringWeightedComposite:
	default:
		return fmt.Errorf("%w: unrecognized optimizer.scoring_mode %q", domain.ErrFatalConfig, c.Optimizer.ScoringMode)
	}
	switch domain.SeasonalStrategy(c.Policy.Strategy) {
	case domain.StrategyIntelligentAuto, domain.StrategyManual, domain.StrategyTimeBased,
		domain.StrategyDemandBased, domain.StrategyAvailabilityBased:
	default:
		return fmt.Errorf("%w: unrecognized policy.strategy %q", domain.ErrFatalConfig, c.Policy.Strategy)
	}
	if domain.SeasonalStrategy(c.Policy.Strategy) == domain.StrategyManual {
		if c.Policy.ManualMinSuccessThreshold <= 0 || c.Policy.ManualMaxCapacityRatio <= 0 {
			return fmt.Errorf("%w: policy.strategy=manual requires manual_min_success_threshold and manual_max_capacity_ratio", domain.ErrFatalConfig)
		}
	}
	return nil
}

// Options translates the file's configuration surface into
// rundriver.Options, the shape the run driver actually consumes.
func (c Config) Options() rundriver.Options {
	return rundriver.Options{
		Seed:                    c.Optimizer.Seed,
		MaxAcceptableDistanceKM: c.Optimizer.MaxAcceptableDistanceKM,
		OverlapBufferMin:        c.Optimizer.OverlapBufferMin,
		EnableHybridScoring:     c.Optimizer.EnableHybridScoring,
		RuleWeight:              c.Optimizer.RuleWeight,
		UseSkillCascade:         c.Optimizer.UseSkillCascade,
		PostOptPasses:           c.Optimizer.PostOptPasses,
		ScoringMode:             domain.ScoringMode(c.Optimizer.ScoringMode),
		SeasonalStrategy:        domain.SeasonalStrategy(c.Policy.Strategy),
		ManualThresholds: domain.PolicyThresholds{
			MinSuccessThreshold: c.Policy.ManualMinSuccessThreshold,
			MaxCapacityRatio:    c.Policy.ManualMaxCapacityRatio,
			Mode:                "manual",
		},
		PolicyConfig: policy.Config{
			DemandBaseline:        c.Policy.DemandBaseline,
			HighAvailabilityCount: c.Policy.HighAvailabilityCount,
			LowAvailabilityCount:  c.Policy.LowAvailabilityCount,
			PeakHours:             c.Policy.PeakHours,
			PriorityOrder:         c.Policy.PriorityOrder,
		},
	}
}
