// Package config loads the run configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/talgya/society-sim/internal/sim"
)

type Config struct {
	// ScenarioDir holds navgraph.json/pois.json exported from map
	// tooling. Empty means a synthetic grid is generated instead.
	ScenarioDir string `yaml:"scenario_dir"`

	Population int   `yaml:"population"`
	Seed       int64 `yaml:"seed"`

	// SpawnCluster places the population around the grid center
	// instead of uniformly over walkable cells.
	SpawnCluster      bool    `yaml:"spawn_cluster"`
	SpawnClusterSigma float64 `yaml:"spawn_cluster_sigma"`

	BrainURL string `yaml:"brain_url"`
	// HypothesisID labels the run on the reasoning service.
	HypothesisID string `yaml:"hypothesis_id"`
	DBPath       string `yaml:"db_path"`
	APIPort      int    `yaml:"api_port"`

	MetricsBinSecs float64 `yaml:"metrics_bin_secs"`
	LogLevel       string  `yaml:"log_level"`

	Sim SimConfig `yaml:"sim"`
}

// SimConfig mirrors the tunable engine parameters. Zero values fall
// back to the defaults.
type SimConfig struct {
	TickRate              float64 `yaml:"tick_rate"`
	SpeedMul              float64 `yaml:"speed_mul"`
	DurationSecs          float64 `yaml:"duration_secs"`
	NeedsEvalPeriod       float64 `yaml:"needs_eval_period"`
	IdleReplanSecs        float64 `yaml:"idle_replan_secs"`
	MeetingDistCells      float64 `yaml:"meeting_dist_cells"`
	MeetingDwellSecs      float64 `yaml:"meeting_dwell_secs"`
	BatchSize             int     `yaml:"batch_size"`
	MaxQPS                float64 `yaml:"max_qps"`
	PeriodicJitterMinSecs float64 `yaml:"periodic_jitter_min_secs"`
	PeriodicJitterMaxSecs float64 `yaml:"periodic_jitter_max_secs"`
	MeetingRescheduleSecs float64 `yaml:"meeting_reschedule_secs"`
	EligibleCap           int     `yaml:"eligible_cap"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Population:        120,
		Seed:              42,
		SpawnClusterSigma: 12,
		DBPath:            "societysim.db",
		APIPort:           8090,
		MetricsBinSecs:    10,
		LogLevel:          "info",
	}
}

func (c Config) Validate() error {
	if c.Population <= 0 {
		return fmt.Errorf("population must be > 0")
	}
	if c.APIPort < 0 || c.APIPort > 65535 {
		return fmt.Errorf("api_port out of range")
	}
	if c.MetricsBinSecs < 0 {
		return fmt.Errorf("metrics_bin_secs must be >= 0")
	}
	if c.Sim.TickRate < 0 {
		return fmt.Errorf("sim.tick_rate must be >= 0")
	}
	if c.Sim.MaxQPS < 0 {
		return fmt.Errorf("sim.max_qps must be >= 0")
	}
	if c.Sim.BatchSize < 0 {
		return fmt.Errorf("sim.batch_size must be >= 0")
	}
	if min, max := c.Sim.PeriodicJitterMinSecs, c.Sim.PeriodicJitterMaxSecs; min > 0 && max > 0 && max < min {
		return fmt.Errorf("sim.periodic_jitter_max_secs must be >= periodic_jitter_min_secs")
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error")
	}
	return nil
}

// Params converts the config into engine parameters, filling unset
// fields from the defaults.
func (c Config) Params() sim.Params {
	p := sim.DefaultParams()
	if c.Sim.TickRate > 0 {
		p.TickRate = c.Sim.TickRate
	}
	if c.Sim.SpeedMul > 0 {
		p.SpeedMul = c.Sim.SpeedMul
	}
	if c.Sim.DurationSecs > 0 {
		p.DurationSecs = c.Sim.DurationSecs
	}
	if c.Sim.NeedsEvalPeriod > 0 {
		p.NeedsEvalPeriod = c.Sim.NeedsEvalPeriod
	}
	if c.Sim.IdleReplanSecs > 0 {
		p.IdleReplanSecs = c.Sim.IdleReplanSecs
	}
	if c.Sim.MeetingDistCells > 0 {
		p.MeetingDistCells = c.Sim.MeetingDistCells
	}
	if c.Sim.MeetingDwellSecs > 0 {
		p.MeetingDwellSecs = c.Sim.MeetingDwellSecs
	}
	if c.Sim.BatchSize > 0 {
		p.BatchSize = c.Sim.BatchSize
	}
	if c.Sim.MaxQPS > 0 {
		p.MaxQPS = c.Sim.MaxQPS
	}
	if c.Sim.PeriodicJitterMinSecs > 0 {
		p.PeriodicJitterMinSecs = c.Sim.PeriodicJitterMinSecs
	}
	if c.Sim.PeriodicJitterMaxSecs > 0 {
		p.PeriodicJitterMaxSecs = c.Sim.PeriodicJitterMaxSecs
	}
	if c.Sim.MeetingRescheduleSecs > 0 {
		p.MeetingRescheduleSecs = c.Sim.MeetingRescheduleSecs
	}
	if c.Sim.EligibleCap > 0 {
		p.EligibleCap = c.Sim.EligibleCap
	}
	return p
}
