// Package config loads agentmem configuration from file and environment.
package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/foundryforge/agentmem/internal/errs"
)

// Config is the top-level agentmem configuration.
type Config struct {
	Workspace               string  `mapstructure:"workspace"`
	HalfLifeDays            float64 `mapstructure:"half_life_days"`
	MinContentLen           int     `mapstructure:"min_content_len"`
	WALFlushCount           int     `mapstructure:"wal_flush_count"`
	WALFlushBytes           int64   `mapstructure:"wal_flush_bytes"`
	BulkActiveCap           int     `mapstructure:"bulk_active_cap"`
	CacheMaxEntries         int     `mapstructure:"cache_max_entries"`
	StaleLockAgeS           int     `mapstructure:"stale_lock_age_s"`
	AutoMergeNearDuplicates bool    `mapstructure:"auto_merge_near_duplicates"`
	MaxShardBytes           int64   `mapstructure:"max_shard_bytes"`
}

// Load reads configuration from path (optional) with AGENTMEM_ environment
// overrides. workspace, when non-empty, takes precedence over the config
// file; if both are unset, the WORKSPACE_PATH environment variable is the
// fallback.
func Load(path, workspace string) (*Config, error) {
	v := viper.New()

	v.SetDefault("half_life_days", 7.0)
	v.SetDefault("min_content_len", 15)
	v.SetDefault("wal_flush_count", 50)
	v.SetDefault("wal_flush_bytes", int64(1<<20))
	v.SetDefault("bulk_active_cap", 20000)
	v.SetDefault("cache_max_entries", 256)
	v.SetDefault("stale_lock_age_s", 300)
	v.SetDefault("auto_merge_near_duplicates", false)
	v.SetDefault("max_shard_bytes", int64(2<<20))

	v.SetEnvPrefix("AGENTMEM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errs.Wrap(err, errs.CodeInvalidInput, "reading config "+path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Wrap(err, errs.CodeInvalidInput, "unmarshalling config")
	}

	if workspace != "" {
		cfg.Workspace = workspace
	}
	if cfg.Workspace == "" {
		cfg.Workspace = os.Getenv("WORKSPACE_PATH")
	}
	if cfg.Workspace == "" {
		return nil, errs.New(errs.CodeInvalidInput, "workspace path is required (flag, config file, or WORKSPACE_PATH)")
	}

	if errList := cfg.Validate(); len(errList) > 0 {
		return nil, errs.Wrap(joinErrors(errList), errs.CodeInvalidInput, "validating config")
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors, collecting all of
// them rather than stopping at the first.
func (c *Config) Validate() []error {
	var out []error
	if c.HalfLifeDays <= 0 {
		out = append(out, errs.New(errs.CodeInvalidInput, "half_life_days must be > 0"))
	}
	if c.MinContentLen < 0 {
		out = append(out, errs.New(errs.CodeInvalidInput, "min_content_len must be >= 0"))
	}
	if c.WALFlushCount <= 0 {
		out = append(out, errs.New(errs.CodeInvalidInput, "wal_flush_count must be > 0"))
	}
	if c.WALFlushBytes <= 0 {
		out = append(out, errs.New(errs.CodeInvalidInput, "wal_flush_bytes must be > 0"))
	}
	if c.BulkActiveCap <= 0 {
		out = append(out, errs.New(errs.CodeInvalidInput, "bulk_active_cap must be > 0"))
	}
	if c.CacheMaxEntries <= 0 {
		out = append(out, errs.New(errs.CodeInvalidInput, "cache_max_entries must be > 0"))
	}
	if c.StaleLockAgeS <= 0 {
		out = append(out, errs.New(errs.CodeInvalidInput, "stale_lock_age_s must be > 0"))
	}
	return out
}

func joinErrors(errList []error) error {
	msgs := make([]string, len(errList))
	for i, e := range errList {
		msgs[i] = e.Error()
	}
	return errs.New(errs.CodeInvalidInput, strings.Join(msgs, "; "))
}
