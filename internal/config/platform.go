package config

import (
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PlatformConfig carries operator-tunable policy that can change
// without a restart: dashboard windows, health thresholds and the
// plan assigned to newly provisioned tenants.
type PlatformConfig struct {
	DefaultPlanTier       string        `mapstructure:"defaultPlanTier"`
	ActivityWindow        time.Duration `mapstructure:"activityWindow"`
	ActivityLimit         int           `mapstructure:"activityLimit"`
	HealthSlowPingMs      int64         `mapstructure:"healthSlowPingMs"`
	TrialSuspendAfterDays int           `mapstructure:"trialSuspendAfterDays"`
}

func DefaultPlatformConfig() PlatformConfig {
	return PlatformConfig{
		DefaultPlanTier:       "starter",
		ActivityWindow:        30 * 24 * time.Hour,
		ActivityLimit:         25,
		HealthSlowPingMs:      250,
		TrialSuspendAfterDays: 30,
	}
}

// PlatformConfigHolder exposes the current policy and hot-reloads it
// when the backing file changes.
type PlatformConfigHolder struct {
	current atomic.Value // holds PlatformConfig
}

func NewPlatformConfigHolder() (*PlatformConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("platform")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/blicktrack/config") // Volume-mounted config
	v.AddConfigPath("/etc/blicktrack")            // System config
	v.AddConfigPath(".")                          // Current directory (dev mode)

	v.SetEnvPrefix("BLICKTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPlatformConfig()
	v.SetDefault("platform.defaultPlanTier", defaults.DefaultPlanTier)
	v.SetDefault("platform.activityWindow", defaults.ActivityWindow)
	v.SetDefault("platform.activityLimit", defaults.ActivityLimit)
	v.SetDefault("platform.healthSlowPingMs", defaults.HealthSlowPingMs)
	v.SetDefault("platform.trialSuspendAfterDays", defaults.TrialSuspendAfterDays)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	holder := &PlatformConfigHolder{}
	if err := holder.reload(v); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if err := holder.reload(v); err != nil {
			log.Printf("platform config reload failed: %v", err)
		}
	})
	v.WatchConfig()

	return holder, nil
}

// Current returns the active platform policy.
func (h *PlatformConfigHolder) Current() PlatformConfig {
	if value, ok := h.current.Load().(PlatformConfig); ok {
		return value
	}
	return DefaultPlatformConfig()
}

func (h *PlatformConfigHolder) reload(v *viper.Viper) error {
	var cfg PlatformConfig
	if err := v.UnmarshalKey("platform", &cfg); err != nil {
		return err
	}
	if cfg.ActivityLimit <= 0 {
		cfg.ActivityLimit = DefaultPlatformConfig().ActivityLimit
	}
	if cfg.ActivityWindow <= 0 {
		cfg.ActivityWindow = DefaultPlatformConfig().ActivityWindow
	}
	h.current.Store(cfg)
	return nil
}
