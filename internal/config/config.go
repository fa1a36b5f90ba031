package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"haltwatch/internal/intel"
	"haltwatch/internal/logging"
	"haltwatch/internal/markethours"
	"haltwatch/internal/storage"
)

// Config materialises application configuration.
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Logging      logging.Config     `mapstructure:"logging"`
	Database     storage.PoolConfig `mapstructure:"database"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Feed         FeedConfig         `mapstructure:"feed"`
	Alerting     AlertingConfig     `mapstructure:"alerting"`
	Intelligence IntelligenceConfig `mapstructure:"intelligence"`
	Market       markethours.Config `mapstructure:"market"`
	Export       ExportConfig       `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// SchedulerConfig governs polling cadence. RushInterval applies during the
// rush-open phase when halts cluster.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	RushInterval    time.Duration `mapstructure:"rush_interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// FeedConfig covers the circuit-breaker CSV source.
type FeedConfig struct {
	URL            string        `mapstructure:"url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// AlertingConfig defines alert routing and baseline policy.
type AlertingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// NotifyOnBaseline allows the first-ever run (no persisted snapshot) to
	// alert on the entire feed. Off by default; a baseline run would
	// otherwise flood the channel.
	NotifyOnBaseline bool          `mapstructure:"notify_on_baseline"`
	Discord          DiscordConfig `mapstructure:"discord"`
}

// DiscordConfig 描述 Discord webhook 告警参数。
type DiscordConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	WebhookURL     string        `mapstructure:"webhook_url"`
	Username       string        `mapstructure:"username"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// IntelligenceConfig exposes classification thresholds and the underlying
// asset rule table.
type IntelligenceConfig struct {
	VIPSymbols       []string           `mapstructure:"vip_symbols"`
	Thresholds       intel.Thresholds   `mapstructure:"thresholds"`
	UnderlyingRules  []intel.PrefixRule `mapstructure:"underlying_rules"`
	LeverageSuffixes string             `mapstructure:"leverage_suffixes"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HALTWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "haltwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "60s")
	v.SetDefault("scheduler.rush_interval", "20s")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x68616C74))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("feed.url", "https://www.cboe.com/us/equities/market_statistics/short_sale_circuit_breakers/downloads/BatsCircuitBreakers2025.csv")
	v.SetDefault("feed.request_timeout", "30s")
	v.SetDefault("feed.user_agent", "haltwatch/1.0")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.notify_on_baseline", false)
	v.SetDefault("alerting.discord.enabled", false)
	v.SetDefault("alerting.discord.username", "haltwatch")
	v.SetDefault("alerting.discord.request_timeout", "10s")

	v.SetDefault("intelligence.vip_symbols", []string{"TSLA", "NVDA", "AAPL", "MSTR", "GME", "AMC"})
	v.SetDefault("intelligence.thresholds.super_hot", 30)
	v.SetDefault("intelligence.thresholds.very_hot", 20)
	v.SetDefault("intelligence.thresholds.hot", 15)
	v.SetDefault("intelligence.thresholds.active", 10)
	v.SetDefault("intelligence.thresholds.high_priority", 15)
	v.SetDefault("intelligence.thresholds.correlated_min", 5)
	v.SetDefault("intelligence.leverage_suffixes", intel.DefaultLeverageSuffixes)

	market := markethours.DefaultConfig()
	v.SetDefault("market.timezone", market.Timezone)
	v.SetDefault("market.pre_market_start", market.PreMarketStart)
	v.SetDefault("market.rush_start", market.RushStart)
	v.SetDefault("market.rush_end", market.RushEnd)
	v.SetDefault("market.regular_start", market.RegularStart)
	v.SetDefault("market.regular_end", market.RegularEnd)
	v.SetDefault("market.after_hours_start", market.AfterHoursStart)
	v.SetDefault("market.windows.pre_market", market.Windows.PreMarket.String())
	v.SetDefault("market.windows.rush_open", market.Windows.RushOpen.String())
	v.SetDefault("market.windows.regular", market.Windows.Regular.String())
	v.SetDefault("market.windows.after_hours", market.Windows.AfterHours.String())

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Feed.URL == "" {
		return fmt.Errorf("feed.url must be configured")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	w := c.Market.Windows
	if w.PreMarket <= 0 || w.RushOpen <= 0 || w.Regular <= 0 || w.AfterHours <= 0 {
		return fmt.Errorf("market.windows 各阶段批处理窗口必须大于零")
	}
	th := c.Intelligence.Thresholds
	if th.Active > th.Hot || th.Hot > th.VeryHot || th.VeryHot > th.SuperHot {
		return fmt.Errorf("intelligence.thresholds must be non-decreasing from active to super_hot")
	}
	if c.Alerting.Discord.Enabled && c.Alerting.Discord.WebhookURL == "" {
		return fmt.Errorf("alerting.discord.webhook_url 必须配置")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
