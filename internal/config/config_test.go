package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Name != "haltwatch" {
		t.Fatalf("app.name 默认值不正确: %s", cfg.App.Name)
	}
	if cfg.Scheduler.Interval != 60*time.Second {
		t.Fatalf("scheduler.interval 默认值不正确: %s", cfg.Scheduler.Interval)
	}
	if cfg.Scheduler.RushInterval != 20*time.Second {
		t.Fatalf("scheduler.rush_interval 默认值不正确: %s", cfg.Scheduler.RushInterval)
	}
	if cfg.Feed.URL == "" {
		t.Fatal("feed.url 默认值应非空")
	}
	if cfg.Market.Windows.RushOpen != 90*time.Second {
		t.Fatalf("market.windows.rush_open 默认值不正确: %s", cfg.Market.Windows.RushOpen)
	}
	if len(cfg.Intelligence.VIPSymbols) == 0 {
		t.Fatal("vip_symbols 默认值应非空")
	}
	if cfg.Intelligence.Thresholds.SuperHot != 30 {
		t.Fatalf("thresholds.super_hot 默认值不正确: %d", cfg.Intelligence.Thresholds.SuperHot)
	}
	if cfg.Alerting.Enabled {
		t.Fatal("alerting 默认应关闭")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
scheduler:
  interval: 30s
alerting:
  enabled: true
  discord:
    enabled: true
    webhook_url: https://discord.example/webhook
intelligence:
  vip_symbols:
    - pltr
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写配置文件失败: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scheduler.Interval != 30*time.Second {
		t.Fatalf("interval 未被覆盖: %s", cfg.Scheduler.Interval)
	}
	if !cfg.Alerting.Discord.Enabled || cfg.Alerting.Discord.WebhookURL == "" {
		t.Fatalf("discord 配置未生效: %+v", cfg.Alerting.Discord)
	}
	if len(cfg.Intelligence.VIPSymbols) != 1 || cfg.Intelligence.VIPSymbols[0] != "pltr" {
		t.Fatalf("vip_symbols 未被覆盖: %v", cfg.Intelligence.VIPSymbols)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func(t *testing.T) *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		return cfg
	}

	cfg := base(t)
	cfg.Feed.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("空 feed.url 应报错")
	}

	cfg = base(t)
	cfg.Scheduler.Interval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("零轮询间隔应报错")
	}

	cfg = base(t)
	cfg.Market.Windows.Regular = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("零批处理窗口应报错")
	}

	cfg = base(t)
	cfg.Intelligence.Thresholds.Active = 99
	if err := cfg.Validate(); err == nil {
		t.Fatal("阈值非递增应报错")
	}

	cfg = base(t)
	cfg.Alerting.Discord.Enabled = true
	cfg.Alerting.Discord.WebhookURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("启用 discord 但缺 webhook 应报错")
	}
}
