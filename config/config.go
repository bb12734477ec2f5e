package config

import (
	"log"
	"os"
	"strings"
	"time"

	pkgconfig "todoreminder/pkg/config"
)

// ReminderConfig controls the reminder scanner.
type ReminderConfig struct {
	// Cron is a standard 5-field spec; the default fires at second 0 of every minute.
	Cron            string        `yaml:"cron"`
	ScanTimeout     time.Duration `yaml:"scan_timeout"`
	LockTTL         time.Duration `yaml:"lock_ttl"`
	OverdueStateTTL time.Duration `yaml:"overdue_state_ttl"`
	SettingTTL      time.Duration `yaml:"setting_ttl"`
	Timezone        string        `yaml:"timezone"`
}

type HTTPConfig struct {
	PollRatePerSec float64 `yaml:"poll_rate_per_sec"`
	PollBurst      int     `yaml:"poll_burst"`
}

type Config struct {
	Server   pkgconfig.ServerConfig `yaml:"server"`
	DB       pkgconfig.DBConfig     `yaml:"db"`
	Redis    pkgconfig.RedisConfig  `yaml:"redis"`
	MQ       pkgconfig.MQConfig     `yaml:"mq"`
	JWT      pkgconfig.JWTConfig    `yaml:"jwt"`
	Otel     pkgconfig.OtelConfig   `yaml:"otel"`
	Reminder ReminderConfig         `yaml:"reminder"`
	HTTP     HTTPConfig             `yaml:"http"`
}

func Load() *Config {
	env := pkgconfig.GetConfigEnv()
	configDir := pkgconfig.GetEnv("CONFIG_DIR", "config")

	cfg, err := LoadFrom(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// LoadFrom reads base.yaml plus the env overlay in dir, fills defaults and
// applies environment overrides (highest priority).
func LoadFrom(env, dir string) (*Config, error) {
	cfgMap, err := pkgconfig.LoadConfig(env, dir)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := pkgconfig.Decode(cfgMap, &cfg); err != nil {
		return nil, err
	}

	pkgconfig.OverrideDBFromEnv(&cfg.DB)
	pkgconfig.OverrideRedisFromEnv(&cfg.Redis)
	pkgconfig.OverrideMQFromEnv(&cfg.MQ)
	pkgconfig.OverrideJWTFromEnv(&cfg.JWT)
	pkgconfig.OverrideServerFromEnv(&cfg.Server)
	pkgconfig.OverrideOtelFromEnv(&cfg.Otel)
	if spec := os.Getenv("REMINDER_CRON"); spec != "" {
		cfg.Reminder.Cron = spec
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Server.Port) == "" {
		c.Server.Port = ":8085"
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "postgres"
	}
	if c.DB.IsSQLite() && c.DB.Path == "" {
		c.DB.Path = "data/todo.db"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}

	r := &c.Reminder
	if strings.TrimSpace(r.Cron) == "" {
		r.Cron = "* * * * *"
	}
	if r.ScanTimeout <= 0 {
		r.ScanTimeout = 50 * time.Second
	}
	if r.LockTTL <= 0 {
		r.LockTTL = 5 * time.Minute
	}
	if r.OverdueStateTTL <= 0 {
		r.OverdueStateTTL = 7 * 24 * time.Hour
	}
	if r.SettingTTL <= 0 {
		r.SettingTTL = 365 * 24 * time.Hour
	}

	if c.HTTP.PollRatePerSec <= 0 {
		c.HTTP.PollRatePerSec = 5
	}
	if c.HTTP.PollBurst <= 0 {
		c.HTTP.PollBurst = 10
	}
}
