package config

import (
	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/ifuryst/pagemill/pkg/logger"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Logger      logger.Config     `yaml:"logger"`
	Generation  GenerationConfig  `yaml:"generation"`
	Scan        ScanConfig        `yaml:"scan"`
	QA          QAConfig          `yaml:"qa"`
	Fingerprint FingerprintConfig `yaml:"fingerprint"`
	Redis       RedisConfig       `yaml:"redis"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Auth        AuthConfig        `yaml:"auth"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Type     string `yaml:"type"` // postgres or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
	Path     string `yaml:"path"` // sqlite DSN
}

type GenerationConfig struct {
	BatchSize     int    `yaml:"batch_size"`
	MaxPagesLimit int    `yaml:"max_pages_limit"`
	FailFast      *bool  `yaml:"fail_fast"`
	BaseURL       string `yaml:"base_url"`
	BrandName     string `yaml:"brand_name"`
}

type ScanConfig struct {
	PageSize        int    `yaml:"page_size"`
	MaxPageIDs      int    `yaml:"max_page_ids"`
	WriteBatchLimit int    `yaml:"write_batch_limit"`
	GlobalScope     string `yaml:"scope_global"`
}

type QAConfig struct {
	MinTotalChars   int `yaml:"min_total_chars"`
	MinSectionChars int `yaml:"min_section_chars"`
	MinHeroChars    int `yaml:"min_hero_chars"`
	MinFAQChars     int `yaml:"min_faq_chars"`
	MinCTAChars     int `yaml:"min_cta_chars"`
}

type FingerprintConfig struct {
	Backend     string `yaml:"backend"` // db or redis
	SampleLimit int    `yaml:"sample_limit"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type SchedulerConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ScanInterval  string `yaml:"scan_interval"`
	StatsInterval string `yaml:"stats_interval"`
}

type AuthConfig struct {
	Enabled    bool     `yaml:"enabled"`
	TOTPSecret string   `yaml:"totp_secret"`
	SessionTTL string   `yaml:"session_ttl"`
	Allowlist  []string `yaml:"allowlist"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// ApplyDefaults fills zero values with the built-in defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5334
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "pagemill.db"
	}

	if cfg.Generation.BatchSize <= 0 {
		cfg.Generation.BatchSize = 25
	}
	if cfg.Generation.MaxPagesLimit <= 0 {
		cfg.Generation.MaxPagesLimit = 20000
	}
	if cfg.Generation.FailFast == nil {
		failFast := true
		cfg.Generation.FailFast = &failFast
	}
	if cfg.Generation.BrandName == "" {
		cfg.Generation.BrandName = "Pagemill Pros"
	}

	if cfg.Scan.PageSize <= 0 {
		cfg.Scan.PageSize = 200
	}
	if cfg.Scan.MaxPageIDs <= 0 {
		cfg.Scan.MaxPageIDs = 500
	}
	if cfg.Scan.WriteBatchLimit <= 0 || cfg.Scan.WriteBatchLimit > 400 {
		cfg.Scan.WriteBatchLimit = 400
	}
	if cfg.Scan.GlobalScope == "" {
		cfg.Scan.GlobalScope = "_global"
	}

	if cfg.QA.MinTotalChars <= 0 {
		cfg.QA.MinTotalChars = 1200
	}
	if cfg.QA.MinSectionChars <= 0 {
		cfg.QA.MinSectionChars = 120
	}
	if cfg.QA.MinHeroChars <= 0 {
		cfg.QA.MinHeroChars = 40
	}
	if cfg.QA.MinFAQChars <= 0 {
		cfg.QA.MinFAQChars = 200
	}
	if cfg.QA.MinCTAChars <= 0 {
		cfg.QA.MinCTAChars = 40
	}

	if cfg.Fingerprint.Backend == "" {
		cfg.Fingerprint.Backend = "db"
	}
	if cfg.Fingerprint.SampleLimit <= 0 {
		cfg.Fingerprint.SampleLimit = 50
	}

	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "pagemill"
	}

	if cfg.Scheduler.ScanInterval == "" {
		cfg.Scheduler.ScanInterval = "24h"
	}
	if cfg.Scheduler.StatsInterval == "" {
		cfg.Scheduler.StatsInterval = "5m"
	}

	if cfg.Auth.SessionTTL == "" {
		cfg.Auth.SessionTTL = "12h"
	}
}
