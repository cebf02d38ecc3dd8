package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int           `yaml:"port"`
		ReadTimeout    time.Duration `yaml:"readTimeout"`
		WriteTimeout   time.Duration `yaml:"writeTimeout"`
		IdleTimeout    time.Duration `yaml:"idleTimeout"`
		AllowedOrigins []string      `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Analysis struct {
		ItemDelay    time.Duration `yaml:"itemDelay"`
		SummaryDelay time.Duration `yaml:"summaryDelay"`
		Owner        string        `yaml:"owner"`
	} `yaml:"analysis"`

	Logging struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		OutputPath string `yaml:"outputPath"`
	} `yaml:"logging"`

	Auth struct {
		// client name -> api key; empty disables auth
		APIKeys map[string]string `yaml:"apiKeys"`
	} `yaml:"auth"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"rateLimit"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | "" (disabled)
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Redis struct {
		Addr      string        `yaml:"addr"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db"`
		ReportTTL time.Duration `yaml:"reportTTL"`
	} `yaml:"redis"`

	OpenAI struct {
		APIKey  string `yaml:"apiKey"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"baseURL"` // optional, for proxies and compatible gateways
	} `yaml:"openai"`
}

// Default returns a config that runs fully in memory.
func Default() *Config {
	var cfg Config
	cfg.Server.Port = 8080
	cfg.Server.ReadTimeout = 15 * time.Second
	cfg.Server.WriteTimeout = 15 * time.Second
	cfg.Server.IdleTimeout = 60 * time.Second
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}

	cfg.Analysis.ItemDelay = 800 * time.Millisecond
	cfg.Analysis.SummaryDelay = 500 * time.Millisecond
	cfg.Analysis.Owner = "user@gmail.com"

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.OutputPath = "stdout"

	cfg.RateLimit.Capacity = 60
	cfg.RateLimit.RefillRate = 10

	cfg.Database.SSLMode = "disable"
	cfg.Minio.Region = "us-east-1"
	cfg.Redis.ReportTTL = 10 * time.Minute
	cfg.OpenAI.Model = "gpt-4o-mini"
	return &cfg
}

// Load baca file config.yaml di atas default, lalu override dari env MAILGUARD_*.
// File yang tidak ada bukan error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDriverDefaults()
	return cfg, nil
}

// applyDriverDefaults isi port default sesuai driver kalau belum di-set
func (c *Config) applyDriverDefaults() {
	if c.Database.Port != 0 {
		return
	}
	switch c.Database.Driver {
	case "mysql":
		c.Database.Port = 3306
	case "postgres":
		c.Database.Port = 5432
	}
}

func (c *Config) applyEnv() error {
	var err error
	if c.Server.Port, err = getenvInt("MAILGUARD_PORT", c.Server.Port); err != nil {
		return err
	}
	if v := os.Getenv("MAILGUARD_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if c.Analysis.ItemDelay, err = getenvDuration("MAILGUARD_ITEM_DELAY", c.Analysis.ItemDelay); err != nil {
		return err
	}
	if c.Analysis.SummaryDelay, err = getenvDuration("MAILGUARD_SUMMARY_DELAY", c.Analysis.SummaryDelay); err != nil {
		return err
	}
	c.Analysis.Owner = getenv("MAILGUARD_OWNER", c.Analysis.Owner)
	c.Logging.Level = getenv("MAILGUARD_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getenv("MAILGUARD_LOG_FORMAT", c.Logging.Format)

	c.Database.Driver = getenv("MAILGUARD_DB_DRIVER", c.Database.Driver)
	c.Database.Host = getenv("MAILGUARD_DB_HOST", c.Database.Host)
	if c.Database.Port, err = getenvInt("MAILGUARD_DB_PORT", c.Database.Port); err != nil {
		return err
	}
	c.Database.User = getenv("MAILGUARD_DB_USER", c.Database.User)
	c.Database.Password = getenv("MAILGUARD_DB_PASSWORD", c.Database.Password)
	c.Database.Name = getenv("MAILGUARD_DB_NAME", c.Database.Name)

	c.Minio.Endpoint = getenv("MAILGUARD_MINIO_ENDPOINT", c.Minio.Endpoint)
	c.Minio.AccessKey = getenv("MAILGUARD_MINIO_ACCESS_KEY", c.Minio.AccessKey)
	c.Minio.SecretKey = getenv("MAILGUARD_MINIO_SECRET_KEY", c.Minio.SecretKey)
	c.Minio.BucketName = getenv("MAILGUARD_MINIO_BUCKET", c.Minio.BucketName)

	c.Redis.Addr = getenv("MAILGUARD_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getenv("MAILGUARD_REDIS_PASSWORD", c.Redis.Password)

	c.OpenAI.APIKey = getenv("MAILGUARD_OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.Model = getenv("MAILGUARD_OPENAI_MODEL", c.OpenAI.Model)
	c.OpenAI.BaseURL = getenv("MAILGUARD_OPENAI_BASE_URL", c.OpenAI.BaseURL)
	return nil
}

// MySQLDSN helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN helper untuk build DSN Postgres (lib/pq keyword format)
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
