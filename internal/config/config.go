package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	NATS       NATSConfig       `yaml:"nats"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Resolution ResolutionConfig `yaml:"resolution"`
	Vision     VisionConfig     `yaml:"vision"`
	Platforms  PlatformsConfig  `yaml:"platforms"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
	// RatePerSec throttles inbound API requests; 0 disables the limiter.
	RatePerSec float64 `yaml:"rate_per_sec"`
	RateBurst  int     `yaml:"rate_burst"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type ResolutionConfig struct {
	// MatchThreshold is the score a candidate must strictly exceed to be
	// merged into a person.
	MatchThreshold int `yaml:"match_threshold"`
	// MinIdentifiability gates which persons enter cross-platform search.
	MinIdentifiability int `yaml:"min_identifiability"`
	// MaxImagesPerProfile bounds post-image downloads during elaboration.
	MaxImagesPerProfile int `yaml:"max_images_per_profile"`
	// MaxSearchResults bounds each keyword search on a platform.
	MaxSearchResults int `yaml:"max_search_results"`
	// ExtraKeywords are appended to every derived name keyword, e.g. a
	// region name that narrows fuzzy searches.
	ExtraKeywords []string `yaml:"extra_keywords"`
	// Workers bounds the per-image elaboration pool; 0 means NumCPU.
	Workers int `yaml:"workers"`
}

type VisionConfig struct {
	ModelsDir            string  `yaml:"models_dir"`
	DetectionThreshold   float64 `yaml:"detection_threshold"`
	RecognitionThreshold float64 `yaml:"recognition_threshold"`
	// HashTolerance is the maximum hamming distance at which two
	// perceptual hashes count as similar.
	HashTolerance int `yaml:"hash_tolerance"`
}

type PlatformsConfig struct {
	Telegram  PlatformConfig `yaml:"telegram"`
	Instagram PlatformConfig `yaml:"instagram"`
	Facebook  PlatformConfig `yaml:"facebook"`
	Twitter   PlatformConfig `yaml:"twitter"`
}

type PlatformConfig struct {
	Enabled bool `yaml:"enabled"`
	// Endpoint is the base URL of this platform's connector sidecar.
	Endpoint string `yaml:"endpoint"`
	// RatePerSec is the sustained request ceiling, e.g. 0.056 for roughly
	// 200 requests per hour.
	RatePerSec float64 `yaml:"rate_per_sec"`
	// StateFile persists the rolling request counter across restarts.
	StateFile string `yaml:"state_file"`
	// BreakerCooldown is how long the circuit stays open after repeated
	// transport failures.
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// For returns the configuration for a platform by name; unknown names get
// a zero config with Enabled false.
func (p PlatformsConfig) For(name string) PlatformConfig {
	switch name {
	case "telegram":
		return p.Telegram
	case "instagram":
		return p.Instagram
	case "facebook":
		return p.Facebook
	case "twitter":
		return p.Twitter
	}
	return PlatformConfig{}
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 20
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Resolution.MatchThreshold == 0 {
		cfg.Resolution.MatchThreshold = 5
	}
	if cfg.Resolution.MinIdentifiability == 0 {
		cfg.Resolution.MinIdentifiability = 5
	}
	if cfg.Resolution.MaxImagesPerProfile == 0 {
		cfg.Resolution.MaxImagesPerProfile = 30
	}
	if cfg.Resolution.MaxSearchResults == 0 {
		cfg.Resolution.MaxSearchResults = 20
	}
	if cfg.Vision.DetectionThreshold == 0 {
		cfg.Vision.DetectionThreshold = 0.5
	}
	if cfg.Vision.RecognitionThreshold == 0 {
		cfg.Vision.RecognitionThreshold = 0.4
	}
	if cfg.Vision.HashTolerance == 0 {
		cfg.Vision.HashTolerance = 6
	}
	setPlatformDefaults(&cfg.Platforms.Telegram, "telegram")
	setPlatformDefaults(&cfg.Platforms.Instagram, "instagram")
	setPlatformDefaults(&cfg.Platforms.Facebook, "facebook")
	setPlatformDefaults(&cfg.Platforms.Twitter, "twitter")
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func setPlatformDefaults(p *PlatformConfig, name string) {
	if p.RatePerSec == 0 {
		p.RatePerSec = 0.056 // roughly 200 requests per hour
	}
	if p.StateFile == "" {
		p.StateFile = fmt.Sprintf("session.%s.json", name)
	}
	if p.BreakerCooldown == 0 {
		p.BreakerCooldown = time.Minute
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("UNFOLD_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("UNFOLD_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("UNFOLD_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("UNFOLD_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("UNFOLD_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("UNFOLD_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("UNFOLD_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("UNFOLD_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("UNFOLD_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("UNFOLD_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("UNFOLD_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("UNFOLD_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("UNFOLD_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	if v := os.Getenv("UNFOLD_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Resolution.Workers = n
		}
	}
}
