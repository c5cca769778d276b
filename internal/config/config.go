package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default location of the YAML config file.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                    string `yaml:"port"`
	LogLevel                string `yaml:"logLevel"`
	DatabaseURL             string `yaml:"databaseURL"`
	RedisAddr               string `yaml:"redisAddr"`
	RedisPassword           string `yaml:"redisPassword"`
	SessionTTL              string `yaml:"sessionTTL"`
	JWTSecret               string `yaml:"jwtSecret"`
	MinioEndpoint           string `yaml:"minioEndpoint"`
	MinioAccessKey          string `yaml:"minioAccessKey"`
	MinioSecretKey          string `yaml:"minioSecretKey"`
	MinioUseSSL             bool   `yaml:"minioUseSSL"`
	ImageBucket             string `yaml:"imageBucket"`
	BlogImageBucket         string `yaml:"blogImageBucket"`
	AMQPURL                 string `yaml:"amqpURL"`
	FunctionQueue           string `yaml:"functionQueue"`
	RecognizerURL           string `yaml:"recognizerURL"`
	RecognizerAPIKey        string `yaml:"recognizerAPIKey"`
	ExecutionTTL            string `yaml:"executionTTL"`
	PollInterval            string `yaml:"pollInterval"`
	PollTimeout             string `yaml:"pollTimeout"`
	RegisterRateLimitPerMin int    `yaml:"registerRateLimitPerMin"`
	LoginRateLimitPerMin    int    `yaml:"loginRateLimitPerMin"`
	MaxUploadBytes          int64  `yaml:"maxUploadBytes"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		cfg.SessionTTL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MinioUseSSL = b
		}
	}
	if v := os.Getenv("IMAGE_BUCKET"); v != "" {
		cfg.ImageBucket = v
	}
	if v := os.Getenv("BLOG_IMAGE_BUCKET"); v != "" {
		cfg.BlogImageBucket = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		cfg.AMQPURL = v
	}
	if v := os.Getenv("FUNCTION_QUEUE"); v != "" {
		cfg.FunctionQueue = v
	}
	if v := os.Getenv("RECOGNIZER_URL"); v != "" {
		cfg.RecognizerURL = v
	}
	if v := os.Getenv("RECOGNIZER_API_KEY"); v != "" {
		cfg.RecognizerAPIKey = v
	}
	if v := os.Getenv("EXECUTION_TTL"); v != "" {
		cfg.ExecutionTTL = v
	}
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		cfg.PollInterval = v
	}
	if v := os.Getenv("POLL_TIMEOUT"); v != "" {
		cfg.PollTimeout = v
	}
	if v := os.Getenv("REGISTER_RATE_LIMIT_PER_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RegisterRateLimitPerMin = n
		}
	}
	if v := os.Getenv("LOGIN_RATE_LIMIT_PER_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LoginRateLimitPerMin = n
		}
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml)")
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required (sessions, executions, rate limiting)")
	}
	if cfg.MinioEndpoint == "" {
		return errors.New("config: minioEndpoint is required (set MINIO_ENDPOINT)")
	}
	if cfg.AMQPURL == "" {
		return errors.New("config: amqpURL is required (set AMQP_URL)")
	}
	if cfg.RegisterRateLimitPerMin < 0 || cfg.LoginRateLimitPerMin < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if _, err := ParseOptionalDuration("sessionTTL", cfg.SessionTTL); err != nil {
		return err
	}
	if _, err := ParseOptionalDuration("executionTTL", cfg.ExecutionTTL); err != nil {
		return err
	}
	if _, err := ParseOptionalDuration("pollInterval", cfg.PollInterval); err != nil {
		return err
	}
	if _, err := ParseOptionalDuration("pollTimeout", cfg.PollTimeout); err != nil {
		return err
	}
	return nil
}

// ParseOptionalDuration parses an optional duration field; empty means
// "use the built-in default" and yields zero.
func ParseOptionalDuration(name, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", name, err)
	}
	return dur, nil
}
