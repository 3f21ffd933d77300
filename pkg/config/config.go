package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"StockTime/pkg/util"
)

type Config struct {
	Environment string          `yaml:"environment" default:"development" validate:"required"`
	Server      ServerConfig    `yaml:"server"`
	Log         LogConfig       `yaml:"log"`
	Gateway     GatewayConfig   `yaml:"gateway"`
	Cache       CacheConfig     `yaml:"cache"`
	Kafka       KafkaConfig     `yaml:"kafka"`
	Events      EventsConfig    `yaml:"events"`
	Sessions    SessionsConfig  `yaml:"sessions"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	SlowThreshold   time.Duration `yaml:"slow_threshold" default:"1s"`
	CORS            bool          `yaml:"cors" default:"true"`
	CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error fatal panic"`
	Format string `yaml:"format" default:"console" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
	// Aggregated error/warn batches are shipped to Kafka when a topic is set and brokers exist.
	CollectTopic    string        `yaml:"collect_topic"`
	CollectInterval time.Duration `yaml:"collect_interval" default:"30s"`
	CollectMax      int           `yaml:"collect_max" default:"100"`
}

type GatewayConfig struct {
	BaseURL     string        `yaml:"base_url" default:"http://localhost:5000" validate:"required,http_url"`
	Timeout     time.Duration `yaml:"timeout" default:"60s" validate:"gt=0"`
	PredictTTL  time.Duration `yaml:"predict_ttl"`
	TrackingTTL time.Duration `yaml:"tracking_ttl" default:"10s"`
}

type CacheConfig struct {
	Type         string        `yaml:"type" default:"memory" validate:"oneof=none memory redis layered"`
	MaxSize      int           `yaml:"max_size" default:"1000" validate:"gte=1"`
	Cleanup      time.Duration `yaml:"cleanup" default:"1m"`
	L1TTL        time.Duration `yaml:"l1_ttl" default:"30s"`
	RedisAddr    string        `yaml:"redis_addr" default:"localhost:6379"`
	RedisPass    string        `yaml:"redis_password"`
	RedisDB      int           `yaml:"redis_db"`
	RedisPrefix  string        `yaml:"redis_prefix" default:"stocktime"`
	PoolSize     int           `yaml:"pool_size" default:"10"`
	MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
	DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
}

type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic" default:"stocktime.dashboard.events"`
	RequiredAcks int           `yaml:"required_acks" default:"1" validate:"oneof=-1 0 1"`
	Compression  string        `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	MaxAttempts  int           `yaml:"max_attempts" default:"5"`
	BatchSize    int           `yaml:"batch_size" default:"100"`
	BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
	Linger       time.Duration `yaml:"linger" default:"50ms"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	Async        bool          `yaml:"async"`
}

// AllowedOrigins is the browser origin list, or nil when CORS is off.
func (s ServerConfig) AllowedOrigins() []string {
	if !s.CORS {
		return nil
	}
	return s.CORSOrigins
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type EventsConfig struct {
	MaxRPS     int `yaml:"max_rps" default:"20" validate:"gte=1"`
	BufferSize int `yaml:"buffer_size" default:"1000" validate:"gte=1"`
}

type SessionsConfig struct {
	Max           int           `yaml:"max" default:"500"`
	IdleTTL       time.Duration `yaml:"idle_ttl" default:"30m" validate:"gt=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" default:"1m" validate:"gt=0"`
}

type RateLimitConfig struct {
	Enabled   bool    `yaml:"enabled" default:"true"`
	Burst     float64 `yaml:"burst" default:"5"`
	PerSecond float64 `yaml:"per_second" default:"0.5"`
}

var validate = validator.New()

// Load reads .env (if present), applies defaults, then the YAML file at path (if any), then
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PREDICTION_SERVICE_URL"); v != "" {
		c.Gateway.BaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("CACHE_TYPE"); v != "" {
		c.Cache.Type = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	c.Server.Port = util.ParseIntDefault(os.Getenv("PORT"), c.Server.Port)
}

// Validate checks field constraints and the cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when brokers are set")
	}
	if (c.Cache.Type == "redis" || c.Cache.Type == "layered") && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required for cache type %q", c.Cache.Type)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Burst < 1 || c.RateLimit.PerSecond <= 0) {
		return fmt.Errorf("rate_limit: burst must be >= 1 and per_second > 0")
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
