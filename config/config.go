package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	GRPC        GRPCConfig        `yaml:"grpc"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Reservation ReservationConfig `yaml:"reservation"`
	Worker      WorkerConfig      `yaml:"worker"`
	CORS        CORSConfig        `yaml:"cors"`
	Log         LogConfig         `yaml:"log"`
}

type HTTPConfig struct {
	Address             string `yaml:"address"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int32  `yaml:"max_conns"`
}

// DSN prefers an explicit URL and falls back to a keyword/value string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	TicketEventsTopic  string   `yaml:"ticket_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type ReservationConfig struct {
	DefaultPriceCents    int64 `yaml:"default_price_cents"`
	TripsCacheTTLSeconds int   `yaml:"trips_cache_ttl_seconds"`
	HoldTTLMinutes       int   `yaml:"hold_ttl_minutes"`
}

func (r ReservationConfig) TripsCacheTTL() time.Duration {
	return time.Duration(r.TripsCacheTTLSeconds) * time.Second
}

// HoldTTL is how long a ticket may stay pending. Zero disables expiry.
func (r ReservationConfig) HoldTTL() time.Duration {
	return time.Duration(r.HoldTTLMinutes) * time.Minute
}

type WorkerConfig struct {
	ExpirationSweepMinutes int `yaml:"expiration_sweep_minutes"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if port := strings.TrimSpace(getenv("PORT")); port != "" {
		c.HTTP.Address = ":" + port
	}
	if dsn := strings.TrimSpace(getenv("DATABASE_URL")); dsn != "" {
		c.Database.URL = dsn
	}
	if addr := strings.TrimSpace(getenv("REDIS_ADDR")); addr != "" {
		c.Redis.Addr = addr
	}
	if brokers := splitList(getenv("KAFKA_BROKERS")); len(brokers) > 0 {
		c.Kafka.Brokers = brokers
	}
	if origins := splitList(getenv("CORS_ALLOWED_ORIGINS")); len(origins) > 0 {
		c.CORS.AllowedOrigins = origins
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":3000"
	}
	if c.HTTP.ReadTimeoutSeconds == 0 {
		c.HTTP.ReadTimeoutSeconds = 20
	}
	if c.HTTP.WriteTimeoutSeconds == 0 {
		c.HTTP.WriteTimeoutSeconds = 20
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Reservation.DefaultPriceCents == 0 {
		c.Reservation.DefaultPriceCents = 10000
	}
	if c.Reservation.TripsCacheTTLSeconds == 0 {
		c.Reservation.TripsCacheTTLSeconds = 30
	}
	if c.Worker.ExpirationSweepMinutes == 0 {
		c.Worker.ExpirationSweepMinutes = 1
	}
	if c.Kafka.TicketEventsTopic == "" {
		c.Kafka.TicketEventsTopic = "ticket-events"
	}
	if c.Kafka.NotificationsTopic == "" {
		c.Kafka.NotificationsTopic = "ticket-notifications"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "trip-notifications"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" && c.Database.Host == "" {
		errs = append(errs, errors.New("database: url or host is required"))
	}
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errs = append(errs, fmt.Errorf("database: url: %w", err))
		}
	}
	if c.Reservation.DefaultPriceCents < 0 {
		errs = append(errs, errors.New("reservation: default_price_cents must not be negative"))
	}
	if c.Reservation.HoldTTLMinutes < 0 {
		errs = append(errs, errors.New("reservation: hold_ttl_minutes must not be negative"))
	}
	if c.Worker.ExpirationSweepMinutes < 0 {
		errs = append(errs, errors.New("worker: expiration_sweep_minutes must not be negative"))
	}
	if c.Kafka.Enabled() && c.Kafka.TicketEventsTopic == "" {
		errs = append(errs, errors.New("kafka: ticket_events_topic is required when brokers are set"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log: unknown format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
