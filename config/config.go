package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTAccessSecret string

	// Redis is optional: the broadcast relay and the shared rate-limit store
	// are skipped when RedisAddr is empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers           []string
	KafkaNotificationTopic string
	KafkaGroupID           string

	FCMCredentialsPath string // Path to Firebase service account JSON
	FCMProjectID       string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	// Timezone used for quiet-hours evaluation. Empty means server local.
	Timezone string

	LogLevel  string
	LogFormat string
	LogFile   string

	CORSOrigins []string

	SSEHeartbeatInterval time.Duration
	SSEPollInterval      time.Duration
	SSEMaxAge            time.Duration

	NotificationRetentionDays int
	RateLimitPerMinute        int64
}

// Load reads .env (when present) and the process environment.
// Precedence: environment > .env > defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("port", "8080")

	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "church")
	v.SetDefault("db_sslmode", "disable")

	v.SetDefault("redis_db", 0)

	v.SetDefault("kafka_notification_topic", "church.notifications")
	v.SetDefault("kafka_group_id", "notification-core")

	v.SetDefault("vapid_subject", "mailto:admin@localhost")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("cors_origins", "http://localhost:3000")

	v.SetDefault("sse_heartbeat_interval", "30s")
	v.SetDefault("sse_poll_interval", "5s")
	v.SetDefault("sse_max_age", "290s")

	v.SetDefault("notification_retention_days", 90)
	v.SetDefault("rate_limit_per_minute", 120)

	cfg := &Config{
		Port: v.GetString("port"),

		DBHost:     v.GetString("db_host"),
		DBPort:     v.GetString("db_port"),
		DBUser:     v.GetString("db_user"),
		DBPassword: v.GetString("db_password"),
		DBName:     v.GetString("db_name"),
		DBSSLMode:  v.GetString("db_sslmode"),

		JWTAccessSecret: v.GetString("jwt_access_secret"),

		RedisAddr:     v.GetString("redis_addr"),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),

		KafkaBrokers:           splitList(v.GetString("kafka_brokers")),
		KafkaNotificationTopic: v.GetString("kafka_notification_topic"),
		KafkaGroupID:           v.GetString("kafka_group_id"),

		FCMCredentialsPath: v.GetString("fcm_credentials_path"),
		FCMProjectID:       v.GetString("fcm_project_id"),

		VAPIDPublicKey:  v.GetString("vapid_public_key"),
		VAPIDPrivateKey: v.GetString("vapid_private_key"),
		VAPIDSubject:    v.GetString("vapid_subject"),

		Timezone: v.GetString("timezone"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogFile:   v.GetString("log_file"),

		CORSOrigins: splitList(v.GetString("cors_origins")),

		SSEHeartbeatInterval: v.GetDuration("sse_heartbeat_interval"),
		SSEPollInterval:      v.GetDuration("sse_poll_interval"),
		SSEMaxAge:            v.GetDuration("sse_max_age"),

		NotificationRetentionDays: v.GetInt("notification_retention_days"),
		RateLimitPerMinute:        v.GetInt64("rate_limit_per_minute"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.DBHost == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if len(c.JWTAccessSecret) < 16 {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET must be at least 16 characters"))
	}
	if c.SSEHeartbeatInterval <= 0 || c.SSEPollInterval <= 0 || c.SSEMaxAge <= 0 {
		errs = append(errs, errors.New("SSE intervals must be positive"))
	}
	if c.NotificationRetentionDays < 0 {
		errs = append(errs, errors.New("NOTIFICATION_RETENTION_DAYS must not be negative"))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be json or console", c.LogFormat))
	}
	return errors.Join(errs...)
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

// PushConfigured reports whether both VAPID keys are present.
func (c *Config) PushConfigured() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// Location resolves Timezone, falling back to the server's local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
