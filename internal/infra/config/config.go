package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Argon2    Argon2Settings    `mapstructure:"argon2"`
	Reset     ResetSettings     `mapstructure:"reset"`
	Mail      MailSettings      `mapstructure:"mail"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	// ThrottlePrefix namespaces rate-limit counter keys.
	ThrottlePrefix string `mapstructure:"throttle_prefix"`
}

type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// RateLimitSettings configures the default gating budgets per throttle type.
// Routes may override these when binding the middleware.
type RateLimitSettings struct {
	AuthMaxAttempts          int           `mapstructure:"auth_max_attempts"`
	AuthWindow               time.Duration `mapstructure:"auth_window"`
	PasswordResetMaxAttempts int           `mapstructure:"password_reset_max_attempts"`
	PasswordResetWindow      time.Duration `mapstructure:"password_reset_window"`
	APIMaxAttempts           int           `mapstructure:"api_max_attempts"`
	APIWindow                time.Duration `mapstructure:"api_window"`
}

// Argon2Settings configures Argon2id password hashing parameters.
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

// ResetSettings configures the password reset protocol.
type ResetSettings struct {
	TicketTTL   time.Duration `mapstructure:"ticket_ttl"`
	CallbackURL string        `mapstructure:"callback_url"`
	MinScore    int           `mapstructure:"min_score"`
}

// MailSettings configures the notification sink. Driver is "log" or
// "mailgun".
type MailSettings struct {
	Driver        string `mapstructure:"driver"`
	MailgunDomain string `mapstructure:"mailgun_domain"`
	MailgunAPIKey string `mapstructure:"mailgun_api_key"`
	Sender        string `mapstructure:"sender"`
}

type TelemetrySettings struct {
	ServiceName string `mapstructure:"service_name"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("RENTPLAN")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.throttle_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"telemetry.service_name",
		"rate_limit.auth_max_attempts",
		"rate_limit.auth_window",
		"rate_limit.password_reset_max_attempts",
		"rate_limit.password_reset_window",
		"rate_limit.api_max_attempts",
		"rate_limit.api_window",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"reset.ticket_ttl",
		"reset.callback_url",
		"reset.min_score",
		"mail.driver",
		"mail.mailgun_domain",
		"mail.mailgun_api_key",
		"mail.sender",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "rentplan-auth")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "rentplan")
	v.SetDefault("postgres.password", "rentplan_password")
	v.SetDefault("postgres.database", "rentplan")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.throttle_prefix", "rentplan:throttle")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "rentplan")
	v.SetDefault("kafka.async", true)

	v.SetDefault("telemetry.service_name", "rentplan-auth")

	v.SetDefault("rate_limit.auth_max_attempts", 5)
	v.SetDefault("rate_limit.auth_window", "60s")
	v.SetDefault("rate_limit.password_reset_max_attempts", 3)
	v.SetDefault("rate_limit.password_reset_window", "60s")
	v.SetDefault("rate_limit.api_max_attempts", 60)
	v.SetDefault("rate_limit.api_window", "60s")

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("reset.ticket_ttl", "60m")
	v.SetDefault("reset.callback_url", "http://localhost:3000/password/reset")
	v.SetDefault("reset.min_score", 2)

	v.SetDefault("mail.driver", "log")
	v.SetDefault("mail.mailgun_domain", "")
	v.SetDefault("mail.mailgun_api_key", "")
	v.SetDefault("mail.sender", "no-reply@rentplan.local")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "RENTPLAN_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
