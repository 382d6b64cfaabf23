package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App      AppConfig
	Discord  DiscordConfig
	Tickets  TicketConfig
	Payments PaymentConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Events   EventsConfig
}

// AppConfig controls the ops HTTP server.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// DiscordConfig identifies the bot and the single guild it serves.
type DiscordConfig struct {
	Token         string
	ApplicationID string
	GuildID       string
}

// TicketConfig names the roles and archive channels the workflow relies on.
type TicketConfig struct {
	StaffRoleName       string
	AdminRoleName       string
	PriorityChannelName string
	LogsChannelName     string
	FeedbackChannelName string
	CloseDelaySeconds   int
	ConfirmTTLSeconds   int
}

// PaymentConfig holds fallbacks used when a payment method has no details set.
type PaymentConfig struct {
	DefaultID string
	QRPath    string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. KeyPrefix namespaces every key the bot
// writes so several deployments can share one server.
type RedisConfig struct {
	Addr              string
	Password          string
	DB                int
	KeyPrefix         string
	PingTimeoutMillis int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines admin API authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	AdminPasswordHash     string
	BcryptCost            int
}

// EventsConfig enables forwarding lifecycle events to RabbitMQ.
type EventsConfig struct {
	RabbitMQURL string
	Exchange    string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-bot"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Discord: DiscordConfig{
			Token:         os.Getenv("DISCORD_TOKEN"),
			ApplicationID: os.Getenv("DISCORD_APPLICATION_ID"),
			GuildID:       os.Getenv("DISCORD_GUILD_ID"),
		},
		Tickets: TicketConfig{
			StaffRoleName:       getEnv("TICKET_STAFF_ROLE", "Staff"),
			AdminRoleName:       getEnv("TICKET_ADMIN_ROLE", "Admin"),
			PriorityChannelName: getEnv("TICKET_PRIORITY_CHANNEL", "priority"),
			LogsChannelName:     getEnv("TICKET_LOGS_CHANNEL", "ticket-logs"),
			FeedbackChannelName: getEnv("TICKET_FEEDBACK_CHANNEL", "feedback"),
			CloseDelaySeconds:   getEnvAsInt("TICKET_CLOSE_DELAY_SECONDS", 15),
			ConfirmTTLSeconds:   getEnvAsInt("TICKET_CONFIRM_TTL_SECONDS", 300),
		},
		Payments: PaymentConfig{
			DefaultID: getEnv("PAYMENT_DEFAULT_ID", "not set yet"),
			QRPath:    os.Getenv("PAYMENT_QR_PATH"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:              getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:          os.Getenv("REDIS_PASSWORD"),
			DB:                redisDB,
			KeyPrefix:         getEnv("REDIS_KEY_PREFIX", "ticketbot"),
			PingTimeoutMillis: getEnvAsInt("REDIS_PING_TIMEOUT_MS", 2000),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			AdminPasswordHash:     os.Getenv("AUTH_ADMIN_PASSWORD_HASH"),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Events: EventsConfig{
			RabbitMQURL: os.Getenv("EVENTS_RABBITMQ_URL"),
			Exchange:    getEnv("EVENTS_EXCHANGE", "ticket-bot.events"),
		},
	}

	return cfg, nil
}

// Validate checks the settings the bot cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Discord.Token == "" {
		errs = append(errs, errors.New("DISCORD_TOKEN is required"))
	}
	if c.Discord.GuildID == "" {
		errs = append(errs, errors.New("DISCORD_GUILD_ID is required"))
	}
	if c.Tickets.StaffRoleName == "" {
		errs = append(errs, errors.New("TICKET_STAFF_ROLE must not be empty"))
	}
	if c.Tickets.CloseDelaySeconds < 0 {
		errs = append(errs, errors.New("TICKET_CLOSE_DELAY_SECONDS must not be negative"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// CloseDelay is how long a closed ticket channel stays readable before deletion.
func (t TicketConfig) CloseDelay() time.Duration {
	if t.CloseDelaySeconds <= 0 {
		return 0
	}
	return time.Duration(t.CloseDelaySeconds) * time.Second
}

// PingTimeout bounds connection checks against Redis.
func (r RedisConfig) PingTimeout() time.Duration {
	if r.PingTimeoutMillis <= 0 {
		return 2 * time.Second
	}
	return time.Duration(r.PingTimeoutMillis) * time.Millisecond
}

// AccessTokenTTL is how long an admin API token stays valid.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	if a.AccessTokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// ConfirmTTL bounds how long a pending call-staff confirmation stays valid.
func (t TicketConfig) ConfirmTTL() time.Duration {
	if t.ConfirmTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(t.ConfirmTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
