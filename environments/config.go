package environments

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Gateway   GatewayConfig
	Scheduler SchedulerConfig
	Dispatch  DispatchConfig
	Alert     AlertConfig
	Auth      AuthConfig
	Events    EventsConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// GatewayConfig points at the channel gateway that owns tenant sessions.
type GatewayConfig struct {
	URL            string
	AuthKey        string
	ConnectTimeout time.Duration
	Timeout        time.Duration
}

type SchedulerConfig struct {
	TickInterval     time.Duration
	Timezone         string
	DistributedLease bool
	LeaseTTL         time.Duration
	AutoStart        bool
}

// DispatchConfig bounds the randomized pause between consecutive sends.
type DispatchConfig struct {
	DelayMin time.Duration
	DelayMax time.Duration
}

type AlertConfig struct {
	WebhookURL     string
	IterationCount int
}

type AuthConfig struct {
	MessagesAPIKey  string
	SchedulerAPIKey string
}

type EventsConfig struct {
	AMQPURL  string
	Exchange string
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: GetEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "dispatcher"),
			Password: GetEnv("DB_PASSWORD", "dispatcher123"),
			DBName:   GetEnv("DB_NAME", "campaign_dispatch"),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvAsInt("REDIS_DB", 0),
		},
		Gateway: GatewayConfig{
			URL:            GetEnv("GATEWAY_URL", "http://localhost:3001"),
			AuthKey:        GetEnv("GATEWAY_AUTH_KEY", ""),
			ConnectTimeout: time.Duration(GetEnvAsInt("GATEWAY_CONNECT_TIMEOUT_SECONDS", 5)) * time.Second,
			Timeout:        time.Duration(GetEnvAsInt("GATEWAY_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Scheduler: SchedulerConfig{
			TickInterval:     time.Duration(GetEnvAsInt("SCHEDULER_TICK_INTERVAL_SECONDS", 60)) * time.Second,
			Timezone:         GetEnv("SCHEDULER_TIMEZONE", "UTC"),
			DistributedLease: GetEnvAsBool("SCHEDULER_DISTRIBUTED_LEASE", false),
			LeaseTTL:         time.Duration(GetEnvAsInt("SCHEDULER_LEASE_TTL_SECONDS", 600)) * time.Second,
			AutoStart:        GetEnvAsBool("AUTO_START_SCHEDULER", true),
		},
		Dispatch: DispatchConfig{
			DelayMin: time.Duration(GetEnvAsInt("DISPATCH_DELAY_MIN_MS", 2000)) * time.Millisecond,
			DelayMax: time.Duration(GetEnvAsInt("DISPATCH_DELAY_MAX_MS", 6000)) * time.Millisecond,
		},
		Alert: AlertConfig{
			WebhookURL:     GetEnv("ALERT_WEBHOOK_URL", ""),
			IterationCount: GetEnvAsInt("ALERT_ITERATION_COUNT", 0),
		},
		Auth: AuthConfig{
			MessagesAPIKey:  GetEnv("MESSAGES_API_KEY", ""),
			SchedulerAPIKey: GetEnv("SCHEDULER_API_KEY", ""),
		},
		Events: EventsConfig{
			AMQPURL:  GetEnv("AMQP_URL", ""),
			Exchange: GetEnv("AMQP_EXCHANGE", "dispatch.events"),
		},
		Log: LogConfig{
			Level:  GetEnv("LOG_LEVEL", "info"),
			Pretty: GetEnvAsBool("LOG_PRETTY", false),
		},
	}
}

// Location resolves the scheduler timezone, falling back to UTC.
func (c SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
