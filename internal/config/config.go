// backend-go/internal/config/config.go
package config

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Forecast  ForecastConfig
	Worker    WorkerConfig
	Scheduler SchedulerConfig
	Alerts    AlertConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogFormat      string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	ForecastTTLSeconds int
}

// ForecastConfig holds the tunables of the forecasting pipeline.
type ForecastConfig struct {
	DefaultHorizon      int
	LookbackDays        int
	MinHistoryPoints    int
	MovingAverageWindow int
	SmoothingAlpha      float64
	DefaultLeadTimeDays int
}

// WorkerConfig describes how the numeric worker process is launched. The model
// entry point name is appended as the last argument.
type WorkerConfig struct {
	Command       string
	Args          []string
	Dir           string
	Timeout       time.Duration
	MaxConcurrent int
}

type SchedulerConfig struct {
	Enabled      bool
	Timezone     string
	DailyCron    string
	WeeklyCron   string
	LowStockCron string
	ExpiryCron   string
}

type AlertConfig struct {
	PublishEnabled bool
	Channel        string
}

var (
	once     sync.Once
	instance *Config
)

// Load reads configuration from the environment (and .env) once per process.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.New()
		v.AutomaticEnv()
		instance = LoadFrom(v)
	})

	return instance
}

// LoadFrom builds a Config from the given viper instance after applying defaults.
func LoadFrom(v *viper.Viper) *Config {
	setDefaults(v)

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			LogFormat:      v.GetString("LOG_FORMAT"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Cache: CacheConfig{
			Enabled:            v.GetBool("CACHE_ENABLED"),
			RedisURL:           v.GetString("REDIS_URL"),
			RedisHost:          v.GetString("REDIS_HOST"),
			RedisPort:          v.GetString("REDIS_PORT"),
			RedisPassword:      v.GetString("REDIS_PASSWORD"),
			RedisDB:            v.GetInt("REDIS_DB"),
			ForecastTTLSeconds: v.GetInt("CACHE_FORECAST_TTL_SECONDS"),
		},
		Forecast: ForecastConfig{
			DefaultHorizon:      v.GetInt("FORECAST_DEFAULT_HORIZON"),
			LookbackDays:        v.GetInt("FORECAST_LOOKBACK_DAYS"),
			MinHistoryPoints:    v.GetInt("FORECAST_MIN_HISTORY_POINTS"),
			MovingAverageWindow: v.GetInt("FORECAST_MA_WINDOW"),
			SmoothingAlpha:      v.GetFloat64("FORECAST_SMOOTHING_ALPHA"),
			DefaultLeadTimeDays: v.GetInt("FORECAST_DEFAULT_LEAD_TIME_DAYS"),
		},
		Worker: WorkerConfig{
			Command:       v.GetString("WORKER_COMMAND"),
			Args:          splitArgs(v.GetString("WORKER_ARGS")),
			Dir:           v.GetString("WORKER_DIR"),
			Timeout:       time.Duration(v.GetInt("WORKER_TIMEOUT_SECONDS")) * time.Second,
			MaxConcurrent: v.GetInt("WORKER_MAX_CONCURRENT"),
		},
		Scheduler: SchedulerConfig{
			Enabled:      v.GetBool("SCHEDULER_ENABLED"),
			Timezone:     v.GetString("SCHEDULER_TIMEZONE"),
			DailyCron:    v.GetString("SCHEDULER_DAILY_CRON"),
			WeeklyCron:   v.GetString("SCHEDULER_WEEKLY_CRON"),
			LowStockCron: v.GetString("SCHEDULER_LOW_STOCK_CRON"),
			ExpiryCron:   v.GetString("SCHEDULER_EXPIRY_CRON"),
		},
		Alerts: AlertConfig{
			PublishEnabled: v.GetBool("ALERTS_PUBLISH_ENABLED"),
			Channel:        v.GetString("ALERTS_CHANNEL"),
		},
	}

	if cfg.Worker.Timeout <= 0 {
		log.Printf("config: non-positive WORKER_TIMEOUT_SECONDS, using 60s")
		cfg.Worker.Timeout = 60 * time.Second
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "stockcast")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_FORECAST_TTL_SECONDS", 300)
	v.SetDefault("FORECAST_DEFAULT_HORIZON", 14)
	v.SetDefault("FORECAST_LOOKBACK_DAYS", 60)
	v.SetDefault("FORECAST_MIN_HISTORY_POINTS", 5)
	v.SetDefault("FORECAST_MA_WINDOW", 5)
	v.SetDefault("FORECAST_SMOOTHING_ALPHA", 0.3)
	v.SetDefault("FORECAST_DEFAULT_LEAD_TIME_DAYS", 7)
	v.SetDefault("WORKER_COMMAND", "python3")
	v.SetDefault("WORKER_ARGS", "scripts/worker/run_model.py")
	v.SetDefault("WORKER_DIR", "")
	v.SetDefault("WORKER_TIMEOUT_SECONDS", 60)
	v.SetDefault("WORKER_MAX_CONCURRENT", 2)
	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("SCHEDULER_TIMEZONE", "UTC")
	v.SetDefault("SCHEDULER_DAILY_CRON", "0 2 * * *")
	v.SetDefault("SCHEDULER_WEEKLY_CRON", "0 3 * * 0")
	v.SetDefault("SCHEDULER_LOW_STOCK_CRON", "0 8 * * *")
	v.SetDefault("SCHEDULER_EXPIRY_CRON", "0 6 * * *")
	v.SetDefault("ALERTS_PUBLISH_ENABLED", false)
	v.SetDefault("ALERTS_CHANNEL", "stockcast:alerts")
}

func splitArgs(raw string) []string {
	return strings.Fields(raw)
}
