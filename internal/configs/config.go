package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type DBconfig struct {
	URL             string
	MaxConns        int
	MaxConnLifetime time.Duration
	AutoMigrate     bool
}

type RESTconfig struct {
	PORT            string
	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxUploadSizeMB int
}

type RabbitMQConfig struct {
	URL        string
	RetryTTL   time.Duration
	MaxRetries int
	Prefetch   int
}

type ObjectStorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	UseSSL        bool
	PublicBaseURL string
}

type RedisConfig struct {
	Enabled      bool
	Addr         string
	Password     string
	DB           int
	AnalyticsTTL time.Duration
}

type MediaConfig struct {
	UploadWorkers int
	MaxDimension  int
	JPEGQuality   int
}

type RetryConfig struct {
	MaxTries        int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type StdoutLogConfig struct {
	Level  string
	IsJSON bool
}

type FluentBitConfig struct {
	Host    string
	Port    int
	Enabled bool
	Level   string
}

// AppConfig хранит всю конфигурацию приложения
type AppConfig struct {
	AppName string
	// StorageDriver: postgres (PostgreSQL + RabbitMQ + MinIO) или memory (всё в процессе)
	StorageDriver string

	Database      DBconfig
	Rest          RESTconfig
	RabbitMQ      RabbitMQConfig
	ObjectStorage ObjectStorageConfig
	Redis         RedisConfig
	Media         MediaConfig
	Retry         RetryConfig
	FluentBit     FluentBitConfig
	StdoutLogger  StdoutLogConfig
}

// LoadConfig читает .env (если он есть) и переменные окружения
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("could not load .env file (path: %v): %w", envPath, err)
		}
		log.Printf("Info: .env file not found (path: %v), using process environment", envPath)
	}

	cfg := &AppConfig{}

	cfg.AppName = getEnvAsString("APP_NAME", "listing-service")
	cfg.StorageDriver = strings.ToLower(getEnvAsString("STORAGE_DRIVER", StorageDriverPostgres))
	if cfg.StorageDriver != StorageDriverPostgres && cfg.StorageDriver != StorageDriverMemory {
		return nil, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageDriverPostgres, StorageDriverMemory, cfg.StorageDriver)
	}

	cfg.Rest.PORT = getEnvAsString("PORT", "8080")
	cfg.Rest.AllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"})
	cfg.Rest.ReadTimeout = getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second)
	cfg.Rest.WriteTimeout = getEnvAsDuration("HTTP_WRITE_TIMEOUT", 60*time.Second)
	cfg.Rest.MaxUploadSizeMB = getEnvAsInt("MAX_UPLOAD_SIZE_MB", 32)

	cfg.Media.UploadWorkers = getEnvAsInt("MEDIA_UPLOAD_WORKERS", 4)
	cfg.Media.MaxDimension = getEnvAsInt("MEDIA_MAX_DIMENSION", 1920)
	cfg.Media.JPEGQuality = getEnvAsInt("MEDIA_JPEG_QUALITY", 80)

	cfg.Retry.MaxTries = getEnvAsInt("RETRY_MAX_TRIES", 3)
	cfg.Retry.InitialInterval = getEnvAsDuration("RETRY_INITIAL_INTERVAL", 100*time.Millisecond)
	cfg.Retry.MaxInterval = getEnvAsDuration("RETRY_MAX_INTERVAL", 2*time.Second)

	cfg.RabbitMQ.RetryTTL = getEnvAsDuration("RABBITMQ_RETRY_TTL", 10*time.Second)
	cfg.RabbitMQ.MaxRetries = getEnvAsInt("RABBITMQ_MAX_RETRIES", 3)
	cfg.RabbitMQ.Prefetch = getEnvAsInt("RABBITMQ_PREFETCH", 8)

	if cfg.StorageDriver == StorageDriverPostgres {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
		if cfg.Database.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required")
		}
		cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
		if cfg.RabbitMQ.URL == "" {
			return nil, fmt.Errorf("RABBITMQ_URL environment variable is required")
		}
		cfg.ObjectStorage.Endpoint = os.Getenv("S3_ENDPOINT")
		if cfg.ObjectStorage.Endpoint == "" {
			return nil, fmt.Errorf("S3_ENDPOINT environment variable is required")
		}
	}
	cfg.Database.MaxConns = getEnvAsInt("DATABASE_MAX_CONNS", 10)
	cfg.Database.MaxConnLifetime = getEnvAsDuration("DATABASE_MAX_CONN_LIFETIME", time.Hour)
	cfg.Database.AutoMigrate = getEnvAsBool("DATABASE_AUTO_MIGRATE", true)

	cfg.ObjectStorage.AccessKey = getEnvAsString("S3_ACCESS_KEY", "")
	cfg.ObjectStorage.SecretKey = getEnvAsString("S3_SECRET_KEY", "")
	cfg.ObjectStorage.Bucket = getEnvAsString("S3_BUCKET", "listing-media")
	cfg.ObjectStorage.Region = getEnvAsString("S3_REGION", "")
	cfg.ObjectStorage.UseSSL = getEnvAsBool("S3_USE_SSL", false)
	cfg.ObjectStorage.PublicBaseURL = getEnvAsString("S3_PUBLIC_BASE_URL", "")

	cfg.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", false)
	if cfg.Redis.Enabled {
		cfg.Redis.Addr = getEnvAsString("REDIS_ADDR", "localhost:6379")
		cfg.Redis.Password = getEnvAsString("REDIS_PASSWORD", "")
		cfg.Redis.DB = getEnvAsInt("REDIS_DB", 0)
		cfg.Redis.AnalyticsTTL = getEnvAsDuration("REDIS_ANALYTICS_TTL", 60*time.Second)
	}

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}
		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "debug")
	cfg.StdoutLogger.IsJSON = getEnvAsBool("STDOUT_LOG_JSON", false)

	return cfg, nil
}

func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as duration: %v. Using default value: %s\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return d
}

// getEnvAsList читает список через запятую
func getEnvAsList(key string, defaultValue []string) []string {
	valStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valStr) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
