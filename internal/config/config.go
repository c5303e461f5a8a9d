// config предоставляет структуру конфигурации conference-service
// и функции загрузки из YAML/ENV с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
)

// Драйверы кэша объявлений.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Драйверы почты.
const (
	MailLog  = "log"
	MailSMTP = "smtp"
)

// Экспортёры трассировки.
const (
	TracingNone   = "none"
	TracingStdout = "stdout"
	TracingOTLP   = "otlp"
)

// Config — корневая конфигурация сервиса.
// Приоритет источников:
//  1. явный путь, переданный в MustLoad/Load;
//  2. переменная окружения CONFIG_PATH;
//  3. файл ./local.yaml из рабочей директории;
//  4. переменные окружения.
type Config struct {
	Env          string             `yaml:"env" env:"ENV" env-default:"local"`
	HTTP         HTTPConfig         `yaml:"http"`
	GRPC         GRPCConfig         `yaml:"grpc"`
	Auth         AuthConfig         `yaml:"auth"`
	Storage      StorageConfig      `yaml:"storage"`
	Cache        CacheConfig        `yaml:"cache"`
	Announcement AnnouncementConfig `yaml:"announcement"`
	Mail         MailConfig         `yaml:"mail"`
	Tracing      TracingConfig      `yaml:"tracing"`
	Timeouts     TimeoutConfig      `yaml:"timeouts"`
}

// HTTPConfig — REST-сервер.
type HTTPConfig struct {
	Host     string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	BasePath string `yaml:"base_path" env:"HTTP_BASE_PATH" env-default:"/api/v1"`
}

// GRPCConfig — ops gRPC-сервер (health, reflection, метрики).
type GRPCConfig struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50060"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// Addr возвращает адрес в формате host:port.
func (g GRPCConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// AuthConfig — параметры валидации bearer-токенов.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	Issuer    string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"auth-service"`
	Audience  string        `yaml:"audience" env:"JWT_AUDIENCE"`
	Leeway    time.Duration `yaml:"leeway" env:"JWT_LEEWAY" env-default:"30s"`
}

// StorageConfig — выбор и параметры хранилища.
type StorageConfig struct {
	Driver      string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"memory"`
	PostgresURL string `yaml:"postgres_url" env:"DATABASE_URL"`
	MongoURL    string `yaml:"mongo_url" env:"MONGO_URL"`
	// Число попыток транзакции при конфликте коммита.
	TxAttempts int  `yaml:"tx_attempts" env:"STORAGE_TX_ATTEMPTS" env-default:"10"`
	Migrate    bool `yaml:"migrate" env:"STORAGE_MIGRATE" env-default:"true"`
}

// CacheConfig — кэш объявлений.
type CacheConfig struct {
	Driver   string `yaml:"driver" env:"CACHE_DRIVER" env-default:"memory"`
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
	Prefix   string `yaml:"prefix" env:"CACHE_PREFIX" env-default:"conference:"`
	// 0 — без истечения.
	TTL time.Duration `yaml:"ttl" env:"CACHE_TTL" env-default:"0s"`
}

// AnnouncementConfig — периодическое обновление объявления.
type AnnouncementConfig struct {
	// 0 отключает периодическое обновление.
	Interval time.Duration `yaml:"interval" env:"ANNOUNCEMENT_INTERVAL" env-default:"1m"`
}

// MailConfig — отправка подтверждений о создании конференции.
type MailConfig struct {
	Driver    string        `yaml:"driver" env:"MAIL_DRIVER" env-default:"log"`
	Host      string        `yaml:"host" env:"SMTP_HOST"`
	Port      string        `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username  string        `yaml:"username" env:"SMTP_USERNAME"`
	Password  string        `yaml:"password" env:"SMTP_PASSWORD"`
	From      string        `yaml:"from" env:"MAIL_FROM" env-default:"noreply@conference-central.local"`
	FromName  string        `yaml:"from_name" env:"MAIL_FROM_NAME" env-default:"Conference Central"`
	QueueSize int           `yaml:"queue_size" env:"MAIL_QUEUE_SIZE" env-default:"100"`
	Timeout   time.Duration `yaml:"timeout" env:"MAIL_TIMEOUT" env-default:"10s"`
}

// Addr возвращает адрес SMTP-сервера.
func (m MailConfig) Addr() string {
	return net.JoinHostPort(m.Host, m.Port)
}

// TracingConfig — экспорт спанов OpenTelemetry.
type TracingConfig struct {
	Exporter    string  `yaml:"exporter" env:"TRACING_EXPORTER" env-default:"none"`
	Endpoint    string  `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4317"`
	SampleRatio float64 `yaml:"sample_ratio" env:"TRACING_SAMPLE_RATIO" env-default:"1"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Request  time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"10s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	switch {
	case path != "":
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	case fileExists("local.yaml"):
		if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read local.yaml: %w", err)
		}
	default:
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// validate — базовая валидация значений.
func (c *Config) validate() error {
	switch c.Env {
	case "local", "dev", "prod":
	default:
		return fmt.Errorf("env must be one of local|dev|prod, got %q", c.Env)
	}

	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("storage.postgres_url is required for driver %q", StoragePostgres)
		}
	case StorageMongo:
		if c.Storage.MongoURL == "" {
			return fmt.Errorf("storage.mongo_url is required for driver %q", StorageMongo)
		}
	default:
		return fmt.Errorf("storage.driver must be one of memory|postgres|mongo, got %q", c.Storage.Driver)
	}
	if c.Storage.TxAttempts <= 0 {
		return fmt.Errorf("storage.tx_attempts must be > 0")
	}

	switch c.Cache.Driver {
	case CacheMemory:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required for driver %q", CacheRedis)
		}
	default:
		return fmt.Errorf("cache.driver must be one of memory|redis, got %q", c.Cache.Driver)
	}

	if c.Announcement.Interval < 0 {
		return fmt.Errorf("announcement.interval must be >= 0")
	}

	switch c.Mail.Driver {
	case MailLog:
	case MailSMTP:
		if c.Mail.Host == "" {
			return fmt.Errorf("mail.host is required for driver %q", MailSMTP)
		}
	default:
		return fmt.Errorf("mail.driver must be one of log|smtp, got %q", c.Mail.Driver)
	}
	if c.Mail.QueueSize <= 0 {
		return fmt.Errorf("mail.queue_size must be > 0")
	}

	switch c.Tracing.Exporter {
	case TracingNone, TracingStdout, TracingOTLP:
	default:
		return fmt.Errorf("tracing.exporter must be one of none|stdout|otlp, got %q", c.Tracing.Exporter)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1]")
	}

	if c.Timeouts.Request <= 0 {
		return fmt.Errorf("timeouts.request must be > 0")
	}

	return nil
}
