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
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Store    StoreConfig    `mapstructure:"store"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Events   EventsConfig   `mapstructure:"events"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// StoreConfig bounds settlement transactions, which run detached from request cancellation.
type StoreConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type EventsConfig struct {
	Driver         string        `mapstructure:"driver"`
	Buffer         int           `mapstructure:"buffer"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// Event drivers.
const (
	DriverLog   = "log"
	DriverKafka = "kafka"
	DriverRedis = "redis"
)

// Load reads .env, then an optional config.yaml from ./configs or the working
// directory, then environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("store.timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("events.driver", DriverLog)
	v.SetDefault("events.buffer", 256)
	v.SetDefault("events.publish_timeout", 5*time.Second)
	v.SetDefault("kafka.topic", "orders.delivered")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.channel", "orders.delivered")
}

func bindEnvVariables(v *viper.Viper) {
	v.BindEnv("server.port", "SERVER_PORT", "PORT")
	v.BindEnv("server.allowed_origins", "ALLOWED_ORIGINS")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("events.driver", "EVENTS_DRIVER")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
}

// Validate reports missing or inconsistent values. requireJWT is false for
// tools that never serve HTTP.
func (c *Config) Validate(requireJWT bool) error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url (DATABASE_URL) is required"))
	}
	if requireJWT && c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret (JWT_SECRET) is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	switch c.Events.Driver {
	case DriverLog, DriverRedis:
	case DriverKafka:
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.brokers (KAFKA_BROKERS) is required for the kafka driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("events.driver %q must be one of log, kafka, redis", c.Events.Driver))
	}
	return errors.Join(errs...)
}
