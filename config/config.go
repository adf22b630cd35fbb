// Package config loads process configuration from environment variables
// (with an optional .env file override), the way the ride-pooling example's
// config package wires viper for its own services.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the settings common to every module/broker process: its own
// HTTP listener plus the addresses it needs to reach its collaborators.
type Config struct {
	Server ServerConfig
	Clock  ClockConfig
	Redis  RedisConfig
	Kafka  KafkaConfig
	Broker BrokerConfig
	Log    LogConfig
}

// ServerConfig holds this process's own HTTP listener settings.
type ServerConfig struct {
	Host         string        `mapstructure:"SERVER_HOST"`
	Port         int           `mapstructure:"SERVER_PORT"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `mapstructure:"SERVER_IDLE_TIMEOUT"`
}

// ClockConfig controls the virtual-time step granularity a simulator module
// uses when it has no earlier committed event to offer the broker.
type ClockConfig struct {
	StepSeconds    float64 `mapstructure:"CLOCK_STEP_SECONDS"`
	AvgSpeedKmph   float64 `mapstructure:"CLOCK_AVG_SPEED_KMPH"`
	WalkMPerMinute float64 `mapstructure:"CLOCK_WALK_M_PER_MINUTE"`
}

// RedisConfig is optional: when Host is empty, modules fall back to an
// in-process geo.MemoryCache instead of sharing duration lookups over Redis.
type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     int    `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

// KafkaConfig is optional: when Brokers is empty, the broker's result sink
// writes to a file/HTTP sink instead of publishing to a topic.
type KafkaConfig struct {
	Brokers string `mapstructure:"KAFKA_BROKERS"`
	Topic   string `mapstructure:"KAFKA_RESULT_TOPIC"`
}

// BrokerConfig holds addresses a module process needs to register itself
// with, and addresses the broker process needs for its registered modules.
type BrokerConfig struct {
	SelfURL           string        `mapstructure:"SELF_URL"`
	ModuleURLs        []string      `mapstructure:"MODULE_URLS"`
	SetupTimeout      time.Duration `mapstructure:"BROKER_SETUP_TIMEOUT"`
	StepTimeout       time.Duration `mapstructure:"BROKER_STEP_TIMEOUT"`
	ResultSinkPath    string        `mapstructure:"RESULT_SINK_PATH"`
	ResultSinkURL     string        `mapstructure:"RESULT_SINK_URL"`
}

// LogConfig controls the zap logger's verbosity and format.
type LogConfig struct {
	ServiceName string
	Level       string `mapstructure:"LOG_LEVEL"`
	Environment string `mapstructure:"LOG_ENVIRONMENT"`
}

func (s *ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

func (r *RedisConfig) Addr() string { return fmt.Sprintf("%s:%d", r.Host, r.Port) }

func (r *RedisConfig) Enabled() bool { return r.Host != "" }

func (k *KafkaConfig) Enabled() bool { return k.Brokers != "" }

// Load reads configuration from environment variables and an optional .env
// file, applying defaults for everything a module or broker needs to start
// cold in a dev environment.
func Load(serviceName string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "30s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	v.SetDefault("CLOCK_STEP_SECONDS", 60.0)
	v.SetDefault("CLOCK_AVG_SPEED_KMPH", 30.0)
	v.SetDefault("CLOCK_WALK_M_PER_MINUTE", 80.0)

	v.SetDefault("REDIS_HOST", "")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_RESULT_TOPIC", "cosim.results")

	v.SetDefault("SELF_URL", "")
	v.SetDefault("MODULE_URLS", []string{})
	v.SetDefault("BROKER_SETUP_TIMEOUT", "1h")
	v.SetDefault("BROKER_STEP_TIMEOUT", "5m")
	v.SetDefault("RESULT_SINK_PATH", "./results")
	v.SetDefault("RESULT_SINK_URL", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_ENVIRONMENT", "development")

	// A missing .env is normal outside local dev; env vars or defaults cover it.
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Host:         v.GetString("SERVER_HOST"),
			Port:         v.GetInt("SERVER_PORT"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:  v.GetDuration("SERVER_IDLE_TIMEOUT"),
		},
		Clock: ClockConfig{
			StepSeconds:    v.GetFloat64("CLOCK_STEP_SECONDS"),
			AvgSpeedKmph:   v.GetFloat64("CLOCK_AVG_SPEED_KMPH"),
			WalkMPerMinute: v.GetFloat64("CLOCK_WALK_M_PER_MINUTE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Kafka: KafkaConfig{
			Brokers: v.GetString("KAFKA_BROKERS"),
			Topic:   v.GetString("KAFKA_RESULT_TOPIC"),
		},
		Broker: BrokerConfig{
			SelfURL:        v.GetString("SELF_URL"),
			ModuleURLs:     v.GetStringSlice("MODULE_URLS"),
			SetupTimeout:   v.GetDuration("BROKER_SETUP_TIMEOUT"),
			StepTimeout:    v.GetDuration("BROKER_STEP_TIMEOUT"),
			ResultSinkPath: v.GetString("RESULT_SINK_PATH"),
			ResultSinkURL:  v.GetString("RESULT_SINK_URL"),
		},
		Log: LogConfig{
			ServiceName: serviceName,
			Level:       v.GetString("LOG_LEVEL"),
			Environment: v.GetString("LOG_ENVIRONMENT"),
		},
	}
	return cfg, nil
}
