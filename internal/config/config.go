package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Push      PushConfig
	Scheduler SchedulerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	// MaxOpenConns bounds the pool; zero falls back to a dispatch-sized
	// default.
	MaxOpenConns int `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type PushConfig struct {
	// WorkerPoolSize caps concurrent sends per dispatch.
	WorkerPoolSize int `mapstructure:"worker_pool_size"`
	// SendTimeout bounds one push attempt.
	SendTimeout time.Duration `mapstructure:"send_timeout"`
	// DefaultTTL is used when a notification carries no TTL, in seconds.
	DefaultTTL int `mapstructure:"default_ttl"`
	// SubscriberContact is the VAPID contact address push services may use
	// to reach the operator.
	SubscriberContact string        `mapstructure:"subscriber_contact"`
	KeyCacheTTL       time.Duration `mapstructure:"key_cache_ttl"`
}

type SchedulerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

type AuthConfig struct {
	ServiceSecret   string        `mapstructure:"service_secret"`
	ServiceTokenTTL time.Duration `mapstructure:"service_token_ttl"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeoutSeconds", 30)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("push.worker_pool_size", 100)
	viper.SetDefault("push.send_timeout", 10*time.Second)
	viper.SetDefault("push.default_ttl", 86400)
	viper.SetDefault("push.key_cache_ttl", 5*time.Minute)
	viper.SetDefault("scheduler.poll_interval", 30*time.Second)
	viper.SetDefault("scheduler.batch_size", 100)
	viper.SetDefault("auth.service_token_ttl", time.Hour)
	viper.SetDefault("rate_limit.rps", 50)
	viper.SetDefault("rate_limit.burst", 100)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
