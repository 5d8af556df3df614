package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string `yaml:"env" env:"ENV" env-default:"local"`
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-required:"true"`
	RedisAddr   string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	HTTPServer  `yaml:"http_server"`
	Booking     `yaml:"booking"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env-default:"localhost:8080"`
	Timeout         time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"15s"`
}

type Booking struct {
	LockTTL                time.Duration `yaml:"lock_ttl" env-default:"10s"`
	TxRetries              int           `yaml:"tx_retries" env-default:"3"`
	AvailabilityWindowDays int           `yaml:"availability_window_days" env-default:"30"`
	IdempotencyTTL         time.Duration `yaml:"idempotency_ttl" env-default:"24h"`
	RangeDayStart          string        `yaml:"range_day_start" env-default:"09:00"`
	RangeDayEnd            string        `yaml:"range_day_end" env-default:"17:00"`
	RangeStepMinutes       int           `yaml:"range_step_minutes" env-default:"30"`
	EventChannel           string        `yaml:"event_channel" env-default:"appointments.events"`
}

func MustLoad() *Config {
	var cfg Config

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("Config file does not exist: %s", configPath)
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}

	return &cfg
}
