package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `yaml:"env" env:"ENV" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	HTTP     HTTP   `yaml:"http"`
	GRPC     GRPC   `yaml:"grpc"`
	Store    Store  `yaml:"store"`
	Redis    Redis  `yaml:"redis"`
	Auth     Auth   `yaml:"auth"`
}

type HTTP struct {
	Port            string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"HTTP_REQUEST_TIMEOUT" env-default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type GRPC struct {
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50051"`
}

type Store struct {
	URI            string        `yaml:"uri" env:"STORE_URI"`
	Database       string        `yaml:"database" env:"STORE_DATABASE" env-default:"storefront"`
	RetryBase      time.Duration `yaml:"retry_base" env:"STORE_RETRY_BASE" env-default:"2s"`
	RetryCap       time.Duration `yaml:"retry_cap" env:"STORE_RETRY_CAP" env-default:"60s"`
	RetryJitter    time.Duration `yaml:"retry_jitter" env:"STORE_RETRY_JITTER" env-default:"1s"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"STORE_CONNECT_TIMEOUT" env-default:"10s"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	PoolSize int    `yaml:"pool_size" env:"REDIS_POOL_SIZE" env-default:"100"`
}

type Auth struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
}

func (h HTTP) Addr() string { return ":" + h.Port }

func (g GRPC) Addr() string { return ":" + g.Port }

// Load reads configuration from the environment, after loading a .env file
// if one exists. When CONFIG_PATH is set the YAML file it names is read
// first and environment variables override it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Store.RetryBase <= 0 {
		return errors.New("STORE_RETRY_BASE must be positive")
	}
	if c.Store.RetryCap < c.Store.RetryBase {
		return errors.New("STORE_RETRY_CAP must not be below STORE_RETRY_BASE")
	}
	if c.Store.RetryJitter < 0 {
		return errors.New("STORE_RETRY_JITTER must not be negative")
	}
	return nil
}
