package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

type Product struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

type Config struct {
	Env    string `yaml:"env" env:"ENV" env-default:"local"`
	Listen struct {
		BindIP         string        `yaml:"bind_ip" env:"BIND_IP" env-default:"127.0.0.1"`
		Port           string        `yaml:"port" env:"PORT" env-default:"9100"`
		CorsOrigins    []string      `yaml:"cors_origins" env:"CORS_ORIGINS" env-separator:"," env-default:"*"`
		RateLimit      float64       `yaml:"rate_limit" env-default:"2"`
		RateBurst      int           `yaml:"rate_burst" env-default:"5"`
		RequestTimeout time.Duration `yaml:"request_timeout" env-default:"30s"`
	} `yaml:"listen"`
	Store struct {
		Driver string `yaml:"driver" env:"STORE_DRIVER" env-default:"memory"`
	} `yaml:"store"`
	Mongo struct {
		Host       string `yaml:"host" env:"MONGO_HOST" env-default:"127.0.0.1"`
		Port       string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
		User       string `yaml:"user" env:"MONGO_USER" env-default:""`
		Password   string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
		Database   string `yaml:"database" env:"MONGO_DATABASE" env-default:"quotechat"`
		ReplicaSet string `yaml:"replica_set" env:"MONGO_REPLICA_SET" env-default:""`
	} `yaml:"mongo"`
	SQL struct {
		DSN string `yaml:"dsn" env:"SQL_DSN" env-default:"quotechat.db"`
	} `yaml:"sql"`
	Auth struct {
		Secret string `yaml:"jwt_secret" env:"JWT_SECRET" env-default:""`
		Issuer string `yaml:"issuer" env:"JWT_ISSUER" env-default:""`
	} `yaml:"auth"`
	Files struct {
		Secret string        `yaml:"sign_secret" env:"FILE_SIGN_SECRET" env-default:""`
		TTL    time.Duration `yaml:"ttl" env-default:"15m"`
	} `yaml:"files"`
	Telegram struct {
		Enabled   bool   `yaml:"enabled" env-default:"false"`
		ApiKey    string `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
		BotName   string `yaml:"bot_name" env-default:"QuoteChatBot"`
		StaffChat int64  `yaml:"staff_chat" env-default:"0"`
		StaffUser int64  `yaml:"staff_user_id" env-default:"0"`
		LogErrors bool   `yaml:"log_errors" env-default:"false"`
	} `yaml:"telegram"`
	Catalog struct {
		Products []Product     `yaml:"products"`
		BaseURL  string        `yaml:"base_url" env:"CATALOG_URL" env-default:""`
		Login    string        `yaml:"login" env-default:""`
		Password string        `yaml:"password" env:"CATALOG_PASSWORD" env-default:""`
		TTL      time.Duration `yaml:"ttl" env-default:"1h"`
	} `yaml:"catalog"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("%s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
		if err = instance.validate(); err != nil {
			log.Fatal(err)
		}
	})
	return instance
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreMongo, StorePostgres, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver)
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Files.Secret == "" {
		c.Files.Secret = c.Auth.Secret
	}
	return nil
}
