package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	ServerName     string        `mapstructure:"server_name" yaml:"server_name"`
	Environment    string        `mapstructure:"environment" yaml:"environment"`
	Port           int           `mapstructure:"port" yaml:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	History     HistoryConfig     `mapstructure:"history" yaml:"history"`
	Persistence PersistenceConfig `mapstructure:"persistence" yaml:"persistence"`
	Auth        AuthConfig        `mapstructure:"auth" yaml:"auth"`
	LLM         LLMConfig         `mapstructure:"llm" yaml:"llm"`
	Redis       RedisConfig       `mapstructure:"redis" yaml:"redis"`
	Postgres    PostgresConfig    `mapstructure:"postgres" yaml:"postgres"`
	Consul      ConsulConfig      `mapstructure:"consul" yaml:"consul"`
}

type HistoryConfig struct {
	MaxLength int `mapstructure:"max_length" yaml:"max_length"`
}

// PersistenceConfig selects the snapshot backend: file (default), postgres,
// redis or none.
type PersistenceConfig struct {
	Backend       string `mapstructure:"backend" yaml:"backend"`
	HistoryFile   string `mapstructure:"history_file" yaml:"history_file"`
	UsersFile     string `mapstructure:"users_file" yaml:"users_file"`
	RedisKey      string `mapstructure:"redis_key" yaml:"redis_key"`
	FlushOnAppend bool   `mapstructure:"flush_on_append" yaml:"flush_on_append"`
}

type AuthConfig struct {
	JwtSecret      string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	ExpireAccessH  int    `mapstructure:"expire_access_h" yaml:"expire_access_h"`
	ExpireRefreshH int    `mapstructure:"expire_refresh_h" yaml:"expire_refresh_h"`
}

type LLMConfig struct {
	Provider    string  `mapstructure:"provider" yaml:"provider"` // azure|openai|stub
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"`
	APIVersion  string  `mapstructure:"api_version" yaml:"api_version"`
	Deployment  string  `mapstructure:"deployment" yaml:"deployment"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address" yaml:"address"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Password string `mapstructure:"password" yaml:"password"`
	Database int    `mapstructure:"database" yaml:"database"`
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Address, r.Port)
}

type PostgresConfig struct {
	Address  string `mapstructure:"address" yaml:"address"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	DBName   string `mapstructure:"db_name" yaml:"db_name"`
}

func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		p.Address, p.Port, p.User, p.Password, p.DBName)
}

type ConsulConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Address    string `mapstructure:"address" yaml:"address"`
	Scheme     string `mapstructure:"scheme" yaml:"scheme"`
	Datacenter string `mapstructure:"datacenter" yaml:"datacenter"`
}

func LoadConfig() (*AppConfig, error) {
	var config AppConfig

	viper.SetConfigFile("config/config.yml")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Env-only deployments run without a config file.
		if !os.IsNotExist(err) {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return &config, err
			}
		}
	}
	if err := viper.Unmarshal(&config); err != nil {
		return &config, err
	}

	// The original deployment configures the model through AZURE_OPENAI_*
	// variables; honor them when the yaml leaves the fields empty.
	if config.LLM.APIKey == "" {
		config.LLM.APIKey = os.Getenv("AZURE_OPENAI_API_KEY")
	}
	if config.LLM.Endpoint == "" {
		config.LLM.Endpoint = os.Getenv("AZURE_OPENAI_API_ENDPOINT")
	}
	if config.LLM.APIVersion == "" {
		config.LLM.APIVersion = os.Getenv("AZURE_OPENAI_API_VERSION")
	}
	if config.LLM.Deployment == "" {
		config.LLM.Deployment = os.Getenv("AZURE_OPENAI_CHAT_DEPLOYMENT_NAME")
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server_name", "chat-api")
	viper.SetDefault("environment", "development")
	viper.SetDefault("port", 3000)
	viper.SetDefault("request_timeout", 60*time.Second)

	viper.SetDefault("history.max_length", 10)

	viper.SetDefault("persistence.backend", "file")
	viper.SetDefault("persistence.history_file", "chat_history/history.json")
	viper.SetDefault("persistence.users_file", "chat_history/users.json")
	viper.SetDefault("persistence.redis_key", "chat:histories")
	viper.SetDefault("persistence.flush_on_append", true)

	viper.SetDefault("auth.expire_access_h", 24)
	viper.SetDefault("auth.expire_refresh_h", 168)

	viper.SetDefault("llm.provider", "azure")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.max_tokens", 500)

	viper.SetDefault("redis.address", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)

	viper.SetDefault("consul.enabled", false)
	viper.SetDefault("consul.scheme", "http")
}
