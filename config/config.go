package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the advisor service
type Config struct {
	General  GeneralConfig  `mapstructure:"general"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Profile  ProfileConfig  `mapstructure:"profile"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug     bool   `mapstructure:"debug"`
	LogLevel  string `mapstructure:"log_level"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// DatabaseConfig contains Postgres connection settings
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig describes a single Postgres endpoint. URL wins over the
// discrete fields when both are set.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a postgres connection string from the configured fields.
func (p PostgresConfig) DSN() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("postgres not configured (database.postgres.host/dbname or url)")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// RedisConfig contains the snapshot cache settings. Disabled when Host is empty.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LLMConfig contains the completion provider configuration
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func (l LLMConfig) Validate() error {
	if l.APIKey == "" {
		return fmt.Errorf("llm.api_key not configured")
	}
	if l.Model == "" {
		return fmt.Errorf("llm.model not configured")
	}
	return nil
}

// ProfileConfig tunes the update reconciliation pipeline
type ProfileConfig struct {
	MaxUpdatesPerReply  int           `mapstructure:"max_updates_per_reply"`
	DefaultContentLayer string        `mapstructure:"default_content_layer"`
	LevelLadder         []LevelConfig `mapstructure:"level_ladder"`
}

// LevelConfig binds one ladder label to its numeric score (1-10 scale).
type LevelConfig struct {
	Label string `mapstructure:"label"`
	Score int    `mapstructure:"score"`
}

func (p ProfileConfig) Validate() error {
	if p.MaxUpdatesPerReply <= 0 {
		return fmt.Errorf("profile.max_updates_per_reply must be > 0")
	}
	for _, l := range p.LevelLadder {
		if strings.TrimSpace(l.Label) == "" {
			return fmt.Errorf("profile.level_ladder entries need a label")
		}
		if l.Score < 1 || l.Score > 10 {
			return fmt.Errorf("profile.level_ladder score for %q out of range (1-10)", l.Label)
		}
	}
	return nil
}

// JWTSecret resolves the shared auth secret. Preference order:
// server.jwt_secret, general.jwt_secret.
func (c *Config) JWTSecret() (string, error) {
	if c.Server.JWTSecret != "" {
		return c.Server.JWTSecret, nil
	}
	if c.General.JWTSecret != "" {
		return c.General.JWTSecret, nil
	}
	return "", fmt.Errorf("jwt secret not configured (server.jwt_secret or general.jwt_secret)")
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.address", ":10030")
	viper.SetDefault("redis.timeout", "5s")
	viper.SetDefault("redis.ttl", "10m")
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.base_url", "https://api.openai.com/v1")
	viper.SetDefault("llm.temperature", 0.4)
	viper.SetDefault("llm.max_tokens", 2048)
	viper.SetDefault("llm.timeout", "30s")
	viper.SetDefault("profile.max_updates_per_reply", 3)
	viper.SetDefault("profile.default_content_layer", "universal")
	viper.SetDefault("profile.level_ladder", []map[string]interface{}{
		{"label": "感知", "score": 2},
		{"label": "探索", "score": 4},
		{"label": "运用", "score": 6},
		{"label": "熟练", "score": 8},
		{"label": "精通", "score": 10},
	})

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("MINDPATH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// config file is optional; env vars and defaults still apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	return &config
}
