package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"` // Duration string in config.yaml, e.g. "60m"
}

// GeneratorConfig points at the remote exercise generation API.
type GeneratorConfig struct {
	GenerateURL    string        `mapstructure:"generate_url"`
	PersonalizeURL string        `mapstructure:"personalize_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Mode  string `mapstructure:"mode"` // "development" or "production"
	Level string `mapstructure:"level"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()

	// Set the path to look for the config file in
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Handling ---
	v.AutomaticEnv()
	// Nested keys map to env names, e.g. generator.generate_url -> GENERATOR_GENERATE_URL
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	// --- Set default values ---
	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "afasia")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration", "1h")
	v.SetDefault("generator.generate_url", "https://afasia.virtual.uniandes.edu.co/api/context/generate")
	v.SetDefault("generator.personalize_url", "https://afasia.virtual.uniandes.edu.co/api/personalize-exercise/")
	v.SetDefault("generator.timeout", "60s")
	v.SetDefault("log.mode", "production")
	v.SetDefault("log.level", "info")

	// --- Read Config File ---
	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		// No config file; defaults and env vars only
		err = nil
	} else if err != nil {
		return
	}

	// Duration strings ("60m", "1h") decode directly into time.Duration fields.
	err = v.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}
