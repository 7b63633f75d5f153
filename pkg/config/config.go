// Package config loads mongokit settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is the dotenv file loaded when MONGOKIT_ENV_FILE is unset.
const DefaultEnvFile = ".env"

// EnvFileVar names the variable that overrides the dotenv file location.
const EnvFileVar = "MONGOKIT_ENV_FILE"

type Config struct {
	URI string `env:"MONGO_URI" env-description:"Connection string for your MongoDB database"`

	ConnectTimeout    time.Duration `env:"MONGOKIT_CONNECT_TIMEOUT" env-default:"10s" env-description:"Timeout for the initial connect"`
	PingTimeout       time.Duration `env:"MONGOKIT_PING_TIMEOUT" env-default:"5s" env-description:"Timeout for the ping after connecting"`
	OperationTimeout  time.Duration `env:"MONGOKIT_OPERATION_TIMEOUT" env-default:"60s" env-description:"Timeout for each database operation"`
	DisconnectTimeout time.Duration `env:"MONGOKIT_DISCONNECT_TIMEOUT" env-default:"10s" env-description:"Timeout for closing the connection"`
}

// Load reads the dotenv file, if there is one, then the environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	envFile := os.Getenv(EnvFileVar)
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	return &cfg, nil
}

// Usage describes the environment variables read by Load.
func Usage() (string, error) {
	return cleanenv.GetDescription(&Config{}, nil)
}
