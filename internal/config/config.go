package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr     string
	AllowedOrigins []string
}

func NewConfig(serverAddr string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}

	return &Config{
		ServerAddr:     serverAddr,
		AllowedOrigins: allowedOrigins,
	}, nil
}

var loadDotEnv = sync.OnceFunc(func() {
	// a missing .env file is not an error
	_ = godotenv.Load()
})

// EnvDefault returns the value of key from the environment, consulting a
// .env file in the working directory once, or def when the key is unset.
func EnvDefault(key, def string) string {
	loadDotEnv()
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
