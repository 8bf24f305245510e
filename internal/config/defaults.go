package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimitRPS:    20,
			RateLimitBurst:  40,
			MaxUploadBytes:  100 << 20,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			OutputPaths: []string{"stderr"},
		},
		Data: DataConfig{
			Dir:         defaultDataDir(),
			DownloadDir: defaultDownloadDir(),
		},
		User: UserConfig{
			ID: "local",
		},
		Interpreter: InterpreterConfig{
			Mode:     "local",
			Provider: "openai",
			Timeout:  30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
		},
		Redis: RedisConfig{
			PoolSize:   10,
			DefaultTTL: 0,
		},
		ObjectStore: ObjectStoreConfig{
			Driver:    "fs",
			Region:    "auto",
			UseSSL:    true,
			URLExpiry: time.Hour,
		},
		Billing: BillingConfig{
			SuccessURL:      "http://localhost:8080/success?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:       "http://localhost:8080/pricing",
			PortalReturnURL: "http://localhost:8080/dashboard",
		},
		Search: SearchConfig{
			ThingiverseURL: "https://api.thingiverse.com",
			PrintablesURL:  "https://api.printables.com",
			Limit:          20,
			Timeout:        10 * time.Second,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".modelforge"
	}
	return filepath.Join(home, ".modelforge")
}

func defaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}
