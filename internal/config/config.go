package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env        string `yaml:"env"`
	ListenAddr string `yaml:"listen_addr"`
	DataDir    string `yaml:"data_dir"`
	AdminCode  string `yaml:"admin_code"`
	JWTSecret  string `yaml:"jwt_secret"`

	// RelayRate/RelayBurst bound how fast one endpoint may publish.
	RelayRate  float64 `yaml:"relay_rate"`
	RelayBurst int     `yaml:"relay_burst"`

	FilterSystemBroadcasts bool `yaml:"filter_system_broadcasts"`
}

// Load reads configuration from the environment, after loading an
// optional .env file. When CALCVAULT_CONFIG names a YAML file, its
// values are read first and the environment overrides them.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:        "development",
		ListenAddr: ":8471",
		DataDir:    "./data",
		AdminCode:  "9999",
		JWTSecret:  "dev-secret-change-me",
		RelayRate:  50,
		RelayBurst: 100,
	}

	if path := os.Getenv("CALCVAULT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.Env = getEnv("CALCVAULT_ENV", cfg.Env)
	cfg.ListenAddr = getEnv("CALCVAULT_LISTEN_ADDR", cfg.ListenAddr)
	cfg.DataDir = getEnv("CALCVAULT_DATA_DIR", cfg.DataDir)
	cfg.AdminCode = getEnv("CALCVAULT_ADMIN_CODE", cfg.AdminCode)
	cfg.JWTSecret = getEnv("CALCVAULT_JWT_SECRET", cfg.JWTSecret)
	if getEnv("CALCVAULT_FILTER_SYSTEM_BROADCASTS", "") == "true" {
		cfg.FilterSystemBroadcasts = true
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}
