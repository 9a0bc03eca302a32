package config

import (
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	Model   ModelConfig
	Search  SearchConfig
	Server  ServerConfig
	Storage StorageConfig
	Log     LogConfig
}

type ModelConfig struct {
	BaseURL        string
	APIKey         string
	BaseModel      string
	FineTunedModel string
	Temperature    float64
}

type SearchConfig struct {
	Rollouts       int
	FeedbackBudget int
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Model: ModelConfig{
			BaseURL:     "https://api.openai.com/v1",
			BaseModel:   "gpt-3.5-turbo",
			Temperature: 0.7,
		},
		Search: SearchConfig{
			Rollouts:       4,
			FeedbackBudget: 5,
		},
		Server: ServerConfig{
			Port: 4100,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/lmpc/config.json, then applies LMPC_* environment
// overrides. The model-service API key is accepted only from the
// environment (LMPC_API_KEY); it is never written to the config file.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

// RequireAPIKey errors when no model-service credential is set.
// Commands that only read the local store don't need one.
func (c Config) RequireAPIKey() error {
	if c.Model.APIKey == "" {
		return fmt.Errorf("missing required config: model service API key. Set it via environment variable LMPC_API_KEY")
	}
	return nil
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "lmpc-data"
		}
	}
	return filepath.Join(dir, "lmpc")
}
