package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Provider  ProviderConfig
	Storage   StorageConfig
	Documents DocumentsConfig
	Retrieval RetrievalConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
	// APIToken guards the management routes when set. Empty disables auth.
	APIToken string
}

type ProviderConfig struct {
	BaseURL string
	APIKey  string
	// ChatModel answers conversational requests; ValidatorModel judges them
	// and defaults to ChatModel when unset.
	ChatModel      string
	ValidatorModel string
	EmbedModel     string
}

type StorageConfig struct {
	DataDir string
}

type DocumentsConfig struct {
	// Dir is scanned for *.txt files at startup to seed the vector index.
	Dir string
}

type RetrievalConfig struct {
	TopK int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Provider: ProviderConfig{
			BaseURL:    "https://api.openai.com/v1",
			ChatModel:  "gpt-4o-mini",
			EmbedModel: "text-embedding-3-small",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Documents: DocumentsConfig{
			Dir: "./documents",
		},
		Retrieval: RetrievalConfig{
			TopK: 3,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".parley")
}

// envSpec binds one environment variable to one config field.
type envSpec struct {
	env   string
	apply func(cfg *Config, raw string) error
}

func stringSpec(env string, apply func(cfg *Config, v string)) envSpec {
	return envSpec{env: env, apply: func(cfg *Config, raw string) error {
		apply(cfg, raw)
		return nil
	}}
}

func intSpec(env string, apply func(cfg *Config, v int)) envSpec {
	return envSpec{env: env, apply: func(cfg *Config, raw string) error {
		i, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parsing %s=%q: %w", env, raw, err)
		}
		apply(cfg, i)
		return nil
	}}
}

var specs = []envSpec{
	intSpec("PARLEY_SERVER_PORT", func(cfg *Config, v int) { cfg.Server.Port = v }),
	stringSpec("PARLEY_API_TOKEN", func(cfg *Config, v string) { cfg.Server.APIToken = v }),
	stringSpec("PARLEY_PROVIDER_BASE_URL", func(cfg *Config, v string) { cfg.Provider.BaseURL = v }),
	stringSpec("OPENAI_API_KEY", func(cfg *Config, v string) { cfg.Provider.APIKey = v }),
	stringSpec("PARLEY_OPENAI_API_KEY", func(cfg *Config, v string) { cfg.Provider.APIKey = v }),
	stringSpec("PARLEY_CHAT_MODEL", func(cfg *Config, v string) { cfg.Provider.ChatModel = v }),
	stringSpec("PARLEY_VALIDATOR_MODEL", func(cfg *Config, v string) { cfg.Provider.ValidatorModel = v }),
	stringSpec("PARLEY_EMBED_MODEL", func(cfg *Config, v string) { cfg.Provider.EmbedModel = v }),
	stringSpec("PARLEY_DATA_DIR", func(cfg *Config, v string) { cfg.Storage.DataDir = v }),
	stringSpec("PARLEY_DOCUMENTS_DIR", func(cfg *Config, v string) { cfg.Documents.Dir = v }),
	intSpec("PARLEY_RETRIEVAL_TOP_K", func(cfg *Config, v int) { cfg.Retrieval.TopK = v }),
	stringSpec("PARLEY_LOG_LEVEL", func(cfg *Config, v string) { cfg.Log.Level = v }),
}

// Load reads configuration from a .env file in the working directory (when
// present) and the process environment. PARLEY_* variables override .env
// values; PARLEY_OPENAI_API_KEY overrides OPENAI_API_KEY.
func Load() (Config, error) {
	// Missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()
	return loadWith(os.Getenv)
}

func loadWith(getenv func(string) string) (Config, error) {
	cfg := defaults()

	for _, s := range specs {
		raw := getenv(s.env)
		if raw == "" {
			continue
		}
		if err := s.apply(&cfg, raw); err != nil {
			return Config{}, err
		}
	}

	if cfg.Provider.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: provider API key. Set OPENAI_API_KEY or PARLEY_OPENAI_API_KEY")
	}
	if cfg.Provider.ValidatorModel == "" {
		cfg.Provider.ValidatorModel = cfg.Provider.ChatModel
	}

	return cfg, nil
}
