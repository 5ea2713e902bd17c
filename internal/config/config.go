// Package config provides configuration loading and path management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"

	"github.com/turnono/sim/pkg/types"
)

// Memory selects and configures the knowledge store backend.
type Memory struct {
	// Backend is "inmemory" or "rag".
	Backend string `json:"backend,omitempty"`
	// Endpoint is the RAG ingestion URL, required for the rag backend.
	Endpoint string `json:"endpoint,omitempty"`
}

// Config holds the engine configuration.
type Config struct {
	AppID    string `json:"appID,omitempty"`
	Port     int    `json:"port,omitempty"`
	DataDir  string `json:"dataDir,omitempty"`
	LogLevel string `json:"logLevel,omitempty"`
	Memory   Memory `json:"memory,omitempty"`

	// DefaultProfile and DefaultSystem seed absent keys at bootstrap and
	// feed the migration steps. Keys are unprefixed here; the namespace
	// is applied where they are used.
	DefaultProfile types.State `json:"defaultProfile,omitempty"`
	DefaultSystem  types.State `json:"defaultSystem,omitempty"`
}

// Defaults mirrors the original deployment's seed state.
func defaults() *Config {
	return &Config{
		AppID:    "sim-guide",
		Port:     8080,
		LogLevel: "INFO",
		Memory:   Memory{Backend: "inmemory"},
		DefaultProfile: types.State{
			"name":                    "Abdullah",
			"timezone":                "UTC+2",
			"theme_preference":        "system",
			"notification_preference": true,
			"focus_areas":             []string{"ai", "technology", "wealth_creation", "personal_growth"},
			"reminders":               []any{},
			"language_preference":     "en",
			"conversation_style":      "balanced",
		},
		DefaultSystem: types.State{
			"version":      "1.0.0",
			"last_updated": "2023-04-30",
		},
	}
}

// Load builds the configuration from, in priority order: built-in
// defaults, the global config dir, a sim-guide.json(c) in the working
// directory, then environment variables. A .env file in the working
// directory is loaded first so it can feed the env overrides.
func Load(directory string) (*Config, error) {
	if directory != "" {
		_ = godotenv.Load(filepath.Join(directory, ".env"))
	} else {
		_ = godotenv.Load()
	}

	cfg := defaults()

	globalDir := GetPaths().Config
	loadFile(filepath.Join(globalDir, "sim-guide.json"), cfg)
	loadFile(filepath.Join(globalDir, "sim-guide.jsonc"), cfg)

	if directory != "" {
		loadFile(filepath.Join(directory, "sim-guide.json"), cfg)
		loadFile(filepath.Join(directory, "sim-guide.jsonc"), cfg)
	}

	applyEnvOverrides(cfg)

	if cfg.DataDir == "" {
		cfg.DataDir = GetPaths().StoragePath()
	}
	return cfg, nil
}

// loadFile merges one JSONC config file into cfg; a missing file is
// skipped silently.
func loadFile(path string, cfg *Config) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	_ = json.Unmarshal(jsonc.ToJSON(data), cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SIM_GUIDE_APP_ID"); v != "" {
		cfg.AppID = v
	}
	if v := os.Getenv("SIM_GUIDE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("SIM_GUIDE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("SIM_GUIDE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SIM_GUIDE_MEMORY_BACKEND"); v != "" {
		cfg.Memory.Backend = v
	}
	if v := os.Getenv("SIM_GUIDE_RAG_ENDPOINT"); v != "" {
		cfg.Memory.Endpoint = v
	}
}

// ProfileDefaults returns the profile seed state with the namespace
// prefix applied.
func (c *Config) ProfileDefaults() types.State {
	return prefixed(types.PrefixProfile, c.DefaultProfile)
}

// SystemDefaults returns the system seed state with the namespace prefix
// applied.
func (c *Config) SystemDefaults() types.State {
	return prefixed(types.PrefixSystem, c.DefaultSystem)
}

func prefixed(prefix string, s types.State) types.State {
	out := make(types.State, len(s))
	for k, v := range s {
		out[prefix+k] = v
	}
	return out
}
