package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	// Data directory for the transcript store and logs.
	DataDir string `json:"data_dir"`

	// Provider settings
	Provider ProviderConfig `json:"provider"`

	// Tool settings
	Tools ToolConfig `json:"tools"`

	// UI settings
	UI UIConfig `json:"ui"`
}

type ProviderConfig struct {
	Model     string `json:"model"`
	APIKey    string `json:"api_key,omitempty"`
	MaxTokens int    `json:"max_tokens"`
	System    string `json:"system_prompt,omitempty"`
}

type ToolConfig struct {
	Enabled     bool   `json:"enabled"`
	WorkDir     string `json:"work_dir"`
	MaxFileSize int64  `json:"max_file_size"`
}

type UIConfig struct {
	EscapeWindow time.Duration `json:"escape_window"`
	ShowElapsed  bool          `json:"show_elapsed"`
}

func DefaultConfig() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		Provider: ProviderConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 8192,
			System:    "You are hum, a concise terminal assistant. Use the available tools when a question needs them.",
		},
		Tools: ToolConfig{
			Enabled:     true,
			WorkDir:     ".",
			MaxFileSize: 10 * 1024 * 1024,
		},
		UI: UIConfig{
			EscapeWindow: time.Second,
			ShowElapsed:  true,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error; the
// API key falls back to ANTHROPIC_API_KEY either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if c.Provider.APIKey == "" {
		c.Provider.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
}

func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultPath is where `hum` looks for its config when --config is not set.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "hum", "config.json")
	}
	return filepath.Join(".", ".hum", "config.json")
}

func defaultDataDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".hum")
	}
	return ".hum"
}
