package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon and CLI configuration.
type Config struct {
	ListenAddr string    `yaml:"listen_addr"`
	Log        Log       `yaml:"log"`
	Index      Index     `yaml:"index"`
	Traversal  Traversal `yaml:"traversal"`
	Persist    Persist   `yaml:"persistence"`
}

// Log configures logging output.
type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Index declares which metadata keys are indexable. Declaring the set up
// front keeps typo'd tags from silently fragmenting query results.
type Index struct {
	Keys []string `yaml:"keys"`
}

// Traversal bounds the linker's walks.
type Traversal struct {
	MaxAncestorDepth int `yaml:"max_ancestor_depth"`
	MaxFanout        int `yaml:"max_fanout"`
}

// Persist selects and configures the snapshot persistence backend. The core
// never talks to a backend directly; timeouts and retries apply at the
// persistence boundary only.
type Persist struct {
	Backend       string        `yaml:"backend"` // "bolt", "neo4j", or "none"
	Path          string        `yaml:"path"`
	URI           string        `yaml:"uri"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	Database      string        `yaml:"database"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		ListenAddr: ":3400",
		Log:        Log{Level: "info"},
		Index:      Index{Keys: []string{"category", "state", "owner", "water_state"}},
		Traversal:  Traversal{MaxAncestorDepth: 10, MaxFanout: 10},
		Persist: Persist{
			Backend:       "bolt",
			Path:          defaultDataPath(),
			Timeout:       5 * time.Second,
			RetryAttempts: 3,
			RetryDelay:    time.Second,
		},
	}
}

// DefaultPath is where Load looks when no explicit path is given.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(homeDir, ".config", "codex", "config.yaml")
}

func defaultDataPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "codex.db"
	}
	return filepath.Join(homeDir, ".local", "share", "codex", "codex.db")
}

// Load reads a config file, layering it over the defaults. A missing file
// is not an error: the defaults come back as-is.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes the config, creating the directory if needed.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
