package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "semweave.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/semweave"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
	// dir is where the project config search starts; empty means the
	// working directory.
	dir string
	// home overrides the user home directory.
	home string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithSearchDir starts the project config search in dir.
func WithSearchDir(dir string) LoaderOption {
	return func(l *Loader) { l.dir = dir }
}

// WithHomeDir overrides the directory the user config is read from.
func WithHomeDir(dir string) LoaderOption {
	return func(l *Loader) { l.home = dir }
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/semweave/config.yaml)
// 3. Project config (semweave.yaml in the search or parent directories)
// 4. explicit, when non-empty
//
// The result is validated.
func (l *Loader) Load(explicit string) (*Config, error) {
	config := DefaultConfig()

	if userConfigPath := l.userConfigPath(); userConfigPath != "" {
		if overlay, err := loadOverlay(userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", "path", userConfigPath)
			config.Merge(overlay)
		} else if !os.IsNotExist(err) {
			l.logger.Warn("Failed to load user config", "path", userConfigPath, "error", err)
		}
	}

	if projectConfigPath := l.findProjectConfig(); projectConfigPath != "" {
		overlay, err := loadOverlay(projectConfigPath)
		if err != nil {
			return nil, fmt.Errorf("project config %s: %w", projectConfigPath, err)
		}
		l.logger.Debug("Loaded project config", "path", projectConfigPath)
		config.Merge(overlay)
	} else {
		l.logger.Debug("No project config found")
	}

	if explicit != "" {
		overlay, err := loadOverlay(explicit)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", explicit, err)
		}
		config.Merge(overlay)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist
func (l *Loader) EnsureUserConfig() error {
	userConfigPath := l.userConfigPath()
	if userConfigPath == "" {
		return fmt.Errorf("no home directory")
	}
	if _, err := os.Stat(userConfigPath); err == nil {
		return nil
	}

	if err := DefaultConfig().SaveToFile(userConfigPath); err != nil {
		return err
	}

	l.logger.Info("Created default user config", "path", userConfigPath)
	return nil
}

// loadOverlay reads a config layer without defaults so that only the keys
// present in the file override earlier layers.
func loadOverlay(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &overlay, nil
}

func (l *Loader) userConfigPath() string {
	home := l.home
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return ""
		}
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for semweave.yaml in the search directory and
// its parents.
func (l *Loader) findProjectConfig() string {
	dir := l.dir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = cwd
	}

	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
