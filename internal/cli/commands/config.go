package commands

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectDirName is the per-project directory holding config and store.
const ProjectDirName = ".capfs"

// ProjectConfig represents per-project configuration from
// {projectDir}/.capfs/config.yaml.
type ProjectConfig struct {
	Logging   string   `yaml:"logging"`   // logging level: none, error, warn, info, debug, trace
	Store     string   `yaml:"store"`     // store file, relative to .capfs (default: "store.capfs")
	Gitignore *bool    `yaml:"gitignore"` // default: true (pointer to detect missing)
	Includes  []string `yaml:"includes"`  // default: [".git"]
	Excludes  []string `yaml:"excludes"`  // default: [] (force-exclude paths)
}

// ApplyDefaults fills zero-value fields with their defaults.
func (cfg *ProjectConfig) ApplyDefaults() {
	if cfg.Store == "" {
		cfg.Store = "store.capfs"
	}
	if cfg.Gitignore == nil {
		t := true
		cfg.Gitignore = &t
	}
	if cfg.Includes == nil {
		cfg.Includes = []string{".git"}
	}
}

// GitignoreEnabled returns whether gitignore filtering is enabled (defaults to true).
func (cfg *ProjectConfig) GitignoreEnabled() bool {
	if cfg.Gitignore == nil {
		return true
	}
	return *cfg.Gitignore
}

// LoggingEnabled returns whether logging is enabled (any level other than "none" or empty).
func (cfg *ProjectConfig) LoggingEnabled() bool {
	level := strings.ToLower(cfg.Logging)
	return level != "" && level != "none"
}

// LogLevel returns the normalized (lowercase) logging level.
func (cfg *ProjectConfig) LogLevel() string {
	return strings.ToLower(cfg.Logging)
}

// StorePath resolves the configured store file relative to projectDir.
func (cfg *ProjectConfig) StorePath(projectDir string) string {
	if filepath.IsAbs(cfg.Store) {
		return cfg.Store
	}
	return filepath.Join(projectDir, ProjectDirName, cfg.Store)
}

// LoadProjectConfig loads the project config from {projectDir}/.capfs/config.yaml.
// Returns nil if the config file does not exist.
func LoadProjectConfig(projectDir string) (*ProjectConfig, error) {
	if projectDir == "" {
		return nil, nil
	}
	return LoadProjectConfigFromPath(filepath.Join(projectDir, ProjectDirName, "config.yaml"))
}

// LoadProjectConfigFromPath loads the project config from a specific config file path.
// Returns nil if the config file does not exist.
func LoadProjectConfigFromPath(configPath string) (*ProjectConfig, error) {
	if configPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}
