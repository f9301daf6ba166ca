// Package config loads fmtrends settings from the environment and an optional
// YAML file. Command-line flags in cmd/ are applied on top.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable, e.g. FMTRENDS_WORKERS.
const EnvPrefix = "FMTRENDS"

// Config represents the complete application configuration.
type Config struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR" default:"data"`
	Project    string `yaml:"project" envconfig:"PROJECT"`
	HeaderPath string `yaml:"header_path" envconfig:"HEADER_PATH" default:"header.json"`
	CacheFile  string `yaml:"cache_file" envconfig:"CACHE_FILE" default:"combined_data.fmt"`
	Suffix     string `yaml:"suffix" envconfig:"SUFFIX" default:".html"`
	Workers    int    `yaml:"workers" envconfig:"WORKERS" default:"10"`
	ChunkSize  int    `yaml:"chunk_size" envconfig:"CHUNK_SIZE" default:"1000"`
	LogLevel   string `yaml:"log_level" envconfig:"LOG_LEVEL" default:"info"`
	LogJSON    bool   `yaml:"log_json" envconfig:"LOG_JSON"`
}

// Load reads configuration from the environment, then overlays the YAML file at
// path if path is non-empty. Values set in the file win over defaults but not
// over variables present in the environment.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if path != "" {
		fileCfg, err := loadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config from file: %w", err)
		}
		cfg = merge(*fileCfg, cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// merge copies file values into env for every field not set in the environment.
func merge(file, env Config) Config {
	set := func(name string) bool {
		_, ok := os.LookupEnv(EnvPrefix + "_" + name)
		return ok
	}
	if file.BaseDir != "" && !set("BASE_DIR") {
		env.BaseDir = file.BaseDir
	}
	if file.Project != "" && !set("PROJECT") {
		env.Project = file.Project
	}
	if file.HeaderPath != "" && !set("HEADER_PATH") {
		env.HeaderPath = file.HeaderPath
	}
	if file.CacheFile != "" && !set("CACHE_FILE") {
		env.CacheFile = file.CacheFile
	}
	if file.Suffix != "" && !set("SUFFIX") {
		env.Suffix = file.Suffix
	}
	if file.Workers != 0 && !set("WORKERS") {
		env.Workers = file.Workers
	}
	if file.ChunkSize != 0 && !set("CHUNK_SIZE") {
		env.ChunkSize = file.ChunkSize
	}
	if file.LogLevel != "" && !set("LOG_LEVEL") {
		env.LogLevel = file.LogLevel
	}
	if file.LogJSON && !set("LOG_JSON") {
		env.LogJSON = true
	}
	return env
}

// BindFlags registers the command-line flags shared by the binaries on fs.
// Defaults are the current values of c; parsed values are written back to c.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.BaseDir, "base-dir", c.BaseDir, "Directory holding one folder per project")
	fs.StringVar(&c.Project, "project", c.Project, "Project folder with the yearly HTML exports")
	fs.StringVar(&c.HeaderPath, "header", c.HeaderPath, "Header file listing the column names (JSON or YAML)")
	fs.IntVar(&c.Workers, "workers", c.Workers, "Concurrent snapshot parsers")
	fs.IntVar(&c.ChunkSize, "chunk-size", c.ChunkSize, "Rows converted per batch (0 = whole document)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
}

// Validate checks values that would make a load impossible.
func (c *Config) Validate() error {
	if c.BaseDir == "" {
		return errors.New("base_dir is required")
	}
	if c.HeaderPath == "" {
		return errors.New("header_path is required")
	}
	if c.CacheFile == "" {
		return errors.New("cache_file is required")
	}
	if c.Suffix == "" {
		return errors.New("suffix is required")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must not be negative, got %d", c.ChunkSize)
	}
	return nil
}

// ProjectDir is the directory holding the snapshot files.
func (c *Config) ProjectDir() string {
	return filepath.Join(c.BaseDir, c.Project)
}

// CachePath is where the combined table artifact lives.
func (c *Config) CachePath() string {
	return filepath.Join(c.ProjectDir(), c.CacheFile)
}
