// Package config loads emberls settings from defaults, an optional
// .emberls.yaml file and EMBERLS_* environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// FileName is the project-local config file name without extension.
	FileName = ".emberls"
	// EnvPrefix prefixes environment overrides (EMBERLS_CACHE_TTL).
	EnvPrefix = "EMBERLS"
)

// AddonRoot is an extra addon root declared in configuration.
type AddonRoot struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	Root string `json:"root" yaml:"root" mapstructure:"root"`
}

// Config holds every setting.
type Config struct {
	// Addons are extra addon roots composed into every project.
	Addons []AddonRoot `json:"addons" yaml:"addons" mapstructure:"addons"`
	// IgnoredProjects are package names never loaded as projects.
	IgnoredProjects []string `json:"ignored_projects" yaml:"ignored_projects" mapstructure:"ignored_projects"`
	// DisableInitialization skips the initial registry walk.
	DisableInitialization bool `json:"disable_initialization" yaml:"disable_initialization" mapstructure:"disable_initialization"`
	// IncludeModules scans node_modules for addons.
	IncludeModules bool `json:"include_modules" yaml:"include_modules" mapstructure:"include_modules"`
	// UseBuiltinLinting enables the template linter hook.
	UseBuiltinLinting bool `json:"use_builtin_linting" yaml:"use_builtin_linting" mapstructure:"use_builtin_linting"`
	// Namespaces forces addon-qualified completion labels.
	Namespaces bool `json:"namespaces" yaml:"namespaces" mapstructure:"namespaces"`
	// ExternalFileWatcher means an editor watcher feeds TrackChange, so
	// memoized listings can be bypassed.
	ExternalFileWatcher bool `json:"external_file_watcher" yaml:"external_file_watcher" mapstructure:"external_file_watcher"`
	// EagerRegistry builds registries when a project is added instead of
	// on first request.
	EagerRegistry bool `json:"eager_registry" yaml:"eager_registry" mapstructure:"eager_registry"`
	// CacheTTL is the memo freshness window.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`
	// TemplateReadTimeout bounds template reads during completion.
	TemplateReadTimeout time.Duration `json:"template_read_timeout" yaml:"template_read_timeout" mapstructure:"template_read_timeout"`
	// MaxConcurrentReads bounds parallel template reads.
	MaxConcurrentReads int `json:"max_concurrent_reads" yaml:"max_concurrent_reads" mapstructure:"max_concurrent_reads"`
	// ProviderScripts enables addon provider scripts.
	ProviderScripts bool `json:"provider_scripts" yaml:"provider_scripts" mapstructure:"provider_scripts"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		IncludeModules:      true,
		UseBuiltinLinting:   true,
		EagerRegistry:       true,
		CacheTTL:            60 * time.Second,
		TemplateReadTimeout: 2 * time.Second,
		MaxConcurrentReads:  8,
		ProviderScripts:     true,
		LogLevel:            "info",
	}
}

// LoadOptions selects where configuration comes from.
type LoadOptions struct {
	// File is an explicit config file; it must exist.
	File string
	// ProjectRoot is searched for .emberls.yaml when File is empty.
	ProjectRoot string
}

// Load resolves configuration. It returns the settings and the file they
// were read from ("" when only defaults and environment apply).
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("config: load canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	d := Default()
	v.SetDefault("addons", d.Addons)
	v.SetDefault("ignored_projects", d.IgnoredProjects)
	v.SetDefault("disable_initialization", d.DisableInitialization)
	v.SetDefault("include_modules", d.IncludeModules)
	v.SetDefault("use_builtin_linting", d.UseBuiltinLinting)
	v.SetDefault("namespaces", d.Namespaces)
	v.SetDefault("external_file_watcher", d.ExternalFileWatcher)
	v.SetDefault("eager_registry", d.EagerRegistry)
	v.SetDefault("cache_ttl", d.CacheTTL)
	v.SetDefault("template_read_timeout", d.TemplateReadTimeout)
	v.SetDefault("max_concurrent_reads", d.MaxConcurrentReads)
	v.SetDefault("provider_scripts", d.ProviderScripts)
	v.SetDefault("log_level", d.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolved := ""
	switch {
	case opts.File != "":
		if _, err := os.Stat(opts.File); err != nil {
			return nil, "", fmt.Errorf("config: file not found: %w", err)
		}
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("config: read %s: %w", opts.File, err)
		}
		resolved = opts.File
	case opts.ProjectRoot != "":
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(opts.ProjectRoot)
		err := v.ReadInConfig()
		var notFound viper.ConfigFileNotFoundError
		switch {
		case err == nil:
			resolved = v.ConfigFileUsed()
		case errors.As(err, &notFound):
		default:
			return nil, "", fmt.Errorf("config: read %s: %w", filepath.Join(opts.ProjectRoot, FileName+".yaml"), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolved, nil
}

// Validate rejects settings the engine cannot honor.
func (c *Config) Validate() error {
	if c.CacheTTL < 0 {
		return fmt.Errorf("config: cache_ttl must not be negative, got %s", c.CacheTTL)
	}
	if c.TemplateReadTimeout <= 0 {
		return fmt.Errorf("config: template_read_timeout must be positive, got %s", c.TemplateReadTimeout)
	}
	if c.MaxConcurrentReads < 1 {
		return fmt.Errorf("config: max_concurrent_reads must be at least 1, got %d", c.MaxConcurrentReads)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}

// IsIgnored reports whether a package name is excluded from loading.
func (c *Config) IsIgnored(name string) bool {
	for _, n := range c.IgnoredProjects {
		if n == name {
			return true
		}
	}
	return false
}
