package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the name of the project configuration file.
const FileName = "hdl_force.json"

// Config is the top-level configuration for hdl-force
type Config struct {
	// Files is a list of glob patterns for netlist documents
	Files []string `json:"files,omitempty"`

	// Exclude is a list of glob patterns removed from Files
	Exclude []string `json:"exclude,omitempty"`

	// Output controls where lowered netlists are written
	Output OutputConfig `json:"output,omitempty"`

	// Force contains options of the force/release pass
	Force ForceConfig `json:"force,omitempty"`

	// Lint contains post-pass rule configuration
	Lint LintConfig `json:"lint,omitempty"`

	// Analysis contains pipeline options
	Analysis AnalysisConfig `json:"analysis,omitempty"`
}

// OutputConfig controls output placement
type OutputConfig struct {
	// Dir receives lowered netlists (relative to project root if not
	// absolute). Empty writes next to the input.
	Dir string `json:"dir,omitempty"`

	// Suffix replaces the .json extension of the input
	Suffix string `json:"suffix,omitempty"`
}

// ForceConfig contains options of the force/release pass
type ForceConfig struct {
	// Enabled turns the pass on; a disabled pass still validates and checks
	Enabled *bool `json:"enabled,omitempty"`

	// Dump writes the fact delta of the pass next to each output
	Dump bool `json:"dump,omitempty"`
}

// LintConfig contains linting configuration
type LintConfig struct {
	// Rules maps rule names to severity: "off", "info", "warning", "error"
	Rules map[string]string `json:"rules,omitempty"`

	// IgnorePatterns is a list of file patterns to skip entirely
	IgnorePatterns []string `json:"ignorePatterns,omitempty"`

	// PolicyDir holds extra .rego files evaluated with the built-in rules
	PolicyDir string `json:"policyDir,omitempty"`
}

// CacheConfig controls the result cache
type CacheConfig struct {
	// Enabled turns on cache usage
	Enabled *bool `json:"enabled,omitempty"`

	// Dir is the cache directory (relative to project root if not absolute)
	Dir string `json:"dir,omitempty"`
}

// AnalysisConfig contains pipeline options
type AnalysisConfig struct {
	// MaxParallelFiles limits concurrent file processing (0 = auto)
	MaxParallelFiles int `json:"maxParallelFiles,omitempty"`

	// Verify runs the fact and policy checks on lowered netlists
	Verify *bool `json:"verify,omitempty"`

	// ValidateInput checks every document against the netlist schema
	ValidateInput *bool `json:"validateInput,omitempty"`

	// Cache controls the result cache
	Cache CacheConfig `json:"cache,omitempty"`

	// FormatVersion is a semver constraint on accepted documents
	FormatVersion string `json:"formatVersion,omitempty"`
}

const (
	defaultSuffix   = ".forced.json"
	defaultCacheDir = ".hdl_force_cache"
)

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Files:   []string{"*.json", "**/*.json"},
		Exclude: []string{},
		Output: OutputConfig{
			Suffix: defaultSuffix,
		},
		Force: ForceConfig{
			Enabled: boolPtr(true),
		},
		Lint: LintConfig{
			Rules:          map[string]string{},
			IgnorePatterns: []string{},
		},
		Analysis: AnalysisConfig{
			MaxParallelFiles: 0, // auto
			Verify:           boolPtr(true),
			ValidateInput:    boolPtr(true),
			Cache: CacheConfig{
				Enabled: boolPtr(true),
				Dir:     defaultCacheDir,
			},
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

// Load finds and loads the configuration file
// Search order:
//  1. ./hdl_force.json (current working directory)
//  2. ./.hdl_force.json (current working directory)
//  3. <rootPath>/hdl_force.json (if different from cwd)
//  4. ~/.config/hdl_force/config.json
//
// Returns DefaultConfig if no config file is found
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	searchPaths := []string{
		filepath.Join(cwd, FileName),
		filepath.Join(cwd, "."+FileName),
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			searchPaths = append(searchPaths,
				filepath.Join(rootPath, FileName),
				filepath.Join(rootPath, "."+FileName),
			)
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "hdl_force", "config.json"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

// LoadFile loads configuration from a specific file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply defaults for missing fields
	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if len(c.Files) == 0 {
		c.Files = def.Files
	}
	if c.Output.Suffix == "" {
		c.Output.Suffix = defaultSuffix
	}
	if c.Force.Enabled == nil {
		c.Force.Enabled = boolPtr(true)
	}
	if c.Lint.Rules == nil {
		c.Lint.Rules = make(map[string]string)
	}
	if c.Analysis.Verify == nil {
		c.Analysis.Verify = boolPtr(true)
	}
	if c.Analysis.ValidateInput == nil {
		c.Analysis.ValidateInput = boolPtr(true)
	}
	if c.Analysis.Cache.Dir == "" {
		c.Analysis.Cache.Dir = defaultCacheDir
	}
	if c.Analysis.Cache.Enabled == nil {
		c.Analysis.Cache.Enabled = boolPtr(true)
	}
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Enabled reports whether a *bool option is on. Unset means on.
func Enabled(v *bool) bool {
	return v == nil || *v
}

// GetRuleSeverity returns the severity for a rule, or the default if not configured
func (c *Config) GetRuleSeverity(rule string, defaultSeverity string) string {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity
	}
	return defaultSeverity
}

// IsRuleEnabled returns true if the rule is not set to "off"
func (c *Config) IsRuleEnabled(rule string) bool {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity != "off"
	}
	return true // enabled by default
}

// ShouldIgnoreFile checks if a file should be skipped entirely
func (c *Config) ShouldIgnoreFile(filePath string) bool {
	for _, pattern := range c.Lint.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, filePath); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, filepath.Base(filePath)); matched {
			return true
		}
	}
	return false
}

// OutputPath returns where the lowered form of input is written.
func (c *Config) OutputPath(rootPath, input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + c.Output.Suffix
	if c.Output.Dir == "" {
		return filepath.Join(filepath.Dir(input), base)
	}
	dir := c.Output.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(rootPath, dir)
	}
	return filepath.Join(dir, base)
}

// CacheDir returns the absolute cache directory.
func (c *Config) CacheDir(rootPath string) string {
	if filepath.IsAbs(c.Analysis.Cache.Dir) {
		return c.Analysis.Cache.Dir
	}
	return filepath.Join(rootPath, c.Analysis.Cache.Dir)
}
