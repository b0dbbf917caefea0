// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Categories lists the detection toggles in configuration order
var Categories = []string{
	"emails", "phones", "ssns", "cards", "dates", "addresses", "bank_accounts",
	"crypto", "investments", "eu_ids", "asian_ids", "latam_ids", "passports",
}

// Supported output formats and model backends
var (
	Formats  = []string{"json", "csv", "yaml", "text"}
	Backends = []string{"none", "onnx", "llm"}
)

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults struct {
		Format    string `yaml:"format"`
		NoColor   bool   `yaml:"no_color"`
		Debug     bool   `yaml:"debug"`
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
	} `yaml:"defaults"`

	// Detection pipeline settings
	Detection DetectionConfig `yaml:"detection"`

	// Named-entity model backend
	Model ModelConfig `yaml:"model"`

	// Result cache
	Cache CacheConfig `yaml:"cache"`

	// Box mapping and table/form structuring
	Geometry GeometryConfig `yaml:"geometry"`

	// HTTP server
	Server ServerConfig `yaml:"server"`

	// Profiles for different scanning scenarios
	Profiles map[string]Profile `yaml:"profiles"`
}

// DetectionConfig controls which detectors run and how the model pass behaves
type DetectionConfig struct {
	Categories         map[string]bool `yaml:"categories"`
	UseModel           bool            `yaml:"use_model"`
	ModelMinConfidence float64         `yaml:"model_min_confidence"`
	WindowSize         int             `yaml:"window_size"`
	OverlapRatio       float64         `yaml:"overlap_ratio"`
	RegionGuidance     bool            `yaml:"region_guidance"`
	Timeout            time.Duration   `yaml:"timeout"`
	Concurrency        int             `yaml:"concurrency"`
}

// EnabledCategories returns the enabled category names in configuration order
func (d DetectionConfig) EnabledCategories() []string {
	var out []string
	for _, c := range Categories {
		if d.Categories[c] {
			out = append(out, c)
		}
	}
	return out
}

// ModelConfig selects and configures the entity recognizer
type ModelConfig struct {
	Backend string `yaml:"backend"` // none, onnx or llm
	Name    string `yaml:"name"`    // recorded in cache entries; changing it invalidates them

	ONNX struct {
		ModelPath         string   `yaml:"model_path"`
		VocabPath         string   `yaml:"vocab_path"`
		SharedLibraryPath string   `yaml:"shared_library_path"`
		Labels            []string `yaml:"labels"`
		MaxTokens         int      `yaml:"max_tokens"`
		Lowercase         bool     `yaml:"lowercase"`
	} `yaml:"onnx"`

	LLM struct {
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"llm"`
}

// CacheConfig sizes the in-process cache and optionally enables the Redis second level
type CacheConfig struct {
	MaxAge     time.Duration `yaml:"max_age"`
	MaxEntries int           `yaml:"max_entries"`

	Redis struct {
		Addrs    []string      `yaml:"addrs"`
		Username string        `yaml:"username"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
		Prefix   string        `yaml:"prefix"`
	} `yaml:"redis"`
}

// GeometryConfig holds box mapping settings
type GeometryConfig struct {
	Padding        float64 `yaml:"padding"`
	RowTolerance   float64 `yaml:"row_tolerance"`
	ColumnMinShare float64 `yaml:"column_min_share"`
	TargetDPI      float64 `yaml:"target_dpi"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// Profile represents a scanning profile that overrides detection settings
type Profile struct {
	Description        string          `yaml:"description"`
	Format             string          `yaml:"format"`
	Categories         map[string]bool `yaml:"categories"`
	UseModel           bool            `yaml:"use_model"`
	ModelMinConfidence float64         `yaml:"model_min_confidence"`
	RegionGuidance     bool            `yaml:"region_guidance"`

	// explicitly set boolean fields, recorded at load time
	set map[string]bool
}

// Default returns the built-in configuration
func Default() *Config {
	config := &Config{Profiles: make(map[string]Profile)}

	config.Defaults.Format = "text"
	config.Defaults.LogLevel = "info"
	config.Defaults.LogFormat = "console"

	config.Detection.Categories = make(map[string]bool, len(Categories))
	for _, c := range Categories {
		config.Detection.Categories[c] = true
	}
	config.Detection.UseModel = true
	config.Detection.ModelMinConfidence = 0.8
	config.Detection.WindowSize = 512
	config.Detection.OverlapRatio = 0.25
	config.Detection.Timeout = 10 * time.Second
	config.Detection.Concurrency = 4

	config.Model.Backend = "none"
	config.Model.ONNX.MaxTokens = 512

	config.Cache.MaxAge = time.Hour
	config.Cache.MaxEntries = 100
	config.Cache.Redis.TTL = 24 * time.Hour
	config.Cache.Redis.Prefix = "piiscope:"

	config.Geometry.Padding = 4
	config.Geometry.RowTolerance = 10
	config.Geometry.ColumnMinShare = 0.5
	config.Geometry.TargetDPI = 72

	config.Server.Addr = ":8080"
	config.Server.MaxBodyBytes = 10 << 20

	config.Profiles["patterns-only"] = Profile{
		Description: "Checksum-validated patterns only; no model inference",
		UseModel:    false,
		set:         map[string]bool{"use_model": true},
	}
	config.Profiles["financial"] = Profile{
		Description: "Cards, bank accounts, securities and crypto addresses",
		Categories: map[string]bool{
			"emails": false, "phones": false, "ssns": false, "dates": false, "addresses": false,
			"eu_ids": false, "asian_ids": false, "latam_ids": false, "passports": false,
			"cards": true, "bank_accounts": true, "investments": true, "crypto": true,
		},
		UseModel: false,
		set:      map[string]bool{"use_model": true},
	}

	return config
}

// LoadConfig loads configuration from the specified file path
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		cleanPath := filepath.Clean(configPath)
		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		// Store default values before unmarshaling
		defaultUseModel := config.Detection.UseModel
		defaultLowercase := config.Model.ONNX.Lowercase

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}

		// Restore defaults if not explicitly set in config file
		if !containsField(data, "detection", "use_model") {
			config.Detection.UseModel = defaultUseModel
		}
		if !containsField(data, "model", "onnx", "lowercase") {
			config.Model.ONNX.Lowercase = defaultLowercase
		}

		for name, profile := range config.Profiles {
			if profile.set == nil {
				profile.set = make(map[string]bool)
			}
			for _, field := range []string{"use_model", "region_guidance"} {
				if containsField(data, "profiles", name, field) {
					profile.set[field] = true
				}
			}
			config.Profiles[name] = profile
		}
	}

	if os.Getenv("PIISCOPE_DEBUG") == "1" {
		config.Defaults.Debug = true
	}
	config.Model.LLM.APIKey = expandEnv(config.Model.LLM.APIKey)
	config.Cache.Redis.Password = expandEnv(config.Cache.Redis.Password)

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// expandEnv replaces ${VAR} references; other dollar signs are kept
func expandEnv(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	var b strings.Builder
	for {
		i := strings.Index(s, "${")
		if i < 0 {
			break
		}
		j := strings.IndexByte(s[i:], '}')
		if j < 0 {
			break
		}
		b.WriteString(s[:i])
		b.WriteString(os.Getenv(s[i+2 : i+j]))
		s = s[i+j+1:]
	}
	b.WriteString(s)
	return b.String()
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile() string {
	if env := os.Getenv("PIISCOPE_CONFIG"); env != "" && fileExists(env) {
		return env
	}

	// Project-specific config in the current directory
	if fileExists(".piiscope.yaml") {
		return ".piiscope.yaml"
	}
	if fileExists(".piiscope.yml") {
		return ".piiscope.yml"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	for _, name := range []string{".piiscope.yaml", ".piiscope.yml"} {
		if homeConfig := filepath.Join(home, name); fileExists(homeConfig) {
			return homeConfig
		}
	}

	// XDG config directory
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	if xdgConfigFile := filepath.Join(xdgConfig, "piiscope", "config.yaml"); fileExists(xdgConfigFile) {
		return xdgConfigFile
	}
	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ListProfiles returns the available profile names, sorted
func (c *Config) ListProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// ApplyProfile overlays the named profile onto the detection settings. Category toggles
// override per key; booleans override only when the profile sets them.
func (c *Config) ApplyProfile(name string) error {
	profile := c.GetProfile(name)
	if profile == nil {
		return fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(c.ListProfiles(), ", "))
	}

	categories := make(map[string]bool, len(c.Detection.Categories))
	for k, v := range c.Detection.Categories {
		categories[k] = v
	}
	for k, v := range profile.Categories {
		categories[k] = v
	}
	c.Detection.Categories = categories

	if profile.set["use_model"] {
		c.Detection.UseModel = profile.UseModel
	}
	if profile.set["region_guidance"] {
		c.Detection.RegionGuidance = profile.RegionGuidance
	}
	if profile.ModelMinConfidence > 0 {
		c.Detection.ModelMinConfidence = profile.ModelMinConfidence
	}
	if profile.Format != "" {
		c.Defaults.Format = profile.Format
	}
	return ValidateConfig(c)
}

// containsField checks if a nested field exists in the YAML data
func containsField(data []byte, path ...string) bool {
	var yamlData map[string]interface{}
	err := yaml.Unmarshal(data, &yamlData)
	if err != nil {
		return false
	}

	current := yamlData
	for i, key := range path {
		if i == len(path)-1 {
			// Last key - check if it exists
			_, exists := current[key]
			return exists
		}
		// Intermediate key - navigate deeper
		if next, ok := current[key].(map[string]interface{}); ok {
			current = next
		} else {
			return false
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if !contains(Formats, config.Defaults.Format) {
		return fmt.Errorf("unknown format %q (supported: %s)", config.Defaults.Format, strings.Join(Formats, ", "))
	}
	for name := range config.Detection.Categories {
		if !contains(Categories, name) {
			return fmt.Errorf("unknown detection category %q", name)
		}
	}

	d := config.Detection
	if d.ModelMinConfidence < 0 || d.ModelMinConfidence > 1 {
		return fmt.Errorf("model_min_confidence must be within [0,1], got %v", d.ModelMinConfidence)
	}
	if d.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive, got %d", d.WindowSize)
	}
	if d.OverlapRatio < 0 || d.OverlapRatio >= 1 {
		return fmt.Errorf("overlap_ratio must be within [0,1), got %v", d.OverlapRatio)
	}
	if d.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", d.Timeout)
	}
	if d.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", d.Concurrency)
	}

	if !contains(Backends, config.Model.Backend) {
		return fmt.Errorf("unknown model backend %q (supported: %s)", config.Model.Backend, strings.Join(Backends, ", "))
	}
	if config.Model.Backend == "onnx" && (config.Model.ONNX.ModelPath == "" || config.Model.ONNX.VocabPath == "") {
		return fmt.Errorf("onnx backend requires model.onnx.model_path and model.onnx.vocab_path")
	}
	if config.Model.Backend == "llm" && config.Model.LLM.Model == "" {
		return fmt.Errorf("llm backend requires model.llm.model")
	}

	if config.Cache.MaxAge <= 0 || config.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache max_age and max_entries must be positive")
	}
	if config.Geometry.Padding < 0 {
		return fmt.Errorf("geometry padding must not be negative, got %v", config.Geometry.Padding)
	}

	for name, profile := range config.Profiles {
		if profile.Format != "" && !contains(Formats, profile.Format) {
			return fmt.Errorf("profile %q: unknown format %q", name, profile.Format)
		}
		for c := range profile.Categories {
			if !contains(Categories, c) {
				return fmt.Errorf("profile %q: unknown detection category %q", name, c)
			}
		}
	}
	return nil
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard locations
// when configFile is empty). If loading fails, it returns a default configuration.
// This is the shared helper used by both the CLI and the web server.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		// Fall back to defaults on a missing or bad config file
		cfg, _ = LoadConfig("")
	}
	return cfg
}
