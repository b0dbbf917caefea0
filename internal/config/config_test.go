// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") failed: %v", err)
	}

	if cfg.Defaults.Format != "text" {
		t.Errorf("expected default format text, got %s", cfg.Defaults.Format)
	}
	if !cfg.Detection.UseModel {
		t.Error("expected use_model to default to true")
	}
	if len(cfg.Detection.EnabledCategories()) != len(Categories) {
		t.Errorf("expected every category enabled, got %v", cfg.Detection.EnabledCategories())
	}
	assert.Equal(t, 512, cfg.Detection.WindowSize)
	assert.Equal(t, 0.25, cfg.Detection.OverlapRatio)
	assert.Equal(t, 0.8, cfg.Detection.ModelMinConfidence)
	assert.Equal(t, time.Hour, cfg.Cache.MaxAge)
	assert.Equal(t, 100, cfg.Cache.MaxEntries)
	assert.Equal(t, 4.0, cfg.Geometry.Padding)
	assert.Equal(t, "none", cfg.Model.Backend)
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
defaults:
  format: json
detection:
  categories:
    dates: false
  timeout: 2s
cache:
  max_entries: 10
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Defaults.Format)
	assert.False(t, cfg.Detection.Categories["dates"])
	assert.True(t, cfg.Detection.Categories["emails"], "unlisted categories keep their default")
	assert.True(t, cfg.Detection.UseModel, "use_model not in file keeps its default")
	assert.Equal(t, 2*time.Second, cfg.Detection.Timeout)
	assert.Equal(t, 10, cfg.Cache.MaxEntries)
	assert.Equal(t, time.Hour, cfg.Cache.MaxAge)
	assert.NotContains(t, cfg.Detection.EnabledCategories(), "dates")
}

func TestLoadConfig_ExplicitFalse(t *testing.T) {
	path := writeConfig(t, "detection:\n  use_model: false\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.False(t, cfg.Detection.UseModel)
}

func TestLoadConfig_ExpandsSecrets(t *testing.T) {
	t.Setenv("PIISCOPE_TEST_KEY", "sk-test")
	path := writeConfig(t, `
model:
  backend: llm
  llm:
    model: gpt-4o-mini
    api_key: ${PIISCOPE_TEST_KEY}
cache:
  redis:
    password: pa$$word
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.Model.LLM.APIKey)
	assert.Equal(t, "pa$$word", cfg.Cache.Redis.Password)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "defaults: [format"},
		{"unknown format", "defaults:\n  format: sarif\n"},
		{"unknown category", "detection:\n  categories:\n    fingerprints: true\n"},
		{"confidence out of range", "detection:\n  model_min_confidence: 1.5\n"},
		{"overlap of one", "detection:\n  overlap_ratio: 1\n"},
		{"zero window", "detection:\n  window_size: 0\n"},
		{"unknown backend", "model:\n  backend: bert\n"},
		{"onnx without paths", "model:\n  backend: onnx\n"},
		{"negative padding", "geometry:\n  padding: -1\n"},
		{"profile with bad format", "profiles:\n  x:\n    format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyProfile(t *testing.T) {
	path := writeConfig(t, `
profiles:
  model-only-names:
    description: names with the model
    use_model: true
    region_guidance: true
    model_min_confidence: 0.9
    categories:
      dates: false
  keep-model:
    description: does not mention use_model
`)

	t.Run("user profile", func(t *testing.T) {
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		cfg.Detection.UseModel = false

		require.NoError(t, cfg.ApplyProfile("model-only-names"))
		assert.True(t, cfg.Detection.UseModel)
		assert.True(t, cfg.Detection.RegionGuidance)
		assert.Equal(t, 0.9, cfg.Detection.ModelMinConfidence)
		assert.False(t, cfg.Detection.Categories["dates"])
		assert.True(t, cfg.Detection.Categories["ssns"])
	})

	t.Run("unset booleans are left alone", func(t *testing.T) {
		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		require.NoError(t, cfg.ApplyProfile("keep-model"))
		assert.True(t, cfg.Detection.UseModel)
	})

	t.Run("built-in financial profile", func(t *testing.T) {
		cfg, err := LoadConfig("")
		require.NoError(t, err)

		require.NoError(t, cfg.ApplyProfile("financial"))
		assert.False(t, cfg.Detection.UseModel)
		assert.Equal(t, []string{"cards", "bank_accounts", "crypto", "investments"}, cfg.Detection.EnabledCategories())
	})

	t.Run("unknown profile", func(t *testing.T) {
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Error(t, cfg.ApplyProfile("nope"))
	})
}

func TestListProfiles(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "profiles:\n  audit:\n    description: audit\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"audit", "financial", "patterns-only"}, cfg.ListProfiles())
	assert.Nil(t, cfg.GetProfile("missing"))
}

func TestContainsField(t *testing.T) {
	data := []byte("detection:\n  use_model: false\nprofiles:\n  x:\n    region_guidance: true\n")

	tests := []struct {
		path []string
		want bool
	}{
		{[]string{"detection", "use_model"}, true},
		{[]string{"detection", "region_guidance"}, false},
		{[]string{"profiles", "x", "region_guidance"}, true},
		{[]string{"profiles", "y", "region_guidance"}, false},
		{[]string{"model"}, false},
	}
	for _, tt := range tests {
		if got := containsField(data, tt.path...); got != tt.want {
			t.Errorf("containsField(%v) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("PIISCOPE_A", "alpha")
	assert.Equal(t, "alpha-x", expandEnv("${PIISCOPE_A}-x"))
	assert.Equal(t, "$PIISCOPE_A", expandEnv("$PIISCOPE_A"))
	assert.Equal(t, "pre${open", expandEnv("pre${open"))
	assert.Equal(t, "", expandEnv("${PIISCOPE_UNSET_VAR}"))
}

func TestLoadConfigOrDefault_FallsBack(t *testing.T) {
	cfg := LoadConfigOrDefault(writeConfig(t, "defaults: [broken"))
	require.NotNil(t, cfg)
	assert.Equal(t, "text", cfg.Defaults.Format)
}

func TestFindConfigFile_EnvOverride(t *testing.T) {
	path := writeConfig(t, "defaults:\n  format: csv\n")
	t.Setenv("PIISCOPE_CONFIG", path)
	assert.Equal(t, path, FindConfigFile())
}
