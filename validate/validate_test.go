package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `{
	"name": "Test Config",
	"description": "Test configuration",
	"opponent_name": "Admiral Test",
	"strategy": "hunt",
	"min_think_ms": 10,
	"max_think_ms": 20,
	"poll_interval_ms": 5,
	"retry_budget": 100,
	"placement_attempts": 1000,
	"messages": {
		"welcome": "Welcome!",
		"battle_start": "Fire!",
		"player_hit": "Hit!",
		"player_miss": "Miss.",
		"player_sunk": "Sunk!",
		"opponent_hit": "Ouch!",
		"opponent_miss": "Phew.",
		"opponent_sunk": "Lost one.",
		"victory": "Won in %d shots!",
		"defeat": "Defeat."
	}
}`

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidateConfig_ValidConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "test.json", validConfig)

	result := validateConfig(path)

	assert.True(t, result.Valid, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "test.json", result.File)
	assert.Contains(t, result.Info, "✓ Name: Test Config")
	assert.Contains(t, result.Info, "✓ Opponent: Admiral Test (hunt strategy)")
}

func TestValidateConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "malformed JSON",
			mutate:  func(s string) string { return s[:len(s)-2] },
			wantErr: "Invalid JSON",
		},
		{
			name:    "unknown field",
			mutate:  func(s string) string { return strings.Replace(s, `"strategy"`, `"strategie": "x", "strategy"`, 1) },
			wantErr: "unknown field",
		},
		{
			name:    "unknown strategy",
			mutate:  func(s string) string { return strings.Replace(s, `"hunt"`, `"psychic"`, 1) },
			wantErr: "strategy must be one of",
		},
		{
			name:    "think range inverted",
			mutate:  func(s string) string { return strings.Replace(s, `"max_think_ms": 20`, `"max_think_ms": 5`, 1) },
			wantErr: "max_think_ms",
		},
		{
			name:    "victory without shot count",
			mutate:  func(s string) string { return strings.Replace(s, "Won in %d shots!", "Won!", 1) },
			wantErr: "messages.victory",
		},
		{
			name:    "verb in other message",
			mutate:  func(s string) string { return strings.Replace(s, `"Hit!"`, `"Hit at %s!"`, 1) },
			wantErr: "messages.player_hit must not contain format verbs",
		},
		{
			name:    "two verbs in victory",
			mutate:  func(s string) string { return strings.Replace(s, "Won in %d shots!", "Won in %d shots by %s!", 1) },
			wantErr: "exactly one",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), "bad.json", tt.mutate(validConfig))

			result := validateConfig(path)

			assert.False(t, result.Valid)
			require.NotEmpty(t, result.Errors)
			assert.Contains(t, strings.Join(result.Errors, "\n"), tt.wantErr)
			assert.Empty(t, result.Info)
		})
	}
}

func TestValidateConfig_MissingFile(t *testing.T) {
	result := validateConfig(filepath.Join(t.TempDir(), "missing.json"))

	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "Failed to read file")
}

func TestValidateConfig_OptionalMessagesWarn(t *testing.T) {
	content := strings.Replace(validConfig, `"battle_start": "Fire!",`, "", 1)
	path := writeConfig(t, t.TempDir(), "quiet.json", content)

	result := validateConfig(path)

	assert.True(t, result.Valid, "errors: %v", result.Errors)
	assert.Equal(t, []string{"messages.battle_start is empty, the default will be used"}, result.Warnings)
}

func TestCheckPlacement(t *testing.T) {
	assert.NoError(t, checkPlacement(1000, "classic.json"))
}

func TestValidateDir(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "good.json", validConfig)

	var out bytes.Buffer
	ok, err := validateDir(dir, &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "good.json")
	assert.Contains(t, out.String(), "✅ All configurations are valid!")

	writeConfig(t, dir, "bad.json", "{")
	out.Reset()
	ok, err = validateDir(dir, &out)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, out.String(), "❌ INVALID")
	assert.Contains(t, out.String(), "❌ Some configurations have errors")
}

func TestValidateDir_Empty(t *testing.T) {
	_, err := validateDir(t.TempDir(), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestShippedConfigs(t *testing.T) {
	var out bytes.Buffer
	ok, err := validateDir("../configs", &out)
	require.NoError(t, err)
	assert.True(t, ok, out.String())
}

func TestCommand(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "good.json", validConfig)

	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out
	require.NoError(t, cmd.Run(context.Background(), []string{"validate", "--dir", dir}))

	writeConfig(t, dir, "bad.json", "{}")
	cmd = newCommand()
	cmd.Writer = &out
	err := cmd.Run(context.Background(), []string{"validate", "--dir", dir})
	assert.ErrorIs(t, err, errInvalid)
}
