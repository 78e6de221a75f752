package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/navalbattle/game/engine"
	"github.com/wricardo/mcp-training/navalbattle/game/service"
)

func createValidConfig(name string) *engine.MatchConfig {
	config := engine.DefaultMatchConfig()
	config.Name = name
	config.Description = "Test configuration"
	return config
}

func writeConfigFile(t *testing.T, dir, name string, config any) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), data, 0644))
}

func TestNewManager(t *testing.T) {
	t.Run("Prefers classic as default", func(t *testing.T) {
		dir := t.TempDir()
		writeConfigFile(t, dir, "another", createValidConfig("Another"))
		writeConfigFile(t, dir, "classic", createValidConfig("Classic"))

		manager, err := NewManager(dir, nil)
		require.NoError(t, err)
		assert.Equal(t, "Classic", manager.GetDefault().Name)
	})

	t.Run("Falls back to first valid config", func(t *testing.T) {
		dir := t.TempDir()
		writeConfigFile(t, dir, "hunter", createValidConfig("Hunter"))

		manager, err := NewManager(dir, nil)
		require.NoError(t, err)
		assert.Equal(t, "Hunter", manager.GetDefault().Name)
	})

	t.Run("Empty directory uses built-in config", func(t *testing.T) {
		manager, err := NewManager(t.TempDir(), nil)
		require.NoError(t, err)
		assert.Equal(t, engine.DefaultMatchConfig(), manager.GetDefault())
	})

	t.Run("Non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path", nil)
		require.Error(t, err)
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig("Classic"))

	bad := createValidConfig("Bad")
	bad.Strategy = "psychic"
	writeConfigFile(t, dir, "bad", bad)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644))

	manager, err := NewManager(dir, nil)
	require.NoError(t, err)

	tests := []struct {
		Name       string
		ConfigName string
		WantName   string
		WantErr    error
	}{
		{Name: "By id", ConfigName: "classic", WantName: "Classic"},
		{Name: "With extension", ConfigName: "classic.json", WantName: "Classic"},
		{Name: "Missing", ConfigName: "nope", WantErr: ErrConfigNotFound},
		{Name: "Invalid strategy", ConfigName: "bad", WantErr: ErrInvalidConfig},
		{Name: "Malformed JSON", ConfigName: "broken", WantErr: ErrInvalidConfig},
		{Name: "Path traversal", ConfigName: "../classic", WantErr: ErrConfigNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			config, err := manager.LoadConfig(tt.ConfigName)
			if tt.WantErr != nil {
				require.ErrorIs(t, err, tt.WantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.WantName, config.Name)
		})
	}

	// The service sees the same sentinel
	_, err = manager.LoadConfig("nope")
	assert.ErrorIs(t, err, service.ErrConfigNotFound)
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	hunter := createValidConfig("Hunter")
	hunter.Strategy = "hunt"
	writeConfigFile(t, dir, "hunter", hunter)
	writeConfigFile(t, dir, "classic", createValidConfig("Classic"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644))

	manager, err := NewManager(dir, nil)
	require.NoError(t, err)

	configs, err := manager.ListConfigs()
	require.NoError(t, err)
	require.Len(t, configs, 2)

	byID := make(map[string]*service.ConfigInfo)
	for _, c := range configs {
		byID[c.ConfigID] = c
	}
	require.Contains(t, byID, "hunter")
	assert.Equal(t, "hunter.json", byID["hunter"].Filename)
	assert.Equal(t, "Hunter", byID["hunter"].Name)
	assert.Equal(t, "hunt", byID["hunter"].Strategy)
	assert.Equal(t, engine.DefaultMinThinkMS, byID["hunter"].MinThinkMS)
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir, nil)
	require.NoError(t, err)

	t.Run("Valid config is written and cached", func(t *testing.T) {
		config := createValidConfig("Saved")
		require.NoError(t, manager.SaveConfig("saved", config))

		_, err := os.Stat(filepath.Join(dir, "saved.json"))
		require.NoError(t, err)

		loaded, err := manager.LoadConfig("saved")
		require.NoError(t, err)
		assert.Same(t, config, loaded)
	})

	t.Run("Invalid config is rejected", func(t *testing.T) {
		config := createValidConfig("Broken")
		config.Messages.Victory = "no shot count"
		require.ErrorIs(t, manager.SaveConfig("broken", config), ErrInvalidConfig)

		_, err := os.Stat(filepath.Join(dir, "broken.json"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Bad name is rejected", func(t *testing.T) {
		require.ErrorIs(t, manager.SaveConfig("../escape", createValidConfig("Escape")), ErrInvalidConfig)
	})
}

func TestManager_RefreshCache(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig("Classic"))
	manager, err := NewManager(dir, nil)
	require.NoError(t, err)
	require.Equal(t, 1, manager.Count())

	// Edit the file on disk; the cache still holds the old copy
	writeConfigFile(t, dir, "classic", createValidConfig("Classic v2"))
	cached, err := manager.LoadConfig("classic")
	require.NoError(t, err)
	assert.Equal(t, "Classic", cached.Name)

	manager.RefreshCache()
	assert.Equal(t, "Classic v2", manager.GetDefault().Name)
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig("Classic"))
	writeConfigFile(t, dir, "quick", createValidConfig("Quick"))
	manager, err := NewManager(dir, nil)
	require.NoError(t, err)

	require.NoError(t, manager.SetDefault("quick"))
	assert.Equal(t, "Quick", manager.GetDefault().Name)
	require.ErrorIs(t, manager.SetDefault("missing"), ErrConfigNotFound)
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"classic", "quick", "hunter"} {
		writeConfigFile(t, dir, name, createValidConfig(name))
	}
	manager, err := NewManager(dir, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := []string{"classic", "quick", "hunter"}[i%3]
			config, err := manager.LoadConfig(name)
			assert.NoError(t, err)
			assert.Equal(t, name, config.Name)
			if i%5 == 0 {
				manager.RefreshCache()
			}
			_, err = manager.ListConfigs()
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
}

func TestShippedConfigsAreValid(t *testing.T) {
	manager, err := NewManager(filepath.Join("..", "..", "configs"), nil)
	require.NoError(t, err)

	configs, err := manager.ListConfigs()
	require.NoError(t, err)

	ids := make([]string, 0, len(configs))
	for _, c := range configs {
		ids = append(ids, c.ConfigID)
	}
	assert.ElementsMatch(t, []string{"classic", "quick", "hunter", "tactician"}, ids)
	assert.Equal(t, "Classic", manager.GetDefault().Name)
}
