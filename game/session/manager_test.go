package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/navalbattle/game/engine"
	"github.com/wricardo/mcp-training/navalbattle/game/service"
)

func createTestConfig() *engine.MatchConfig {
	config := engine.DefaultMatchConfig()
	config.Name = "Test Config"
	config.Description = "Test configuration"
	return config
}

func TestManager_Create(t *testing.T) {
	manager := NewManager(nil)
	config := createTestConfig()

	tests := []struct {
		Name    string
		ID      string
		WantErr error
	}{
		{Name: "Explicit id", ID: "abcd"},
		{Name: "Generated id", ID: ""},
		{Name: "Duplicate id", ID: "abcd", WantErr: ErrSessionAlreadyExists},
		{Name: "Duplicate id differing in case", ID: "ABCD", WantErr: ErrSessionAlreadyExists},
		{Name: "Path in id", ID: "../etc", WantErr: ErrInvalidSessionID},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			sess, err := manager.Create(tt.ID, "test", config, "Nemo")
			if tt.WantErr != nil {
				require.ErrorIs(t, err, tt.WantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, sess.ID)
			assert.Equal(t, "test", sess.ConfigID)
			assert.Equal(t, service.PhasePlacement, sess.Phase())
			assert.True(t, sess.Game.Player().Fleet.IsComplete())
			assert.True(t, sess.Game.Opponent().Fleet.IsComplete())
		})
	}

	assert.Equal(t, 2, manager.Count())
}

func TestManager_Get(t *testing.T) {
	manager := NewManager(nil)
	created, err := manager.Create("get1", "test", createTestConfig(), "")
	require.NoError(t, err)

	got, err := manager.Get("GET1")
	require.NoError(t, err)
	assert.Same(t, created, got)
	assert.Equal(t, service.DefaultNickname, got.Nickname)

	_, err = manager.Get("missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager(nil)
	sess, err := manager.Create("del1", "test", createTestConfig(), "Nemo")
	require.NoError(t, err)

	require.NoError(t, manager.Delete("del1"))
	_, err = manager.Get("del1")
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.ErrorIs(t, manager.Delete("del1"), ErrSessionNotFound)
	assert.NotNil(t, sess.Game)
}

func TestManager_List(t *testing.T) {
	manager := NewManager(nil)
	for i := 0; i < 3; i++ {
		_, err := manager.Create(fmt.Sprintf("list%d", i), "test", createTestConfig(), "Nemo")
		require.NoError(t, err)
	}
	assert.Len(t, manager.List(), 3)
}

func TestManager_CleanupExpired(t *testing.T) {
	manager := NewManager(nil)
	old, err := manager.Create("old1", "test", createTestConfig(), "Nemo")
	require.NoError(t, err)
	_, err = manager.Create("new1", "test", createTestConfig(), "Nemo")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, manager.UpdateLastAccessed("new1"))

	removed := manager.CleanupExpiredSessions(10 * time.Millisecond)
	assert.Equal(t, 1, removed)

	_, err = manager.Get(old.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = manager.Get("new1")
	require.NoError(t, err)
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := NewManager(nil)
	sess, err := manager.Create("touch", "test", createTestConfig(), "Nemo")
	require.NoError(t, err)
	before := sess.LastAccessedAt()

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, manager.UpdateLastAccessed("touch"))
	assert.True(t, sess.LastAccessedAt().After(before))

	require.ErrorIs(t, manager.UpdateLastAccessed("missing"), ErrSessionNotFound)
}

func TestManager_SessionIsolation(t *testing.T) {
	manager := NewManager(nil)
	s1, err := manager.Create("iso1", "test", createTestConfig(), "Nemo")
	require.NoError(t, err)
	s2, err := manager.Create("iso2", "test", createTestConfig(), "Nemo")
	require.NoError(t, err)

	_, err = s1.Game.AttackAsPlayer(0, 0)
	require.NoError(t, err)

	assert.Len(t, s1.Game.History(), 1)
	assert.Empty(t, s2.Game.History())
	assert.Zero(t, s2.Game.Opponent().Board.Shots())
}

func TestManager_SessionIDGeneration(t *testing.T) {
	manager := NewManager(nil)
	generated := make(map[string]bool)

	for i := 0; i < 50; i++ {
		sess, err := manager.Create("", "test", createTestConfig(), "Nemo")
		require.NoError(t, err)
		assert.Len(t, sess.ID, 4)
		assert.False(t, generated[sess.ID], "duplicate id %s", sess.ID)
		generated[sess.ID] = true
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager(nil)
	config := createTestConfig()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := manager.Create("", "test", config, fmt.Sprintf("player%d", i))
			if !assert.NoError(t, err) {
				return
			}
			_, err = manager.Get(sess.ID)
			assert.NoError(t, err)
			assert.NoError(t, manager.UpdateLastAccessed(sess.ID))
			manager.List()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, manager.Count())
}
