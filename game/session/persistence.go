package session

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/navalbattle/game/engine"
	"github.com/wricardo/mcp-training/navalbattle/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID. It returns
	// ErrSessionNotFound when nothing is stored and ErrCorruptSession when
	// the stored data cannot be restored.
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions
type PersistedSessionData struct {
	ID             string              `json:"id"`
	ConfigName     string              `json:"config_name"`
	Nickname       string              `json:"nickname"`
	Phase          string              `json:"phase"`
	Message        string              `json:"message"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	Game           engine.GameSnapshot `json:"game"`
}

func newPersistedSessionData(sess *service.Session) PersistedSessionData {
	return PersistedSessionData{
		ID:             sess.ID,
		ConfigName:     sess.ConfigID,
		Nickname:       sess.Nickname,
		Phase:          string(sess.Phase()),
		Message:        sess.Message(),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt(),
		Game:           sess.Game.Snapshot(),
	}
}

// codec turns sessions into JSON and back, resolving stored config ids
// through the config manager.
type codec struct {
	configs service.ConfigManager
	logger  *zap.Logger
}

func (c codec) marshal(sess *service.Session) ([]byte, error) {
	if sess == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}
	data, err := json.MarshalIndent(newPersistedSessionData(sess), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session data: %w", err)
	}
	return data, nil
}

func (c codec) unmarshal(id string, raw []byte) (*service.Session, error) {
	var data PersistedSessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptSession, id, err)
	}
	return c.restore(id, data)
}

func (c codec) restore(id string, data PersistedSessionData) (*service.Session, error) {
	if data.ID == "" {
		data.ID = id
	}

	phase, ok := service.ParsePhase(data.Phase)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unknown phase %q", ErrCorruptSession, id, data.Phase)
	}

	game, err := engine.Restore(data.Game)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptSession, id, err)
	}

	config, err := c.configs.LoadConfig(data.ConfigName)
	if err != nil {
		c.logger.Warn("stored config unavailable, using default",
			zap.String("session_id", id),
			zap.String("config", data.ConfigName),
			zap.Error(err),
		)
		config = c.configs.GetDefault()
	}

	return service.RestoreSession(data.ID, data.ConfigName, config, data.Nickname, phase, data.Message,
		game, data.CreatedAt, data.LastAccessedAt), nil
}
