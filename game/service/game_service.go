package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/navalbattle/game/engine"
	"github.com/wricardo/mcp-training/navalbattle/game/scheduler"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrCorruptSession       = errors.New("session data is corrupt")
	ErrConfigNotFound       = errors.New("configuration not found")
	ErrInvalidConfig        = errors.New("invalid configuration")
	ErrBattleNotStarted     = errors.New("battle has not started")
	ErrBattleAlreadyStarted = errors.New("battle already started")
	ErrFleetIncomplete      = errors.New("fleet is incomplete")
	ErrFleetHidden          = errors.New("opponent fleet stays hidden until the match is over")
)

// DefaultNickname is used when a session is created without a nickname.
const DefaultNickname = "Captain"

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName, nickname string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Fleet placement
	RandomizeFleet(ctx context.Context, sessionID string) (*GameState, error)
	MoveShip(ctx context.Context, sessionID string, shipID, dRow, dCol int) (*GameState, error)
	RotateShip(ctx context.Context, sessionID string, shipID int) (*GameState, error)

	// Battle
	StartBattle(ctx context.Context, sessionID string) (*GameState, error)
	Attack(ctx context.Context, sessionID string, row, col int) (*AttackResult, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*GameState, error)
	GetAttackHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	GetOpponentFleet(ctx context.Context, sessionID string) (*FleetReveal, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.MatchConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.MatchConfig) error

	// Lifecycle
	ResumeBattles(ctx context.Context) int
	Close()
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.MatchConfig, nickname string) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	Discard(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles match configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.MatchConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.MatchConfig
	SaveConfig(name string, config *engine.MatchConfig) error
}

// Notifier receives session events, typically to push them to clients.
type Notifier interface {
	Notify(event Event)
}

// HistoryStore serves a session's attack log from storage.
type HistoryStore interface {
	AttackHistory(sessionID string) ([]engine.AttackRecord, error)
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(event Event)

func (f NotifierFunc) Notify(event Event) { f(event) }

// Session represents an active game session
type Session struct {
	ID        string
	ConfigID  string
	Config    *engine.MatchConfig
	Nickname  string
	Game      *engine.Game
	CreatedAt time.Time

	mu             sync.Mutex
	phase          Phase
	message        string
	lastAccessedAt time.Time
	rnd            engine.Rand
	scheduler      *scheduler.Scheduler
}

// NewSession sets up a fresh match: the player's fleet in the default
// formation and the opponent's fleet placed at random.
func NewSession(id, configID string, config *engine.MatchConfig, nickname string) (*Session, error) {
	if config == nil {
		return nil, fmt.Errorf("session %s: config is required", id)
	}
	if strings.TrimSpace(nickname) == "" {
		nickname = DefaultNickname
	}

	player, err := engine.NewSide(nickname)
	if err != nil {
		return nil, err
	}
	if err := engine.PlaceDefaultFormation(player.Board, player.Fleet); err != nil {
		return nil, fmt.Errorf("failed to place player fleet: %w", err)
	}

	opponent, err := engine.NewSide(config.OpponentName)
	if err != nil {
		return nil, fmt.Errorf("opponent: %w", err)
	}
	rnd := newRand()
	if err := engine.PlaceFleetRandomly(opponent.Board, opponent.Fleet, rnd, config.PlacementAttempts); err != nil {
		return nil, fmt.Errorf("failed to place opponent fleet: %w", err)
	}

	now := time.Now()
	return &Session{
		ID:             id,
		ConfigID:       configID,
		Config:         config,
		Nickname:       nickname,
		Game:           engine.NewGame(player, opponent),
		CreatedAt:      now,
		phase:          PhasePlacement,
		message:        config.Messages.Welcome,
		lastAccessedAt: now,
		rnd:            rnd,
	}, nil
}

// RestoreSession rebuilds a session around a restored game.
func RestoreSession(id, configID string, config *engine.MatchConfig, nickname string, phase Phase, message string, game *engine.Game, createdAt, lastAccessedAt time.Time) *Session {
	if game.MatchOver() {
		phase = PhaseFinished
	}
	return &Session{
		ID:             id,
		ConfigID:       configID,
		Config:         config,
		Nickname:       nickname,
		Game:           game,
		CreatedAt:      createdAt,
		phase:          phase,
		message:        message,
		lastAccessedAt: lastAccessedAt,
		rnd:            newRand(),
	}
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Phase returns the session's current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Message returns the latest status message.
func (s *Session) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// LastAccessedAt returns when the session was last used.
func (s *Session) LastAccessedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessedAt
}

// Touch records an access.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessedAt = time.Now()
}

// Close stops the session's opponent scheduler, if one is running.
func (s *Session) Close() {
	s.mu.Lock()
	sched := s.scheduler
	s.scheduler = nil
	s.mu.Unlock()

	if sched != nil {
		sched.Stop()
	}
}

func (s *Session) setMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = msg
}
