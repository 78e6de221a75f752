package service

import (
	"time"

	"github.com/wricardo/mcp-training/navalbattle/game/engine"
)

// Phase is the lifecycle stage of a session's match.
type Phase string

const (
	PhasePlacement Phase = "placement"
	PhaseBattle    Phase = "battle"
	PhaseFinished  Phase = "finished"
)

// ParsePhase validates a stored phase name.
func ParsePhase(s string) (Phase, bool) {
	switch p := Phase(s); p {
	case PhasePlacement, PhaseBattle, PhaseFinished:
		return p, true
	}
	return "", false
}

// Event types pushed to notifiers
const (
	EventSessionCreated = "session_created"
	EventFleetUpdated   = "fleet_updated"
	EventBattleStarted  = "battle_started"
	EventPlayerAttack   = "player_attack"
	EventOpponentAttack = "opponent_attack"
	EventMatchOver      = "match_over"
	EventSessionDeleted = "session_deleted"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string              `json:"id"`
	ConfigName     string              `json:"config_name"`
	Nickname       string              `json:"nickname"`
	Phase          Phase               `json:"phase"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	GameState      *GameState          `json:"game_state"`
	GameConfig     *engine.MatchConfig `json:"game_config"`
}

// CellView is one cell as a given viewer may see it.
type CellView struct {
	Row    int              `json:"row"`
	Col    int              `json:"col"`
	State  engine.CellState `json:"state"`
	ShipID int              `json:"ship_id,omitempty"`
}

// BoardView is a rendered board. Rows holds one string per row using
// '.' unknown or empty, 'S' ship, 'X' hit, '#' sunk and 'o' miss.
type BoardView struct {
	Owner          string       `json:"owner"`
	Rows           []string     `json:"rows"`
	Cells          [][]CellView `json:"cells"`
	Shots          int          `json:"shots"`
	ShipsRemaining int          `json:"ships_remaining"`
}

// ShipView describes one of the player's ships.
type ShipView struct {
	ID          int                `json:"id"`
	Type        engine.ShipType    `json:"type"`
	Length      int                `json:"length"`
	Orientation engine.Orientation `json:"orientation"`
	Positions   []engine.Position  `json:"positions"`
	Sunk        bool               `json:"sunk"`
}

// FleetReveal is the opponent's board with every ship shown, read-only.
type FleetReveal struct {
	SessionID string     `json:"session_id"`
	Phase     Phase      `json:"phase"`
	Board     BoardView  `json:"board"`
	Ships     []ShipView `json:"ships"`
}

// GameState is the player's view of a match. The opponent's unresolved
// ship cells are hidden.
type GameState struct {
	SessionID     string               `json:"session_id"`
	Phase         Phase                `json:"phase"`
	Turn          engine.Turn          `json:"turn"`
	Winner        string               `json:"winner,omitempty"`
	Message       string               `json:"message"`
	PlayerBoard   BoardView            `json:"player_board"`
	OpponentBoard BoardView            `json:"opponent_board"`
	Fleet         []ShipView           `json:"fleet"`
	FleetComplete bool                 `json:"fleet_complete"`
	LastAttack    *engine.AttackRecord `json:"last_attack,omitempty"`
	PlayerStats   engine.AttackStats   `json:"player_stats"`
	OpponentStats engine.AttackStats   `json:"opponent_stats"`
}

// AttackResult contains the result of a player attack
type AttackResult struct {
	Position  engine.Position `json:"position"`
	Outcome   engine.Outcome  `json:"outcome"`
	Turn      engine.Turn     `json:"turn"`
	MatchOver bool            `json:"match_over"`
	Winner    string          `json:"winner,omitempty"`
	Message   string          `json:"message"`
	GameState *GameState      `json:"game_state"`
}

// Event is pushed to a Notifier whenever a session changes.
type Event struct {
	Type      string               `json:"type"`
	SessionID string               `json:"session_id"`
	Message   string               `json:"message,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
	Attack    *engine.AttackRecord `json:"attack,omitempty"`
	State     *GameState           `json:"state,omitempty"`
}

// HistoryOptions configures attack history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated attack history
type HistoryResponse struct {
	Attacks      []engine.AttackRecord `json:"attacks"`
	TotalAttacks int                   `json:"total_attacks"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"page_size"`
	TotalPages   int                   `json:"total_pages"`
	HasNext      bool                  `json:"has_next"`
	HasPrevious  bool                  `json:"has_previous"`
}

// ConfigInfo provides information about a match configuration
type ConfigInfo struct {
	Filename     string `json:"filename"`
	ConfigID     string `json:"config_id"` // The identifier to use for session creation
	Name         string `json:"name"`      // Display name
	Description  string `json:"description"`
	OpponentName string `json:"opponent_name"`
	Strategy     string `json:"strategy"`
	MinThinkMS   int    `json:"min_think_ms"`
	MaxThinkMS   int    `json:"max_think_ms"`
}
