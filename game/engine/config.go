package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Match config limits
const (
	MaxThinkMS          = 60000
	MinPollIntervalMS   = 1
	MaxPollIntervalMS   = 10000
	MaxRetryBudget      = 10000
	MaxPlacementBudget  = 100000
	DefaultMinThinkMS   = 1000
	DefaultMaxThinkMS   = 3000
	DefaultPollInterval = 100
	DefaultRetryBudget  = 100
)

// KnownStrategies lists the attack strategy names a match config may use.
var KnownStrategies = []string{"random", "hunt", "density"}

// MatchConfig describes how a match is set up and how the automated
// opponent behaves. Loaded from JSON files in the configs directory.
type MatchConfig struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	OpponentName      string `json:"opponent_name"`
	Strategy          string `json:"strategy"`
	MinThinkMS        int    `json:"min_think_ms"`
	MaxThinkMS        int    `json:"max_think_ms"`
	PollIntervalMS    int    `json:"poll_interval_ms"`
	RetryBudget       int    `json:"retry_budget"`
	PlacementAttempts int    `json:"placement_attempts"`

	// RevealOpponentFleet lets the player look at the opponent's layout
	// before the match is over.
	RevealOpponentFleet bool `json:"reveal_opponent_fleet,omitempty"`

	Messages struct {
		Welcome      string `json:"welcome"`
		BattleStart  string `json:"battle_start"`
		PlayerHit    string `json:"player_hit"`
		PlayerMiss   string `json:"player_miss"`
		PlayerSunk   string `json:"player_sunk"`
		OpponentHit  string `json:"opponent_hit"`
		OpponentMiss string `json:"opponent_miss"`
		OpponentSunk string `json:"opponent_sunk"`
		Victory      string `json:"victory"`
		Defeat       string `json:"defeat"`
	} `json:"messages"`
}

// ThinkRange returns the opponent's think delay bounds.
func (c *MatchConfig) ThinkRange() (time.Duration, time.Duration) {
	return time.Duration(c.MinThinkMS) * time.Millisecond, time.Duration(c.MaxThinkMS) * time.Millisecond
}

// PollInterval returns how often the scheduler re-checks the turn.
func (c *MatchConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// ValidateMatchConfig validates a match configuration for correctness
func ValidateMatchConfig(config *MatchConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	// Validate required fields
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}
	if strings.TrimSpace(config.OpponentName) == "" {
		return fmt.Errorf("config validation: opponent_name is required")
	}
	if !slices.Contains(KnownStrategies, config.Strategy) {
		return fmt.Errorf("config validation: strategy must be one of %s, got %q", strings.Join(KnownStrategies, ", "), config.Strategy)
	}

	// Validate timing
	if config.MinThinkMS < 0 || config.MinThinkMS > MaxThinkMS {
		return fmt.Errorf("config validation: min_think_ms must be between 0 and %d, got %d", MaxThinkMS, config.MinThinkMS)
	}
	if config.MaxThinkMS < config.MinThinkMS || config.MaxThinkMS > MaxThinkMS {
		return fmt.Errorf("config validation: max_think_ms must be between min_think_ms (%d) and %d, got %d",
			config.MinThinkMS, MaxThinkMS, config.MaxThinkMS)
	}
	if config.PollIntervalMS < MinPollIntervalMS || config.PollIntervalMS > MaxPollIntervalMS {
		return fmt.Errorf("config validation: poll_interval_ms must be between %d and %d, got %d",
			MinPollIntervalMS, MaxPollIntervalMS, config.PollIntervalMS)
	}

	// Validate budgets
	if config.RetryBudget < 1 || config.RetryBudget > MaxRetryBudget {
		return fmt.Errorf("config validation: retry_budget must be between 1 and %d, got %d", MaxRetryBudget, config.RetryBudget)
	}
	if config.PlacementAttempts < 1 || config.PlacementAttempts > MaxPlacementBudget {
		return fmt.Errorf("config validation: placement_attempts must be between 1 and %d, got %d",
			MaxPlacementBudget, config.PlacementAttempts)
	}

	// Validate messages
	if config.Messages.Welcome == "" {
		return fmt.Errorf("config validation: messages.welcome is required")
	}
	if config.Messages.Victory == "" {
		return fmt.Errorf("config validation: messages.victory is required")
	}
	if config.Messages.Defeat == "" {
		return fmt.Errorf("config validation: messages.defeat is required")
	}
	if !strings.Contains(config.Messages.Victory, "%d") {
		return fmt.Errorf("config validation: messages.victory must contain %%d for shot count")
	}

	return nil
}

// LoadMatchConfig loads a match configuration from a JSON file. Read errors
// are returned wrapped; decode and validation failures wrap
// ErrMalformedConfig.
func LoadMatchConfig(path string) (*MatchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	var config MatchConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrMalformedConfig, filepath.Base(path), err)
	}

	if err := ValidateMatchConfig(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedConfig, err)
	}

	return &config, nil
}

// DefaultMatchConfig returns the built-in config used when no config files
// are available.
func DefaultMatchConfig() *MatchConfig {
	config := &MatchConfig{
		Name:              "default",
		Description:       "Built-in classic match against a random opponent",
		OpponentName:      "Admiral Random",
		Strategy:          "random",
		MinThinkMS:        DefaultMinThinkMS,
		MaxThinkMS:        DefaultMaxThinkMS,
		PollIntervalMS:    DefaultPollInterval,
		RetryBudget:       DefaultRetryBudget,
		PlacementAttempts: MaxPlacementAttempts,
	}
	config.Messages.Welcome = "Arrange your fleet, then start the battle."
	config.Messages.BattleStart = "Battle stations! Fire when ready."
	config.Messages.PlayerHit = "Direct hit!"
	config.Messages.PlayerMiss = "Splash. The enemy takes aim."
	config.Messages.PlayerSunk = "Enemy ship sunk!"
	config.Messages.OpponentHit = "We've been hit!"
	config.Messages.OpponentMiss = "Enemy shot missed. Your turn."
	config.Messages.OpponentSunk = "We lost a ship!"
	config.Messages.Victory = "Victory! Enemy fleet destroyed in %d shots."
	config.Messages.Defeat = "Defeat. Your fleet has been sunk."
	return config
}
