// Command validate provides a small CLI that validates match configuration
// JSON files in a directory (../configs by default). It checks:
//   - JSON structure, with unknown fields rejected so typos surface
//   - The engine's own config rules (strategy, think range, budgets, messages)
//   - Optional messages that are missing and will fall back to defaults
//   - That a full fleet can be placed at random within placement_attempts
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/navalbattle/game/engine"
)

// placementTrials is how many random fleets are dealt per config.
const placementTrials = 20

// ValidationResult captures the outcome of validating a single file.
// Errors make the file invalid; Info lines are printed for valid files.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single configuration JSON file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var config engine.MatchConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&config); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if err := engine.ValidateMatchConfig(&config); err != nil {
		result.fail("%s", strings.TrimPrefix(err.Error(), "config validation: "))
	}

	optional := map[string]string{
		"battle_start":  config.Messages.BattleStart,
		"player_hit":    config.Messages.PlayerHit,
		"player_miss":   config.Messages.PlayerMiss,
		"player_sunk":   config.Messages.PlayerSunk,
		"opponent_hit":  config.Messages.OpponentHit,
		"opponent_miss": config.Messages.OpponentMiss,
		"opponent_sunk": config.Messages.OpponentSunk,
	}
	for _, key := range slices.Sorted(maps.Keys(optional)) {
		msg := optional[key]
		if msg == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("messages.%s is empty, the default will be used", key))
		} else if strings.Contains(msg, "%") {
			result.fail("messages.%s must not contain format verbs", key)
		}
	}
	if strings.Count(config.Messages.Victory, "%") > 1 {
		result.fail("messages.victory must contain exactly one %%d")
	}

	if result.Valid {
		if err := checkPlacement(config.PlacementAttempts, filePath); err != nil {
			result.fail("%v", err)
		}
	}

	if result.Valid {
		minThink, maxThink := config.ThinkRange()
		result.Info = append(result.Info,
			fmt.Sprintf("✓ Name: %s", config.Name),
			fmt.Sprintf("✓ Opponent: %s (%s strategy)", config.OpponentName, config.Strategy),
			fmt.Sprintf("✓ Think delay: %s-%s, poll every %s", minThink, maxThink, config.PollInterval()),
			fmt.Sprintf("✓ Budgets: %d retries, %d placement attempts per ship", config.RetryBudget, config.PlacementAttempts),
			fmt.Sprintf("✓ Placement: %d random fleets dealt", placementTrials),
		)
	}

	return result
}

// checkPlacement deals several random fleets with the config's attempt
// budget. The source is seeded from the file name so results are stable.
func checkPlacement(attempts int, filePath string) error {
	var seed uint64
	for _, b := range []byte(filepath.Base(filePath)) {
		seed = seed*31 + uint64(b)
	}
	rnd := rand.New(rand.NewPCG(seed, placementTrials))

	for i := 0; i < placementTrials; i++ {
		board, fleet := engine.NewBoard(), engine.NewFleet()
		if err := engine.PlaceFleetRandomly(board, fleet, rnd, attempts); err != nil {
			return fmt.Errorf("random placement failed with placement_attempts=%d: %v", attempts, err)
		}
		if !fleet.IsComplete() {
			return fmt.Errorf("random placement produced an incomplete fleet")
		}
	}
	return nil
}

// validateDir validates every *.json file in dir, writes a report to w and
// reports whether all of them are valid.
func validateDir(dir string, w io.Writer) (bool, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return false, fmt.Errorf("finding config files: %w", err)
	}
	if len(files) == 0 {
		return false, fmt.Errorf("no config files found in %s", dir)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
		for _, warning := range result.Warnings {
			fmt.Fprintln(w, "  ⚠ "+warning)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All configurations are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some configurations have errors")
	}
	return allValid, nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate naval battle match configuration files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "../configs",
				Usage:   "directory containing match configuration JSON files",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ok, err := validateDir(cmd.String("dir"), cmd.Root().Writer)
			if err != nil {
				return err
			}
			if !ok {
				return errInvalid
			}
			return nil
		},
	}
}

var errInvalid = errors.New("some configurations are invalid")

// main validates the configured directory and exits with non-zero status if
// any file is invalid.
func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintf(os.Stderr, "validate: %v\n", err)
		}
		os.Exit(1)
	}
}
