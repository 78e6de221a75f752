// Command autoplay plays a naval battle session against a running server
// through the REST API. It places the fleet at random, starts the battle and
// fires at the cell with the highest placement density on the visible enemy
// board until the match is over.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/navalbattle/game/engine"
	"github.com/wricardo/mcp-training/navalbattle/game/service"
	"github.com/wricardo/mcp-training/navalbattle/game/strategy"
)

// Options configures a Play run.
type Options struct {
	Randomize bool
	Poll      time.Duration
	// MaxAttacks stops a run that is not converging.
	MaxAttacks int
}

// ChooseTarget picks the unresolved cell of view with the highest placement
// density. Ties are broken with rnd. It returns false when every cell has
// been fired at.
func ChooseTarget(view service.BoardView, rnd engine.Rand) (engine.Position, bool) {
	grid := make([][]engine.Cell, len(view.Cells))
	for r, row := range view.Cells {
		grid[r] = make([]engine.Cell, len(row))
		for c, cv := range row {
			grid[r][c] = engine.Cell{Row: cv.Row, Col: cv.Col, State: cv.State, ShipID: cv.ShipID}
		}
	}
	if len(grid) != engine.BoardSize {
		return engine.Position{}, false
	}

	scores := strategy.Scores(grid)
	best := -1
	var candidates []engine.Position
	for r, row := range grid {
		for c, cell := range row {
			if cell.State.Resolved() {
				continue
			}
			score := scores[r][c]
			switch {
			case score > best:
				best = score
				candidates = append(candidates[:0], engine.Position{Row: r, Col: c})
			case score == best:
				candidates = append(candidates, engine.Position{Row: r, Col: c})
			}
		}
	}

	if len(candidates) == 0 {
		return engine.Position{}, false
	}
	return candidates[rnd.IntN(len(candidates))], true
}

// Play drives the client's session to the end of the match and returns the
// final state.
func Play(ctx context.Context, client *Client, state *service.GameState, opts Options, rnd engine.Rand, logger *zap.Logger) (*service.GameState, error) {
	var err error
	if state == nil {
		if state, err = client.State(ctx); err != nil {
			return nil, err
		}
	}

	if state.Phase == service.PhasePlacement {
		if opts.Randomize {
			if state, err = client.RandomizeFleet(ctx); err != nil {
				return nil, err
			}
		}
		if state, err = client.StartBattle(ctx); err != nil {
			return nil, err
		}
		logger.Info("battle started", zap.String("session_id", client.SessionID()))
	}

	attacks := 0
	for state.Phase != service.PhaseFinished {
		if state.Turn != engine.PlayerTurn {
			select {
			case <-ctx.Done():
				return state, ctx.Err()
			case <-time.After(opts.Poll):
			}
			if state, err = client.State(ctx); err != nil {
				return nil, err
			}
			continue
		}

		if opts.MaxAttacks > 0 && attacks >= opts.MaxAttacks {
			return state, fmt.Errorf("gave up after %d attacks", attacks)
		}

		pos, ok := ChooseTarget(state.OpponentBoard, rnd)
		if !ok {
			return state, errors.New("no target left on the enemy board")
		}

		result, err := client.Attack(ctx, pos)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			// The turn moved under us; refresh and wait.
			logger.Debug("attack refused", zap.Stringer("position", pos), zap.String("reason", apiErr.Message))
			if state, err = client.State(ctx); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		attacks++
		logger.Info("attack",
			zap.String("session_id", client.SessionID()),
			zap.Int("row", pos.Row),
			zap.Int("col", pos.Col),
			zap.Stringer("outcome", result.Outcome),
			zap.Stringer("turn", result.Turn),
		)

		if result.GameState != nil {
			state = result.GameState
		} else if state, err = client.State(ctx); err != nil {
			return nil, err
		}
	}

	return state, nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "autoplay",
		Usage: "Play a naval battle session against a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "game server URL", Sources: cli.EnvVars("NAVALBATTLE_URL")},
			&cli.StringFlag{Name: "config", Usage: "match config id (server default when empty)"},
			&cli.StringFlag{Name: "nickname", Value: "Autopilot", Usage: "captain name"},
			&cli.StringFlag{Name: "continue", Usage: "resume playing an existing session by ID"},
			&cli.BoolFlag{Name: "keep-formation", Usage: "start with the default formation instead of a random fleet"},
			&cli.DurationFlag{Name: "poll", Value: 200 * time.Millisecond, Usage: "how often to check for the turn while the opponent thinks"},
			&cli.IntFlag{Name: "max-attacks", Value: engine.BoardSize * engine.BoardSize, Usage: "give up after this many attacks"},
			&cli.Uint64Flag{Name: "seed", Usage: "random seed for tie breaks (0 picks one)"},
			&cli.BoolFlag{Name: "v", Usage: "verbose output"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var logger *zap.Logger
			var err error
			if cmd.Bool("v") {
				logger, err = zap.NewDevelopment()
			} else {
				logger, err = zap.NewProduction()
			}
			if err != nil {
				return err
			}
			defer logger.Sync()

			seed := cmd.Uint64("seed")
			if seed == 0 {
				seed = rand.Uint64()
			}
			rnd := rand.New(rand.NewPCG(seed, seed))

			client := NewClient(cmd.String("url"))
			var state *service.GameState
			if id := cmd.String("continue"); id != "" {
				state, err = client.Resume(ctx, id)
			} else {
				state, err = client.CreateSession(ctx, cmd.String("config"), cmd.String("nickname"))
			}
			if err != nil {
				return err
			}
			logger.Info("playing session", zap.String("session_id", client.SessionID()), zap.String("url", cmd.String("url")))

			final, err := Play(ctx, client, state, Options{
				Randomize:  !cmd.Bool("keep-formation"),
				Poll:       cmd.Duration("poll"),
				MaxAttacks: int(cmd.Int("max-attacks")),
			}, rnd, logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.Root().Writer, "Session %s finished: %s\nWinner: %s\nShots: %d (hits %d, misses %d)\n",
				client.SessionID(), final.Message, final.Winner,
				final.PlayerStats.Shots, final.PlayerStats.Hits, final.PlayerStats.Misses)
			return nil
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "autoplay: %v\n", err)
		os.Exit(1)
	}
}
