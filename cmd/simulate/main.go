// Command simulate pits two attack strategies against each other over many
// matches on random fleets and prints win rates and shot counts. Matches run
// without think delays, so thousands finish in seconds.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"runtime"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/mcp-training/navalbattle/game/engine"
	"github.com/wricardo/mcp-training/navalbattle/game/strategy"
)

// maxShots bounds a match: both boards fully resolved.
const maxShots = 2 * engine.BoardSize * engine.BoardSize

// Options configures a simulation run.
type Options struct {
	Matches  int
	Player   string
	Opponent string
	Seed     uint64
	Workers  int
}

// MatchResult is the outcome of one simulated match.
type MatchResult struct {
	PlayerWon     bool
	PlayerShots   int
	OpponentShots int
}

// Report aggregates a simulation run.
type Report struct {
	Player           string  `json:"player"`
	Opponent         string  `json:"opponent"`
	Matches          int     `json:"matches"`
	PlayerWins       int     `json:"player_wins"`
	OpponentWins     int     `json:"opponent_wins"`
	PlayerWinRate    float64 `json:"player_win_rate"`
	AvgPlayerShots   float64 `json:"avg_player_shots"`
	AvgOpponentShots float64 `json:"avg_opponent_shots"`
	AvgWinningShots  float64 `json:"avg_winning_shots"`
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Run automated naval battle matches between two strategies",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "matches", Aliases: []string{"n"}, Value: 100, Usage: "number of matches"},
			&cli.StringFlag{Name: "player", Value: "hunt", Usage: "strategy for the side that fires first"},
			&cli.StringFlag{Name: "opponent", Value: "random", Usage: "strategy for the other side"},
			&cli.Uint64Flag{Name: "seed", Usage: "random seed (0 picks one)"},
			&cli.IntFlag{Name: "workers", Value: runtime.NumCPU(), Usage: "matches run in parallel"},
			&cli.BoolFlag{Name: "json", Usage: "print the report as JSON"},
			&cli.BoolFlag{Name: "debug", Usage: "log every match"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := zap.NewNop()
			if cmd.Bool("debug") {
				dev, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				logger = dev
				defer logger.Sync()
			}

			opts := Options{
				Matches:  int(cmd.Int("matches")),
				Player:   cmd.String("player"),
				Opponent: cmd.String("opponent"),
				Seed:     cmd.Uint64("seed"),
				Workers:  int(cmd.Int("workers")),
			}
			if opts.Seed == 0 {
				opts.Seed = rand.Uint64()
			}

			report, err := Simulate(ctx, opts, logger)
			if err != nil {
				return err
			}

			if cmd.Bool("json") {
				enc := json.NewEncoder(cmd.Root().Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd.Root().Writer, report, opts.Seed)
			return nil
		},
	}
}

// Simulate plays opts.Matches matches and aggregates them. Match i is seeded
// from (opts.Seed, i), so a run is reproducible regardless of Workers.
func Simulate(ctx context.Context, opts Options, logger *zap.Logger) (*Report, error) {
	if opts.Matches <= 0 {
		return nil, errors.New("matches must be positive")
	}
	for _, name := range []string{opts.Player, opts.Opponent} {
		if _, err := strategy.New(name, nil); err != nil {
			return nil, err
		}
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	results := make([]MatchResult, opts.Matches)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i := range results {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rnd := rand.New(rand.NewPCG(opts.Seed, uint64(i)))
			result, err := PlayMatch(opts.Player, opts.Opponent, rnd)
			if err != nil {
				return fmt.Errorf("match %d: %w", i, err)
			}
			results[i] = result
			logger.Debug("match finished",
				zap.Int("match", i),
				zap.Bool("player_won", result.PlayerWon),
				zap.Int("player_shots", result.PlayerShots),
				zap.Int("opponent_shots", result.OpponentShots),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return summarize(opts, results), nil
}

// PlayMatch plays one match to completion. Both fleets are placed at random
// and the player fires first.
func PlayMatch(playerStrategy, opponentStrategy string, rnd *rand.Rand) (MatchResult, error) {
	var result MatchResult

	player, err := newRandomSide("player", rnd)
	if err != nil {
		return result, err
	}
	opponent, err := newRandomSide("opponent", rnd)
	if err != nil {
		return result, err
	}

	strategies := map[engine.Turn]strategy.Strategy{}
	if strategies[engine.PlayerTurn], err = strategy.New(playerStrategy, rnd); err != nil {
		return result, err
	}
	if strategies[engine.OpponentTurn], err = strategy.New(opponentStrategy, rnd); err != nil {
		return result, err
	}

	game := engine.NewGame(player, opponent)
	for shots := 0; !game.MatchOver(); shots++ {
		if shots >= maxShots {
			return result, errors.New("match did not finish")
		}

		turn := game.Turn()
		target, attack := opponent.Board, game.AttackAsPlayer
		if turn == engine.OpponentTurn {
			target, attack = player.Board, game.AttackAsOpponent
		}

		strat := strategies[turn]
		pos, ok := strat.SelectTarget(target)
		if !ok {
			return result, fmt.Errorf("%s strategy found no target", strat.Name())
		}
		outcome, err := attack(pos.Row, pos.Col)
		if err != nil {
			return result, fmt.Errorf("%s strategy fired at %s: %w", strat.Name(), pos, err)
		}
		strat.OnResult(pos, outcome)
	}

	history := game.History()
	result.PlayerWon = game.PlayerWon()
	result.PlayerShots = engine.Stats(history, engine.PlayerTurn).Shots
	result.OpponentShots = engine.Stats(history, engine.OpponentTurn).Shots
	return result, nil
}

func newRandomSide(name string, rnd *rand.Rand) (*engine.Side, error) {
	side, err := engine.NewSide(name)
	if err != nil {
		return nil, err
	}
	if err := engine.PlaceFleetRandomly(side.Board, side.Fleet, rnd, 0); err != nil {
		return nil, err
	}
	return side, nil
}

func summarize(opts Options, results []MatchResult) *Report {
	report := &Report{
		Player:   opts.Player,
		Opponent: opts.Opponent,
		Matches:  len(results),
	}

	var playerShots, opponentShots, winningShots int
	for _, r := range results {
		playerShots += r.PlayerShots
		opponentShots += r.OpponentShots
		if r.PlayerWon {
			report.PlayerWins++
			winningShots += r.PlayerShots
		} else {
			report.OpponentWins++
			winningShots += r.OpponentShots
		}
	}

	n := float64(len(results))
	report.PlayerWinRate = float64(report.PlayerWins) / n
	report.AvgPlayerShots = float64(playerShots) / n
	report.AvgOpponentShots = float64(opponentShots) / n
	report.AvgWinningShots = float64(winningShots) / n
	return report
}

func printReport(w io.Writer, r *Report, seed uint64) {
	fmt.Fprintf(w, "Matches: %d (seed %d)\n\n", r.Matches, seed)
	fmt.Fprintf(w, "%-10s %-10s %6s %8s %10s\n", "side", "strategy", "wins", "win %", "avg shots")
	fmt.Fprintf(w, "%-10s %-10s %6d %7.1f%% %10.1f\n", "player", r.Player, r.PlayerWins, 100*r.PlayerWinRate, r.AvgPlayerShots)
	fmt.Fprintf(w, "%-10s %-10s %6d %7.1f%% %10.1f\n", "opponent", r.Opponent, r.OpponentWins, 100*(1-r.PlayerWinRate), r.AvgOpponentShots)
	fmt.Fprintf(w, "\nAverage shots fired by the winner: %.1f\n", r.AvgWinningShots)
}
