// Package scheduler drives the automated opponent's turns in the background.
package scheduler

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/navalbattle/game/engine"
	"github.com/wricardo/mcp-training/navalbattle/game/strategy"
)

var (
	ErrAlreadyStarted = errors.New("scheduler already started")
	ErrStopped        = errors.New("scheduler stopped")
)

// Config controls the scheduler's pacing.
type Config struct {
	MinThink     time.Duration
	MaxThink     time.Duration
	PollInterval time.Duration
	RetryBudget  int
}

// DefaultConfig returns the standard pacing: poll every 100ms, think for one
// to three seconds, allow 100 strategy retries.
func DefaultConfig() Config {
	return Config{
		MinThink:     engine.DefaultMinThinkMS * time.Millisecond,
		MaxThink:     engine.DefaultMaxThinkMS * time.Millisecond,
		PollInterval: engine.DefaultPollInterval * time.Millisecond,
		RetryBudget:  engine.DefaultRetryBudget,
	}
}

// ConfigFromMatch converts a match config into scheduler pacing.
func ConfigFromMatch(mc *engine.MatchConfig) Config {
	cfg := DefaultConfig()
	if mc == nil {
		return cfg
	}
	cfg.MinThink, cfg.MaxThink = mc.ThinkRange()
	cfg.PollInterval = mc.PollInterval()
	cfg.RetryBudget = mc.RetryBudget
	return cfg
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.MinThink < 0 {
		c.MinThink = 0
	}
	if c.MaxThink < c.MinThink {
		c.MaxThink = c.MinThink
	}
	if c.RetryBudget <= 0 {
		c.RetryBudget = def.RetryBudget
	}
	return c
}

// AttackResult describes one resolved opponent shot.
type AttackResult struct {
	Position engine.Position
	Outcome  engine.Outcome
	// Turn is whose turn it is after the shot.
	Turn engine.Turn
	// Fallback is set when the strategy ran out of retries and the target
	// came from a linear scan.
	Fallback bool
}

// Callbacks are posted through the Dispatcher after each opponent shot,
// outside the game lock. Either may be nil.
type Callbacks struct {
	OnOpponentTurnResolved func(AttackResult)
	OnWinnerCheck          func()
}

// Dispatcher runs callbacks in the presentation layer's execution context.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatchFunc adapts a function to a Dispatcher.
type DispatchFunc func(fn func())

func (f DispatchFunc) Dispatch(fn func()) { f(fn) }

// Inline runs callbacks on the scheduler goroutine.
var Inline Dispatcher = DispatchFunc(func(fn func()) { fn() })

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDispatcher sets where callbacks run.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Scheduler) {
		if d != nil {
			s.dispatcher = d
		}
	}
}

// WithRand sets the source for think delays.
func WithRand(rnd engine.Rand) Option {
	return func(s *Scheduler) {
		if rnd != nil {
			s.rnd = rnd
		}
	}
}

// Scheduler plays the opponent's turns for one game. While it is the
// opponent's turn it waits a random think time, asks the strategy for a
// target and attacks through the game lock.
type Scheduler struct {
	game       *engine.Game
	strategy   strategy.Strategy
	cfg        Config
	callbacks  Callbacks
	logger     *zap.Logger
	dispatcher Dispatcher
	rnd        engine.Rand

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}

	attacks atomic.Int64
}

// New creates a scheduler. It does nothing until Start is called.
func New(game *engine.Game, strat strategy.Strategy, cfg Config, callbacks Callbacks, opts ...Option) *Scheduler {
	s := &Scheduler{
		game:       game,
		strategy:   strat,
		cfg:        cfg.normalized(),
		callbacks:  callbacks,
		logger:     zap.NewNop(),
		dispatcher: Inline,
		rnd:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the scheduler goroutine. It runs until ctx is cancelled,
// Stop is called, or the match is over.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
	return nil
}

// Stop asks the loop to exit. It is safe to call from any goroutine, more
// than once, and before Start. An attack already in progress completes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
		return
	}
	close(s.done)
}

// Done is closed once the loop has exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Attacks returns how many shots the scheduler has fired.
func (s *Scheduler) Attacks() int {
	return int(s.attacks.Load())
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	s.logger.Debug("scheduler started", zap.String("strategy", s.strategy.Name()))

	for {
		turn, over := s.peek()
		if over {
			s.logger.Debug("match over, scheduler exiting")
			return
		}

		if turn != engine.OpponentTurn {
			if !s.sleep(ctx, s.cfg.PollInterval) {
				break
			}
			continue
		}

		if !s.sleep(ctx, s.thinkTime()) {
			break
		}

		result, attacked, err := s.takeTurn()
		if errors.Is(err, errExhausted) {
			s.logger.Warn("no unresolved cell left on the player's board, scheduler exiting")
			return
		}
		if err != nil {
			s.logger.Error("opponent attack failed", zap.Error(err))
			continue
		}
		if !attacked {
			continue
		}

		s.attacks.Add(1)
		s.logger.Debug("opponent attacked",
			zap.Int("row", result.Position.Row),
			zap.Int("col", result.Position.Col),
			zap.Stringer("outcome", result.Outcome),
			zap.Stringer("turn", result.Turn),
			zap.Bool("fallback", result.Fallback),
		)
		s.notify(result)
	}

	s.logger.Debug("scheduler stopped")
}

var errExhausted = errors.New("board fully resolved")

func (s *Scheduler) peek() (engine.Turn, bool) {
	var turn engine.Turn
	var over bool
	_ = s.game.WithLock(func(tx engine.Tx) error {
		turn, over = tx.Turn(), tx.MatchOver()
		return nil
	})
	return turn, over
}

// takeTurn re-checks the turn and attacks under the game lock. attacked is
// false when the turn changed during the think delay.
func (s *Scheduler) takeTurn() (AttackResult, bool, error) {
	var result AttackResult
	attacked := false

	err := s.game.WithLock(func(tx engine.Tx) error {
		if tx.Turn() != engine.OpponentTurn || tx.MatchOver() {
			return nil
		}

		board := tx.PlayerBoard()
		target, fallback, ok := s.chooseTarget(board)
		if !ok {
			return errExhausted
		}

		outcome, err := tx.AttackAsOpponent(target.Row, target.Col)
		if err != nil {
			return err
		}
		s.strategy.OnResult(target, outcome)

		result = AttackResult{Position: target, Outcome: outcome, Turn: tx.Turn(), Fallback: fallback}
		attacked = true
		return nil
	})
	return result, attacked, err
}

// chooseTarget asks the strategy for an unresolved cell, up to the retry
// budget, then falls back to the first unresolved cell in row-major order.
func (s *Scheduler) chooseTarget(board *engine.Board) (engine.Position, bool, bool) {
	for i := 0; i < s.cfg.RetryBudget; i++ {
		p, ok := s.strategy.SelectTarget(board)
		if ok && engine.InBounds(p.Row, p.Col) && !board.State(p).Resolved() {
			return p, false, true
		}
	}

	s.logger.Warn("strategy exhausted its retry budget, falling back to linear scan",
		zap.String("strategy", s.strategy.Name()),
		zap.Int("retry_budget", s.cfg.RetryBudget),
	)
	p, ok := board.FirstUnresolved()
	return p, true, ok
}

func (s *Scheduler) notify(result AttackResult) {
	if cb := s.callbacks.OnOpponentTurnResolved; cb != nil {
		s.dispatcher.Dispatch(func() { cb(result) })
	}
	if cb := s.callbacks.OnWinnerCheck; cb != nil {
		s.dispatcher.Dispatch(cb)
	}
}

func (s *Scheduler) thinkTime() time.Duration {
	d := s.cfg.MinThink
	if span := int64(s.cfg.MaxThink - s.cfg.MinThink); span > 0 {
		d += time.Duration(s.rnd.IntN(int(span) + 1))
	}
	return d
}

// sleep waits for d or until ctx is done. It reports false on cancellation.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
