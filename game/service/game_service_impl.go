package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/navalbattle/game/engine"
	"github.com/wricardo/mcp-training/navalbattle/game/scheduler"
	"github.com/wricardo/mcp-training/navalbattle/game/strategy"
)

// Option configures the game service.
type Option func(*gameServiceImpl)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *gameServiceImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNotifier sets where session events are pushed.
func WithNotifier(n Notifier) Option {
	return func(s *gameServiceImpl) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithDispatcher sets the execution context for opponent scheduler callbacks.
func WithDispatcher(d scheduler.Dispatcher) Option {
	return func(s *gameServiceImpl) {
		if d != nil {
			s.dispatcher = d
		}
	}
}

// WithHistoryStore makes attack history queries read from storage.
func WithHistoryStore(h HistoryStore) Option {
	return func(s *gameServiceImpl) {
		s.history = h
	}
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions   SessionManager
	configs    ConfigManager
	logger     *zap.Logger
	notifier   Notifier
	dispatcher scheduler.Dispatcher
	history    HistoryStore
	mu         sync.RWMutex

	// ctx parents every opponent scheduler; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &gameServiceImpl{
		sessions:   sessions,
		configs:    configs,
		logger:     zap.NewNop(),
		notifier:   NotifierFunc(func(Event) {}),
		dispatcher: scheduler.Inline,
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrCorruptSession) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	_ = s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func (s *gameServiceImpl) save(sess *Session, after string) {
	if err := s.sessions.Save(sess.ID); err != nil {
		s.logger.Warn("failed to persist session",
			zap.String("session_id", sess.ID),
			zap.String("after", after),
			zap.Error(err),
		)
	}
}

func (s *gameServiceImpl) notify(sess *Session, eventType, message string, attack *engine.AttackRecord) {
	s.notifier.Notify(Event{
		Type:      eventType,
		SessionID: sess.ID,
		Message:   message,
		Timestamp: time.Now(),
		Attack:    attack,
		State:     buildGameState(sess),
	})
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     sess.ConfigID,
		Nickname:       sess.Nickname,
		Phase:          sess.Phase(),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt(),
		GameState:      buildGameState(sess),
		GameConfig:     sess.Config,
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName, nickname string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.MatchConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configName, configIDs)
				}
				return nil, fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", configID, config, nickname)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("session created",
		zap.String("session_id", sess.ID),
		zap.String("config", configID),
		zap.String("strategy", config.Strategy),
	)
	s.notify(sess, EventSessionCreated, sess.Message(), nil)

	return s.sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	s.ensureScheduler(sess)

	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session. Corrupt sessions that cannot be loaded
// are discarded from storage instead.
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.sessions.Get(sessionID); errors.Is(err, ErrCorruptSession) {
		s.logger.Warn("discarding corrupt session", zap.String("session_id", sessionID), zap.Error(err))
		return s.sessions.Discard(sessionID)
	}

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	s.notifier.Notify(Event{Type: EventSessionDeleted, SessionID: sessionID, Timestamp: time.Now()})
	return nil
}

// RandomizeFleet replaces the player's fleet with a random layout.
func (s *gameServiceImpl) RandomizeFleet(ctx context.Context, sessionID string) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.placementSession(sessionID)
	if err != nil {
		return nil, err
	}

	player := sess.Game.Player()
	if err := player.Board.Clear(); err != nil {
		return nil, err
	}
	player.Fleet.Clear()
	if err := engine.PlaceFleetRandomly(player.Board, player.Fleet, sess.rnd, sess.Config.PlacementAttempts); err != nil {
		// Leave the player with a usable fleet
		_ = player.Board.Clear()
		player.Fleet.Clear()
		if ferr := engine.PlaceDefaultFormation(player.Board, player.Fleet); ferr != nil {
			return nil, errors.Join(err, ferr)
		}
		return nil, err
	}

	return s.fleetUpdated(sess, "fleet randomized"), nil
}

// MoveShip shifts one of the player's ships during placement.
func (s *gameServiceImpl) MoveShip(ctx context.Context, sessionID string, shipID, dRow, dCol int) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.placementSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Game.Player().Board.MoveShip(shipID, dRow, dCol); err != nil {
		return nil, err
	}
	return s.fleetUpdated(sess, fmt.Sprintf("ship %d moved", shipID)), nil
}

// RotateShip turns one of the player's ships during placement.
func (s *gameServiceImpl) RotateShip(ctx context.Context, sessionID string, shipID int) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.placementSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Game.Player().Board.RotateShip(shipID); err != nil {
		return nil, err
	}
	return s.fleetUpdated(sess, fmt.Sprintf("ship %d rotated", shipID)), nil
}

func (s *gameServiceImpl) placementSession(sessionID string) (*Session, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Phase() != PhasePlacement {
		return nil, ErrBattleAlreadyStarted
	}
	return sess, nil
}

func (s *gameServiceImpl) fleetUpdated(sess *Session, message string) *GameState {
	s.save(sess, "fleet update")
	s.notify(sess, EventFleetUpdated, message, nil)
	return buildGameState(sess)
}

// StartBattle locks the fleets in and launches the opponent scheduler.
func (s *gameServiceImpl) StartBattle(ctx context.Context, sessionID string) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.placementSession(sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Game.Player().Fleet.IsComplete() {
		return nil, ErrFleetIncomplete
	}

	sess.mu.Lock()
	sess.phase = PhaseBattle
	sess.message = sess.Config.Messages.BattleStart
	sess.mu.Unlock()

	if err := s.startScheduler(sess); err != nil {
		return nil, fmt.Errorf("failed to start opponent: %w", err)
	}

	s.logger.Info("battle started", zap.String("session_id", sess.ID))
	s.save(sess, "battle start")
	s.notify(sess, EventBattleStarted, sess.Message(), nil)
	return buildGameState(sess), nil
}

// Attack fires the player's shot at the opponent's board.
func (s *gameServiceImpl) Attack(ctx context.Context, sessionID string, row, col int) (*AttackResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	switch sess.Phase() {
	case PhasePlacement:
		return nil, ErrBattleNotStarted
	case PhaseFinished:
		return nil, engine.ErrMatchOver
	}
	s.ensureScheduler(sess)

	outcome, err := sess.Game.AttackAsPlayer(row, col)
	if err != nil {
		return nil, err
	}

	msgs := sess.Config.Messages
	message := msgs.PlayerMiss
	switch outcome {
	case engine.OutcomeHit:
		message = msgs.PlayerHit
	case engine.OutcomeSunk:
		message = msgs.PlayerSunk
	}
	sess.setMessage(message)

	s.logger.Debug("player attacked",
		zap.String("session_id", sess.ID),
		zap.Int("row", row),
		zap.Int("col", col),
		zap.Stringer("outcome", outcome),
	)

	s.notify(sess, EventPlayerAttack, message, sess.Game.LastAttack())
	s.finishIfOver(sess)
	s.save(sess, "attack")

	state := buildGameState(sess)
	return &AttackResult{
		Position:  engine.Position{Row: row, Col: col},
		Outcome:   outcome,
		Turn:      state.Turn,
		MatchOver: state.Phase == PhaseFinished,
		Winner:    state.Winner,
		Message:   state.Message,
		GameState: state,
	}, nil
}

// GetGameState retrieves the player's view of the match
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	s.ensureScheduler(sess)
	return buildGameState(sess), nil
}

// GetAttackHistory returns paginated attack history
func (s *gameServiceImpl) GetAttackHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	history := s.attackHistory(sess)
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var attacks []engine.AttackRecord
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			attacks = append(attacks, history[i])
		}
	} else if start < total {
		attacks = history[start:end]
	}
	if attacks == nil {
		attacks = []engine.AttackRecord{}
	}

	return &HistoryResponse{
		Attacks:      attacks,
		TotalAttacks: total,
		Page:         opts.Page,
		PageSize:     opts.Limit,
		TotalPages:   totalPages,
		HasNext:      opts.Page < totalPages,
		HasPrevious:  opts.Page > 1,
	}, nil
}

// attackHistory prefers the stored log. It falls back to the game's own
// history when the store fails or has not caught up with the last shots.
func (s *gameServiceImpl) attackHistory(sess *Session) []engine.AttackRecord {
	live := sess.Game.History()
	if s.history == nil {
		return live
	}

	stored, err := s.history.AttackHistory(sess.ID)
	if err != nil {
		s.logger.Warn("failed to read stored attack history", zap.String("session_id", sess.ID), zap.Error(err))
		return live
	}
	if len(stored) < len(live) {
		return live
	}
	return stored
}

// GetOpponentFleet shows where the opponent placed its ships. It is refused
// with ErrFleetHidden before the match is over unless the match config sets
// RevealOpponentFleet.
func (s *gameServiceImpl) GetOpponentFleet(ctx context.Context, sessionID string) (*FleetReveal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	phase := sess.Phase()
	if phase != PhaseFinished && !sess.Config.RevealOpponentFleet {
		return nil, ErrFleetHidden
	}

	opponent := frozen(sess.Game).Opponent()
	return &FleetReveal{
		SessionID: sess.ID,
		Phase:     phase,
		Board:     buildBoardView(opponent, true),
		Ships:     buildFleetView(opponent.Fleet),
	}, nil
}

// ListConfigs returns available match configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific match configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.MatchConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a match configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.MatchConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// ResumeBattles restarts the opponent for every stored session still in
// battle, returning how many were resumed.
func (s *gameServiceImpl) ResumeBattles(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	resumed := 0
	for _, sess := range s.sessions.List() {
		if sess.Phase() != PhaseBattle {
			continue
		}
		if s.finishIfOver(sess) {
			s.save(sess, "resume")
			continue
		}
		if s.ensureScheduler(sess) {
			resumed++
		}
	}
	if resumed > 0 {
		s.logger.Info("resumed battles", zap.Int("count", resumed))
	}
	return resumed
}

// Close stops every running opponent scheduler.
func (s *gameServiceImpl) Close() {
	s.cancel()
	for _, sess := range s.sessions.List() {
		sess.Close()
	}
}

// ensureScheduler starts the opponent for a battle-phase session that has
// none, as happens after a session is loaded from storage.
func (s *gameServiceImpl) ensureScheduler(sess *Session) bool {
	sess.mu.Lock()
	running := sess.scheduler != nil
	phase := sess.phase
	sess.mu.Unlock()

	if running || phase != PhaseBattle || s.ctx.Err() != nil {
		return false
	}
	if err := s.startScheduler(sess); err != nil {
		s.logger.Error("failed to resume opponent", zap.String("session_id", sess.ID), zap.Error(err))
		return false
	}
	return true
}

func (s *gameServiceImpl) startScheduler(sess *Session) error {
	strat, err := strategy.New(sess.Config.Strategy, nil)
	if err != nil {
		return err
	}

	sched := scheduler.New(sess.Game, strat, scheduler.ConfigFromMatch(sess.Config),
		scheduler.Callbacks{
			OnOpponentTurnResolved: func(result scheduler.AttackResult) { s.onOpponentAttack(sess, result) },
			OnWinnerCheck: func() {
				if s.finishIfOver(sess) {
					s.save(sess, "match over")
				}
			},
		},
		scheduler.WithLogger(s.logger.With(zap.String("session_id", sess.ID))),
		scheduler.WithDispatcher(s.dispatcher),
	)

	sess.mu.Lock()
	if sess.scheduler != nil {
		sess.mu.Unlock()
		return nil
	}
	sess.scheduler = sched
	sess.mu.Unlock()

	return sched.Start(s.ctx)
}

// onOpponentAttack runs through the dispatcher after each opponent shot.
// It does not take s.mu.
func (s *gameServiceImpl) onOpponentAttack(sess *Session, result scheduler.AttackResult) {
	msgs := sess.Config.Messages
	message := msgs.OpponentMiss
	switch result.Outcome {
	case engine.OutcomeHit:
		message = msgs.OpponentHit
	case engine.OutcomeSunk:
		message = msgs.OpponentSunk
	}
	if sess.Phase() != PhaseFinished {
		sess.setMessage(message)
	}

	s.save(sess, "opponent attack")
	s.notify(sess, EventOpponentAttack, message, &engine.AttackRecord{
		Attacker:  engine.OpponentTurn,
		Position:  result.Position,
		Outcome:   result.Outcome,
		Timestamp: time.Now(),
	})
}

// finishIfOver moves a session whose match has ended to the finished phase,
// stops its scheduler and announces the result. It reports whether this call
// made the transition.
func (s *gameServiceImpl) finishIfOver(sess *Session) bool {
	game := sess.Game
	if !game.MatchOver() {
		return false
	}

	msgs := sess.Config.Messages
	message := msgs.Defeat
	if game.PlayerWon() {
		message = fmt.Sprintf(msgs.Victory, game.Opponent().Board.Shots())
	}

	sess.mu.Lock()
	if sess.phase == PhaseFinished {
		sess.mu.Unlock()
		return false
	}
	sess.phase = PhaseFinished
	sess.message = message
	sched := sess.scheduler
	sess.scheduler = nil
	sess.mu.Unlock()

	if sched != nil {
		sched.Stop()
	}

	s.logger.Info("match over",
		zap.String("session_id", sess.ID),
		zap.Bool("player_won", game.PlayerWon()),
	)
	s.notify(sess, EventMatchOver, message, nil)
	return true
}

// frozen returns a detached copy of game taken under a single game lock, so
// its boards, turn and history describe the same moment.
func frozen(game *engine.Game) *engine.Game {
	if copied, err := engine.Restore(game.Snapshot()); err == nil {
		return copied
	}
	return game
}

// buildGameState renders the player's view of a session from a frozen copy
// of its game.
func buildGameState(sess *Session) *GameState {
	game := frozen(sess.Game)
	player, opponent := game.Player(), game.Opponent()
	history := game.History()

	state := &GameState{
		SessionID:     sess.ID,
		Phase:         sess.Phase(),
		Turn:          game.Turn(),
		Message:       sess.Message(),
		PlayerBoard:   buildBoardView(player, true),
		OpponentBoard: buildBoardView(opponent, false),
		Fleet:         buildFleetView(player.Fleet),
		FleetComplete: player.Fleet.IsComplete(),
		PlayerStats:   engine.Stats(history, engine.PlayerTurn),
		OpponentStats: engine.Stats(history, engine.OpponentTurn),
	}
	if len(history) > 0 {
		last := history[len(history)-1]
		state.LastAttack = &last
	}
	switch {
	case game.PlayerWon():
		state.Winner = player.Name
	case game.OpponentWon():
		state.Winner = opponent.Name
	}
	return state
}

// buildBoardView renders a side's board. Unless reveal is set, intact ship
// cells show as empty and ship ids only appear on sunk cells.
func buildBoardView(side *engine.Side, reveal bool) BoardView {
	grid := side.Board.Grid()
	view := BoardView{
		Owner:          side.Name,
		Rows:           make([]string, len(grid)),
		Cells:          make([][]CellView, len(grid)),
		Shots:          side.Board.Shots(),
		ShipsRemaining: side.Fleet.Len() - side.Fleet.SunkCount(),
	}

	for r, row := range grid {
		var line strings.Builder
		view.Cells[r] = make([]CellView, len(row))
		for c, cell := range row {
			cv := CellView{Row: cell.Row, Col: cell.Col, State: cell.State, ShipID: cell.ShipID}
			if !reveal {
				switch cell.State {
				case engine.ShipPresent:
					cv.State = engine.Empty
					cv.ShipID = 0
				case engine.Hit:
					cv.ShipID = 0
				}
			}
			view.Cells[r][c] = cv
			line.WriteByte(cellChar(cv.State))
		}
		view.Rows[r] = line.String()
	}
	return view
}

func cellChar(state engine.CellState) byte {
	switch state {
	case engine.ShipPresent:
		return 'S'
	case engine.Hit:
		return 'X'
	case engine.Sunk:
		return '#'
	case engine.Miss:
		return 'o'
	default:
		return '.'
	}
}

func buildFleetView(fleet *engine.Fleet) []ShipView {
	ships := fleet.Ships()
	views := make([]ShipView, 0, len(ships))
	for _, ship := range ships {
		views = append(views, ShipView{
			ID:          ship.ID(),
			Type:        ship.Type(),
			Length:      ship.Type().Length(),
			Orientation: ship.Orientation(),
			Positions:   ship.Positions(),
			Sunk:        ship.Sunk(),
		})
	}
	return views
}
