package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/navalbattle/game/engine"
	"github.com/wricardo/mcp-training/navalbattle/game/scheduler"
	"github.com/wricardo/mcp-training/navalbattle/game/strategy"
)

func TestNewSession(t *testing.T) {
	config := engine.DefaultMatchConfig()

	sess, err := NewSession("ab12", "classic", config, "  ")
	require.NoError(t, err)

	assert.Equal(t, DefaultNickname, sess.Nickname)
	assert.Equal(t, DefaultNickname, sess.Game.Player().Name)
	assert.Equal(t, config.OpponentName, sess.Game.Opponent().Name)
	assert.Equal(t, PhasePlacement, sess.Phase())
	assert.Equal(t, config.Messages.Welcome, sess.Message())
	assert.True(t, sess.Game.Player().Fleet.IsComplete())
	assert.True(t, sess.Game.Opponent().Fleet.IsComplete())

	_, err = NewSession("ab12", "classic", nil, "Nemo")
	require.Error(t, err)
}

func TestRestoreSession_FinishedMatch(t *testing.T) {
	// given a game whose opponent fleet is sunk
	sess, err := NewSession("ab12", "classic", engine.DefaultMatchConfig(), "Nemo")
	require.NoError(t, err)
	for _, row := range sess.Game.Opponent().Board.Grid() {
		for _, cell := range row {
			if cell.HasShip() {
				_, err := sess.Game.AttackAsPlayer(cell.Row, cell.Col)
				require.NoError(t, err)
			}
		}
	}

	// when it is restored with a stale phase
	now := time.Now()
	restored := RestoreSession("ab12", "classic", sess.Config, "Nemo", PhaseBattle, "msg", sess.Game, now, now)

	// then the phase reflects the finished match
	assert.Equal(t, PhaseFinished, restored.Phase())
	assert.Equal(t, "msg", restored.Message())
}

func TestSession_CloseStopsScheduler(t *testing.T) {
	sess, err := NewSession("ab12", "classic", engine.DefaultMatchConfig(), "Nemo")
	require.NoError(t, err)

	strat, err := strategy.New("random", nil)
	require.NoError(t, err)
	sched := scheduler.New(sess.Game, strat, scheduler.Config{PollInterval: time.Millisecond}, scheduler.Callbacks{})
	require.NoError(t, sched.Start(t.Context()))
	sess.scheduler = sched

	sess.Close()
	sess.Close()

	select {
	case <-sched.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler still running after Close")
	}
}

func TestBuildBoardView(t *testing.T) {
	side, err := engine.NewSide("Enemy")
	require.NoError(t, err)
	ship, err := side.Board.Place(0, 0, engine.Horizontal, engine.Destroyer)
	require.NoError(t, err)
	side.Fleet.Add(ship)
	frigate, err := side.Board.Place(2, 2, engine.Horizontal, engine.Frigate)
	require.NoError(t, err)
	side.Fleet.Add(frigate)

	for _, p := range []engine.Position{{Row: 0, Col: 0}, {Row: 2, Col: 2}, {Row: 5, Col: 5}} {
		_, err := side.Board.Shoot(p.Row, p.Col)
		require.NoError(t, err)
	}

	tests := []struct {
		Name     string
		Reveal   bool
		WantRow0 string
		WantRow2 string
		WantHit  CellView
	}{
		{
			Name:     "Owner view",
			Reveal:   true,
			WantRow0: "XS........",
			WantRow2: "..#.......",
			WantHit:  CellView{Row: 0, Col: 0, State: engine.Hit, ShipID: ship.ID()},
		},
		{
			Name:     "Enemy view",
			Reveal:   false,
			WantRow0: "X.........",
			WantRow2: "..#.......",
			WantHit:  CellView{Row: 0, Col: 0, State: engine.Hit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			view := buildBoardView(side, tt.Reveal)
			assert.Equal(t, tt.WantRow0, view.Rows[0])
			assert.Equal(t, tt.WantRow2, view.Rows[2])
			assert.Equal(t, ".....o....", view.Rows[5])
			assert.Equal(t, tt.WantHit, view.Cells[0][0])
			assert.Equal(t, frigate.ID(), view.Cells[2][2].ShipID)
			assert.Equal(t, 3, view.Shots)
			assert.Equal(t, 1, view.ShipsRemaining)
		})
	}
}

func TestBuildGameState_ConsistentWhileOpponentFires(t *testing.T) {
	sess, err := NewSession("ab12", "classic", engine.DefaultMatchConfig(), "Nemo")
	require.NoError(t, err)
	game := sess.Game

	done := make(chan struct{})
	go func() {
		defer close(done)
		next := map[engine.Turn]int{}
		for !game.MatchOver() {
			turn := game.Turn()
			i := next[turn]
			next[turn]++
			if turn == engine.PlayerTurn {
				game.AttackAsPlayer(i/engine.BoardSize, i%engine.BoardSize)
			} else {
				game.AttackAsOpponent(i/engine.BoardSize, i%engine.BoardSize)
			}
		}
	}()

	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}

		state := buildGameState(sess)
		require.Equal(t, state.PlayerStats.Shots, state.OpponentBoard.Shots)
		require.Equal(t, state.OpponentStats.Shots, state.PlayerBoard.Shots)
		if last := state.LastAttack; last != nil {
			if last.Outcome == engine.OutcomeMiss {
				require.NotEqual(t, last.Attacker, state.Turn, "miss at seq %d kept the turn", last.Seq)
			} else {
				require.Equal(t, last.Attacker, state.Turn, "hit at seq %d passed the turn", last.Seq)
			}
		}
	}

	final := buildGameState(sess)
	assert.NotEmpty(t, final.Winner)
}
