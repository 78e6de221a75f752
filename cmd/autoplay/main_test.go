package main

import (
	"bytes"
	"context"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/navalbattle/api"
	"github.com/wricardo/mcp-training/navalbattle/game/config"
	"github.com/wricardo/mcp-training/navalbattle/game/engine"
	"github.com/wricardo/mcp-training/navalbattle/game/service"
	"github.com/wricardo/mcp-training/navalbattle/game/session"
)

func newGameServer(t *testing.T) *httptest.Server {
	t.Helper()
	configs, err := config.NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	cfg := engine.DefaultMatchConfig()
	cfg.Name = "Autoplay"
	cfg.MinThinkMS, cfg.MaxThinkMS, cfg.PollIntervalMS = 0, 1, 1
	require.NoError(t, configs.SaveConfig("fast", cfg))

	svc := service.NewGameService(session.NewManager(nil), configs)
	t.Cleanup(svc.Close)

	srv := httptest.NewServer(api.NewServer(svc, nil, nil))
	t.Cleanup(srv.Close)
	return srv
}

func blankView() service.BoardView {
	view := service.BoardView{}
	for r := 0; r < engine.BoardSize; r++ {
		row := make([]service.CellView, engine.BoardSize)
		for c := range row {
			row[c] = service.CellView{Row: r, Col: c, State: engine.Empty}
		}
		view.Cells = append(view.Cells, row)
	}
	return view
}

func TestChooseTarget_FollowsUpHits(t *testing.T) {
	view := blankView()
	view.Cells[5][5].State = engine.Hit
	view.Cells[5][4].State = engine.Miss
	view.Cells[4][5].State = engine.Miss
	view.Cells[6][5].State = engine.Miss

	pos, ok := ChooseTarget(view, rand.New(rand.NewPCG(1, 2)))
	require.True(t, ok)
	assert.Equal(t, engine.Position{Row: 5, Col: 6}, pos)
}

func TestChooseTarget_SkipsResolvedCells(t *testing.T) {
	view := blankView()
	for r := range view.Cells {
		for c := range view.Cells[r] {
			view.Cells[r][c].State = engine.Miss
		}
	}
	view.Cells[9][0].State = engine.Empty

	pos, ok := ChooseTarget(view, rand.New(rand.NewPCG(3, 4)))
	require.True(t, ok)
	assert.Equal(t, engine.Position{Row: 9, Col: 0}, pos)

	view.Cells[9][0].State = engine.Miss
	_, ok = ChooseTarget(view, rand.New(rand.NewPCG(3, 4)))
	assert.False(t, ok)
}

func TestChooseTarget_IncompleteView(t *testing.T) {
	_, ok := ChooseTarget(service.BoardView{}, rand.New(rand.NewPCG(1, 1)))
	assert.False(t, ok)
}

func TestClient_APIError(t *testing.T) {
	srv := newGameServer(t)
	client := NewClient(srv.URL)

	_, err := client.Resume(context.Background(), "zzzz")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestPlay_FullMatch(t *testing.T) {
	srv := newGameServer(t)
	client := NewClient(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	state, err := client.CreateSession(ctx, "fast", "Robo")
	require.NoError(t, err)
	require.Equal(t, service.PhasePlacement, state.Phase)

	final, err := Play(ctx, client, state, Options{Randomize: true, Poll: 2 * time.Millisecond}, rand.New(rand.NewPCG(5, 6)), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, service.PhaseFinished, final.Phase)
	assert.Contains(t, []string{"Robo", "Admiral Random"}, final.Winner)
	assert.GreaterOrEqual(t, final.PlayerStats.Shots, 1)
	if final.Winner == "Robo" {
		assert.Equal(t, 0, final.OpponentBoard.ShipsRemaining)
	} else {
		assert.Equal(t, 0, final.PlayerBoard.ShipsRemaining)
	}
}

func TestPlay_GivesUp(t *testing.T) {
	srv := newGameServer(t)
	client := NewClient(srv.URL)
	ctx := context.Background()

	state, err := client.CreateSession(ctx, "fast", "")
	require.NoError(t, err)

	_, err = Play(ctx, client, state, Options{Poll: time.Millisecond, MaxAttacks: 1}, rand.New(rand.NewPCG(1, 1)), zap.NewNop())
	// One attack rarely sinks a fleet of ten ships.
	assert.ErrorContains(t, err, "gave up after 1 attacks")
}

func TestCommand_ContinueFinishedSession(t *testing.T) {
	srv := newGameServer(t)
	client := NewClient(srv.URL)
	ctx := context.Background()

	state, err := client.CreateSession(ctx, "fast", "Robo")
	require.NoError(t, err)
	_, err = Play(ctx, client, state, Options{Randomize: true, Poll: 2 * time.Millisecond}, rand.New(rand.NewPCG(7, 8)), zap.NewNop())
	require.NoError(t, err)

	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out
	require.NoError(t, cmd.Run(ctx, []string{"autoplay", "--url", srv.URL, "--continue", client.SessionID(), "--poll", "1ms"}))

	assert.Contains(t, out.String(), "Session "+client.SessionID()+" finished")
	assert.Contains(t, out.String(), "Winner: ")
}
