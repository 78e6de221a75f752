package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/navalbattle/game/engine"
	"github.com/wricardo/mcp-training/navalbattle/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Naval Battle",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Naval Battle - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Sink every ship of the opponent's fleet before it sinks yours. The board is
10x10; rows and columns are numbered 0-9.

FLOW:
1. create_session
2. Optionally arrange your fleet: randomize_fleet, move_ship, rotate_ship
3. start_battle
4. attack until the match is over; a miss hands the turn to the opponent,
   a hit or a sink lets you fire again

AVAILABLE TOOLS:
- create_session, get_session, list_sessions, delete_session
- game_state: both boards, whose turn it is and the latest message
- randomize_fleet, move_ship, rotate_ship: placement phase only
- start_battle: lock the fleet and wake the opponent
- attack: fire at a cell on the opponent's board - requires intent explanation
- attack_history: view past shots
- list_configs: available opponents
- describe_cell: what is known about one cell
- opponent_fleet: where the opponent placed its ships, once the match is over
- game_instructions: full rules

NOTE: The 'intent' parameter on attack serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func sessionOnlyTool(name, description string) mcp.Tool {
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new naval battle session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the match config to use (optional, see list_configs)",
				},
				"nickname": map[string]interface{}{
					"type":        "string",
					"description": "Your display name (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(sessionOnlyTool("get_session", "Get details of a specific session"), c.handleGetSession)
	c.mcpServer.AddTool(sessionOnlyTool("delete_session", "Delete a session. Also removes sessions whose stored data is corrupt"), c.handleDeleteSession)

	// Game state
	c.mcpServer.AddTool(sessionOnlyTool("game_state", "Get the current game state with both boards"), c.handleGameState)

	// Fleet placement
	c.mcpServer.AddTool(sessionOnlyTool("randomize_fleet", "Re-deal your fleet at random positions (placement phase only)"), c.handleRandomizeFleet)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_ship",
		Description: "Shift one of your ships by a row and column offset (placement phase only)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"ship_id": map[string]interface{}{
					"type":        "integer",
					"description": "ID of the ship, as listed in game_state",
				},
				"d_row": map[string]interface{}{
					"type":        "integer",
					"description": "Rows to move (negative moves up)",
				},
				"d_col": map[string]interface{}{
					"type":        "integer",
					"description": "Columns to move (negative moves left)",
				},
			},
			Required: []string{"session_id", "ship_id"},
		},
	}, c.handleMoveShip)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "rotate_ship",
		Description: "Rotate one of your ships about its bow between horizontal and vertical (placement phase only)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"ship_id": map[string]interface{}{
					"type":        "integer",
					"description": "ID of the ship, as listed in game_state",
				},
			},
			Required: []string{"session_id", "ship_id"},
		},
	}, c.handleRotateShip)

	// Battle
	c.mcpServer.AddTool(sessionOnlyTool("start_battle", "Lock your fleet and start the battle"), c.handleStartBattle)
	c.mcpServer.AddTool(sessionOnlyTool("opponent_fleet", "Show where the opponent placed its ships (read-only, after the match unless the config allows it)"), c.handleOpponentFleet)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "attack",
		Description: "Fire at a cell on the opponent's board",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row to fire at (0-9)",
				},
				"col": map[string]interface{}{
					"type":        "integer",
					"description": "Column to fire at (0-9)",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why you chose this cell (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "row", "col"},
		},
	}, c.handleAttack)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "attack_history",
		Description: "Get the attack history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Oldest first (asc) or newest first (desc, default)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleAttackHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available match configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the complete game rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe what is known about one cell of either board",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"board": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"player", "opponent"},
					"description": "Which board to inspect (default opponent)",
				},
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row (0-9)",
				},
				"col": map[string]interface{}{
					"type":        "integer",
					"description": "Column (0-9)",
				},
			},
			Required: []string{"session_id", "row", "col"},
		},
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			if hint := errResp["discard_hint"]; hint != "" {
				return fmt.Errorf("%s (%s)", msg, hint)
			}
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{}
	if configID := request.GetString("config_id", ""); configID != "" {
		body["config_id"] = configID
	}
	if nickname := request.GetString("nickname", ""); nickname != "" {
		body["nickname"] = nickname
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\nCaptain: %s\n", session.ID, session.ConfigName, session.Nickname)
	if session.GameState != nil {
		result += "\n" + formatGameState(session.GameState)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Config: %s, Phase: %s, Created: %s)\n",
			s.ID, s.ConfigName, s.Phase, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string `json:"message"`
	}
	if err := c.apiCall(ctx, "DELETE", sessionPath(sessionID, ""), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(response.Message), nil
}

// stateTool runs a session call that answers with a GameState.
func (c *Client) stateTool(ctx context.Context, request mcp.CallToolRequest, method, suffix string, body interface{}) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state service.GameState
	if err := c.apiCall(ctx, method, sessionPath(sessionID, suffix), body, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.stateTool(ctx, request, "GET", "/state", nil)
}

func (c *Client) handleRandomizeFleet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.stateTool(ctx, request, "POST", "/fleet/randomize", nil)
}

func (c *Client) handleMoveShip(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	shipID, err := request.RequireInt("ship_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body := map[string]int{
		"ship_id": shipID,
		"d_row":   request.GetInt("d_row", 0),
		"d_col":   request.GetInt("d_col", 0),
	}
	return c.stateTool(ctx, request, "POST", "/fleet/move", body)
}

func (c *Client) handleRotateShip(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	shipID, err := request.RequireInt("ship_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.stateTool(ctx, request, "POST", "/fleet/rotate", map[string]int{"ship_id": shipID})
}

func (c *Client) handleStartBattle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.stateTool(ctx, request, "POST", "/start", nil)
}

func (c *Client) handleAttack(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, err := request.RequireInt("row")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	col, err := request.RequireInt("col")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = request.GetString("intent", "")

	var result service.AttackResult
	body := map[string]int{"row": row, "col": col}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/attack"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatAttackResult(&result)), nil
}

func (c *Client) handleAttackHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	params := url.Values{}
	if page := request.GetInt("page", 0); page > 0 {
		params.Set("page", fmt.Sprint(page))
	}
	if limit := request.GetInt("limit", 0); limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}
	if order := request.GetString("order", ""); order != "" {
		params.Set("order", order)
	}

	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleOpponentFleet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var reveal service.FleetReveal
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/opponent-fleet"), nil, &reveal); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatFleetReveal(&reveal)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Opponent: %s, strategy %s, thinks %d-%dms\n\n",
			config.Name, config.ConfigID, config.Description, config.OpponentName,
			config.Strategy, config.MinThinkMS, config.MaxThinkMS)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Naval Battle - Complete Instructions

GAME OBJECTIVE:
Sink every ship in the opponent's fleet before the opponent sinks yours.

THE BOARD:
• 10x10 grid, rows and columns numbered 0-9, (0,0) is the top-left corner
• Each side has its own board; you fire at the opponent's board

THE FLEET (per side):
• 1 Carrier (4 cells)
• 2 Submarines (3 cells)
• 3 Destroyers (2 cells)
• 4 Frigates (1 cell)
Ships lie horizontally or vertically and never overlap. They may touch.

PLACEMENT PHASE:
• Your fleet starts in a default formation along the top-left
• randomize_fleet re-deals it, move_ship shifts one ship, rotate_ship pivots
  one ship about its bow
• start_battle locks the fleet; ships cannot move once shots have landed

BATTLE PHASE:
• You fire first
• MISS: the turn passes to the opponent
• HIT or SUNK: you fire again
• Firing at a cell you already fired at is rejected and does not cost a turn
• The opponent takes its shots on its own after a short think delay

BOARD LEGEND:
• . - unknown water (opponent board) or empty water (your board)
• S - one of your ships, not hit
• X - hit, ship still afloat
• # - part of a sunk ship
• o - miss

VICTORY CONDITIONS:
- Every enemy ship sunk: victory
- Every one of your ships sunk: defeat
- opponent_fleet shows the opponent's full layout once the match is over
  (configs with reveal_opponent_fleet allow it at any time)

TIPS:
• After a hit, probe the four neighbours to find the ship's direction
• Once a direction is known, keep firing along that line
• Cells next to a sunk ship can still hold another ship
• Spreading early shots in a checkerboard pattern finds long ships faster

SESSION MANAGEMENT:
- Multiple sessions can run simultaneously
- Each session has a unique 4-character ID
- delete_session also removes sessions whose stored data is damaged`

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, err := request.RequireInt("row")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	col, err := request.RequireInt("col")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	which := request.GetString("board", "opponent")

	if !engine.InBounds(row, col) {
		return mcp.NewToolResultError(fmt.Sprintf("Cell (%d, %d) is out of bounds. Rows and columns run 0-%d",
			row, col, engine.BoardSize-1)), nil
	}

	var state service.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	board := state.OpponentBoard
	if which == "player" {
		board = state.PlayerBoard
	}
	if row >= len(board.Cells) || col >= len(board.Cells[row]) {
		return mcp.NewToolResultError("board data is incomplete"), nil
	}

	return mcp.NewToolResultText(describeCell(which, board.Cells[row][col])), nil
}

func describeCell(which string, cell service.CellView) string {
	var description string
	switch cell.State {
	case engine.Empty:
		if which == "player" {
			description = "Open water. None of your ships is here."
		} else {
			description = "Unknown. You have not fired here yet."
		}
	case engine.ShipPresent:
		description = fmt.Sprintf("Your ship #%d, not hit yet.", cell.ShipID)
	case engine.Hit:
		description = "Hit. The ship here is still afloat."
	case engine.Sunk:
		description = "Part of a sunk ship."
	case engine.Miss:
		description = "Miss. Nothing here."
	}

	fired := "no"
	if cell.State.Resolved() {
		fired = "yes"
	}

	return fmt.Sprintf("Cell (%d, %d) on the %s board\nState: %s (%s)\nAlready fired at: %s\n%s",
		cell.Row, cell.Col, which, cell.State, string(cellChar(cell.State)), fired, description)
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

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	result := fmt.Sprintf("Session: %s\nConfig: %s\nCaptain: %s\nPhase: %s\nCreated: %s\nLast accessed: %s\n",
		session.ID, session.ConfigName, session.Nickname, session.Phase,
		session.CreatedAt.Format(time.RFC3339), session.LastAccessedAt.Format(time.RFC3339))
	if session.GameState != nil {
		result += "\n" + formatGameState(session.GameState)
	}
	return result
}

func formatBoard(b *strings.Builder, title string, board service.BoardView) {
	fmt.Fprintf(b, "%s (%s) - ships afloat: %d, shots taken: %d\n", title, board.Owner, board.ShipsRemaining, board.Shots)
	b.WriteString("   0123456789\n")
	for r, row := range board.Rows {
		fmt.Fprintf(b, "%2d %s\n", r, row)
	}
}

func formatGameState(state *service.GameState) string {
	if state == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s | Phase: %s", state.SessionID, state.Phase)
	if state.Phase == service.PhaseBattle {
		fmt.Fprintf(&b, " | Turn: %s", state.Turn)
	}
	b.WriteString("\n")
	if state.Message != "" {
		fmt.Fprintf(&b, "%s\n", state.Message)
	}
	if state.Winner != "" {
		fmt.Fprintf(&b, "🏁 MATCH OVER - winner: %s\n", state.Winner)
	}
	b.WriteString("\n")

	formatBoard(&b, "Enemy waters", state.OpponentBoard)
	b.WriteString("\n")
	formatBoard(&b, "Your fleet", state.PlayerBoard)

	if len(state.Fleet) > 0 {
		b.WriteString("\nShips:\n")
		formatShips(&b, state.Fleet)
	}

	fmt.Fprintf(&b, "\nYour shots: %d (hits %d, misses %d)\n",
		state.PlayerStats.Shots, state.PlayerStats.Hits, state.PlayerStats.Misses)
	fmt.Fprintf(&b, "Enemy shots: %d (hits %d, misses %d)\n",
		state.OpponentStats.Shots, state.OpponentStats.Hits, state.OpponentStats.Misses)

	return b.String()
}

func formatShips(b *strings.Builder, ships []service.ShipView) {
	for _, ship := range ships {
		status := "afloat"
		if ship.Sunk {
			status = "sunk"
		}
		bow := engine.Position{}
		if len(ship.Positions) > 0 {
			bow = ship.Positions[0]
		}
		fmt.Fprintf(b, "  #%d %s (%d) %s at %s - %s\n",
			ship.ID, ship.Type, ship.Length, ship.Orientation, bow, status)
	}
}

func formatFleetReveal(reveal *service.FleetReveal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s | Phase: %s\n\n", reveal.SessionID, reveal.Phase)
	formatBoard(&b, "Opponent fleet", reveal.Board)
	if len(reveal.Ships) > 0 {
		b.WriteString("\nShips:\n")
		formatShips(&b, reveal.Ships)
	}
	return b.String()
}

func formatAttackResult(result *service.AttackResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fired at %s: %s\n", result.Position, strings.ToUpper(result.Outcome.String()))
	if result.Message != "" {
		fmt.Fprintf(&b, "%s\n", result.Message)
	}
	if result.MatchOver {
		fmt.Fprintf(&b, "🏁 MATCH OVER - winner: %s\n", result.Winner)
	} else if result.Turn == engine.PlayerTurn {
		b.WriteString("Your turn again.\n")
	} else {
		b.WriteString("The opponent is taking its turn. Check game_state before firing again.\n")
	}
	if result.GameState != nil {
		b.WriteString("\n")
		formatBoard(&b, "Enemy waters", result.GameState.OpponentBoard)
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Attack History (Page %d/%d, %d total):\n\n", history.Page, history.TotalPages, history.TotalAttacks)
	for _, a := range history.Attacks {
		fmt.Fprintf(&b, "%3d. %-8s -> %s %s\n", a.Seq, a.Attacker, a.Position, a.Outcome)
	}
	if history.HasNext {
		b.WriteString("\n(more on the next page)\n")
	}
	return b.String()
}
