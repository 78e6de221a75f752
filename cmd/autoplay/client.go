package main

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

	"github.com/wricardo/mcp-training/navalbattle/game/engine"
	"github.com/wricardo/mcp-training/navalbattle/game/service"
)

// APIError is a non-2xx answer from the game server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Client plays one session over the REST API.
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SessionID returns the session the client is playing.
func (c *Client) SessionID() string { return c.sessionID }

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(data, &errResp)
		if errResp.Error == "" {
			errResp.Error = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("parse %s %s response: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(c.sessionID) + suffix
}

// CreateSession starts a new session and plays it from now on.
func (c *Client) CreateSession(ctx context.Context, configID, nickname string) (*service.GameState, error) {
	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}
	if nickname != "" {
		body["nickname"] = nickname
	}

	var session service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", body, &session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	c.sessionID = session.ID
	return session.GameState, nil
}

// Resume plays an existing session.
func (c *Client) Resume(ctx context.Context, sessionID string) (*service.GameState, error) {
	c.sessionID = sessionID
	return c.State(ctx)
}

func (c *Client) State(ctx context.Context) (*service.GameState, error) {
	var state service.GameState
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/state"), nil, &state); err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return &state, nil
}

func (c *Client) RandomizeFleet(ctx context.Context) (*service.GameState, error) {
	var state service.GameState
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/fleet/randomize"), nil, &state); err != nil {
		return nil, fmt.Errorf("randomize fleet: %w", err)
	}
	return &state, nil
}

func (c *Client) StartBattle(ctx context.Context) (*service.GameState, error) {
	var state service.GameState
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/start"), nil, &state); err != nil {
		return nil, fmt.Errorf("start battle: %w", err)
	}
	return &state, nil
}

func (c *Client) Attack(ctx context.Context, p engine.Position) (*service.AttackResult, error) {
	var result service.AttackResult
	body := map[string]int{"row": p.Row, "col": p.Col}
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/attack"), body, &result); err != nil {
		return nil, fmt.Errorf("attack %s: %w", p, err)
	}
	return &result, nil
}
