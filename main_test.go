package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/navalbattle/game/engine"
	"github.com/wricardo/mcp-training/navalbattle/game/session"
	"github.com/wricardo/mcp-training/navalbattle/transport/mcp"
)

func TestConstants(t *testing.T) {
	assert.Equal(t, "1.0.0", Version)
	assert.Equal(t, "Naval Battle Server", AppName)
}

// unsetEnv clears variables for the duration of the test.
func unsetEnv(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestRootCommand_Flags(t *testing.T) {
	unsetEnv(t, "PORT", "HOST", "CONFIG_DIR", "STORE", "SESSIONS_DIR", "DB_PATH", "DEBUG", "NGROK_ENABLED")

	tests := []struct {
		name      string
		env       map[string]string
		args      []string
		wantPort  int
		wantHost  string
		wantStore string
	}{
		{
			name:      "defaults",
			args:      []string{"navalbattle"},
			wantPort:  8080,
			wantHost:  "localhost",
			wantStore: StoreFile,
		},
		{
			name:      "flags",
			args:      []string{"navalbattle", "--port", "9090", "--host", "0.0.0.0", "--store", "sqlite"},
			wantPort:  9090,
			wantHost:  "0.0.0.0",
			wantStore: StoreSQLite,
		},
		{
			name:      "environment",
			env:       map[string]string{"PORT": "7070", "STORE": "memory"},
			args:      []string{"navalbattle"},
			wantPort:  7070,
			wantHost:  "localhost",
			wantStore: StoreMemory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			var (
				port int
				host string
				opts serviceOptions
				ran  bool
			)
			cmd := newRootCommand()
			cmd.Action = func(ctx context.Context, c *cli.Command) error {
				ran = true
				port = int(c.Int("port"))
				host = c.String("host")
				opts = serviceOptionsFrom(c)
				return nil
			}

			require.NoError(t, cmd.Run(context.Background(), tt.args))
			require.True(t, ran)
			assert.Equal(t, tt.wantPort, port)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantStore, opts.Store)
			assert.Equal(t, "configs", opts.ConfigDir)
		})
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := newRootCommand()

	names := map[string][]string{}
	for _, sub := range cmd.Commands {
		names[sub.Name] = sub.Aliases
	}
	assert.Contains(t, names, "server")
	assert.Contains(t, names, "mcp")
	assert.ElementsMatch(t, []string{"stdio-mcp", "mcp-stdio"}, names["mcp"])
}

func TestRootCommand_SubcommandSeesRootFlags(t *testing.T) {
	unsetEnv(t, "PORT")

	var port int
	cmd := newRootCommand()
	for _, sub := range cmd.Commands {
		if sub.Name == "server" {
			sub.Action = func(ctx context.Context, c *cli.Command) error {
				port = int(c.Int("port"))
				return nil
			}
		}
	}

	require.NoError(t, cmd.Run(context.Background(), []string{"navalbattle", "--port", "9191", "server"}))
	assert.Equal(t, 9191, port)
}

func TestInitializeServices(t *testing.T) {
	tests := []struct {
		name  string
		store string
	}{
		{"file store", StoreFile},
		{"sqlite store", StoreSQLite},
		{"memory store", StoreMemory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			opts := serviceOptions{
				ConfigDir:   "configs",
				Store:       tt.store,
				SessionsDir: filepath.Join(dir, "sessions"),
				DBPath:      filepath.Join(dir, "sessions.db"),
			}

			svc, err := initializeServices(opts, nil, zap.NewNop())
			require.NoError(t, err)

			info, err := svc.Game.CreateSession(context.Background(), "classic", "Ann")
			require.NoError(t, err)
			assert.Equal(t, "Ann", info.Nickname)
			assert.Equal(t, 1, svc.Sessions.Count())

			svc.Close()
		})
	}
}

func TestInitializeServices_ReloadsPersistedSessions(t *testing.T) {
	dir := t.TempDir()
	opts := serviceOptions{
		ConfigDir:   "configs",
		Store:       StoreFile,
		SessionsDir: filepath.Join(dir, "sessions"),
	}

	first, err := initializeServices(opts, nil, zap.NewNop())
	require.NoError(t, err)
	info, err := first.Game.CreateSession(context.Background(), "quick", "")
	require.NoError(t, err)
	first.Close()

	second, err := initializeServices(opts, nil, zap.NewNop())
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, 1, second.Sessions.Count())
	reloaded, err := second.Game.GetSession(context.Background(), info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.ID, reloaded.ID)
}

func TestInitializeServices_Errors(t *testing.T) {
	_, err := initializeServices(serviceOptions{ConfigDir: "/non/existent/path", Store: StoreMemory}, nil, zap.NewNop())
	assert.Error(t, err)

	_, err = initializeServices(serviceOptions{ConfigDir: "configs", Store: "floppy"}, nil, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown session store "floppy"`)
}

func TestSessionCleanupRoutine(t *testing.T) {
	manager := session.NewManager(nil)
	_, err := manager.Create("", "classic", engine.DefaultMatchConfig(), "Ann")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sessionCleanupRoutine(ctx, manager, time.Millisecond, 0, zap.NewNop())
	}()

	require.Eventually(t, func() bool { return manager.Count() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	wg.Wait()
}

func TestOrphanPruneRoutine(t *testing.T) {
	dir := t.TempDir()
	svc, err := initializeServices(serviceOptions{
		ConfigDir:   "configs",
		Store:       StoreFile,
		SessionsDir: dir,
	}, nil, zap.NewNop())
	require.NoError(t, err)
	defer svc.Close()

	info, err := svc.Game.CreateSession(context.Background(), "classic", "")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, info.ID+".json")))

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		orphanPruneRoutine(ctx, svc.Sessions, time.Millisecond, zap.NewNop())
	}()

	require.Eventually(t, func() bool { return svc.Sessions.Count() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	wg.Wait()
}

func TestMCPHandler(t *testing.T) {
	handler := mcpHandler(mcp.NewClient("http://127.0.0.1:1").GetMCPServer())

	t.Run("rejects GET", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("lists tools", func(t *testing.T) {
		body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		for _, tool := range []string{"create_session", "attack", "start_battle", "describe_cell"} {
			assert.Contains(t, rec.Body.String(), `"`+tool+`"`)
		}
	})
}

func TestExternalAPIAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	assert.True(t, externalAPIAvailable(srv.URL))
	assert.False(t, externalAPIAvailable("http://127.0.0.1:1"))
}
