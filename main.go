// Command navalbattle starts the Naval Battle game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags (each with an environment variable fallback) control host/port, the
// config directory, the session store, debug logging, and optional ngrok
// tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/navalbattle/api"
	"github.com/wricardo/mcp-training/navalbattle/game/config"
	"github.com/wricardo/mcp-training/navalbattle/game/service"
	"github.com/wricardo/mcp-training/navalbattle/game/session"
	"github.com/wricardo/mcp-training/navalbattle/transport/mcp"
	"github.com/wricardo/mcp-training/navalbattle/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Naval Battle Server"
)

// Session store kinds accepted by --store.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

const (
	sessionMaxAge        = 24 * time.Hour
	sessionCleanupPeriod = 1 * time.Hour
	orphanPrunePeriod    = 5 * time.Second
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if envErr != nil && !os.IsNotExist(envErr) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", envErr)
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// newRootCommand builds the CLI. Running it without a subcommand starts the
// HTTP server.
func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "navalbattle",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing match configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "store",
				Value:   StoreFile,
				Usage:   "Session store: file, sqlite or memory",
				Sources: cli.EnvVars("STORE"),
			},
			&cli.StringFlag{
				Name:    "sessions-dir",
				Value:   "sessions",
				Usage:   "Directory for the file session store",
				Sources: cli.EnvVars("SESSIONS_DIR"),
			},
			&cli.StringFlag{
				Name:    "db-path",
				Value:   "navalbattle.db",
				Usage:   "Database file for the sqlite session store",
				Sources: cli.EnvVars("DB_PATH"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Action: runServerCommand,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  runServerCommand,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server, reusing a running API or starting an internal one",
				Action:  runStdioMCPCommand,
			},
		},
	}
}

// newLogger builds the process logger. Production output is JSON on stderr,
// which keeps stdout free for the MCP stdio transport.
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// serviceOptions is the subset of the command flags initializeServices needs.
type serviceOptions struct {
	ConfigDir   string
	Store       string
	SessionsDir string
	DBPath      string
}

func serviceOptionsFrom(cmd *cli.Command) serviceOptions {
	return serviceOptions{
		ConfigDir:   cmd.String("config-dir"),
		Store:       cmd.String("store"),
		SessionsDir: cmd.String("sessions-dir"),
		DBPath:      cmd.String("db-path"),
	}
}

// services holds everything initializeServices wired together.
type services struct {
	Game     service.GameService
	Sessions *session.Manager
	closers  []io.Closer
}

// Close stops every battle scheduler and releases the session store.
func (s *services) Close() {
	s.Game.Close()
	for _, c := range s.closers {
		c.Close()
	}
}

// initializeServices wires config/session managers and the game service.
// The hub, when given, receives session events and runs scheduler callbacks.
func initializeServices(opts serviceOptions, hub *websocket.Hub, logger *zap.Logger) (*services, error) {
	configManager, err := config.NewManager(opts.ConfigDir, logger.Named("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	svc := &services{}
	var persistence session.SessionPersistence
	var history service.HistoryStore
	switch opts.Store {
	case StoreFile:
		fp, err := session.NewFilePersistence(opts.SessionsDir, configManager, logger.Named("store"))
		if err != nil {
			return nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		persistence = fp
	case StoreSQLite:
		sp, err := session.NewSQLitePersistence(opts.DBPath, configManager, logger.Named("store"))
		if err != nil {
			return nil, fmt.Errorf("failed to open session database: %w", err)
		}
		persistence = sp
		history = sp
		svc.closers = append(svc.closers, sp)
	case StoreMemory:
	default:
		return nil, fmt.Errorf("unknown session store %q (want %s, %s or %s)", opts.Store, StoreFile, StoreSQLite, StoreMemory)
	}

	if persistence != nil {
		svc.Sessions = session.NewManagerWithPersistence(persistence, logger.Named("sessions"))
		if err := svc.Sessions.LoadPersistedSessions(); err != nil {
			logger.Warn("failed to load persisted sessions", zap.Error(err))
		}
	} else {
		svc.Sessions = session.NewManager(logger.Named("sessions"))
	}

	serviceOpts := []service.Option{service.WithLogger(logger.Named("game"))}
	if hub != nil {
		serviceOpts = append(serviceOpts, service.WithNotifier(hub), service.WithDispatcher(hub))
	}
	if history != nil {
		serviceOpts = append(serviceOpts, service.WithHistoryStore(history))
	}
	svc.Game = service.NewGameService(svc.Sessions, configManager, serviceOpts...)

	return svc, nil
}

// startBackgroundRoutines launches the session maintenance loops. They exit
// when ctx is cancelled.
func startBackgroundRoutines(ctx context.Context, wg *sync.WaitGroup, manager *session.Manager, logger *zap.Logger) {
	wg.Add(2)
	go func() {
		defer wg.Done()
		sessionCleanupRoutine(ctx, manager, sessionCleanupPeriod, sessionMaxAge, logger)
	}()
	go func() {
		defer wg.Done()
		orphanPruneRoutine(ctx, manager, orphanPrunePeriod, logger)
	}()
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within maxAge.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, period, maxAge time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				logger.Info("cleaned up expired sessions", zap.Int("removed", removed))
			}
		}
	}
}

// orphanPruneRoutine drops in-memory sessions whose stored copy was removed
// out from under the server.
func orphanPruneRoutine(ctx context.Context, manager *session.Manager, period time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := manager.PruneOrphans(); pruned > 0 {
				logger.Info("pruned orphaned sessions from memory", zap.Int("pruned", pruned))
			}
		}
	}
}

// mcpHandler serves single JSON-RPC messages posted to /mcp.
func mcpHandler(mcpServer *server.MCPServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newMainRouter mounts the REST API at the root and the MCP endpoint at /mcp.
func newMainRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient.GetMCPServer()))
	return mainRouter
}

// runServerCommand starts the HTTP server with REST API, WebSocket hub, and
// an /mcp proxy endpoint. If ngrok is enabled it also provisions a public
// tunnel. It blocks until ctx is cancelled.
func runServerCommand(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting", zap.String("app", AppName), zap.String("version", Version), zap.String("mode", "server"))

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := websocket.NewHub(logger.Named("websocket"))
	go hub.Run(hubCtx)

	svc, err := initializeServices(serviceOptionsFrom(cmd), hub, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	if resumed := svc.Game.ResumeBattles(ctx); resumed > 0 {
		logger.Info("resumed battles", zap.Int("count", resumed))
	}

	var wg sync.WaitGroup
	startBackgroundRoutines(ctx, &wg, svc.Sessions, logger)

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	apiServer := api.NewServer(svc.Game, hub, logger.Named("api"))
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	mainRouter := newMainRouter(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("api", fmt.Sprintf("http://%s/api", addr)),
			zap.String("websocket", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)),
		)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runTunnel(ctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), mainRouter, logger.Named("ngrok"))
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-serveErr:
		logger.Error("HTTP server failed", zap.Error(runErr))
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	svc.Close()
	stopHub()

	wg.Wait()
	logger.Info("server stopped")
	return runErr
}

// runTunnel serves handler through an ngrok tunnel until ctx is cancelled.
func runTunnel(ctx context.Context, authToken, domain string, handler http.Handler, logger *zap.Logger) {
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	logger.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info("using custom ngrok domain", zap.String("domain", domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("api", ngrokURL+"/api"),
		zap.String("websocket", ngrokURL+"/ws?session=<session_id>"),
		zap.String("mcp", ngrokURL+"/mcp"),
	)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Warn("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// externalAPIAvailable reports whether an API server already answers at baseURL.
func externalAPIAvailable(baseURL string) bool {
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// runStdioMCPCommand runs an MCP stdio server. It reuses an API already
// running at host:port; otherwise it starts an internal API bound to a
// random loopback port and targets that.
func runStdioMCPCommand(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	externalURL := fmt.Sprintf("http://%s:%d", cmd.String("host"), cmd.Int("port"))
	logger.Info("checking for external API server", zap.String("url", externalURL))

	baseURL := externalURL
	if !externalAPIAvailable(externalURL) {
		logger.Info("no external API server found, starting internal HTTP server")

		internalURL, shutdown, err := startInternalAPI(ctx, serviceOptionsFrom(cmd), logger)
		if err != nil {
			return err
		}
		defer shutdown()
		baseURL = internalURL
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", zap.String("api", baseURL))

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// startInternalAPI serves the full API on a random loopback port. The
// returned function stops it.
func startInternalAPI(ctx context.Context, opts serviceOptions, logger *zap.Logger) (string, func(), error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := websocket.NewHub(logger.Named("websocket"))
	go hub.Run(hubCtx)

	svc, err := initializeServices(opts, hub, logger)
	if err != nil {
		stopHub()
		listener.Close()
		return "", nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	svc.Game.ResumeBattles(ctx)

	routinesCtx, stopRoutines := context.WithCancel(ctx)
	var wg sync.WaitGroup
	startBackgroundRoutines(routinesCtx, &wg, svc.Sessions, logger)

	httpServer := &http.Server{Handler: api.NewServer(svc.Game, hub, logger.Named("api"))}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("internal HTTP server error", zap.Error(err))
		}
	}()

	addr := listener.Addr().String()
	logger.Info("internal HTTP server started", zap.String("addr", addr))

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
		stopRoutines()
		wg.Wait()
		svc.Close()
		stopHub()
	}
	return "http://" + addr, shutdown, nil
}
