// Command minesweeper runs the minesweeper game server.
//
// It supports three commands:
//  1. "server" (default) runs the HTTP server exposing the REST API, WebSocket updates and an /mcp HTTP endpoint
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "validate" checks difficulty preset files
//
// Settings come from configs/server.yaml (optional), MINES_* environment
// variables and a .env file; flags override both.
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

	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/minesweeper/api"
	"github.com/wricardo/mcp-training/minesweeper/game/config"
	"github.com/wricardo/mcp-training/minesweeper/game/records"
	"github.com/wricardo/mcp-training/minesweeper/game/service"
	"github.com/wricardo/mcp-training/minesweeper/game/session"
	"github.com/wricardo/mcp-training/minesweeper/internal/logging"
	"github.com/wricardo/mcp-training/minesweeper/internal/settings"
	"github.com/wricardo/mcp-training/minesweeper/transport/mcp"
	"github.com/wricardo/mcp-training/minesweeper/transport/websocket"
	"github.com/wricardo/mcp-training/minesweeper/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Minesweeper Server"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds the command tree. Root flags apply to every command.
func newApp() *cli.Command {
	return &cli.Command{
		Name:           "minesweeper",
		Usage:          AppName,
		Version:        Version,
		DefaultCommand: "server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Settings file (default " + settings.DefaultPath + " when present)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:  "presets-dir",
				Usage: "Directory containing difficulty presets",
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run the HTTP server with API, WebSocket and MCP endpoint",
				Flags:   serverFlags(),
				Action:  runServer,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run an MCP stdio server, starting an internal HTTP API when needed",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "url",
						Value: "http://localhost:8080",
						Usage: "External API server to reuse when it is running",
					},
					&cli.StringFlag{
						Name:  "records",
						Usage: "Records driver: memory, file, mysql or mongo",
					},
				},
				Action: runMCP,
			},
			{
				Name:      "validate",
				Usage:     "Validate difficulty preset files",
				ArgsUsage: "[dir]",
				Action:    runValidate,
			},
		},
	}
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "port",
			Usage: "HTTP server port",
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "HTTP server host",
		},
		&cli.StringFlag{
			Name:  "records",
			Usage: "Records driver: memory, file, mysql or mongo",
		},
		&cli.BoolFlag{
			Name:  "ngrok",
			Usage: "Enable ngrok tunnel (auth token from NGROK_AUTHTOKEN)",
		},
		&cli.StringFlag{
			Name:  "ngrok-domain",
			Usage: "Custom ngrok domain (optional)",
		},
	}
}

// loadSettings reads settings and applies command line overrides
func loadSettings(cmd *cli.Command) (*settings.Loader, settings.Settings, error) {
	loader, err := settings.Load(cmd.String("config"))
	if err != nil {
		return nil, settings.Settings{}, err
	}
	s := loader.Settings()
	applyFlags(cmd, &s)
	return loader, s, nil
}

func applyFlags(cmd *cli.Command, s *settings.Settings) {
	if cmd.IsSet("port") {
		s.HTTP.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("host") {
		s.HTTP.Host = cmd.String("host")
	}
	if cmd.IsSet("records") {
		s.Records.Driver = cmd.String("records")
	}
	if cmd.IsSet("ngrok") {
		s.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-domain") {
		s.Ngrok.Domain = cmd.String("ngrok-domain")
	}
	if cmd.Bool("debug") {
		s.Log.Level = "debug"
	}
	if cmd.IsSet("presets-dir") {
		s.Presets.Dir = cmd.String("presets-dir")
	} else if _, err := os.Stat(s.Presets.Dir); errors.Is(err, os.ErrNotExist) {
		// Built-in presets only
		s.Presets.Dir = ""
	}
}

// services holds everything the commands share
type services struct {
	game        service.GameService
	sessions    *session.Manager
	persistence session.SessionPersistence
	store       records.Store
	log         *zap.Logger
}

// initializeServices wires presets, records, sessions and the game service
func initializeServices(ctx context.Context, s settings.Settings, log *zap.Logger) (*services, error) {
	configManager, err := config.NewManager(s.Presets.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create preset manager: %w", err)
	}

	store, err := records.Open(ctx, s.Records, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open records store: %w", err)
	}

	svc := &services{store: store, log: log}

	if s.Sessions.Persist {
		persistence, err := session.NewFilePersistence(s.Sessions.Dir, configManager)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		svc.persistence = persistence
		svc.sessions = session.NewManagerWithPersistence(persistence, log)

		if err := svc.sessions.LoadPersistedSessions(); err != nil {
			log.Warn("failed to load persisted sessions", zap.Error(err))
		}
	} else {
		svc.sessions = session.NewManager(log)
	}

	svc.game = service.NewGameService(svc.sessions, configManager, store,
		service.WithLogger(log),
		service.WithDefaultPlayer(s.Player.DefaultName))

	log.Info("services initialized",
		zap.String("presets_dir", s.Presets.Dir),
		zap.String("records", s.Records.Driver),
		zap.Bool("persist_sessions", s.Sessions.Persist))

	return svc, nil
}

func (svc *services) Close() {
	if svc.persistence != nil {
		if err := svc.sessions.SaveAllSessions(); err != nil {
			svc.log.Warn("failed to save sessions", zap.Error(err))
		}
	}
	if err := svc.store.Close(); err != nil {
		svc.log.Warn("failed to close records store", zap.Error(err))
	}
}

// startBackground runs session cleanup and, with persistence, the
// filesystem sync until ctx is cancelled
func (svc *services) startBackground(ctx context.Context, s settings.Settings) {
	interval := s.Sessions.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	go sessionCleanupRoutine(ctx, svc.sessions, interval, s.Sessions.MaxAge, svc.log)

	if svc.persistence != nil {
		go filesystemSyncRoutine(ctx, svc.sessions, svc.persistence, 5*time.Second, svc.log)
	}
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within maxAge.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, interval, maxAge time.Duration, log *zap.Logger) {
	if maxAge <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				log.Info("cleaned up expired sessions", zap.Int("removed", removed))
			}
		}
	}
}

// filesystemSyncRoutine drops sessions from memory when their files are deleted.
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneOrphans(manager, persistence, log)
		}
	}
}

func pruneOrphans(manager *session.Manager, persistence session.SessionPersistence, log *zap.Logger) int {
	pruned := 0
	for _, sess := range manager.List() {
		if !persistence.Exists(sess.ID) {
			if err := manager.DeleteFromMemory(sess.ID); err == nil {
				pruned++
				log.Info("pruned session from memory (file deleted)", zap.String("session", sess.ID))
			}
		}
	}
	return pruned
}

// mcpHandler serves MCP JSON-RPC messages over plain HTTP POST
func mcpHandler(mcpServer *server.MCPServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
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

// runServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled it also provisions a public tunnel.
func runServer(ctx context.Context, cmd *cli.Command) error {
	loader, s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	logger := logging.New("minesweeper", s.Log)
	defer logger.Sync()
	log := logger.Logger

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := initializeServices(ctx, s, log)
	if err != nil {
		return err
	}
	defer svc.Close()
	svc.startBackground(ctx, s)

	loader.Watch(func(updated settings.Settings) {
		logger.SetLevel(updated.Log.Level)
		log.Info("settings reloaded", zap.String("log_level", updated.Log.Level))
	})

	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	apiServer := api.NewServer(svc.game, hub, log)

	addr := s.Addr()
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr), log)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient.GetMCPServer()))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serverErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("api", fmt.Sprintf("http://%s/api", addr)),
			zap.String("websocket", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	if s.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, s.Ngrok, mainRouter, log)
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-serverErr:
		log.Error("HTTP server failed", zap.Error(err))
		stop()
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn("HTTP server shutdown error", zap.Error(shutdownErr))
	}

	wg.Wait()
	log.Info("server stopped")
	return err
}

// runNgrok exposes handler through an ngrok tunnel until ctx is cancelled
func runNgrok(ctx context.Context, cfg settings.NgrokConfig, handler http.Handler, log *zap.Logger) {
	authToken := os.Getenv("NGROK_AUTHTOKEN")
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTH_TOKEN")
	}
	if authToken == "" {
		log.Warn("ngrok enabled but no auth token provided (set NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		log.Info("using custom ngrok domain", zap.String("domain", cfg.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	log.Info("starting ngrok tunnel")
	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	ngrokURL := tun.URL()
	log.Info("ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("api", ngrokURL+"/api"),
		zap.String("mcp", ngrokURL+"/mcp"))

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		log.Warn("ngrok server error", zap.Error(err))
	}
	log.Info("ngrok tunnel closed")
}

// externalAPIAvailable reports whether a server answers the health check at baseURL
func externalAPIAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runMCP runs an MCP stdio server. It reuses the API at --url when it is up;
// otherwise it starts an internal HTTP API on a random loopback port.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	_, s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	// Stdout carries protocol frames; logs go to stderr and the log file
	logger := logging.New("minesweeper-mcp", s.Log)
	defer logger.Sync()
	log := logger.Logger

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseURL := cmd.String("url")
	if externalAPIAvailable(ctx, baseURL) {
		log.Info("external API server found, using it for MCP", zap.String("url", baseURL))
	} else {
		log.Info("no external API server found, starting internal HTTP server")

		svc, err := initializeServices(ctx, s, log)
		if err != nil {
			return err
		}
		defer svc.Close()
		svc.startBackground(ctx, s)

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hub := websocket.NewHub(log)
		go hub.Run(ctx)

		httpServer := &http.Server{Handler: api.NewServer(svc.game, hub, log)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Error("internal HTTP server error", zap.Error(err))
			}
		}()
		defer httpServer.Close()

		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
		log.Info("internal HTTP server started", zap.String("url", baseURL))
	}

	mcpClient := mcp.NewClient(baseURL, log)
	log.Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// runValidate validates the preset files in the given directory, or the
// configured presets directory
func runValidate(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		_, s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		if s.Presets.Dir == "" {
			return cli.Exit("no presets directory found; pass one as an argument", 1)
		}
		dir = s.Presets.Dir
	}

	results, err := validate.Dir(dir)
	if err != nil {
		return err
	}
	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	if !validate.Report(out, results) {
		return cli.Exit("some presets have errors", 1)
	}
	return nil
}
