// DriveWorld is a persistent settlement game: players mint plots of virtual
// land on a shared grid, deploy chargers on them, and earn POINTS while
// drivers charge. The binary runs in two modes:
//
//   - server: HTTP + websocket server with the JSON API, an MCP proxy
//     endpoint at /mcp, and the per-second settlement loop
//   - stdio-mcp: MCP server over stdio for AI agents; reuses an already
//     running HTTP server when one is reachable, otherwise starts an
//     internal one on a loopback port
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/voltplay/driveworld/api"
	"github.com/voltplay/driveworld/game/catalog"
	"github.com/voltplay/driveworld/game/config"
	"github.com/voltplay/driveworld/game/engine"
	"github.com/voltplay/driveworld/game/service"
	"github.com/voltplay/driveworld/game/store"
	"github.com/voltplay/driveworld/transport/mcp"
	"github.com/voltplay/driveworld/transport/websocket"
)

const (
	AppName = "DriveWorld"
	Version = "1.0.0"
)

// ServerConfig holds process configuration. Values come from the
// environment (a .env file is honored when present) and can be overridden
// per-run with flags.
type ServerConfig struct {
	Host         string `env:"HOST" envDefault:"localhost"`
	Port         string `env:"PORT" envDefault:"8080"`
	ConfigDir    string `env:"CONFIG_DIR" envDefault:"configs"`
	WorldPreset  string `env:"WORLD_PRESET"`
	StoreBackend string `env:"STORE_BACKEND" envDefault:"file"`
	StorePath    string `env:"STORE_PATH" envDefault:"data/world.json"`
	CatalogPath  string `env:"CATALOG_PATH"`
	Debug        bool   `env:"DEBUG"`
}

// Addr returns the host:port the HTTP server binds to.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// services bundles everything the entrypoint wires together.
type services struct {
	engine  *engine.Engine
	store   store.Store
	catalog *catalog.Catalog
	hub     *websocket.Hub
	world   service.WorldService
	ticker  *engine.Ticker
}

// serviceSettler routes ticker fires through the service layer so each
// settlement pass also reaches connected websocket clients.
type serviceSettler struct {
	svc service.WorldService
}

func (s serviceSettler) Tick() {
	if err := s.svc.Tick(context.Background()); err != nil {
		slog.Error("tick failed", "error", err)
	}
}

func (s serviceSettler) SettleHeartbeat() {
	if err := s.svc.SettleHeartbeat(context.Background()); err != nil {
		slog.Error("settle heartbeat failed", "error", err)
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
	}

	cfg := &ServerConfig{}
	if err := env.Parse(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid environment configuration: %v\n", err)
		os.Exit(1)
	}

	var (
		mode        = flag.String("mode", "server", "Run mode: server or stdio-mcp")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.StringVar(&cfg.Host, "host", cfg.Host, "Host to bind the HTTP server to")
	flag.StringVar(&cfg.Port, "port", cfg.Port, "Port to bind the HTTP server to")
	flag.StringVar(&cfg.ConfigDir, "config-dir", cfg.ConfigDir, "Directory holding world config presets")
	flag.StringVar(&cfg.WorldPreset, "world", cfg.WorldPreset, "World config preset to load (default: built-in world)")
	flag.StringVar(&cfg.StoreBackend, "backend", cfg.StoreBackend, "Snapshot backend: file or sqlite")
	flag.StringVar(&cfg.StorePath, "store", cfg.StorePath, "Snapshot path (.zst enables compression for the file backend)")
	flag.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "Charge point catalog JSON (optional)")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s v%s - virtual land and charging settlement game\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Modes:\n")
		fmt.Fprintf(os.Stderr, "  server      HTTP API, websocket feed and MCP proxy (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp   MCP server over stdio for AI agent clients\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", AppName, Version)
		return
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	switch *mode {
	case "server":
		if err := runHTTPServer(cfg); err != nil {
			slog.Error("server exited", "error", err)
			os.Exit(1)
		}
	case "stdio-mcp", "mcp-stdio", "mcp":
		if err := runStdioMCP(cfg); err != nil {
			slog.Error("stdio MCP exited", "error", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown mode %q\n\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// initializeServices builds the engine, persistence, catalog, hub and
// service layer from the process configuration. The settlement ticker is
// returned idle; callers decide whether to start it.
func initializeServices(cfg *ServerConfig) (*services, error) {
	manager := config.NewManager(cfg.ConfigDir)

	var worldCfg *engine.WorldConfig
	if cfg.WorldPreset != "" {
		loaded, err := manager.LoadConfig(cfg.WorldPreset)
		if err != nil {
			return nil, fmt.Errorf("failed to load world preset %q: %w", cfg.WorldPreset, err)
		}
		worldCfg = loaded
	} else {
		worldCfg = manager.GetDefault()
	}

	var (
		st  store.Store
		err error
	)
	switch cfg.StoreBackend {
	case "file":
		st, err = store.NewFileStore(cfg.StorePath)
	case "sqlite":
		st, err = store.OpenSQLite(cfg.StorePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q (want file or sqlite)", cfg.StoreBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	eng, err := engine.NewEngineWithPersistence(worldCfg, st)
	if err != nil {
		return nil, fmt.Errorf("failed to create world engine: %w", err)
	}

	snap, err := st.Load()
	switch {
	case err == nil:
		if err := eng.Restore(snap); err != nil {
			return nil, fmt.Errorf("failed to restore snapshot: %w", err)
		}
		slog.Info("world restored from snapshot", "path", cfg.StorePath, "backend", cfg.StoreBackend)
	case errors.Is(err, store.ErrNoSnapshot):
		slog.Info("no snapshot found, starting fresh world", "rows", worldCfg.Rows, "cols", worldCfg.Cols)
	default:
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var cat *catalog.Catalog
	if cfg.CatalogPath != "" {
		cat, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load charge point catalog: %w", err)
		}
		stats := cat.Stats()
		slog.Info("charge point catalog loaded", "sites", stats.Sites, "active", stats.ActiveSites, "cities", stats.Cities)
	}

	hub := websocket.NewHub()
	world := service.NewWorldService(eng, cat, hub)
	ticker := engine.NewTicker(serviceSettler{svc: world})

	return &services{
		engine:  eng,
		store:   st,
		catalog: cat,
		hub:     hub,
		world:   world,
		ticker:  ticker,
	}, nil
}

// runHTTPServer starts the HTTP API, the websocket hub and the settlement
// loop, then blocks until SIGINT/SIGTERM triggers a graceful shutdown.
func runHTTPServer(cfg *ServerConfig) error {
	svcs, err := initializeServices(cfg)
	if err != nil {
		return err
	}

	go svcs.hub.Run()
	svcs.ticker.Start()

	apiServer := api.NewServer(svcs.world, svcs.hub)
	mcpClient := mcp.NewClient("http://" + cfg.Addr())

	rootMux := http.NewServeMux()
	rootMux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			slog.Error("failed to encode MCP response", "error", err)
		}
	})
	rootMux.Handle("/", apiServer)

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: rootMux,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Addr(), "version", Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		svcs.ticker.Stop()
		return err
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	}

	svcs.ticker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// runStdioMCP serves the MCP tool set over stdio. If an HTTP server is
// already reachable at the configured address it is reused; otherwise an
// internal server is started on an ephemeral loopback port so the MCP
// client stays self-contained.
func runStdioMCP(cfg *ServerConfig) error {
	baseURL := "http://" + cfg.Addr()

	if !serverReachable(baseURL) {
		slog.Info("no running server found, starting internal one")

		svcs, err := initializeServices(cfg)
		if err != nil {
			return err
		}
		go svcs.hub.Run()
		svcs.ticker.Start()
		defer svcs.ticker.Stop()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to bind internal server: %w", err)
		}
		go func() {
			if err := http.Serve(ln, api.NewServer(svcs.world, svcs.hub)); err != nil {
				slog.Error("internal server exited", "error", err)
			}
		}()
		baseURL = "http://" + ln.Addr().String()
	}

	slog.Info("serving MCP over stdio", "api", baseURL)
	mcpClient := mcp.NewClient(baseURL)
	return mcpserver.ServeStdio(mcpClient.GetMCPServer())
}

// serverReachable probes the health endpoint of an already running server.
func serverReachable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
