// Command dice421 starts the 421 dice game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, preset directory, debug logging, version output,
// idle room retention and optional ngrok tunneling for external access.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wricardo/mcp-training/dice421/api"
	"github.com/wricardo/mcp-training/dice421/game/config"
	"github.com/wricardo/mcp-training/dice421/game/service"
	"github.com/wricardo/mcp-training/dice421/game/session"
	"github.com/wricardo/mcp-training/dice421/transport/mcp"
	"github.com/wricardo/mcp-training/dice421/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "421 Dice Server"
)

// Configuration flags control how the server starts and which services are enabled.
var (
	port          = flag.Int("port", 8080, "HTTP server port")
	host          = flag.String("host", "localhost", "HTTP server host")
	configDir     = flag.String("config-dir", getConfigDirDefault(), "Directory containing room presets")
	defaultConfig = flag.String("config", os.Getenv("DEFAULT_CONFIG"), "Default preset name (or DEFAULT_CONFIG env var)")
	debug         = flag.Bool("debug", false, "Enable debug logging")
	version       = flag.Bool("version", false, "Show version information")
	roomTTL       = flag.Duration("room-ttl", time.Hour, "Remove rooms without connections after this idle time")
	ngrokEnabled  = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth     = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain   = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

// getConfigDirDefault returns the default preset directory.
// It first honors the CONFIG_DIR environment variable, then falls back to "configs".
func getConfigDirDefault() string {
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		return configDir
	}
	return "configs"
}

// loadEnv reads .env files and re-applies the env-backed flag defaults, which
// were evaluated before the files were loaded. Call it before flag.Parse so
// explicit flags still win.
func loadEnv(files ...string) error {
	err := godotenv.Load(files...)
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		*configDir = dir
	}
	if name := os.Getenv("DEFAULT_CONFIG"); name != "" {
		*defaultConfig = name
	}
	return err
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                        # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090             # Run HTTP server on port 9090\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config blitz          # Rooms default to the blitz preset\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp              # Run MCP stdio server\n", os.Args[0])
	}
}

// setupLogging configures the global zerolog logger from LOG_LEVEL and ENV.
// Logs go to stderr so stdio mode keeps stdout for the protocol.
func setupLogging(debug bool) zerolog.Level {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if os.Getenv("ENV") == "production" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return level
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	envErr := loadEnv()

	flag.Parse()

	// Show version if requested
	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	level := setupLogging(*debug)
	if envErr == nil {
		log.Debug().Msg("loaded environment variables from .env file")
	} else if !errors.Is(envErr, fs.ErrNotExist) {
		log.Warn().Err(envErr).Msg("error loading .env file")
	}

	// Determine mode from command
	args := flag.Args()
	mode := "server"
	if len(args) > 0 {
		mode = args[0]
	}

	log.Info().Str("version", Version).Str("mode", mode).Str("log_level", level.String()).Msgf("Starting %s", AppName)

	roomService, err := initializeServices()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize services")
	}

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(roomService)

	case "server", "http":
		runHTTPServer(roomService)

	default:
		log.Fatal().Str("mode", mode).Msg("unknown mode, use 'server' (default) or 'stdio-mcp'")
	}
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled (via flag or environment), it also provisions a public tunnel.
func runHTTPServer(roomService service.RoomService) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := websocket.NewHub(api.NewReceiver(roomService))
	go hub.Run()

	apiServer := api.NewServer(roomService, hub)

	addr := fmt.Sprintf("%s:%d", *host, *port)

	// The MCP tools call back into this server's REST API
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	apiServer.Handle("/mcp", mcpHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      apiServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go cleanupRoutine(ctx, roomService, *roomTTL)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info().Str("addr", addr).Msg("HTTP server listening")
		log.Info().Msgf("REST API: http://%s/api", addr)
		log.Info().Msgf("WebSocket: ws://%s/ws", addr)
		log.Info().Msgf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	if ngrokShouldRun() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, apiServer)
		}()
	}

	sig := <-stop
	log.Info().Str("signal", sig.String()).Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	roomService.Shutdown(shutdownCtx)
	hub.Stop()

	wg.Wait()
	log.Info().Msg("server stopped")
}

// ngrokShouldRun reports whether the tunnel is enabled by flag or NGROK_ENABLED.
func ngrokShouldRun() bool {
	if *ngrokEnabled {
		return true
	}
	envEnabled := os.Getenv("NGROK_ENABLED")
	return envEnabled == "true" || envEnabled == "1"
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx ends.
func runNgrokTunnel(ctx context.Context, handler http.Handler) {
	authToken := *ngrokAuth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
		if authToken == "" {
			authToken = os.Getenv("NGROK_AUTH_TOKEN")
		}
	}

	if authToken == "" {
		log.Warn().Msg("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Info().Str("domain", domain).Msg("using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Error().Err(err).Msg("failed to start ngrok tunnel")
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	log.Info().Str("url", ngrokURL).Msg("🚀 ngrok tunnel established")
	log.Info().Msgf("  REST API (ngrok): %s/api", ngrokURL)
	log.Info().Msgf("  WebSocket (ngrok): %s/ws", strings.Replace(ngrokURL, "https://", "wss://", 1))
	log.Info().Msgf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Warn().Err(err).Msg("ngrok server error")
	}
	log.Info().Msg("ngrok tunnel closed")
}

// mcpHandler answers single JSON-RPC messages posted to /mcp.
func mcpHandler(client *mcp.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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

		response := client.GetMCPServer().HandleMessage(r.Context(), body)
		if response == nil {
			w.WriteHeader(http.StatusAccepted)
			return
		}

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})
}

// initializeServices wires the room and preset managers into the room service.
func initializeServices() (service.RoomService, error) {
	configManager, err := config.NewManager(*configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	if *defaultConfig != "" {
		if err := configManager.SetDefault(*defaultConfig); err != nil {
			return nil, fmt.Errorf("failed to select preset %q: %w", *defaultConfig, err)
		}
	}
	preset := configManager.GetDefault()
	log.Info().Str("config_dir", *configDir).Str("preset", preset.Name).Int("max_players", preset.MaxPlayers).Int("total_tokens", preset.TotalTokens).Msg("presets loaded")

	roomManager := session.NewManager()
	return service.NewRoomService(roomManager, configManager), nil
}

// cleanupInterval is how often idle rooms are looked for.
func cleanupInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, 10*time.Second)
}

// cleanupRoutine periodically removes rooms nobody is connected to.
func cleanupRoutine(ctx context.Context, roomService service.RoomService, ttl time.Duration) {
	ticker := time.NewTicker(cleanupInterval(ttl))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := roomService.CleanupIdle(ctx, ttl); removed > 0 {
				log.Info().Int("removed", removed).Int("rooms_left", roomService.RoomCount(ctx)).Msg("cleaned up idle rooms")
			}
		}
	}
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at http://localhost:8080; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(roomService service.RoomService) {
	var baseURL string

	externalURL := "http://localhost:8080"
	log.Info().Str("url", externalURL).Msg("checking for external API server")

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Info().Str("url", externalURL).Msg("external API server found, using it for MCP")
		baseURL = externalURL
	} else {
		log.Info().Msg("no external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to get available port")
		}
		internalAddr := listener.Addr().String()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		hub := websocket.NewHub(api.NewReceiver(roomService))
		go hub.Run()
		defer hub.Stop()

		httpServer := &http.Server{
			Handler: api.NewServer(roomService, hub),
		}

		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("internal HTTP server error")
			}
		}()
		go cleanupRoutine(ctx, roomService, *roomTTL)

		log.Info().Str("addr", internalAddr).Msg("internal HTTP server started for MCP stdio")
		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info().Str("api", baseURL).Msg("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		log.Fatal().Err(err).Msg("MCP stdio server error")
	}
}
