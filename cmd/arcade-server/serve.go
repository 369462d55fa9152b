package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/arcade-online/internal/config"
	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/lobby"
	"github.com/vovakirdan/arcade-online/internal/protocol"
	"github.com/vovakirdan/arcade-online/internal/server"
	"github.com/vovakirdan/arcade-online/internal/session"
	"github.com/vovakirdan/arcade-online/internal/storage"
)

var (
	flagListen     string
	flagConfigPath string
	flagDBPath     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the arcade game server",
	Long: `Start the websocket game server.

Clients connect to ws://<addr>/ws, claim a client id and join or create
lobbies. Configuration is read from --config (or ./configs/server.yaml),
with --listen and ARCADE_LISTEN_ADDR taking precedence for the address.

Examples:
  arcade-server serve
  arcade-server serve --listen :9000
  arcade-server serve --db ./matches.db`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "Listen address (host:port), overrides config")
	serveCmd.Flags().StringVar(&flagConfigPath, "config", "", "Path to server config file")
	serveCmd.Flags().StringVar(&flagDBPath, "db", "", "Path to match database, overrides config")
}

func runServe(_ *cobra.Command, _ []string) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "arcade",
	})

	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return err
	}
	if flagListen != "" {
		cfg.ListenAddr = flagListen
	}
	if flagDBPath != "" {
		cfg.DBPath = flagDBPath
	}

	broadcaster := session.NewBroadcaster(cfg.QueueSize, logger)
	lobbies := lobby.NewManager()

	var saver session.MatchResultSaver
	if cfg.DBPath != "" {
		store, err := storage.Open(cfg.DBPath)
		if err != nil {
			logger.Warn("could not open match database, persistence disabled", "error", err)
		} else {
			defer store.Close()
			saver = store
		}
	}

	sessions := session.NewManager(broadcaster, lobbies, logger, saver)
	handler := server.NewHandler(lobbies, sessions, broadcaster, logger)
	srv := server.NewServer(cfg.ListenAddr, handler, logger)

	stopSweep := startLobbySweep(cfg, lobbies, broadcaster, logger)
	defer close(stopSweep)

	// Graceful shutdown: tell clients, stop sessions, close the listener.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig)
		broadcaster.BroadcastToAll(protocol.ServerMessage{Shutdown: &struct{}{}})
		sessions.Shutdown()
		srv.Close()
	}()

	logger.Info("arcade server starting",
		"addr", cfg.ListenAddr, "engine_version", core.EngineVersion)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// startLobbySweep harvests idle never-started lobbies when a timeout is
// configured.
func startLobbySweep(cfg config.ServerConfig, lobbies *lobby.Manager, broadcaster *session.Broadcaster, logger *log.Logger) chan struct{} {
	stop := make(chan struct{})

	if cfg.LobbyIdleTimeout() <= 0 {
		return stop
	}

	go func() {
		ticker := time.NewTicker(cfg.LobbySweepPeriod())
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				for id, members := range lobbies.SweepIdleLobbies(cfg.LobbyIdleTimeout()) {
					logger.Info("closed idle lobby", "lobby", id, "members", len(members))
					broadcaster.BroadcastToClients(members, protocol.ServerMessage{
						LobbyClosed: &protocol.LobbyClosedNotification{Message: "lobby closed after inactivity"},
					})
				}
			}
		}
	}()

	return stop
}
