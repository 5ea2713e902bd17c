package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/turnono/sim/internal/config"
	"github.com/turnono/sim/internal/event"
	"github.com/turnono/sim/internal/logging"
	"github.com/turnono/sim/internal/memory"
	"github.com/turnono/sim/internal/migrate"
	"github.com/turnono/sim/internal/server"
	"github.com/turnono/sim/internal/session"
	"github.com/turnono/sim/internal/sessionstore"
	"github.com/turnono/sim/internal/storage"
	"github.com/turnono/sim/internal/tools"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sim-guide HTTP server",
	Long: `Start the session engine as an HTTP server: session bootstrap,
reminder and preference tools, summaries and memory recall.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(directory)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logging.Init(logging.Config{Level: logging.ParseLevel(cfg.LogLevel), Pretty: true})

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = paths.StoragePath()
	}

	store := sessionstore.NewFileStore(storage.New(dataDir))
	registry := migrate.New(cfg.ProfileDefaults(), cfg.SystemDefaults())
	bus := event.NewBus()
	defer bus.Close()

	mem, err := memory.NewService(cfg.Memory)
	if err != nil {
		return err
	}
	promoter := memory.NewPromoter(mem, bus)
	defer promoter.Stop()

	sessions := session.NewService(cfg, store, registry, bus)

	serverConfig := server.DefaultConfig()
	serverConfig.Port = cfg.Port
	if servePort != 0 {
		serverConfig.Port = servePort
	}

	srv := server.New(serverConfig, cfg, sessions, tools.NewRegistry(), mem, bus, nil)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logging.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
