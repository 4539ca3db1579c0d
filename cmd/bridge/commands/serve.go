package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/localbridge-dev/localbridge/internal/approval"
	"github.com/localbridge-dev/localbridge/internal/audit"
	"github.com/localbridge-dev/localbridge/internal/config"
	"github.com/localbridge-dev/localbridge/internal/event"
	"github.com/localbridge-dev/localbridge/internal/file"
	"github.com/localbridge-dev/localbridge/internal/logging"
	"github.com/localbridge-dev/localbridge/internal/server"
	"github.com/localbridge-dev/localbridge/internal/workspace"
	"github.com/localbridge-dev/localbridge/pkg/types"
)

var (
	servePort  int
	serveHost  string
	serveRoots []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bridge daemon",
	Long: `Start the bridge HTTP server. The agent connects with the bearer
token printed at startup; the dashboard connects locally without one.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to listen on (overrides config)")
	serveCmd.Flags().StringSliceVar(&serveRoots, "root", nil, "Workspace root directory (repeatable, overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if serveHost != "" {
		cfg.Host = serveHost
	}
	if len(serveRoots) > 0 {
		cfg.WorkspaceRoots = serveRoots
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Pretty: prettyLogs,
	})
	log := logging.For("serve")

	resolver, err := workspace.NewResolver(cfg.WorkspaceRoots, cfg.DeniedExtensions)
	if err != nil {
		return err
	}

	bus := event.NewBus()
	defer bus.Close()

	approvals := approval.NewService(resolver, bus, approval.Config{
		DefaultTTL: cfg.DefaultTTL(),
		MaxTTL:     time.Duration(cfg.MaxTTLMinutes) * time.Minute,
		Notifier:   &logNotifier{},
	})
	ledger := audit.NewLedger(cfg.AuditCapacity)
	files := file.NewService(resolver, approvals, ledger, bus, cfg.MaxFileSizeMB)

	if cfg.WatchRoots {
		watcher, err := workspace.NewWatcher(resolver, bus)
		if err != nil {
			log.Warn().Err(err).Msg("workspace watcher unavailable")
		} else {
			defer watcher.Close()
		}
	}

	srv := server.New(cfg, resolver, approvals, files, ledger, bus)

	go func() {
		log.Info().
			Str("addr", cfg.Host).
			Int("port", cfg.Port).
			Strs("roots", resolver.Roots()).
			Msg("bridge listening")
		log.Info().Str("token", cfg.Token).Msg("agent bearer token")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// logNotifier is the default notification sink: it surfaces new requests on
// the daemon's own log. Dashboards get the same information over SSE.
type logNotifier struct{}

func (n *logNotifier) Notify(a *types.Approval) error {
	logging.Info().
		Str("approval", a.ID).
		Str("path", a.ResolvedPath).
		Str("scope", string(a.Scope)).
		Str("access", string(a.Access)).
		Str("reason", a.Reason).
		Msg("approval requested")
	return nil
}
