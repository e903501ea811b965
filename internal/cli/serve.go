package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ogulcanaydogan/Expiry-Guardian/internal/config"
	"github.com/ogulcanaydogan/Expiry-Guardian/internal/server"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/scanner"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the sweep scheduler",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if noSchedule, _ := cmd.Flags().GetBool("no-schedule"); noSchedule {
			cfg.Scanner.Enabled = false
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return Serve(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("no-schedule", false, "Serve the API without running scheduled sweeps")
}

// Serve runs the API server and, when enabled, the sweep scheduler until
// ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config) error {
	logger := NewLogger(cfg)

	a, err := initApp(cfg, logger)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	apiServer := server.NewServer(a.store, a.ledger, a.triggers, a.scanner, logger)
	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var sched *scanner.Scheduler
	if cfg.Scanner.Enabled {
		sched, err = scanner.NewScheduler(a.scanner, cfg.Scanner.Interval, logger)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("guardian started", "listen", cfg.Server.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if sched != nil {
		g.Go(func() error {
			return sched.Run(gctx)
		})
	}

	return g.Wait()
}
