package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/s0up4200/bazarrwatch/coordinator"
	"github.com/s0up4200/bazarrwatch/entity"
	"github.com/s0up4200/bazarrwatch/entry"
	"github.com/s0up4200/bazarrwatch/metrics"
	"github.com/s0up4200/bazarrwatch/scheduler"
	"github.com/s0up4200/bazarrwatch/server"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll a configured Bazarr instance until interrupted",
	Long: `Start polling the selected entry and serve its sensors over HTTP.

Polling waits for a valid API key. If Bazarr rejects the stored key, submit a
new one with POST /api/reauth and polling resumes without a restart.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&entryID, "entry", "", "entry ID (optional when only one entry exists)")
}

func runRun(cmd *cobra.Command, args []string) error {
	rule, err := entity.CompileProblemRule(cfg.Entities.ProblemExpression)
	if err != nil {
		return fmt.Errorf("invalid entities.problem_expression: %w", err)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	e, err := store.Resolve(entryID)
	if err != nil {
		return err
	}

	log := logger.With().Str("entry", e.ID).Logger()
	client := newBazarrClient()

	coord := coordinator.New(client, e.ConnectionConfig(), log,
		coordinator.WithObserver(metrics.Observer{}),
	)
	defer coord.Shutdown()

	registry := entity.NewRegistry(e.ID, e.URL, coord, rule, log)
	defer registry.Close()

	sup := scheduler.New("bazarrwatch", log, scheduler.Config{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
	})

	sup.Schedule("bazarr-refresh", cfg.Refresh.Interval, scheduler.Job{
		Prepare:    coord.AwaitReady,
		Task:       coord.Refresh,
		RetryDelay: cfg.Refresh.SetupRetry,
	})

	if cfg.Server.Enabled {
		flow := entry.NewFlow(store, client, log)
		srv := server.New(server.Config{Listen: cfg.Server.Listen}, e.ID, coord, registry, flow, metrics.Handler(), log)
		sup.Add(srv)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("title", e.Title).
		Str("url", e.URL).
		Dur("interval", cfg.Refresh.Interval).
		Bool("server", cfg.Server.Enabled).
		Msg("Starting bazarrwatch")

	err = sup.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor stopped: %w", err)
	}

	log.Info().Msg("Stopped gracefully")
	return nil
}
