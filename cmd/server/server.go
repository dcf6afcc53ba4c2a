package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hutchutchutch/learntrac/internal/domain"
)

// pathLister enumerates learning paths for the cohort refresh sweeper.
type pathLister interface {
	List(ctx context.Context) ([]*domain.Path, error)
}

// run starts the background task runner, the cohort refresh sweeper, and
// the HTTP server, then blocks until ctx is cancelled and everything has
// shut down.
func (app *application) run(ctx context.Context) error {
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}
	defer app.taskRunner.Stop()

	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		app.runCohortSweeper(ctx)
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:      app.setupRouter(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	app.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	<-sweeperDone
	return nil
}

// runCohortSweeper periodically submits a cohort refresh task per path, so
// cohort-wide aggregates stay fresh without blocking any request path.
func (app *application) runCohortSweeper(ctx context.Context) {
	interval := app.config.Task.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.sweepCohorts(ctx)
		}
	}
}

// sweepCohorts submits one cohort refresh task per learning path.
func (app *application) sweepCohorts(ctx context.Context) {
	paths, err := app.pathLister.List(ctx)
	if err != nil {
		app.logger.Error("cohort sweep failed to list paths", "error", err)
		return
	}

	for _, p := range paths {
		t, err := app.taskFactory.CreateTask(p.ID)
		if err != nil {
			app.logger.Error("failed to create cohort refresh task",
				"error", err, "path_id", p.ID)
			continue
		}
		if err := app.taskRunner.Submit(ctx, t); err != nil {
			app.logger.Warn("failed to submit cohort refresh task",
				"error", err, "path_id", p.ID)
		}
	}
}
