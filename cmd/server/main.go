// Package main implements the entry point for the LearnTrac API server,
// which maintains the concept prerequisite graph and per-user learning
// progress analytics.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run a migration command (up, down, status) and exit")
	flag.Parse()

	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.close()

	if *migrateCmd != "" {
		if err := app.runMigrationCommand(*migrateCmd); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		return
	}

	if err := app.runMigrationCommand("up"); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
