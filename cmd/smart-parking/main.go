package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smart-parking/internal/config"
	"smart-parking/internal/parking"
	"smart-parking/internal/server"
	"smart-parking/internal/store"
)

var (
	mode    = flag.String("mode", "cli", "Mode to run: cli, server, or both")
	port    = flag.Int("port", 0, "Port for HTTP server (overrides PARKING_PORT)")
	envFile = flag.String("env", ".env", "Path to optional .env file")
	lotFile = flag.String("lot-config", "", "Path to optional lot TOML file")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadWithFile(*envFile, *lotFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryProvider, err := parking.NewTelemetryProvider()
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	snapshotStore, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open snapshot store: %v", err)
	}
	defer func() {
		if err := snapshotStore.Close(); err != nil {
			log.Printf("Error closing snapshot store: %v", err)
		}
	}()

	service := parking.NewService(serviceConfig(cfg), snapshotStore)

	snapshot, err := snapshotStore.Load()
	if err != nil {
		log.Printf("Could not load stored snapshot, starting empty: %v", err)
	} else if snapshot != nil {
		service.Restore(snapshot)
		log.Printf("Restored %d active sessions from store", len(snapshot.ActiveSessions))
	}

	instrumented, err := parking.NewInstrumentedService(service, telemetryProvider)
	if err != nil {
		log.Fatalf("Failed to instrument service: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	switch *mode {
	case "cli":
		runCLI(ctx, cancel, instrumented, telemetryProvider, sigChan)
	case "server":
		runServer(ctx, cancel, cfg.Port, instrumented, telemetryProvider, sigChan)
	case "both":
		runBoth(ctx, cancel, cfg.Port, instrumented, telemetryProvider, sigChan)
	default:
		log.Fatalf("Invalid mode: %s. Must be cli, server, or both", *mode)
	}

	if err := service.Flush(); err != nil {
		log.Printf("Error flushing state: %v", err)
	}
}

// serviceConfig translates file-level lot settings into the service's
// typed configuration. Categories missing from the file keep their
// defaults.
func serviceConfig(cfg *config.Config) parking.Config {
	out := parking.DefaultConfig()

	for name, capacity := range cfg.Lot.Capacities {
		category, err := parking.ParseCategory(name)
		if err != nil {
			log.Printf("Ignoring capacity for unknown category %q", name)
			continue
		}
		out.Capacities[category] = capacity
	}

	for name, rate := range cfg.Lot.Rates {
		category, err := parking.ParseCategory(name)
		if err != nil {
			log.Printf("Ignoring rate for unknown category %q", name)
			continue
		}
		entry := out.Rates[category]
		entry.HourlyRate = rate
		out.Rates[category] = entry
	}

	if cfg.Lot.IncrementMinutes > 0 {
		for category, entry := range out.Rates {
			entry.IncrementMinutes = cfg.Lot.IncrementMinutes
			out.Rates[category] = entry
		}
	}

	if cfg.Lot.PlatePattern != "" {
		validator, err := parking.PlateValidatorFromPattern(cfg.Lot.PlatePattern)
		if err != nil {
			log.Fatalf("Invalid plate pattern %q: %v", cfg.Lot.PlatePattern, err)
		}
		out.Validator = validator
	}

	return out
}

func runCLI(ctx context.Context, cancel context.CancelFunc, service *parking.InstrumentedService, telemetryProvider *parking.TelemetryProvider, sigChan chan os.Signal) {
	go func() {
		<-sigChan
		log.Println("Shutting down...")
		cancel()
	}()

	shell := parking.NewShell(service, telemetryProvider)
	shell.Run(ctx)

	shutdownTelemetry(telemetryProvider)
}

func runServer(ctx context.Context, cancel context.CancelFunc, port int, service *parking.InstrumentedService, telemetryProvider *parking.TelemetryProvider, sigChan chan os.Signal) {
	srv := server.NewServer(port, service)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}

		cancel()
	}()

	log.Printf("Starting server mode on port %d", port)
	if err := srv.Start(); err != nil && err != context.Canceled {
		log.Printf("Server error: %v", err)
	}

	shutdownTelemetry(telemetryProvider)
}

func runBoth(ctx context.Context, cancel context.CancelFunc, port int, service *parking.InstrumentedService, telemetryProvider *parking.TelemetryProvider, sigChan chan os.Signal) {
	srv := server.NewServer(port, service)

	serverDone := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on port %d", port)
		serverDone <- srv.Start()
	}()

	cliDone := make(chan bool, 1)
	go func() {
		shell := parking.NewShell(service, telemetryProvider)
		shell.Run(ctx)
		cliDone <- true
	}()

	go func() {
		<-sigChan
		log.Println("Received shutdown signal...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}

		cancel()
	}()

	select {
	case err := <-serverDone:
		if err != nil && err != context.Canceled {
			log.Printf("Server error: %v", err)
		}
	case <-cliDone:
		log.Println("CLI exited")
	case <-ctx.Done():
		log.Println("Context cancelled")
	}

	shutdownTelemetry(telemetryProvider)
}

func shutdownTelemetry(telemetryProvider *parking.TelemetryProvider) {
	log.Println("Shutting down telemetry...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := telemetryProvider.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down telemetry: %v", err)
	}
}
