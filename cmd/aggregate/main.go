// Command aggregate performs a single aggregation run, writes the workbook
// and optionally submits the collection to the flight store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"flight-aggregator-service/internal/app"
	"flight-aggregator-service/internal/domain/entity"
	"flight-aggregator-service/internal/infrastructure/config"
	"flight-aggregator-service/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	fOut     = flag.String("out", entity.ExportFileName, "path of the workbook to write")
	fPersist = flag.Bool("persist", false, "submit the collection to PERSIST_ENDPOINT after the run")
	fDate    = flag.String("date", "", "flight date (YYYY-MM-DD); overrides FLIGHT_DATE")
	fPolicy  = flag.String("policy", "", "failure policy (abort|partial); overrides FAILURE_POLICY")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "aggregate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if *fDate != "" {
		cfg.FlightDate = *fDate
	}
	if *fPolicy != "" {
		cfg.FailurePolicy = entity.FailurePolicy(*fPolicy)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer application.Close(context.Background())

	result, err := application.Session.Run(ctx)
	if err != nil {
		return fmt.Errorf("aggregation failed: %w", err)
	}
	for _, f := range result.Failures {
		log.Warn("Target skipped", "target", f.Target, "error", f.Error)
	}
	log.Info("Aggregation finished",
		"runId", result.ID,
		"fetched", result.Fetched,
		"accepted", result.Accepted,
		"rejected", result.Rejected)

	if result.Accepted == 0 {
		fmt.Println("No flight data available.")
		return nil
	}

	if err := writeWorkbook(ctx, application, *fOut); err != nil {
		return err
	}

	if *fPersist {
		n, err := application.Persister.Persist(ctx)
		if err != nil {
			return err
		}
		log.Info("Collection persisted", "count", n)
	}

	return nil
}

func writeWorkbook(ctx context.Context, application *app.App, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	rows, err := application.Exporter.Export(ctx, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return err
	}

	fmt.Printf("Wrote %d flights to %s\n", rows, path)
	return nil
}
