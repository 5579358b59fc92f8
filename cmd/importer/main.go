package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"airbnbdash/server/config"
	"airbnbdash/server/internal/database"
	"airbnbdash/server/internal/ingest"
	"airbnbdash/server/internal/logging"
	"airbnbdash/server/internal/processor"
	"airbnbdash/server/internal/queue"
)

func main() {
	file := flag.String("file", "", "Path to the listings CSV (.csv or .csv.gz) to import")
	dbPath := flag.String("db", "", "SQLite database path (defaults to DB_PATH)")
	flag.Parse()

	if *file == "" {
		fmt.Println("Error: --file flag is required")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	logger := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	log := logging.Component(logger, "importer")

	if err := run(cfg, *file, logger); err != nil {
		log.WithError(err).Fatal("Import failed")
	}
}

func run(cfg *config.Config, file string, logger *logrus.Logger) error {
	log := logging.Component(logger, "importer")
	start := time.Now()

	res, err := ingest.LoadFile(file, ingest.Options{PriceCap: cfg.Ingest.PriceCap})
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"file":    file,
		"parsed":  len(res.Listings),
		"dropped": res.Dropped,
	}).Info("Parsed dataset")

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := database.NewDatabase(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		return err
	}
	// one snapshot at a time, rows of the previous import must not survive
	if err := db.ResetListings(); err != nil {
		return err
	}

	listingQueue := queue.NewListingQueue(cfg.BatchProcessing.QueueSize, logger)
	batchProcessor := processor.NewBatchProcessor(db.GetDB(), listingQueue, cfg, logger)
	batchProcessor.Start()

	for _, batch := range queue.Split(res.Listings, cfg.BatchProcessing.MaxBatchSize) {
		if err := listingQueue.PushWait(context.Background(), batch); err != nil {
			batchProcessor.Stop()
			return fmt.Errorf("failed to queue batch at offset %d: %w", batch.Offset, err)
		}
	}
	batchProcessor.Stop()

	stats := batchProcessor.Stats()
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d batches failed", stats.Failed, stats.Failed+stats.Batches)
	}

	count, err := db.Count()
	if err != nil {
		return fmt.Errorf("failed to count listings: %w", err)
	}

	log.WithFields(logrus.Fields{
		"written":  stats.Listings,
		"batches":  stats.Batches,
		"in_db":    count,
		"duration": time.Since(start).String(),
	}).Info("Import finished")
	return nil
}
