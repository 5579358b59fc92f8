package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"airbnbdash/server/config"
	"airbnbdash/server/internal/api"
	"airbnbdash/server/internal/classify"
	"airbnbdash/server/internal/database"
	"airbnbdash/server/internal/ingest"
	"airbnbdash/server/internal/logging"
	"airbnbdash/server/internal/metrics"
	"airbnbdash/server/internal/models"
	"airbnbdash/server/internal/session"
	"airbnbdash/server/internal/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})

	if cfg.CitiesFile != "" {
		if err := config.LoadCities(cfg.CitiesFile); err != nil {
			logger.WithError(err).Fatal("Failed to load cities")
		}
	}

	listings, err := loadSnapshot(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load listings")
	}
	snapshot := store.New(listings)
	logger.WithFields(logrus.Fields{
		"listings": snapshot.Len(),
		"skipped":  snapshot.Skipped(),
	}).Info("Listing snapshot ready")

	sessions := session.NewManager(cfg.Sessions.TTL, cfg.Sessions.SweepInterval, logger)
	sessions.Start()
	defer sessions.Stop()

	serverMetrics := metrics.New()
	serverMetrics.SetSnapshot(snapshot.Len(), snapshot.Skipped())
	serverMetrics.TrackSessions(sessions.Len)

	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := api.NewHandler(snapshot, sessions, api.Options{
		GoodDeals:  classify.GoodDealOptions{UseBookingCriterion: cfg.Classification.UseBookingCriterion},
		ZThreshold: &cfg.Classification.ZThreshold,
		Metrics:    serverMetrics,
	}, logger)
	router := api.NewRouter(handler, cfg.CORSOrigins)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
}

// loadSnapshot reads the dataset file when one is configured, otherwise the
// SQLite snapshot written by the importer.
func loadSnapshot(cfg *config.Config, logger *logrus.Logger) ([]models.Listing, error) {
	if cfg.DatasetPath != "" {
		logger.Infof("Loading listings from %s", cfg.DatasetPath)
		res, err := ingest.LoadFile(cfg.DatasetPath, ingest.Options{PriceCap: cfg.Ingest.PriceCap})
		if err != nil {
			return nil, err
		}
		logger.WithField("dropped", res.Dropped).Info("Dataset cleaned")
		return res.Listings, nil
	}

	logger.Infof("Using database at: %s", cfg.DBPath)
	db, err := database.NewDatabase(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		return nil, err
	}
	return db.LoadListings()
}
