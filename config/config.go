package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string `env:"PORT" envDefault:"5250"`

	// DatasetPath points at a listings CSV (optionally .gz). When empty the
	// server reads the SQLite snapshot written by the importer.
	DatasetPath string `env:"DATASET_PATH"`
	DBPath      string `env:"DB_PATH" envDefault:"database/listings.db"`
	CitiesFile  string `env:"CITIES_FILE"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"7"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	Ingest struct {
		// Rows priced at or above the cap are dropped. 0 disables it.
		PriceCap float64 `env:"INGEST_PRICE_CAP" envDefault:"1000"`
	}

	Sessions struct {
		TTL           time.Duration `env:"SESSION_TTL" envDefault:"30m"`
		SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	}

	Classification struct {
		UseBookingCriterion bool    `env:"GOOD_DEAL_USE_BOOKINGS" envDefault:"false"`
		ZThreshold          float64 `env:"ANOMALY_Z_THRESHOLD" envDefault:"2.0"`
	}

	// BatchProcessing configuration
	BatchProcessing struct {
		// Maximum number of listings per batch pushed to the queue
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"500"`

		// Number of batches the queue buffers
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"16"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"1"`
	}
}

// LoadConfig reads a .env file if present, then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if z := c.Classification.ZThreshold; math.IsNaN(z) || math.IsInf(z, 0) {
		return fmt.Errorf("ANOMALY_Z_THRESHOLD must be finite, got %v", z)
	}
	if c.BatchProcessing.MaxBatchSize <= 0 {
		return fmt.Errorf("BATCH_MAX_SIZE must be positive, got %d", c.BatchProcessing.MaxBatchSize)
	}
	if c.BatchProcessing.MaxRetries < 0 {
		return fmt.Errorf("BATCH_MAX_RETRIES must not be negative, got %d", c.BatchProcessing.MaxRetries)
	}
	return nil
}
