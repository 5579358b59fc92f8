package processor

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"airbnbdash/server/config"
	"airbnbdash/server/internal/database"
	"airbnbdash/server/internal/queue"
)

// Transactor is the part of *gorm.DB the processor needs.
type Transactor interface {
	Transaction(fc func(*gorm.DB) error, opts ...*sql.TxOptions) error
}

// Stats counts what the processor has written so far.
type Stats struct {
	Batches  int
	Listings int
	Failed   int
}

// BatchProcessor writes listing batches from the queue into the snapshot
// database, one transaction per batch.
type BatchProcessor struct {
	db     Transactor
	logger *logrus.Logger
	config *config.Config
	queue  *queue.ListingQueue
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	stats Stats
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(db Transactor, queue *queue.ListingQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		db:     db,
		queue:  queue,
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the queue and runs the configured number of
// consumers.
func (p *BatchProcessor) Start() {
	p.queue.Subscribe(p.processBatch)
	p.queue.Start(p.config.BatchProcessing.ProcessorCount)
}

// Stop drains the queue, then aborts any retry still waiting.
func (p *BatchProcessor) Stop() {
	_ = p.queue.Close()
	p.cancel()
}

// Stats returns a copy of the counters.
func (p *BatchProcessor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// processBatch handles a single batch with transaction and retry logic
func (p *BatchProcessor) processBatch(batch queue.Batch) error {
	attempts := p.config.BatchProcessing.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			p.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"of":      attempts,
				"offset":  batch.Offset,
			}).Info("Retrying batch")
			select {
			case <-time.After(delay):
			case <-p.ctx.Done():
				return p.fail(fmt.Errorf("batch at offset %d abandoned: %w", batch.Offset, p.ctx.Err()))
			}
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			if err := database.UpsertListings(tx, batch.Offset, batch.Listings); err != nil {
				return fmt.Errorf("failed to upsert listings batch: %w", err)
			}
			return nil
		})

		if err == nil {
			p.mu.Lock()
			p.stats.Batches++
			p.stats.Listings += len(batch.Listings)
			p.mu.Unlock()
			p.logger.WithFields(logrus.Fields{
				"offset":     batch.Offset,
				"batch_size": len(batch.Listings),
			}).Debug("Processed batch")
			return nil
		}

		p.logger.WithError(err).WithField("busy", database.IsBusy(err)).Warn("Batch processing failed")
	}

	return p.fail(fmt.Errorf("failed to process batch after %d attempts: %w", attempts, err))
}

func (p *BatchProcessor) fail(err error) error {
	p.mu.Lock()
	p.stats.Failed++
	p.mu.Unlock()
	return err
}
