package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"airbnbdash/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Batch is a slice of consecutive dataset rows. Offset is the position of
// the first row in the source file.
type Batch struct {
	Offset   int
	Listings []models.Listing
}

// ListingQueue represents an in-memory queue for listing batches
type ListingQueue struct {
	items   chan Batch
	maxSize int
	closed  bool
	mu      sync.RWMutex
	logger  *logrus.Logger

	handlersMu sync.RWMutex
	handlers   []func(Batch) error

	workers sync.WaitGroup
}

// NewListingQueue creates a new listing queue with the specified buffer size
func NewListingQueue(bufferSize int, logger *logrus.Logger) *ListingQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &ListingQueue{
		items:    make(chan Batch, bufferSize),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func(Batch) error, 0),
	}
}

// Push adds a batch without blocking.
func (q *ListingQueue) Push(batch Batch) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	// Non-blocking send to prevent deadlocks
	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch.Listings)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// PushWait adds a batch, waiting for room until ctx is done.
func (q *ListingQueue) PushWait(ctx context.Context, batch Batch) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch.Listings)).Debug("Pushed batch to queue")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe adds a handler function that will be called for each batch
func (q *ListingQueue) Subscribe(handler func(Batch) error) {
	q.handlersMu.Lock()
	defer q.handlersMu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start runs the given number of consumers. Batches are handed to them in
// push order but may complete out of order when workers > 1.
func (q *ListingQueue) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.workers.Add(1)
		go q.process()
	}
}

func (q *ListingQueue) process() {
	defer q.workers.Done()
	for batch := range q.items {
		q.processBatch(batch)
	}
}

// processBatch sends the batch to all subscribed handlers
func (q *ListingQueue) processBatch(batch Batch) {
	q.handlersMu.RLock()
	handlers := q.handlers
	q.handlersMu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).WithField("offset", batch.Offset).Error("Handler failed to process batch")
		}
	}
}

// Close rejects new batches and waits for the started consumers to drain
// what is already queued.
func (q *ListingQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.items)
	q.mu.Unlock()

	q.workers.Wait()
	return nil
}

// Len returns the current number of batches in the queue
func (q *ListingQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *ListingQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Split cuts listings into consecutive batches of at most size rows.
func Split(listings []models.Listing, size int) []Batch {
	if size < 1 {
		size = 1
	}
	batches := make([]Batch, 0, (len(listings)+size-1)/size)
	for start := 0; start < len(listings); start += size {
		end := start + size
		if end > len(listings) {
			end = len(listings)
		}
		batches = append(batches, Batch{Offset: start, Listings: listings[start:end]})
	}
	return batches
}
