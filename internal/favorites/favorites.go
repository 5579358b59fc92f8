package favorites

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"airbnbdash/server/internal/models"
)

// Entry is the snapshot of a listing taken when it was favorited. Later
// changes to the snapshot don't touch it.
type Entry struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Neighbourhood   string    `json:"neighbourhood"`
	RoomType        string    `json:"room_type"`
	Price           float64   `json:"price"`
	Availability365 int       `json:"availability_365"`
	NumberOfReviews int       `json:"number_of_reviews"`
	ListingURL      string    `json:"listing_url,omitempty"`
	AddedAt         time.Time `json:"added_at"`
}

var csvHeader = []string{
	"id", "name", "neighbourhood", "room_type", "price",
	"availability_365", "number_of_reviews", "listing_url", "added_at",
}

// Store is an ordered, ID-unique shortlist of listings. It is safe for
// concurrent use.
type Store struct {
	mu          sync.RWMutex
	initialized bool
	entries     []Entry
	index       map[int64]int
	now         func() time.Time
}

// NewStore creates an uninitialised store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// EnsureInitialized creates the empty collection if it doesn't exist yet.
// Calling it again leaves existing entries untouched.
func (s *Store) EnsureInitialized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()
}

func (s *Store) ensureLocked() {
	if s.initialized {
		return
	}
	s.entries = []Entry{}
	s.index = make(map[int64]int)
	s.initialized = true
}

// Add appends a snapshot of the listing unless one with the same ID is
// already present. It returns true if the listing was newly added.
func (s *Store) Add(listing models.Listing) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()

	if _, exists := s.index[listing.ID]; exists {
		return false
	}
	s.index[listing.ID] = len(s.entries)
	s.entries = append(s.entries, Entry{
		ID:              listing.ID,
		Name:            listing.Name,
		Neighbourhood:   listing.Neighbourhood,
		RoomType:        listing.RoomType,
		Price:           listing.Price,
		Availability365: listing.Availability365,
		NumberOfReviews: listing.NumberOfReviews,
		ListingURL:      listing.ListingURL,
		AddedAt:         s.now(),
	})
	return true
}

// Remove drops the entry with the given ID, keeping the order of the rest.
func (s *Store) Remove(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, exists := s.index[id]
	if !exists {
		return false
	}
	s.entries = append(s.entries[:pos], s.entries[pos+1:]...)
	delete(s.index, id)
	for i := pos; i < len(s.entries); i++ {
		s.index[s.entries[i].ID] = i
	}
	return true
}

// Contains reports whether a listing with the ID is in the shortlist.
func (s *Store) Contains(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.index[id]
	return exists
}

// List returns the entries in insertion order.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// WriteCSV writes the shortlist with a header row.
func (s *Store) WriteCSV(w io.Writer) error {
	entries := s.List()

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("favorites: write header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			strconv.FormatInt(e.ID, 10),
			e.Name,
			e.Neighbourhood,
			e.RoomType,
			strconv.FormatFloat(e.Price, 'f', -1, 64),
			strconv.Itoa(e.Availability365),
			strconv.Itoa(e.NumberOfReviews),
			e.ListingURL,
			e.AddedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("favorites: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
