package store

import (
	"math"
	"sort"

	"airbnbdash/server/internal/models"
)

// Store is an immutable, ordered snapshot of listings. It is built once per
// dataset load and only handed out as copies afterwards.
type Store struct {
	listings []models.Listing
	byID     map[int64]int
	skipped  int
}

// PriceBounds is the min/max price of the snapshot.
type PriceBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// New builds a store from the ingested rows. Rows breaking the snapshot
// invariants (duplicate id, negative price, availability outside 0..365,
// non-finite or out of range coordinates) are skipped, first occurrence of an
// id wins.
func New(listings []models.Listing) *Store {
	s := &Store{
		listings: make([]models.Listing, 0, len(listings)),
		byID:     make(map[int64]int, len(listings)),
	}

	for _, l := range listings {
		if !valid(&l) {
			s.skipped++
			continue
		}
		if _, dup := s.byID[l.ID]; dup {
			s.skipped++
			continue
		}
		s.byID[l.ID] = len(s.listings)
		s.listings = append(s.listings, l)
	}

	return s
}

func valid(l *models.Listing) bool {
	if l.Price < 0 || math.IsNaN(l.Price) || math.IsInf(l.Price, 0) {
		return false
	}
	if l.Availability365 < 0 || l.Availability365 > 365 {
		return false
	}
	if l.NumberOfReviews < 0 {
		return false
	}
	if math.IsNaN(l.Latitude) || math.IsNaN(l.Longitude) {
		return false
	}
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

// All returns a copy of every listing in snapshot order.
func (s *Store) All() []models.Listing {
	out := make([]models.Listing, len(s.listings))
	copy(out, s.listings)
	return out
}

// Len returns the number of listings kept.
func (s *Store) Len() int {
	return len(s.listings)
}

// Skipped returns how many input rows were rejected.
func (s *Store) Skipped() int {
	return s.skipped
}

// Get looks up a listing by id.
func (s *Store) Get(id int64) (models.Listing, bool) {
	i, ok := s.byID[id]
	if !ok {
		return models.Listing{}, false
	}
	return s.listings[i], true
}

// Neighbourhoods returns the sorted distinct neighbourhoods offered as
// facets. Blank values are left out.
func (s *Store) Neighbourhoods() []string {
	return s.distinct(neighbourhood, false)
}

// RoomTypes returns the sorted distinct room types offered as facets.
func (s *Store) RoomTypes() []string {
	return s.distinct(roomType, false)
}

// NeighbourhoodValues returns every distinct neighbourhood including the
// blank one, i.e. the selection that matches the whole snapshot.
func (s *Store) NeighbourhoodValues() []string {
	return s.distinct(neighbourhood, true)
}

// RoomTypeValues is NeighbourhoodValues for room types.
func (s *Store) RoomTypeValues() []string {
	return s.distinct(roomType, true)
}

func neighbourhood(l *models.Listing) string { return l.Neighbourhood }

func roomType(l *models.Listing) string { return l.RoomType }

func (s *Store) distinct(field func(*models.Listing) string, keepBlank bool) []string {
	seen := make(map[string]struct{})
	values := []string{}
	for i := range s.listings {
		v := field(&s.listings[i])
		if v == "" && !keepBlank {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// PriceBounds returns the price range of the snapshot, zero for an empty one.
func (s *Store) PriceBounds() PriceBounds {
	if len(s.listings) == 0 {
		return PriceBounds{}
	}

	b := PriceBounds{Min: s.listings[0].Price, Max: s.listings[0].Price}
	for _, l := range s.listings[1:] {
		if l.Price < b.Min {
			b.Min = l.Price
		}
		if l.Price > b.Max {
			b.Max = l.Price
		}
	}
	return b
}
