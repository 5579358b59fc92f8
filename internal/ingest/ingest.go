package ingest

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"airbnbdash/server/internal/models"
)

var ErrMissingColumn = errors.New("missing required column")

// DefaultPriceCap excludes the outlier nightly prices found in the raw dumps.
const DefaultPriceCap = 1000.0

// Options tunes the cleaning applied while reading.
type Options struct {
	// PriceCap drops rows priced at or above it. Zero or less keeps all.
	PriceCap float64
}

// Result holds the cleaned listings and how many rows were dropped.
type Result struct {
	Listings []models.Listing
	Dropped  int
}

var neighbourhoodColumns = []string{"neighbourhood_cleansed", "neighbourhood"}

var requiredColumns = []string{"id", "latitude", "longitude", "price"}

// LoadFile reads a listings dump from disk. Files ending in .gz are
// decompressed on the fly.
func LoadFile(path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %q: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("ingest: gzip %q: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	return Read(r, opts)
}

// Read parses and cleans a listings CSV with a header row.
func Read(r io.Reader, opts Options) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("ingest: read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("ingest: %w: %s", ErrMissingColumn, name)
		}
	}
	neighbourhoodCol := ""
	for _, name := range neighbourhoodColumns {
		if _, ok := cols[name]; ok {
			neighbourhoodCol = name
			break
		}
	}
	if neighbourhoodCol == "" {
		return nil, fmt.Errorf("ingest: %w: %s", ErrMissingColumn, strings.Join(neighbourhoodColumns, " or "))
	}

	res := &Result{Listings: []models.Listing{}}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: read record: %w", err)
		}

		listing, ok := row{cols: cols, record: record}.listing(neighbourhoodCol)
		if !ok || (opts.PriceCap > 0 && listing.Price >= opts.PriceCap) {
			res.Dropped++
			continue
		}
		res.Listings = append(res.Listings, listing)
	}

	return res, nil
}

type row struct {
	cols   map[string]int
	record []string
}

func (r row) get(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r row) float(name string) (float64, bool) {
	s := r.get(name)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// integer accepts "12" as well as "12.0" the way dataframe exports write
// integer columns that had gaps.
func (r row) integer(name string) (int64, bool) {
	s := r.get(name)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, ok := r.float(name)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func (r row) listing(neighbourhoodCol string) (models.Listing, bool) {
	id, ok := r.integer("id")
	if !ok {
		return models.Listing{}, false
	}
	lat, ok := r.float("latitude")
	if !ok {
		return models.Listing{}, false
	}
	lng, ok := r.float("longitude")
	if !ok {
		return models.Listing{}, false
	}
	price, ok := ParsePrice(r.get("price"))
	if !ok {
		return models.Listing{}, false
	}

	l := models.Listing{
		ID:            id,
		Name:          r.get("name"),
		HostName:      r.get("host_name"),
		Neighbourhood: r.get(neighbourhoodCol),
		RoomType:      r.get("room_type"),
		Price:         price,
		Latitude:      lat,
		Longitude:     lng,
		ListingURL:    r.get("listing_url"),
	}
	if v, ok := r.integer("host_id"); ok {
		l.HostID = v
	}
	if v, ok := r.integer("minimum_nights"); ok {
		l.MinimumNights = int(v)
	}
	if v, ok := r.integer("number_of_reviews"); ok {
		l.NumberOfReviews = int(v)
	}
	if v, ok := r.integer("calculated_host_listings_count"); ok {
		l.CalculatedHostListingsCount = int(v)
	}
	if v, ok := r.integer("availability_365"); ok {
		l.Availability365 = int(v)
	}
	if v, ok := r.float("reviews_per_month"); ok {
		l.ReviewsPerMonth = &v
	}
	if v, ok := r.integer("total_booked_6m"); ok {
		n := int(v)
		l.TotalBooked6M = &n
	}
	if t, ok := parseDate(r.get("last_review")); ok {
		l.LastReview = &t
	}
	return l, true
}

// ParsePrice reads a price such as "$1,250.00". ok is false for empty or
// unparsable input.
func ParsePrice(s string) (float64, bool) {
	s = strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
