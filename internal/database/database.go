package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"airbnbdash/server/internal/models"
)

// listingRecord is the persisted form of a listing. Seq keeps the order
// of the dataset the snapshot was imported from.
type listingRecord struct {
	ID                          int64 `gorm:"primaryKey;autoIncrement:false"`
	Seq                         int64 `gorm:"index"`
	Name                        string
	HostID                      int64
	HostName                    string
	Neighbourhood               string `gorm:"index"`
	RoomType                    string
	Price                       float64
	Latitude                    float64
	Longitude                   float64
	MinimumNights               int
	NumberOfReviews             int
	LastReview                  *time.Time
	ReviewsPerMonth             *float64
	CalculatedHostListingsCount int
	Availability365             int
	ListingURL                  string
	TotalBooked6M               *int `gorm:"column:total_booked_6m"`
	UpdatedAt                   time.Time
}

func (listingRecord) TableName() string {
	return "listings"
}

func toRecord(seq int64, l *models.Listing) listingRecord {
	return listingRecord{
		ID:                          l.ID,
		Seq:                         seq,
		Name:                        l.Name,
		HostID:                      l.HostID,
		HostName:                    l.HostName,
		Neighbourhood:               l.Neighbourhood,
		RoomType:                    l.RoomType,
		Price:                       l.Price,
		Latitude:                    l.Latitude,
		Longitude:                   l.Longitude,
		MinimumNights:               l.MinimumNights,
		NumberOfReviews:             l.NumberOfReviews,
		LastReview:                  l.LastReview,
		ReviewsPerMonth:             l.ReviewsPerMonth,
		CalculatedHostListingsCount: l.CalculatedHostListingsCount,
		Availability365:             l.Availability365,
		ListingURL:                  l.ListingURL,
		TotalBooked6M:               l.TotalBooked6M,
	}
}

func (r *listingRecord) toListing() models.Listing {
	return models.Listing{
		ID:                          r.ID,
		Name:                        r.Name,
		HostID:                      r.HostID,
		HostName:                    r.HostName,
		Neighbourhood:               r.Neighbourhood,
		RoomType:                    r.RoomType,
		Price:                       r.Price,
		Latitude:                    r.Latitude,
		Longitude:                   r.Longitude,
		MinimumNights:               r.MinimumNights,
		NumberOfReviews:             r.NumberOfReviews,
		LastReview:                  r.LastReview,
		ReviewsPerMonth:             r.ReviewsPerMonth,
		CalculatedHostListingsCount: r.CalculatedHostListingsCount,
		Availability365:             r.Availability365,
		ListingURL:                  r.ListingURL,
		TotalBooked6M:               r.TotalBooked6M,
	}
}

type Database struct {
	db *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	// Concurrent processors share the file, every pooled connection needs
	// the busy timeout and must take the write lock up front.
	dsn := dbPath + "?_busy_timeout=5000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{db: db}, nil
}

// NewTestDB opens a private in-memory database.
func NewTestDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// every pooled connection would get its own empty :memory: database
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertListings writes a batch inside tx. offset is the position of the
// first listing in the imported dataset.
func UpsertListings(tx *gorm.DB, offset int, batch []models.Listing) error {
	if len(batch) == 0 {
		return nil
	}

	records := make([]listingRecord, len(batch))
	for i := range batch {
		records[i] = toRecord(int64(offset+i), &batch[i])
	}

	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).CreateInBatches(records, 500).Error
}

// ClearListings removes every stored listing inside tx.
func ClearListings(tx *gorm.DB) error {
	if err := tx.Exec("DELETE FROM listings").Error; err != nil {
		return fmt.Errorf("failed to clear listings: %w", err)
	}
	return nil
}

// ResetListings empties the snapshot so the next import replaces it
// instead of merging into it.
func (d *Database) ResetListings() error {
	return d.db.Transaction(ClearListings)
}

// LoadListings returns the snapshot in dataset order.
func (d *Database) LoadListings() ([]models.Listing, error) {
	var records []listingRecord
	if err := d.db.Order("seq, id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}

	listings := make([]models.Listing, len(records))
	for i := range records {
		listings[i] = records[i].toListing()
	}
	return listings, nil
}

func (d *Database) Count() (int64, error) {
	var n int64
	err := d.db.Model(&listingRecord{}).Count(&n).Error
	return n, err
}

// IsBusy reports whether err is SQLite refusing a write because another
// connection holds the lock. Such failures are worth retrying.
func IsBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
