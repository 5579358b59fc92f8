package models

import "time"

type Listing struct {
	ID                          int64      `json:"id"`
	Name                        string     `json:"name"`
	HostID                      int64      `json:"host_id"`
	HostName                    string     `json:"host_name"`
	Neighbourhood               string     `json:"neighbourhood"`
	RoomType                    string     `json:"room_type"`
	Price                       float64    `json:"price"`
	Latitude                    float64    `json:"latitude"`
	Longitude                   float64    `json:"longitude"`
	MinimumNights               int        `json:"minimum_nights"`
	NumberOfReviews             int        `json:"number_of_reviews"`
	LastReview                  *time.Time `json:"last_review"`
	ReviewsPerMonth             *float64   `json:"reviews_per_month"`
	CalculatedHostListingsCount int        `json:"calculated_host_listings_count"`
	Availability365             int        `json:"availability_365"`
	ListingURL                  string     `json:"listing_url"`
	// TotalBooked6M is an enrichment column that only some snapshots carry.
	TotalBooked6M *int `json:"total_booked_6m,omitempty"`
}

// LatLng is a single map coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Viewport is the visible rectangle of the map widget.
type Viewport struct {
	SouthWest LatLng `json:"south_west"`
	NorthEast LatLng `json:"north_east"`
}

// Equal reports whether two viewports describe the same rectangle. Two nil
// viewports are equal.
func (v *Viewport) Equal(other *Viewport) bool {
	if v == nil || other == nil {
		return v == other
	}
	return *v == *other
}

type ListingStats struct {
	TotalListings       int     `json:"total_listings"`
	AveragePrice        float64 `json:"average_price"`
	MedianPrice         float64 `json:"median_price"`
	AvgAvailability     float64 `json:"avg_availability"`
	AvgReviews          float64 `json:"avg_reviews"`
	GoodDealCount       int     `json:"good_deal_count"`
	GoodDealRate        float64 `json:"good_deal_rate"`
	DeltaVsGlobalMedian float64 `json:"delta_vs_global_median"`
}

type NeighbourhoodStats struct {
	Neighbourhood   string   `json:"neighbourhood"`
	ListingCount    int      `json:"listing_count"`
	AveragePrice    float64  `json:"average_price"`
	MedianPrice     float64  `json:"median_price"`
	PriceStdDev     *float64 `json:"price_std_dev"`
	AvgReviews      float64  `json:"avg_reviews"`
	AvgAvailability float64  `json:"avg_availability"`
}

type RoomTypeShare struct {
	RoomType string  `json:"room_type"`
	Count    int     `json:"count"`
	Share    float64 `json:"share"`
}
