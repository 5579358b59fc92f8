package classify

import "airbnbdash/server/internal/models"

// GoodDealOptions toggles the optional criteria of the good-deal rule.
type GoodDealOptions struct {
	// UseBookingCriterion adds TotalBooked6M >= its median. Listings without
	// the column pass it.
	UseBookingCriterion bool
}

// GoodDealThresholds are the medians a subset was judged against.
type GoodDealThresholds struct {
	Price        float64  `json:"price_median"`
	Reviews      float64  `json:"reviews_median"`
	Availability float64  `json:"availability_median"`
	Booked6M     *float64 `json:"total_booked_6m_median,omitempty"`
}

// GoodDeals returns the listings that are cheap, well reviewed and available
// relative to the subset's own medians. An empty subset yields nothing.
func GoodDeals(subset []models.Listing, opts GoodDealOptions) []models.Listing {
	out, _ := GoodDealsWithThresholds(subset, opts)
	return out
}

// GoodDealsWithThresholds is GoodDeals that also reports the medians used.
// The thresholds are nil for an empty subset.
func GoodDealsWithThresholds(subset []models.Listing, opts GoodDealOptions) ([]models.Listing, *GoodDealThresholds) {
	out := []models.Listing{}
	if len(subset) == 0 {
		return out, nil
	}

	th := &GoodDealThresholds{}
	th.Price, _ = Median(prices(subset))
	th.Reviews, _ = Median(reviews(subset))
	th.Availability, _ = Median(availability(subset))
	if opts.UseBookingCriterion {
		if m, ok := Median(booked(subset)); ok {
			th.Booked6M = &m
		}
	}

	for _, l := range subset {
		if l.Price > th.Price {
			continue
		}
		if float64(l.NumberOfReviews) < th.Reviews {
			continue
		}
		if float64(l.Availability365) < th.Availability {
			continue
		}
		if th.Booked6M != nil && l.TotalBooked6M != nil && float64(*l.TotalBooked6M) < *th.Booked6M {
			continue
		}
		out = append(out, l)
	}

	return out, th
}
