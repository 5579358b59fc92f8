package classify

import "airbnbdash/server/internal/models"

// RepriceThresholds overrides the subset-derived thresholds. A nil field
// falls back to the default: 75th percentile price, median reviews, median
// availability.
type RepriceThresholds struct {
	Price        *float64 `json:"price"`
	Reviews      *float64 `json:"reviews"`
	Availability *float64 `json:"availability"`
}

// RepriceCandidates returns the listings priced above the price threshold
// that also underperform on reviews or availability.
func RepriceCandidates(subset []models.Listing, thresholds RepriceThresholds) []models.Listing {
	out, _ := RepriceCandidatesWithThresholds(subset, thresholds)
	return out
}

// RepriceCandidatesWithThresholds also returns the thresholds actually
// applied, with every field resolved. It is nil for an empty subset.
func RepriceCandidatesWithThresholds(subset []models.Listing, thresholds RepriceThresholds) ([]models.Listing, *RepriceThresholds) {
	out := []models.Listing{}
	if len(subset) == 0 {
		return out, nil
	}

	resolved := RepriceThresholds{
		Price:        thresholds.Price,
		Reviews:      thresholds.Reviews,
		Availability: thresholds.Availability,
	}
	if resolved.Price == nil {
		p, _ := Quantile(prices(subset), 0.75)
		resolved.Price = &p
	}
	if resolved.Reviews == nil {
		r, _ := Median(reviews(subset))
		resolved.Reviews = &r
	}
	if resolved.Availability == nil {
		a, _ := Median(availability(subset))
		resolved.Availability = &a
	}

	for _, l := range subset {
		if l.Price <= *resolved.Price {
			continue
		}
		if float64(l.NumberOfReviews) < *resolved.Reviews || float64(l.Availability365) < *resolved.Availability {
			out = append(out, l)
		}
	}

	return out, &resolved
}
