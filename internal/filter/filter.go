package filter

import "airbnbdash/server/internal/models"

// Apply keeps the listings allowed by criteria, in input order. Empty
// selections give an empty result rather than an error.
func Apply(listings []models.Listing, criteria models.FilterCriteria) []models.Listing {
	out := make([]models.Listing, 0, len(listings))
	for i := range listings {
		if criteria.IsListingAllowed(&listings[i]) {
			out = append(out, listings[i])
		}
	}
	return out
}
