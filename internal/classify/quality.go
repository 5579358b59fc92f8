package classify

import (
	"sort"

	"airbnbdash/server/internal/models"
)

// TopPerNeighbourhood is how many listings feed a neighbourhood's score.
const TopPerNeighbourhood = 3

// ScoredListing pairs a listing with its reviews-per-price score.
type ScoredListing struct {
	Listing models.Listing `json:"listing"`
	Score   float64        `json:"score"`
}

// NeighbourhoodScore is the mean score of a neighbourhood's best listings.
type NeighbourhoodScore struct {
	Neighbourhood string          `json:"neighbourhood"`
	Score         float64         `json:"score"`
	Top           []ScoredListing `json:"top"`
}

// QualityPriceScores scores each listing as reviews / price, keeps the top
// three per neighbourhood and ranks neighbourhoods by the mean of those.
// Listings with a non-positive price are left out before scoring.
func QualityPriceScores(subset []models.Listing) []NeighbourhoodScore {
	byNeighbourhood := make(map[string][]ScoredListing)
	for _, l := range subset {
		if l.Price <= 0 {
			continue
		}
		byNeighbourhood[l.Neighbourhood] = append(byNeighbourhood[l.Neighbourhood], ScoredListing{
			Listing: l,
			Score:   float64(l.NumberOfReviews) / l.Price,
		})
	}

	out := make([]NeighbourhoodScore, 0, len(byNeighbourhood))
	for name, scored := range byNeighbourhood {
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].Score > scored[j].Score
		})
		if len(scored) > TopPerNeighbourhood {
			scored = scored[:TopPerNeighbourhood]
		}

		var total float64
		for _, s := range scored {
			total += s.Score
		}
		out = append(out, NeighbourhoodScore{
			Neighbourhood: name,
			Score:         total / float64(len(scored)),
			Top:           scored,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Neighbourhood < out[j].Neighbourhood
	})
	return out
}
