package classify

import (
	"sort"

	"airbnbdash/server/internal/models"
)

// Summarize computes the KPI block of a subset. global is the whole snapshot,
// used for the delta of the subset's mean price against the overall median.
// Nothing is cached: the figures are only valid for the subset given.
func Summarize(subset, global []models.Listing, opts GoodDealOptions) models.ListingStats {
	stats := models.ListingStats{TotalListings: len(subset)}
	if len(subset) == 0 {
		return stats
	}

	stats.AveragePrice, _ = Mean(prices(subset))
	stats.MedianPrice, _ = Median(prices(subset))
	stats.AvgAvailability, _ = Mean(availability(subset))
	stats.AvgReviews, _ = Mean(reviews(subset))

	stats.GoodDealCount = len(GoodDeals(subset, opts))
	stats.GoodDealRate = float64(stats.GoodDealCount) / float64(len(subset)) * 100

	if globalMedian, ok := Median(prices(global)); ok {
		stats.DeltaVsGlobalMedian = stats.AveragePrice - globalMedian
	}

	return stats
}

// CompareNeighbourhoods aggregates the subset per neighbourhood, most
// expensive first.
func CompareNeighbourhoods(subset []models.Listing) []models.NeighbourhoodStats {
	groups := make(map[string][]models.Listing)
	for _, l := range subset {
		groups[l.Neighbourhood] = append(groups[l.Neighbourhood], l)
	}

	out := make([]models.NeighbourhoodStats, 0, len(groups))
	for name, listings := range groups {
		s := models.NeighbourhoodStats{
			Neighbourhood: name,
			ListingCount:  len(listings),
		}
		s.AveragePrice, _ = Mean(prices(listings))
		s.MedianPrice, _ = Median(prices(listings))
		s.AvgReviews, _ = Mean(reviews(listings))
		s.AvgAvailability, _ = Mean(availability(listings))
		if _, std, ok := MeanStdDev(prices(listings)); ok {
			s.PriceStdDev = &std
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].AveragePrice != out[j].AveragePrice {
			return out[i].AveragePrice > out[j].AveragePrice
		}
		return out[i].Neighbourhood < out[j].Neighbourhood
	})
	return out
}

// RoomTypeDistribution counts listings per room type, largest first.
func RoomTypeDistribution(subset []models.Listing) []models.RoomTypeShare {
	counts := make(map[string]int)
	for _, l := range subset {
		counts[l.RoomType]++
	}

	out := make([]models.RoomTypeShare, 0, len(counts))
	for roomType, n := range counts {
		out = append(out, models.RoomTypeShare{
			RoomType: roomType,
			Count:    n,
			Share:    float64(n) / float64(len(subset)),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].RoomType < out[j].RoomType
	})
	return out
}

// DedupByID keeps the first listing for each id, in order.
func DedupByID(listings []models.Listing) []models.Listing {
	seen := make(map[int64]struct{}, len(listings))
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if _, ok := seen[l.ID]; ok {
			continue
		}
		seen[l.ID] = struct{}{}
		out = append(out, l)
	}
	return out
}
