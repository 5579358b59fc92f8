package classify

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"airbnbdash/server/internal/models"
)

// Quantile returns the q-th quantile of values using linear interpolation
// between the closest ranks, the way a dataframe quantile does. The bool is
// false for an empty input.
func Quantile(values []float64, q float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	q = math.Max(0, math.Min(1, q))
	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower], true
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower]), true
}

// Median is the 0.5 quantile: the mean of the two middle values for an even
// count.
func Median(values []float64) (float64, bool) {
	return Quantile(values, 0.5)
}

// Mean returns the arithmetic mean, false for an empty input.
func Mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	return stat.Mean(values, nil), true
}

// MeanStdDev returns the mean and the sample (n-1) standard deviation. The
// bool is false when fewer than two values are given.
func MeanStdDev(values []float64) (float64, float64, bool) {
	if len(values) < 2 {
		return 0, 0, false
	}
	mean, std := stat.MeanStdDev(values, nil)
	if math.IsNaN(std) {
		return mean, 0, false
	}
	return mean, std, true
}

func prices(listings []models.Listing) []float64 {
	out := make([]float64, len(listings))
	for i, l := range listings {
		out[i] = l.Price
	}
	return out
}

func reviews(listings []models.Listing) []float64 {
	out := make([]float64, len(listings))
	for i, l := range listings {
		out[i] = float64(l.NumberOfReviews)
	}
	return out
}

func availability(listings []models.Listing) []float64 {
	out := make([]float64, len(listings))
	for i, l := range listings {
		out[i] = float64(l.Availability365)
	}
	return out
}

// booked collects TotalBooked6M over the listings that carry it.
func booked(listings []models.Listing) []float64 {
	var out []float64
	for _, l := range listings {
		if l.TotalBooked6M != nil {
			out = append(out, float64(*l.TotalBooked6M))
		}
	}
	return out
}
