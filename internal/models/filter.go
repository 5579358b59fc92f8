package models

// FilterCriteria stores the user's filter selection. Both price bounds are
// inclusive; an empty set matches nothing.
type FilterCriteria struct {
	Neighbourhoods map[string]struct{} `json:"-"`
	RoomTypes      map[string]struct{} `json:"-"`
	PriceMin       float64             `json:"price_min"`
	PriceMax       float64             `json:"price_max"`
}

// NewFilterCriteria builds criteria from the raw multi-select values.
func NewFilterCriteria(neighbourhoods, roomTypes []string, priceMin, priceMax float64) FilterCriteria {
	return FilterCriteria{
		Neighbourhoods: toSet(neighbourhoods),
		RoomTypes:      toSet(roomTypes),
		PriceMin:       priceMin,
		PriceMax:       priceMax,
	}
}

// IsListingAllowed checks if a listing matches the filter criteria
func (f FilterCriteria) IsListingAllowed(listing *Listing) bool {
	if listing == nil {
		return false
	}

	if _, ok := f.Neighbourhoods[listing.Neighbourhood]; !ok {
		return false
	}
	if _, ok := f.RoomTypes[listing.RoomType]; !ok {
		return false
	}

	// min > max is an empty interval, both comparisons can't hold
	return listing.Price >= f.PriceMin && listing.Price <= f.PriceMax
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
