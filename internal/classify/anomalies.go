package classify

import (
	"fmt"
	"sort"
	"strings"

	"airbnbdash/server/internal/models"
)

// GroupKey names a listing column usable to build peer groups.
type GroupKey string

const (
	GroupByNeighbourhood GroupKey = "neighbourhood"
	GroupByRoomType      GroupKey = "room_type"
)

// DefaultZThreshold is the z-score above which a price is flagged.
const DefaultZThreshold = 2.0

// DefaultGroupKeys compares a listing with the same neighbourhood and room type.
var DefaultGroupKeys = []GroupKey{GroupByNeighbourhood, GroupByRoomType}

// ParseGroupKey validates a group key coming from user input.
func ParseGroupKey(s string) (GroupKey, error) {
	switch k := GroupKey(strings.TrimSpace(strings.ToLower(s))); k {
	case GroupByNeighbourhood, GroupByRoomType:
		return k, nil
	default:
		return "", fmt.Errorf("unknown group key %q", s)
	}
}

func (k GroupKey) value(l *models.Listing) string {
	switch k {
	case GroupByNeighbourhood:
		return l.Neighbourhood
	case GroupByRoomType:
		return l.RoomType
	default:
		return ""
	}
}

// AnomalyOptions configures PriceAnomalies. Zero values mean defaults.
type AnomalyOptions struct {
	GroupKeys  []GroupKey
	ZThreshold *float64
}

// Anomaly is a listing whose price stands out from its peer group.
type Anomaly struct {
	Listing   models.Listing `json:"listing"`
	ZScore    float64        `json:"z_score"`
	GroupMean float64        `json:"group_mean"`
	GroupStd  float64        `json:"group_std"`
}

type peerGroup struct {
	members []int
	prices  []float64
}

// PriceAnomalies flags listings whose price z-score within their peer group
// exceeds the threshold, highest z first. Groups with fewer than two members
// or no price variance have no z-score and are never flagged.
func PriceAnomalies(subset []models.Listing, opts AnomalyOptions) []Anomaly {
	keys := opts.GroupKeys
	if len(keys) == 0 {
		keys = DefaultGroupKeys
	}
	threshold := DefaultZThreshold
	if opts.ZThreshold != nil {
		threshold = *opts.ZThreshold
	}

	groups := make(map[string]*peerGroup)
	order := []string{}
	for i := range subset {
		k := groupKey(&subset[i], keys)
		g, ok := groups[k]
		if !ok {
			g = &peerGroup{}
			groups[k] = g
			order = append(order, k)
		}
		g.members = append(g.members, i)
		g.prices = append(g.prices, subset[i].Price)
	}

	out := []Anomaly{}
	for _, k := range order {
		g := groups[k]
		mean, std, ok := MeanStdDev(g.prices)
		if !ok || std == 0 {
			continue
		}
		for _, i := range g.members {
			z := (subset[i].Price - mean) / std
			if z > threshold {
				out = append(out, Anomaly{
					Listing:   subset[i],
					ZScore:    z,
					GroupMean: mean,
					GroupStd:  std,
				})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ZScore > out[j].ZScore
	})
	return out
}

func groupKey(l *models.Listing, keys []GroupKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.value(l)
	}
	return strings.Join(parts, "\x1f")
}
