package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"airbnbdash/server/internal/filter"
	"airbnbdash/server/internal/geometry"
	"airbnbdash/server/internal/models"
	"airbnbdash/server/internal/session"
)

// SubsetQuery holds the filter and viewport parameters shared by every
// subset endpoint. Repeated keys give multi-select values.
type SubsetQuery struct {
	Neighbourhoods []string `form:"neighbourhood"`
	RoomTypes      []string `form:"room_type"`
	Session        string   `form:"session"`
}

// requestError carries the status a handler should answer with.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string {
	return e.message
}

func badRequest(format string, args ...interface{}) error {
	return &requestError{status: http.StatusBadRequest, message: fmt.Sprintf(format, args...)}
}

func notFound(message string) error {
	return &requestError{status: http.StatusNotFound, message: message}
}

// abortWith answers with the status of a requestError or a 500.
func (h *Handler) abortWith(c *gin.Context, err error, what string) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		c.JSON(reqErr.status, gin.H{"error": reqErr.message})
		return
	}
	h.logger.WithError(err).Error("Failed to " + what)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + what})
}

// optionalFloat reads a finite float query parameter. ok is false when it
// is absent.
func optionalFloat(c *gin.Context, name string) (value float64, ok bool, err error) {
	raw, present := c.GetQuery(name)
	if !present || raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, badRequest("invalid %s: %q", name, raw)
	}
	return v, true, nil
}

// NoneSelected is the multi-select value meaning "nothing selected". It lets
// a client send the empty selection, which matches no listing.
const NoneSelected = "_none"

// selection resolves one multi-select parameter. Absent means every value
// in the snapshot.
func selection(values []string, all func() []string) []string {
	if len(values) == 0 {
		return all()
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != NoneSelected {
			out = append(out, v)
		}
	}
	return out
}

// criteria builds the filter selection. An absent multi-select means every
// value in the snapshot and absent price bounds mean the snapshot bounds.
func (h *Handler) criteria(c *gin.Context, q *SubsetQuery) (models.FilterCriteria, error) {
	neighbourhoods := selection(q.Neighbourhoods, h.store.NeighbourhoodValues)
	roomTypes := selection(q.RoomTypes, h.store.RoomTypeValues)

	bounds := h.store.PriceBounds()
	priceMin, ok, err := optionalFloat(c, "min_price")
	if err != nil {
		return models.FilterCriteria{}, err
	}
	if !ok {
		priceMin = bounds.Min
	}
	priceMax, ok, err := optionalFloat(c, "max_price")
	if err != nil {
		return models.FilterCriteria{}, err
	}
	if !ok {
		priceMax = bounds.Max
	}

	return models.NewFilterCriteria(neighbourhoods, roomTypes, priceMin, priceMax), nil
}

// viewport reads sw_lat, sw_lng, ne_lat and ne_lng (all or none), falling
// back to the viewport last recorded by the session. nil means the whole map.
func (h *Handler) viewport(c *gin.Context, q *SubsetQuery) (*models.Viewport, error) {
	names := []string{"sw_lat", "sw_lng", "ne_lat", "ne_lng"}
	values := make([]float64, len(names))
	given := 0
	for i, name := range names {
		v, ok, err := optionalFloat(c, name)
		if err != nil {
			return nil, err
		}
		if ok {
			values[i] = v
			given++
		}
	}

	switch {
	case given == len(names):
		vp := &models.Viewport{
			SouthWest: models.LatLng{Lat: values[0], Lng: values[1]},
			NorthEast: models.LatLng{Lat: values[2], Lng: values[3]},
		}
		if err := geometry.ValidateViewport(*vp); err != nil {
			return nil, badRequest("%v", err)
		}
		return vp, nil
	case given > 0:
		return nil, badRequest("viewport needs all of sw_lat, sw_lng, ne_lat, ne_lng")
	case q.Session != "":
		s, err := h.sessions.Get(q.Session)
		if errors.Is(err, session.ErrNotFound) {
			return nil, notFound("Session not found")
		}
		if err != nil {
			return nil, err
		}
		return s.Viewport(), nil
	default:
		return nil, nil
	}
}

// subset applies the filter selection and then the viewport.
func (h *Handler) subset(c *gin.Context) ([]models.Listing, error) {
	var q SubsetQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return nil, badRequest("invalid query: %v", err)
	}

	criteria, err := h.criteria(c, &q)
	if err != nil {
		return nil, err
	}
	vp, err := h.viewport(c, &q)
	if err != nil {
		return nil, err
	}

	return geometry.Visible(filter.Apply(h.store.All(), criteria), vp), nil
}
