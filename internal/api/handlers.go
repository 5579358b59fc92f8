package api

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"airbnbdash/server/config"
	"airbnbdash/server/internal/classify"
	"airbnbdash/server/internal/geometry"
	"airbnbdash/server/internal/metrics"
	"airbnbdash/server/internal/session"
	"airbnbdash/server/internal/store"
)

// Options are the server-wide classification defaults. Requests may
// override them per call.
type Options struct {
	GoodDeals classify.GoodDealOptions
	// ZThreshold nil means classify.DefaultZThreshold.
	ZThreshold *float64
	// DefaultCity centres the map when the subset is empty.
	DefaultCity string
	// Metrics, when set, instruments every route and serves /metrics.
	Metrics *metrics.Metrics
}

type Handler struct {
	store    *store.Store
	sessions *session.Manager
	logger   *logrus.Logger
	opts     Options
}

func NewHandler(listings *store.Store, sessions *session.Manager, opts Options, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if opts.ZThreshold == nil {
		z := classify.DefaultZThreshold
		opts.ZThreshold = &z
	}
	if opts.DefaultCity == "" {
		opts.DefaultCity = "paris"
	}

	return &Handler{
		store:    listings,
		sessions: sessions,
		logger:   logger,
		opts:     opts,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"listings": h.store.Len(),
		"sessions": h.sessions.Len(),
	})
}

func (h *Handler) GetCity(c *gin.Context) {
	city := config.GetCityByName(c.Param("name"))
	if city == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "City not found"})
		return
	}
	c.JSON(http.StatusOK, city)
}

func (h *Handler) GetFacets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"neighbourhoods": h.store.Neighbourhoods(),
		"room_types":     h.store.RoomTypes(),
		"price":          h.store.PriceBounds(),
		"total":          h.store.Len(),
	})
}

func (h *Handler) GetListings(c *gin.Context) {
	listings, err := h.subset(c)
	if err != nil {
		h.abortWith(c, err, "get listings")
		return
	}
	c.JSON(http.StatusOK, listings)
}

func (h *Handler) GetListingsGeoJSON(c *gin.Context) {
	listings, err := h.subset(c)
	if err != nil {
		h.abortWith(c, err, "get listings")
		return
	}
	c.JSON(http.StatusOK, geometry.ListingFeatures(listings))
}

func (h *Handler) GetNeighbourhoodHulls(c *gin.Context) {
	listings, err := h.subset(c)
	if err != nil {
		h.abortWith(c, err, "get neighbourhood hulls")
		return
	}
	c.JSON(http.StatusOK, geometry.NeighbourhoodHulls(listings))
}

// GetMapView returns where the map should be centred for the subset, or the
// city default when nothing is left to show.
func (h *Handler) GetMapView(c *gin.Context) {
	listings, err := h.subset(c)
	if err != nil {
		h.abortWith(c, err, "get map view")
		return
	}

	city := config.GetCityByName(c.DefaultQuery("city", h.opts.DefaultCity))
	if city == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "City not found"})
		return
	}

	center, ok := geometry.Center(listings)
	if !ok {
		center.Lat, center.Lng = city.Center[0], city.Center[1]
	}
	c.JSON(http.StatusOK, gin.H{
		"center":     center,
		"zoom_level": city.ZoomLevel,
		"from_data":  ok,
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	listings, err := h.subset(c)
	if err != nil {
		h.abortWith(c, err, "get stats")
		return
	}
	opts, err := h.goodDealOptions(c)
	if err != nil {
		h.abortWith(c, err, "get stats")
		return
	}
	c.JSON(http.StatusOK, classify.Summarize(listings, h.store.All(), opts))
}

func (h *Handler) GetNeighbourhoods(c *gin.Context) {
	listings, err := h.subset(c)
	if err != nil {
		h.abortWith(c, err, "get neighbourhood stats")
		return
	}
	c.JSON(http.StatusOK, classify.CompareNeighbourhoods(listings))
}

func (h *Handler) GetRoomTypes(c *gin.Context) {
	listings, err := h.subset(c)
	if err != nil {
		h.abortWith(c, err, "get room types")
		return
	}
	c.JSON(http.StatusOK, classify.RoomTypeDistribution(listings))
}

func (h *Handler) GetGoodDeals(c *gin.Context) {
	listings, err := h.subset(c)
	if err != nil {
		h.abortWith(c, err, "get good deals")
		return
	}
	opts, err := h.goodDealOptions(c)
	if err != nil {
		h.abortWith(c, err, "get good deals")
		return
	}

	deals, thresholds := classify.GoodDealsWithThresholds(listings, opts)
	c.JSON(http.StatusOK, gin.H{
		"thresholds": thresholds,
		"listings":   classify.DedupByID(deals),
	})
}

func (h *Handler) GetRepriceCandidates(c *gin.Context) {
	listings, err := h.subset(c)
	if err != nil {
		h.abortWith(c, err, "get reprice candidates")
		return
	}

	var thresholds classify.RepriceThresholds
	for name, dst := range map[string]**float64{
		"price":        &thresholds.Price,
		"reviews":      &thresholds.Reviews,
		"availability": &thresholds.Availability,
	} {
		v, ok, err := optionalFloat(c, name)
		if err != nil {
			h.abortWith(c, err, "get reprice candidates")
			return
		}
		if ok {
			*dst = &v
		}
	}

	candidates, resolved := classify.RepriceCandidatesWithThresholds(listings, thresholds)
	c.JSON(http.StatusOK, gin.H{
		"thresholds": resolved,
		"listings":   candidates,
	})
}

func (h *Handler) GetAnomalies(c *gin.Context) {
	listings, err := h.subset(c)
	if err != nil {
		h.abortWith(c, err, "get anomalies")
		return
	}

	opts := classify.AnomalyOptions{}
	for _, raw := range c.QueryArray("group_by") {
		key, err := classify.ParseGroupKey(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		opts.GroupKeys = append(opts.GroupKeys, key)
	}
	if len(opts.GroupKeys) == 0 {
		opts.GroupKeys = classify.DefaultGroupKeys
	}

	threshold := *h.opts.ZThreshold
	if v, ok, err := optionalFloat(c, "z"); err != nil {
		h.abortWith(c, err, "get anomalies")
		return
	} else if ok {
		threshold = v
	}
	opts.ZThreshold = &threshold

	c.JSON(http.StatusOK, gin.H{
		"threshold": threshold,
		"group_by":  opts.GroupKeys,
		"anomalies": classify.PriceAnomalies(listings, opts),
	})
}

func (h *Handler) GetQualityScores(c *gin.Context) {
	listings, err := h.subset(c)
	if err != nil {
		h.abortWith(c, err, "get quality scores")
		return
	}
	c.JSON(http.StatusOK, classify.QualityPriceScores(listings))
}

// goodDealOptions applies the use_bookings override to the server default.
func (h *Handler) goodDealOptions(c *gin.Context) (classify.GoodDealOptions, error) {
	opts := h.opts.GoodDeals
	raw, ok := c.GetQuery("use_bookings")
	if !ok {
		return opts, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return opts, badRequest("invalid use_bookings: %q", raw)
	}
	opts.UseBookingCriterion = v
	return opts, nil
}
