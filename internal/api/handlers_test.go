package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airbnbdash/server/config"
	"airbnbdash/server/internal/classify"
	"airbnbdash/server/internal/favorites"
	"airbnbdash/server/internal/metrics"
	"airbnbdash/server/internal/models"
	"airbnbdash/server/internal/session"
	"airbnbdash/server/internal/store"
)

func fixtureListings() []models.Listing {
	return []models.Listing{
		{ID: 1, Name: "Loft A", Neighbourhood: "Temple", RoomType: "Entire home/apt", Price: 120, Latitude: 48.860, Longitude: 2.360, NumberOfReviews: 10, Availability365: 100},
		{ID: 2, Name: "Studio B", Neighbourhood: "Temple", RoomType: "Private room", Price: 60, Latitude: 48.861, Longitude: 2.361, NumberOfReviews: 40, Availability365: 300},
		{ID: 3, Name: "Flat C", Neighbourhood: "Louvre", RoomType: "Entire home/apt", Price: 300, Latitude: 48.862, Longitude: 2.336, NumberOfReviews: 5, Availability365: 20},
		{ID: 4, Name: "Room D", Neighbourhood: "Louvre", RoomType: "Private room", Price: 80, Latitude: 48.900, Longitude: 2.320, NumberOfReviews: 25, Availability365: 200},
	}
}

func setupRouter(t *testing.T) (*gin.Engine, *session.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.ResetCities()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	sessions := session.NewManager(time.Hour, time.Minute, logger)
	handler := NewHandler(store.New(fixtureListings()), sessions, Options{}, logger)
	return NewRouter(handler, nil), sessions
}

func doRequest(router *gin.Engine, method, target string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req, _ := http.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func listingIDs(t *testing.T, body []byte) []int64 {
	t.Helper()
	var listings []models.Listing
	require.NoError(t, json.Unmarshal(body, &listings))
	ids := []int64{}
	for _, l := range listings {
		ids = append(ids, l.ID)
	}
	return ids
}

const parisBox = "sw_lat=48.85&sw_lng=2.30&ne_lat=48.87&ne_lng=2.35"

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(4), body["listings"])
}

func TestGetListings(t *testing.T) {
	router, _ := setupRouter(t)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedIDs    []int64
	}{
		{
			name:           "no parameters returns everything in order",
			query:          "",
			expectedStatus: http.StatusOK,
			expectedIDs:    []int64{1, 2, 3, 4},
		},
		{
			name:           "single neighbourhood",
			query:          "neighbourhood=Temple",
			expectedStatus: http.StatusOK,
			expectedIDs:    []int64{1, 2},
		},
		{
			name:           "neighbourhood and room type",
			query:          "neighbourhood=Temple&neighbourhood=Louvre&room_type=" + url.QueryEscape("Private room"),
			expectedStatus: http.StatusOK,
			expectedIDs:    []int64{2, 4},
		},
		{
			name:           "inclusive price range",
			query:          "min_price=80&max_price=120",
			expectedStatus: http.StatusOK,
			expectedIDs:    []int64{1, 4},
		},
		{
			name:           "inverted price range is empty",
			query:          "min_price=200&max_price=100",
			expectedStatus: http.StatusOK,
			expectedIDs:    []int64{},
		},
		{
			name:           "unknown neighbourhood",
			query:          "neighbourhood=Atlantis",
			expectedStatus: http.StatusOK,
			expectedIDs:    []int64{},
		},
		{
			name:           "no neighbourhood selected",
			query:          "neighbourhood=" + NoneSelected,
			expectedStatus: http.StatusOK,
			expectedIDs:    []int64{},
		},
		{
			name:           "no room type selected",
			query:          "room_type=" + NoneSelected,
			expectedStatus: http.StatusOK,
			expectedIDs:    []int64{},
		},
		{
			name:           "none marker next to a value",
			query:          "neighbourhood=" + NoneSelected + "&neighbourhood=Louvre",
			expectedStatus: http.StatusOK,
			expectedIDs:    []int64{3, 4},
		},
		{
			name:           "viewport",
			query:          parisBox,
			expectedStatus: http.StatusOK,
			expectedIDs:    []int64{3},
		},
		{
			name:           "invalid price",
			query:          "min_price=cheap",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "partial viewport",
			query:          "sw_lat=48.85&sw_lng=2.30",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "viewport out of range",
			query:          "sw_lat=-100&sw_lng=2.30&ne_lat=48.87&ne_lng=2.35",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown session",
			query:          "session=nope",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, "/api/listings?"+tt.query, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.expectedIDs, listingIDs(t, w.Body.Bytes()))
			} else {
				assert.Contains(t, w.Body.String(), "error")
			}
		})
	}
}

func TestGetFacets(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/facets", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Neighbourhoods []string          `json:"neighbourhoods"`
		RoomTypes      []string          `json:"room_types"`
		Price          store.PriceBounds `json:"price"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"Louvre", "Temple"}, body.Neighbourhoods)
	assert.Equal(t, []string{"Entire home/apt", "Private room"}, body.RoomTypes)
	assert.Equal(t, store.PriceBounds{Min: 60, Max: 300}, body.Price)
}

func TestGetCity(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/cities/paris", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"zoom_level":12`)

	w = doRequest(router, http.MethodGet, "/api/cities/atlantis", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMapView(t *testing.T) {
	router, _ := setupRouter(t)

	var body struct {
		Center   models.LatLng `json:"center"`
		FromData bool          `json:"from_data"`
	}

	w := doRequest(router, http.MethodGet, "/api/map-view?neighbourhood=Temple", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.FromData)
	assert.InDelta(t, 48.8605, body.Center.Lat, 1e-9)

	w = doRequest(router, http.MethodGet, "/api/map-view?neighbourhood=Atlantis", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.FromData)
	assert.Equal(t, models.LatLng{Lat: 48.8566, Lng: 2.3522}, body.Center)
}

func TestGetListingsGeoJSON(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/listings/geojson?neighbourhood=Louvre", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "Flat C", fc.Features[0].Properties["name"])
}

func TestGetStats(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/stats?neighbourhood=Temple", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var stats models.ListingStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalListings)
	assert.Equal(t, 90.0, stats.AveragePrice)
	// whole snapshot median is 100
	assert.Equal(t, -10.0, stats.DeltaVsGlobalMedian)

	w = doRequest(router, http.MethodGet, "/api/stats?use_bookings=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetGoodDeals(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/good-deals", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Thresholds classify.GoodDealThresholds `json:"thresholds"`
		Listings   []models.Listing            `json:"listings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 100.0, body.Thresholds.Price)
	assert.Equal(t, 17.5, body.Thresholds.Reviews)
	assert.Equal(t, 150.0, body.Thresholds.Availability)
	require.Len(t, body.Listings, 2)
	assert.Equal(t, int64(2), body.Listings[0].ID)
	assert.Equal(t, int64(4), body.Listings[1].ID)
}

func TestGetRepriceCandidates(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/reprice-candidates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Listings []models.Listing `json:"listings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Listings, 1)
	assert.Equal(t, int64(3), body.Listings[0].ID)

	// lower price threshold catches Loft A as well
	w = doRequest(router, http.MethodGet, "/api/reprice-candidates?price=100", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Listings, 2)

	w = doRequest(router, http.MethodGet, "/api/reprice-candidates?reviews=many", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAnomalies(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/anomalies?group_by=neighbourhood&z=0.5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Threshold float64            `json:"threshold"`
		Anomalies []classify.Anomaly `json:"anomalies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 0.5, body.Threshold)
	// each neighbourhood has two listings, the pricier one sits at z=0.707
	require.Len(t, body.Anomalies, 2)
	assert.InDelta(t, 0.7071, body.Anomalies[0].ZScore, 1e-3)

	w = doRequest(router, http.MethodGet, "/api/anomalies?group_by=host", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// any finite threshold is accepted, below zero the cheaper peer is flagged too
	w = doRequest(router, http.MethodGet, "/api/anomalies?group_by=neighbourhood&z=-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, -1.0, body.Threshold)
	assert.Len(t, body.Anomalies, 4)

	w = doRequest(router, http.MethodGet, "/api/anomalies?z=NaN", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetQualityScores(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/quality-scores", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var scores []classify.NeighbourhoodScore
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scores))
	require.Len(t, scores, 2)
	assert.Equal(t, "Temple", scores[0].Neighbourhood)
}

func createSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doRequest(router, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var body struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.ID)
	return body.ID
}

func TestSessionViewport(t *testing.T) {
	router, _ := setupRouter(t)
	id := createSession(t, router)

	vp := ViewportRequest{
		SouthWest: &models.LatLng{Lat: 48.85, Lng: 2.30},
		NorthEast: &models.LatLng{Lat: 48.87, Lng: 2.35},
	}

	var body struct {
		Changed bool `json:"changed"`
	}
	w := doRequest(router, http.MethodPut, "/api/sessions/"+id+"/viewport", vp)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Changed)

	w = doRequest(router, http.MethodPut, "/api/sessions/"+id+"/viewport", vp)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Changed)

	w = doRequest(router, http.MethodGet, "/api/listings?session="+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{3}, listingIDs(t, w.Body.Bytes()))

	// explicit bounds win over the session
	w = doRequest(router, http.MethodGet, "/api/listings?session="+id+"&sw_lat=48&sw_lng=2&ne_lat=49&ne_lng=3", nil)
	assert.Equal(t, []int64{1, 2, 3, 4}, listingIDs(t, w.Body.Bytes()))

	// clearing
	w = doRequest(router, http.MethodPut, "/api/sessions/"+id+"/viewport", ViewportRequest{})
	require.Equal(t, http.StatusOK, w.Code)
	w = doRequest(router, http.MethodGet, "/api/listings?session="+id, nil)
	assert.Equal(t, []int64{1, 2, 3, 4}, listingIDs(t, w.Body.Bytes()))

	w = doRequest(router, http.MethodPut, "/api/sessions/"+id+"/viewport", ViewportRequest{SouthWest: vp.SouthWest})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPut, "/api/sessions/unknown/viewport", vp)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func favorite(id int64) FavoriteRequest {
	return FavoriteRequest{ListingID: &id}
}

func TestSessionFavorites(t *testing.T) {
	router, _ := setupRouter(t)
	id := createSession(t, router)
	base := "/api/sessions/" + id + "/favorites"

	w := doRequest(router, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = doRequest(router, http.MethodPost, base, favorite(1))
	assert.Equal(t, http.StatusCreated, w.Code)

	// adding the same listing again is accepted and changes nothing
	w = doRequest(router, http.MethodPost, base, favorite(1))
	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Added     bool              `json:"added"`
		Favorites []favorites.Entry `json:"favorites"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Added)
	require.Len(t, body.Favorites, 1)
	assert.Equal(t, "Loft A", body.Favorites[0].Name)

	w = doRequest(router, http.MethodPost, base, favorite(3))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(router, http.MethodPost, base, favorite(999))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodPost, base, map[string]string{"listing_id": "one"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, base, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, base+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "3", records[2][0])

	w = doRequest(router, http.MethodDelete, base+"/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doRequest(router, http.MethodDelete, base+"/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doRequest(router, http.MethodDelete, base+"/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionsAreIndependent(t *testing.T) {
	router, _ := setupRouter(t)
	a := createSession(t, router)
	b := createSession(t, router)

	doRequest(router, http.MethodPost, "/api/sessions/"+a+"/favorites", favorite(2))

	w := doRequest(router, http.MethodGet, "/api/sessions/"+b+"/favorites", nil)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestEndSession(t *testing.T) {
	router, sessions := setupRouter(t)
	id := createSession(t, router)
	assert.Equal(t, 1, sessions.Len())

	w := doRequest(router, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, sessions.Len())

	w = doRequest(router, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodGet, "/api/sessions/"+id+"/favorites", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	handler := NewHandler(store.New(fixtureListings()), session.NewManager(0, time.Minute, logger), Options{}, logger)
	router := NewRouter(handler, []string{"http://localhost:5173"})

	req, _ := http.NewRequest(http.MethodOptions, "/api/listings", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	m := metrics.New()
	handler := NewHandler(store.New(fixtureListings()), session.NewManager(0, time.Minute, logger), Options{Metrics: m}, logger)
	router := NewRouter(handler, nil)

	w := doRequest(router, http.MethodGet, "/api/listings", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `airbnbdash_http_requests_total{method="GET",route="/api/listings",status="200"} 1`)
}

func TestAddFavorite_ListingIDZero(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	listings := append(fixtureListings(), models.Listing{ID: 0, Name: "Chambre Zero", Neighbourhood: "Bourse", RoomType: "Private room", Price: 70, Latitude: 48.868, Longitude: 2.341})
	handler := NewHandler(store.New(listings), session.NewManager(time.Hour, time.Minute, logger), Options{}, logger)
	router := NewRouter(handler, nil)

	id := createSession(t, router)
	w := doRequest(router, http.MethodPost, "/api/sessions/"+id+"/favorites", favorite(0))
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Favorites []favorites.Entry `json:"favorites"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Favorites, 1)
	assert.Equal(t, "Chambre Zero", body.Favorites[0].Name)
}
