package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"airbnbdash/server/internal/geometry"
	"airbnbdash/server/internal/models"
	"airbnbdash/server/internal/session"
)

// FavoriteRequest names the listing to add. ListingID is a pointer so that
// id 0 passes the required check.
type FavoriteRequest struct {
	ListingID *int64 `json:"listing_id" binding:"required"`
}

// ViewportRequest is the body of a viewport update. Both corners absent
// clears the viewport.
type ViewportRequest struct {
	SouthWest *models.LatLng `json:"south_west"`
	NorthEast *models.LatLng `json:"north_east"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	s := h.sessions.Create()
	c.JSON(http.StatusCreated, gin.H{
		"id":         s.ID,
		"created_at": s.CreatedAt,
	})
}

func (h *Handler) EndSession(c *gin.Context) {
	if err := h.sessions.End(c.Param("id")); err != nil {
		h.abortWith(c, sessionError(err), "end session")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UpdateViewport(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.abortWith(c, sessionError(err), "update viewport")
		return
	}

	var req ViewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var vp *models.Viewport
	switch {
	case req.SouthWest != nil && req.NorthEast != nil:
		vp = &models.Viewport{SouthWest: *req.SouthWest, NorthEast: *req.NorthEast}
		if err := geometry.ValidateViewport(*vp); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	case req.SouthWest != nil || req.NorthEast != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "viewport needs both south_west and north_east"})
		return
	}

	changed := s.UpdateViewport(vp)
	h.logger.WithFields(logrus.Fields{
		"session_id": s.ID,
		"changed":    changed,
	}).Debug("Viewport update")

	c.JSON(http.StatusOK, gin.H{
		"changed":  changed,
		"viewport": vp,
	})
}

func (h *Handler) ListFavorites(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.abortWith(c, sessionError(err), "list favorites")
		return
	}
	c.JSON(http.StatusOK, s.Favorites.List())
}

// AddFavorite snapshots a listing into the session shortlist. Adding a
// listing twice is not an error.
func (h *Handler) AddFavorite(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.abortWith(c, sessionError(err), "add favorite")
		return
	}

	var req FavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	listing, ok := h.store.Get(*req.ListingID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	status := http.StatusOK
	added := s.Favorites.Add(listing)
	if added {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"added":     added,
		"favorites": s.Favorites.List(),
	})
}

func (h *Handler) RemoveFavorite(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.abortWith(c, sessionError(err), "remove favorite")
		return
	}

	id, err := strconv.ParseInt(c.Param("listing_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing id"})
		return
	}
	if !s.Favorites.Remove(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing is not a favorite"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ExportFavorites(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.abortWith(c, sessionError(err), "export favorites")
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="favorites-%s.csv"`, s.ID))
	c.Status(http.StatusOK)
	if err := s.Favorites.WriteCSV(c.Writer); err != nil {
		h.logger.WithError(err).Error("Failed to export favorites")
	}
}

func sessionError(err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return notFound("Session not found")
	}
	return err
}
