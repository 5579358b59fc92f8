package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with CORS for the dashboard origins.
func NewRouter(handler *Handler, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if m := handler.opts.Metrics; m != nil {
		router.Use(m.Middleware())
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	SetupRoutes(router, handler)
	return router
}

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/health", handler.Health)

	api := router.Group("/api")
	{
		api.GET("/cities/:name", handler.GetCity)
		api.GET("/facets", handler.GetFacets)
		api.GET("/map-view", handler.GetMapView)

		api.GET("/listings", handler.GetListings)
		api.GET("/listings/geojson", handler.GetListingsGeoJSON)
		api.GET("/stats", handler.GetStats)
		api.GET("/neighbourhoods", handler.GetNeighbourhoods)
		api.GET("/neighbourhoods/geojson", handler.GetNeighbourhoodHulls)
		api.GET("/room-types", handler.GetRoomTypes)

		api.GET("/good-deals", handler.GetGoodDeals)
		api.GET("/reprice-candidates", handler.GetRepriceCandidates)
		api.GET("/anomalies", handler.GetAnomalies)
		api.GET("/quality-scores", handler.GetQualityScores)

		api.POST("/sessions", handler.CreateSession)
		api.DELETE("/sessions/:id", handler.EndSession)
		api.PUT("/sessions/:id/viewport", handler.UpdateViewport)
		api.GET("/sessions/:id/favorites", handler.ListFavorites)
		api.POST("/sessions/:id/favorites", handler.AddFavorite)
		api.DELETE("/sessions/:id/favorites/:listing_id", handler.RemoveFavorite)
		api.GET("/sessions/:id/favorites/export", handler.ExportFavorites)
	}
}
