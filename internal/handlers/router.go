package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func SetupRoutes(h *Handler, log *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(log), gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/history", h.GetHistory)

	api := r.Group("/api")
	api.GET("/funds", h.ListFunds)
	api.POST("/funds", h.CreateFund)
	api.POST("/funds/refresh", h.Refresh)
	api.PUT("/funds/:id", h.UpdateFund)
	api.DELETE("/funds/:id", h.DeleteFund)
	api.GET("/stats", h.GetStats)
	api.GET("/history", h.GetHistory)
	api.GET("/export", h.Export)
	api.POST("/import", h.Import)
	return r
}
