package handler

import (
	"context"
	"net/http"

	analytics "farmerconnect/internal/analyticsService"
	"farmerconnect/services/helpers"
	"farmerconnect/utils"

	"github.com/gin-gonic/gin"
)

type AnalyticsServiceInterface interface {
	Farmer(ctx context.Context, farmerID string) (analytics.FarmerStats, error)
	Buyer(ctx context.Context, buyerID string) (analytics.BuyerStats, error)
}

type AnalyticsHandler struct {
	service AnalyticsServiceInterface
}

func NewAnalyticsHandler(service AnalyticsServiceInterface) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// FarmerAnalyticsHandler handles GET /analytics/farmer
func (h *AnalyticsHandler) FarmerAnalyticsHandler(c *gin.Context) {
	farmerID, _ := helpers.CurrentUser(c)
	stats, err := h.service.Farmer(c.Request.Context(), farmerID)
	if err != nil {
		helpers.RespondError(c, "FarmerAnalyticsHandler", "failed to compute analytics", err, map[string]any{"farmer_id": farmerID})
		return
	}
	utils.JSONResponse(c, http.StatusOK, stats, "analytics retrieved successfully")
}

// BuyerAnalyticsHandler handles GET /analytics/buyer
func (h *AnalyticsHandler) BuyerAnalyticsHandler(c *gin.Context) {
	buyerID, _ := helpers.CurrentUser(c)
	stats, err := h.service.Buyer(c.Request.Context(), buyerID)
	if err != nil {
		helpers.RespondError(c, "BuyerAnalyticsHandler", "failed to compute analytics", err, map[string]any{"buyer_id": buyerID})
		return
	}
	utils.JSONResponse(c, http.StatusOK, stats, "analytics retrieved successfully")
}
