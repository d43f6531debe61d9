package handler

import (
	"context"
	"net/http"
	"strings"

	"farmerconnect/internal/models"
	prices "farmerconnect/internal/priceService"
	"farmerconnect/services/helpers"
	"farmerconnect/utils"

	"github.com/gin-gonic/gin"
)

type PriceServiceInterface interface {
	MarketPrices(ctx context.Context, filter models.PriceFilter) ([]models.MarketPrice, int, models.Page, error)
	MSPRates(ctx context.Context, filter models.PriceFilter) ([]models.MSPRate, error)
	Commodities(ctx context.Context) ([]string, error)
	Compare(ctx context.Context, commodity string) (prices.Comparison, error)
}

type PriceHandler struct {
	service PriceServiceInterface
}

func NewPriceHandler(service PriceServiceInterface) *PriceHandler {
	return &PriceHandler{service: service}
}

// MarketPricesHandler handles GET /prices/market
func (h *PriceHandler) MarketPricesHandler(c *gin.Context) {
	filter := models.PriceFilter{
		Commodity: strings.TrimSpace(c.Query("commodity")),
		State:     strings.TrimSpace(c.Query("state")),
		Market:    strings.TrimSpace(c.Query("market")),
		Page:      helpers.ParsePage(c, prices.DefaultPageSize, prices.MaxPageSize),
	}
	list, total, page, err := h.service.MarketPrices(c.Request.Context(), filter)
	if err != nil {
		helpers.RespondError(c, "MarketPricesHandler", "error listing market prices", err, map[string]any{"commodity": filter.Commodity})
		return
	}
	utils.JSONResponse(c, http.StatusOK, utils.NewPageData(list, page.Page, page.Limit, total), "market prices retrieved successfully")
}

// MSPHandler handles GET /prices/msp
func (h *PriceHandler) MSPHandler(c *gin.Context) {
	filter := models.PriceFilter{
		Commodity: strings.TrimSpace(c.Query("commodity")),
		Season:    strings.TrimSpace(c.Query("season")),
		Year:      strings.TrimSpace(c.Query("year")),
	}
	rates, err := h.service.MSPRates(c.Request.Context(), filter)
	if err != nil {
		helpers.RespondError(c, "MSPHandler", "error listing msp rates", err, map[string]any{"commodity": filter.Commodity})
		return
	}
	if rates == nil {
		rates = []models.MSPRate{}
	}
	utils.JSONResponse(c, http.StatusOK, rates, "msp rates retrieved successfully")
}

// CommoditiesHandler handles GET /prices/commodities
func (h *PriceHandler) CommoditiesHandler(c *gin.Context) {
	names, err := h.service.Commodities(c.Request.Context())
	if err != nil {
		helpers.RespondError(c, "CommoditiesHandler", "error listing commodities", err, nil)
		return
	}
	if names == nil {
		names = []string{}
	}
	utils.JSONResponse(c, http.StatusOK, names, "commodities retrieved successfully")
}

// CompareHandler handles GET /prices/compare
func (h *PriceHandler) CompareHandler(c *gin.Context) {
	commodity := strings.TrimSpace(c.Query("commodity"))
	cmp, err := h.service.Compare(c.Request.Context(), commodity)
	if err != nil {
		helpers.RespondError(c, "CompareHandler", "price comparison failed", err, map[string]any{"commodity": commodity})
		return
	}
	utils.JSONResponse(c, http.StatusOK, cmp, "price comparison retrieved successfully")
}
