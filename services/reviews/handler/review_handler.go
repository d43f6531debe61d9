package handler

import (
	"context"
	"net/http"
	"strings"

	"farmerconnect/internal/models"
	reviews "farmerconnect/internal/reviewService"
	"farmerconnect/services/helpers"
	"farmerconnect/utils"

	"github.com/gin-gonic/gin"
)

// Page sizes for review listings
const (
	defaultPageSize = 10
	maxPageSize     = 50
)

type ReviewServiceInterface interface {
	Create(ctx context.Context, buyerID string, in reviews.ReviewInput) (models.Review, error)
	List(ctx context.Context, filter models.ReviewFilter) (reviews.ReviewPage, error)
}

type ReviewHandler struct {
	service ReviewServiceInterface
}

func NewReviewHandler(service ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// CreateReviewHandler handles POST /reviews
func (h *ReviewHandler) CreateReviewHandler(c *gin.Context) {
	var req helpers.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateReviewHandler", err)
		return
	}
	buyerID, _ := helpers.CurrentUser(c)

	review, err := h.service.Create(c.Request.Context(), buyerID, reviews.ReviewInput{
		OrderID: req.OrderID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		helpers.RespondError(c, "CreateReviewHandler", "failed to create review", err, map[string]any{"order_id": req.OrderID, "buyer_id": buyerID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, review, "review submitted successfully")
	helpers.LogSuccess("CreateReviewHandler", "review submitted", map[string]any{"review_id": review.ReviewID, "rating": review.Rating})
}

// ListReviewsHandler handles GET /reviews
func (h *ReviewHandler) ListReviewsHandler(c *gin.Context) {
	page := helpers.ParsePage(c, defaultPageSize, maxPageSize)
	filter := models.ReviewFilter{
		FarmerID:  strings.TrimSpace(c.Query("farmer_id")),
		ProductID: strings.TrimSpace(c.Query("product_id")),
		Page:      page,
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		helpers.RespondError(c, "ListReviewsHandler", "error listing reviews", err, map[string]any{"farmer_id": filter.FarmerID, "product_id": filter.ProductID})
		return
	}

	data := utils.NewPageData(result.Reviews, page.Page, page.Limit, result.Total)
	utils.JSONResponse(c, http.StatusOK, helpers.ReviewListResponse{
		Items:         data.Items,
		Page:          data.Page,
		Limit:         data.Limit,
		Total:         data.Total,
		TotalPages:    data.TotalPages,
		AverageRating: result.AverageRating,
		Count:         result.Count,
	}, "reviews retrieved successfully")
}
