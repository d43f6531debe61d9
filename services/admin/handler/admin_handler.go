package handler

import (
	"context"
	"net/http"
	"strings"

	admin "farmerconnect/internal/adminService"
	"farmerconnect/internal/models"
	"farmerconnect/services/helpers"
	"farmerconnect/utils"

	"github.com/gin-gonic/gin"
)

type AdminServiceInterface interface {
	ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, int, models.Page, error)
	SetUserActive(ctx context.Context, adminID, userID string, active bool) (models.User, error)
	VerifyFarmer(ctx context.Context, userID string, verified bool) (models.User, error)
	ListProducts(ctx context.Context, status string, page models.Page) ([]models.Product, int, models.Page, error)
	SetProductStatus(ctx context.Context, productID, status string) (models.Product, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, int, models.Page, error)
	Stats(ctx context.Context) (admin.Stats, error)
}

type AdminHandler struct {
	service AdminServiceInterface
}

func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// ListUsersHandler handles GET /admin/users
func (h *AdminHandler) ListUsersHandler(c *gin.Context) {
	active, err := helpers.QueryBool(c, "active")
	if err != nil {
		helpers.RespondError(c, "ListUsersHandler", "invalid filter", err, nil)
		return
	}
	users, total, page, err := h.service.ListUsers(c.Request.Context(), models.UserFilter{
		Role:   strings.TrimSpace(c.Query("role")),
		Active: active,
		Query:  c.Query("q"),
		Page:   helpers.ParsePage(c, admin.DefaultPageSize, admin.MaxPageSize),
	})
	if err != nil {
		helpers.RespondError(c, "ListUsersHandler", "error listing users", err, map[string]any{"role": c.Query("role")})
		return
	}
	utils.JSONResponse(c, http.StatusOK, utils.NewPageData(users, page.Page, page.Limit, total), "users retrieved successfully")
}

// SetUserStatusHandler handles PUT /admin/users/:id/status
func (h *AdminHandler) SetUserStatusHandler(c *gin.Context) {
	var req helpers.UserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SetUserStatusHandler", err)
		return
	}
	adminID, _ := helpers.CurrentUser(c)
	userID := c.Param("id")

	u, err := h.service.SetUserActive(c.Request.Context(), adminID, userID, *req.Active)
	if err != nil {
		helpers.RespondError(c, "SetUserStatusHandler", "failed to update user status", err, map[string]any{"user_id": userID, "admin_id": adminID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, u, "user status updated successfully")
	helpers.LogSuccess("SetUserStatusHandler", "user status updated", map[string]any{"user_id": userID, "active": u.Active, "admin_id": adminID})
}

// VerifyFarmerHandler handles PUT /admin/farmers/:id/verify
func (h *AdminHandler) VerifyFarmerHandler(c *gin.Context) {
	var req helpers.VerifyFarmerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "VerifyFarmerHandler", err)
		return
	}
	userID := c.Param("id")

	u, err := h.service.VerifyFarmer(c.Request.Context(), userID, *req.Verified)
	if err != nil {
		helpers.RespondError(c, "VerifyFarmerHandler", "failed to verify farmer", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, u, "farmer verification updated successfully")
	helpers.LogSuccess("VerifyFarmerHandler", "farmer verification updated", map[string]any{"user_id": userID, "verified": u.Verified})
}

// ListProductsHandler handles GET /admin/products
func (h *AdminHandler) ListProductsHandler(c *gin.Context) {
	list, total, page, err := h.service.ListProducts(c.Request.Context(), strings.TrimSpace(c.Query("status")), helpers.ParsePage(c, admin.DefaultPageSize, admin.MaxPageSize))
	if err != nil {
		helpers.RespondError(c, "ListProductsHandler", "error listing products", err, map[string]any{"status": c.Query("status")})
		return
	}
	utils.JSONResponse(c, http.StatusOK, utils.NewPageData(list, page.Page, page.Limit, total), "products retrieved successfully")
}

// SetProductStatusHandler handles PUT /admin/products/:id/status
func (h *AdminHandler) SetProductStatusHandler(c *gin.Context) {
	var req helpers.ProductStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SetProductStatusHandler", err)
		return
	}
	productID := c.Param("id")

	p, err := h.service.SetProductStatus(c.Request.Context(), productID, req.Status)
	if err != nil {
		helpers.RespondError(c, "SetProductStatusHandler", "failed to moderate product", err, map[string]any{"product_id": productID, "status": req.Status})
		return
	}

	utils.JSONResponse(c, http.StatusOK, p, "product status updated successfully")
	helpers.LogSuccess("SetProductStatusHandler", "product moderated", map[string]any{"product_id": productID, "status": p.Status})
}

// ListOrdersHandler handles GET /admin/orders
func (h *AdminHandler) ListOrdersHandler(c *gin.Context) {
	list, total, page, err := h.service.ListOrders(c.Request.Context(), models.OrderFilter{
		Status:        strings.TrimSpace(c.Query("status")),
		PaymentStatus: strings.TrimSpace(c.Query("payment_status")),
		Page:          helpers.ParsePage(c, admin.DefaultPageSize, admin.MaxPageSize),
	})
	if err != nil {
		helpers.RespondError(c, "ListOrdersHandler", "error listing orders", err, nil)
		return
	}
	utils.JSONResponse(c, http.StatusOK, utils.NewPageData(list, page.Page, page.Limit, total), "orders retrieved successfully")
}

// StatsHandler handles GET /admin/stats
func (h *AdminHandler) StatsHandler(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		helpers.RespondError(c, "StatsHandler", "failed to compute stats", err, nil)
		return
	}
	utils.JSONResponse(c, http.StatusOK, stats, "stats retrieved successfully")
}
