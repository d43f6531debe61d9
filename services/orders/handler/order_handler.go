package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"farmerconnect/internal/models"
	orders "farmerconnect/internal/orderService"
	"farmerconnect/services/helpers"
	"farmerconnect/utils"

	"github.com/gin-gonic/gin"
)

// Page sizes for order listings
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type OrderServiceInterface interface {
	Create(ctx context.Context, buyerID string, in orders.CreateOrderInput) (models.Order, error)
	List(ctx context.Context, viewer orders.Viewer, filter models.OrderFilter) ([]models.Order, int, error)
	Get(ctx context.Context, viewer orders.Viewer, orderID string) (models.Order, error)
	UpdateStatus(ctx context.Context, viewer orders.Viewer, orderID, status string) (models.Order, error)
	Cancel(ctx context.Context, viewer orders.Viewer, orderID string) (models.Order, error)
	Pay(ctx context.Context, buyerID, orderID, method string) (models.Order, bool, error)
	Receipt(ctx context.Context, viewer orders.Viewer, orderID string) (models.Order, []byte, error)
}

type OrderHandler struct {
	service OrderServiceInterface
}

func NewOrderHandler(service OrderServiceInterface) *OrderHandler {
	return &OrderHandler{service: service}
}

func viewer(c *gin.Context) orders.Viewer {
	id, role := helpers.CurrentUser(c)
	return orders.Viewer{UserID: id, Role: role}
}

// CreateOrderHandler handles POST /orders
func (h *OrderHandler) CreateOrderHandler(c *gin.Context) {
	var req helpers.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateOrderHandler", err)
		return
	}
	buyerID, _ := helpers.CurrentUser(c)

	o, err := h.service.Create(c.Request.Context(), buyerID, orders.CreateOrderInput{
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		helpers.RespondError(c, "CreateOrderHandler", "failed to place order", err, map[string]any{
			"product_id": req.ProductID,
			"buyer_id":   buyerID,
			"quantity":   req.Quantity,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, o, "order placed successfully")
	helpers.LogSuccess("CreateOrderHandler", "order placed successfully", map[string]any{
		"order_id":   o.OrderID,
		"product_id": o.ProductID,
		"total":      o.Total,
	})
}

// ListOrdersHandler handles GET /orders
func (h *OrderHandler) ListOrdersHandler(c *gin.Context) {
	v := viewer(c)
	page := helpers.ParsePage(c, defaultPageSize, maxPageSize)
	list, total, err := h.service.List(c.Request.Context(), v, models.OrderFilter{
		Status:        strings.TrimSpace(c.Query("status")),
		PaymentStatus: strings.TrimSpace(c.Query("payment_status")),
		Page:          page,
	})
	if err != nil {
		helpers.RespondError(c, "ListOrdersHandler", "error listing orders", err, map[string]any{"user_id": v.UserID, "role": v.Role})
		return
	}

	utils.JSONResponse(c, http.StatusOK, utils.NewPageData(list, page.Page, page.Limit, total), "orders retrieved successfully")
	helpers.LogSuccess("ListOrdersHandler", "orders retrieved successfully", map[string]any{"user_id": v.UserID, "total": total})
}

// GetOrderHandler handles GET /orders/:id
func (h *OrderHandler) GetOrderHandler(c *gin.Context) {
	v := viewer(c)
	orderID := c.Param("id")
	o, err := h.service.Get(c.Request.Context(), v, orderID)
	if err != nil {
		helpers.RespondError(c, "GetOrderHandler", "error retrieving order", err, map[string]any{"order_id": orderID, "user_id": v.UserID})
		return
	}
	utils.JSONResponse(c, http.StatusOK, o, "order retrieved successfully")
}

// UpdateOrderStatusHandler handles PUT /orders/:id/status
func (h *OrderHandler) UpdateOrderStatusHandler(c *gin.Context) {
	var req helpers.OrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "UpdateOrderStatusHandler", err)
		return
	}
	v := viewer(c)
	orderID := c.Param("id")

	o, err := h.service.UpdateStatus(c.Request.Context(), v, orderID, req.Status)
	if err != nil {
		helpers.RespondError(c, "UpdateOrderStatusHandler", "failed to update order status", err, map[string]any{
			"order_id": orderID,
			"status":   req.Status,
			"user_id":  v.UserID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, o, "order status updated successfully")
	helpers.LogSuccess("UpdateOrderStatusHandler", "order status updated", map[string]any{"order_id": orderID, "status": o.Status})
}

// CancelOrderHandler handles PUT /orders/:id/cancel
func (h *OrderHandler) CancelOrderHandler(c *gin.Context) {
	v := viewer(c)
	orderID := c.Param("id")
	o, err := h.service.Cancel(c.Request.Context(), v, orderID)
	if err != nil {
		helpers.RespondError(c, "CancelOrderHandler", "failed to cancel order", err, map[string]any{"order_id": orderID, "user_id": v.UserID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, o, "order cancelled successfully")
	helpers.LogSuccess("CancelOrderHandler", "order cancelled", map[string]any{"order_id": orderID, "payment_status": o.PaymentStatus})
}

// PayOrderHandler handles POST /orders/:id/pay
func (h *OrderHandler) PayOrderHandler(c *gin.Context) {
	var req helpers.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PayOrderHandler", err)
		return
	}
	buyerID, _ := helpers.CurrentUser(c)
	orderID := c.Param("id")

	o, recorded, err := h.service.Pay(c.Request.Context(), buyerID, orderID, req.PaymentMethod)
	if err != nil {
		helpers.RespondError(c, "PayOrderHandler", "payment failed", err, map[string]any{"order_id": orderID, "buyer_id": buyerID})
		return
	}

	message := "payment recorded successfully"
	if !recorded {
		message = "order already paid"
	}
	utils.JSONResponse(c, http.StatusOK, o, message)
	helpers.LogSuccess("PayOrderHandler", message, map[string]any{"order_id": orderID, "payment_ref": o.PaymentRef})
}

// ReceiptHandler handles GET /orders/:id/receipt
func (h *OrderHandler) ReceiptHandler(c *gin.Context) {
	v := viewer(c)
	orderID := c.Param("id")
	o, pdf, err := h.service.Receipt(c.Request.Context(), v, orderID)
	if err != nil {
		helpers.RespondError(c, "ReceiptHandler", "failed to build receipt", err, map[string]any{"order_id": orderID, "user_id": v.UserID})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"receipt-%s.pdf\"", o.OrderID))
	c.Data(http.StatusOK, "application/pdf", pdf)
	helpers.LogSuccess("ReceiptHandler", "receipt generated", map[string]any{"order_id": orderID, "bytes": len(pdf)})
}
