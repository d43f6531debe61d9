package handler

import (
	"context"
	"net/http"

	bidding "farmerconnect/internal/biddingService"
	"farmerconnect/internal/models"
	"farmerconnect/services/helpers"
	"farmerconnect/utils"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -destination=mock_bidding_service.go -package=handler farmerconnect/services/bidding/handler BiddingServiceInterface

// Page sizes for bid listings
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, buyerID string, in bidding.PlaceBidInput) (models.Bid, error)
	GetBidsForProduct(ctx context.Context, productID string) ([]models.Bid, error)
	GetHighestBid(ctx context.Context, productID string) (models.Bid, error)
	ListBuyerBids(ctx context.Context, buyerID, status string, page models.Page) ([]models.Bid, int, error)
	ListFarmerBids(ctx context.Context, farmerID, status string, page models.Page) ([]models.Bid, int, error)
	AcceptBid(ctx context.Context, farmerID, bidID string) (models.Bid, models.Order, error)
	RejectBid(ctx context.Context, farmerID, bidID string) (models.Bid, error)
	WithdrawBid(ctx context.Context, buyerID, bidID string) (models.Bid, error)
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// PlaceBidHandler handles POST /bids
func (h *BiddingHandler) PlaceBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}
	buyerID, _ := helpers.CurrentUser(c)

	bid, err := h.service.PlaceBid(c.Request.Context(), buyerID, bidding.PlaceBidInput{
		ProductID: req.ProductID,
		Amount:    req.Amount,
		Quantity:  req.Quantity,
		Message:   req.Message,
	})
	if err != nil {
		helpers.RespondError(c, "PlaceBidHandler", "failed to place bid", err, map[string]any{
			"product_id": req.ProductID,
			"buyer_id":   buyerID,
			"amount":     req.Amount,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, bid, "bid placed successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid placed successfully", map[string]any{
		"bid_id":     bid.BidID,
		"product_id": bid.ProductID,
		"buyer_id":   buyerID,
		"amount":     bid.Amount,
	})
}

// GetBidsByProductHandler handles GET /bids/product/:product_id
func (h *BiddingHandler) GetBidsByProductHandler(c *gin.Context) {
	productID := c.Param("product_id")
	bids, err := h.service.GetBidsForProduct(c.Request.Context(), productID)
	if err != nil {
		helpers.RespondError(c, "GetBidsByProductHandler", "error retrieving bids", err, map[string]any{"product_id": productID})
		return
	}

	if bids == nil {
		bids = []models.Bid{}
	}

	utils.JSONResponse(c, http.StatusOK, bids, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByProductHandler", "bids retrieved successfully", map[string]any{
		"product_id": productID,
		"count":      len(bids),
	})
}

// GetHighestBidHandler handles GET /products/:id/highest-bid
func (h *BiddingHandler) GetHighestBidHandler(c *gin.Context) {
	productID := c.Param("id")
	bid, err := h.service.GetHighestBid(c.Request.Context(), productID)
	if err != nil {
		helpers.RespondError(c, "GetHighestBidHandler", "highest bid error", err, map[string]any{"product_id": productID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, bid, "highest bid retrieved successfully")
	helpers.LogSuccess("GetHighestBidHandler", "highest bid retrieved successfully", map[string]any{
		"bid_id":     bid.BidID,
		"product_id": bid.ProductID,
		"amount":     bid.Amount,
	})
}

// ListMyBidsHandler handles GET /bids/mine
func (h *BiddingHandler) ListMyBidsHandler(c *gin.Context) {
	buyerID, _ := helpers.CurrentUser(c)
	page := helpers.ParsePage(c, defaultPageSize, maxPageSize)
	bids, total, err := h.service.ListBuyerBids(c.Request.Context(), buyerID, c.Query("status"), page)
	if err != nil {
		helpers.RespondError(c, "ListMyBidsHandler", "error listing bids", err, map[string]any{"buyer_id": buyerID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, utils.NewPageData(bids, page.Page, page.Limit, total), "bids retrieved successfully")
	helpers.LogSuccess("ListMyBidsHandler", "bids retrieved successfully", map[string]any{"buyer_id": buyerID, "total": total})
}

// ListReceivedBidsHandler handles GET /bids/received
func (h *BiddingHandler) ListReceivedBidsHandler(c *gin.Context) {
	farmerID, _ := helpers.CurrentUser(c)
	page := helpers.ParsePage(c, defaultPageSize, maxPageSize)
	bids, total, err := h.service.ListFarmerBids(c.Request.Context(), farmerID, c.Query("status"), page)
	if err != nil {
		helpers.RespondError(c, "ListReceivedBidsHandler", "error listing bids", err, map[string]any{"farmer_id": farmerID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, utils.NewPageData(bids, page.Page, page.Limit, total), "bids retrieved successfully")
	helpers.LogSuccess("ListReceivedBidsHandler", "bids retrieved successfully", map[string]any{"farmer_id": farmerID, "total": total})
}

// AcceptBidHandler handles PUT /bids/:id/accept
func (h *BiddingHandler) AcceptBidHandler(c *gin.Context) {
	farmerID, _ := helpers.CurrentUser(c)
	bidID := c.Param("id")
	bid, order, err := h.service.AcceptBid(c.Request.Context(), farmerID, bidID)
	if err != nil {
		helpers.RespondError(c, "AcceptBidHandler", "failed to accept bid", err, map[string]any{"bid_id": bidID, "farmer_id": farmerID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.AcceptBidResponse{Bid: bid, Order: order}, "bid accepted successfully")
	helpers.LogSuccess("AcceptBidHandler", "bid accepted successfully", map[string]any{
		"bid_id":   bid.BidID,
		"order_id": order.OrderID,
		"total":    order.Total,
	})
}

// RejectBidHandler handles PUT /bids/:id/reject
func (h *BiddingHandler) RejectBidHandler(c *gin.Context) {
	farmerID, _ := helpers.CurrentUser(c)
	bidID := c.Param("id")
	bid, err := h.service.RejectBid(c.Request.Context(), farmerID, bidID)
	if err != nil {
		helpers.RespondError(c, "RejectBidHandler", "failed to reject bid", err, map[string]any{"bid_id": bidID, "farmer_id": farmerID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, bid, "bid rejected successfully")
	helpers.LogSuccess("RejectBidHandler", "bid rejected successfully", map[string]any{"bid_id": bid.BidID})
}

// WithdrawBidHandler handles PUT /bids/:id/withdraw
func (h *BiddingHandler) WithdrawBidHandler(c *gin.Context) {
	buyerID, _ := helpers.CurrentUser(c)
	bidID := c.Param("id")
	bid, err := h.service.WithdrawBid(c.Request.Context(), buyerID, bidID)
	if err != nil {
		helpers.RespondError(c, "WithdrawBidHandler", "failed to withdraw bid", err, map[string]any{"bid_id": bidID, "buyer_id": buyerID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, bid, "bid withdrawn successfully")
	helpers.LogSuccess("WithdrawBidHandler", "bid withdrawn successfully", map[string]any{"bid_id": bid.BidID})
}
