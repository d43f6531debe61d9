package helpers

import (
	"time"

	"farmerconnect/internal/models"
)

// Request/Response DTOs

type RegisterRequest struct {
	Name         string `json:"name" binding:"required,max=120"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=6,max=72"`
	Role         string `json:"role" binding:"required,oneof=farmer buyer"`
	Phone        string `json:"phone" binding:"max=20"`
	Location     string `json:"location" binding:"max=200"`
	FarmName     string `json:"farm_name" binding:"max=200"`
	BusinessName string `json:"business_name" binding:"max=200"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ProfileRequest struct {
	Name         *string `json:"name" binding:"omitempty,min=1,max=120"`
	Phone        *string `json:"phone" binding:"omitempty,max=20"`
	Location     *string `json:"location" binding:"omitempty,max=200"`
	FarmName     *string `json:"farm_name" binding:"omitempty,max=200"`
	BusinessName *string `json:"business_name" binding:"omitempty,max=200"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6,max=72"`
}

type ProductRequest struct {
	CategoryID       string     `json:"category_id" binding:"required"`
	Name             string     `json:"name" binding:"required,max=200"`
	Description      string     `json:"description" binding:"max=5000"`
	Unit             string     `json:"unit" binding:"required,max=20"`
	Price            float64    `json:"price" binding:"required,gt=0"`
	Quantity         float64    `json:"quantity" binding:"required,gt=0"`
	MinOrderQuantity float64    `json:"min_order_quantity" binding:"gte=0"`
	BiddingEnabled   bool       `json:"bidding_enabled"`
	MinBidPrice      float64    `json:"min_bid_price" binding:"gte=0"`
	BiddingEndsAt    *time.Time `json:"bidding_ends_at"`
	Location         string     `json:"location" binding:"max=200"`
	HarvestDate      *time.Time `json:"harvest_date"`
	Organic          bool       `json:"organic"`
}

type ProductPatchRequest struct {
	CategoryID       *string    `json:"category_id" binding:"omitempty,min=1"`
	Name             *string    `json:"name" binding:"omitempty,min=1,max=200"`
	Description      *string    `json:"description" binding:"omitempty,max=5000"`
	Unit             *string    `json:"unit" binding:"omitempty,min=1,max=20"`
	Price            *float64   `json:"price" binding:"omitempty,gt=0"`
	Quantity         *float64   `json:"quantity" binding:"omitempty,gte=0"`
	MinOrderQuantity *float64   `json:"min_order_quantity" binding:"omitempty,gt=0"`
	BiddingEnabled   *bool      `json:"bidding_enabled"`
	MinBidPrice      *float64   `json:"min_bid_price" binding:"omitempty,gt=0"`
	BiddingEndsAt    *time.Time `json:"bidding_ends_at"`
	Location         *string    `json:"location" binding:"omitempty,max=200"`
	HarvestDate      *time.Time `json:"harvest_date"`
	Organic          *bool      `json:"organic"`
}

type PlaceBidRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
	Message   string  `json:"message" binding:"max=500"`
}

type AcceptBidResponse struct {
	Bid   models.Bid   `json:"bid"`
	Order models.Order `json:"order"`
}

type CreateOrderRequest struct {
	ProductID       string  `json:"product_id" binding:"required"`
	Quantity        float64 `json:"quantity" binding:"required,gt=0"`
	DeliveryAddress string  `json:"delivery_address" binding:"max=500"`
	Notes           string  `json:"notes" binding:"max=1000"`
}

type OrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type PayRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required,oneof=upi card netbanking cod"`
}

type ReviewRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

type ReviewListResponse struct {
	Items         []models.Review `json:"items"`
	Page          int             `json:"page"`
	Limit         int             `json:"limit"`
	Total         int             `json:"total"`
	TotalPages    int             `json:"total_pages"`
	AverageRating float64         `json:"average_rating"`
	Count         int             `json:"count"`
}

type UserStatusRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type VerifyFarmerRequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

type ProductStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive rejected"`
}

type ChatTurn struct {
	Role string `json:"role" binding:"required,oneof=user model"`
	Text string `json:"text" binding:"required"`
}

type ChatRequest struct {
	Message string     `json:"message" binding:"required,max=4000"`
	History []ChatTurn `json:"history" binding:"omitempty,dive"`
}

type UnreadCountResponse struct {
	Unread int `json:"unread"`
}
