package models

import "time"

// Order statuses, in lifecycle order
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderPreparing = "preparing"
	OrderReady     = "ready"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

// Payment statuses
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

// OrderFlow is the forward lifecycle; each status may only advance one step
var OrderFlow = []string{OrderPending, OrderConfirmed, OrderPreparing, OrderReady, OrderDelivered}

// Order is a purchase, either at fixed price or from an accepted bid
type Order struct {
	OrderID         string     `json:"order_id"`
	BuyerID         string     `json:"buyer_id"`
	FarmerID        string     `json:"farmer_id"`
	ProductID       string     `json:"product_id"`
	ProductName     string     `json:"product_name"`
	Unit            string     `json:"unit"`
	BidID           string     `json:"bid_id,omitempty"`
	Quantity        float64    `json:"quantity"`
	UnitPrice       float64    `json:"unit_price"`
	Total           float64    `json:"total"`
	Status          string     `json:"status"`
	PaymentStatus   string     `json:"payment_status"`
	PaymentMethod   string     `json:"payment_method,omitempty"`
	PaymentRef      string     `json:"payment_ref,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	DeliveryAddress string     `json:"delivery_address,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Involves reports whether userID is the buyer or the farmer of the order
func (o Order) Involves(userID string) bool {
	return o.BuyerID == userID || o.FarmerID == userID
}

// OrderFilter narrows order listings
type OrderFilter struct {
	BuyerID       string
	FarmerID      string
	Status        string
	PaymentStatus string
	Page          Page
}

// Review is a buyer's rating of a delivered order
type Review struct {
	ReviewID  string    `json:"review_id"`
	OrderID   string    `json:"order_id"`
	ProductID string    `json:"product_id"`
	BuyerID   string    `json:"buyer_id"`
	FarmerID  string    `json:"farmer_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewFilter selects reviews for a farmer or a product
type ReviewFilter struct {
	FarmerID  string
	ProductID string
	Page      Page
}

// UserFilter narrows admin user listings
type UserFilter struct {
	Role   string
	Active *bool
	Query  string
	Page   Page
}
