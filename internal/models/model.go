package models

import (
	"math"
	"time"
)

// Roles a marketplace participant can hold
const (
	RoleFarmer = "farmer"
	RoleBuyer  = "buyer"
	RoleAdmin  = "admin"
)

// User represents a participant in the marketplace. Farmer and buyer profile
// fields live on the same record; only the ones matching Role are meaningful.
type User struct {
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	Location     string    `json:"location,omitempty"`
	FarmName     string    `json:"farm_name,omitempty"`
	BusinessName string    `json:"business_name,omitempty"`
	Verified     bool      `json:"verified"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Category groups products (vegetables, grains, ...)
type Category struct {
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Notification is an in-app message addressed to one user
type Notification struct {
	NotificationID string    `json:"notification_id"`
	UserID         string    `json:"user_id"`
	Kind           string    `json:"kind"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	ReferenceID    string    `json:"reference_id,omitempty"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

// Notification kinds
const (
	NotifyBidPlaced     = "bid_placed"
	NotifyBidOutbid     = "bid_outbid"
	NotifyBidAccepted   = "bid_accepted"
	NotifyBidRejected   = "bid_rejected"
	NotifyOrderPlaced   = "order_placed"
	NotifyOrderStatus   = "order_status"
	NotifyOrderPaid     = "order_paid"
	NotifyAccount       = "account"
	NotifyProductStatus = "product_status"
)

// Page is a 1-based page request
type Page struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip
func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Normalize clamps page and limit into range, falling back to def for the limit
func (p Page) Normalize(def, max int) Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	return p
}

// PageSlice returns the window of list selected by p
func PageSlice[T any](list []T, p Page) []T {
	start := p.Offset()
	if start >= len(list) {
		return []T{}
	}
	end := start + p.Limit
	if p.Limit <= 0 || end > len(list) {
		end = len(list)
	}
	return list[start:end]
}

// RoundMoney rounds an amount to two decimals
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
