package models

import "time"

// Product statuses
const (
	ProductActive   = "active"
	ProductSold     = "sold"
	ProductInactive = "inactive"
	ProductRejected = "rejected"
)

// Product is a farmer's listing, sold at a fixed price or through bidding
type Product struct {
	ProductID        string         `json:"product_id"`
	FarmerID         string         `json:"farmer_id"`
	CategoryID       string         `json:"category_id"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	Unit             string         `json:"unit"`
	Price            float64        `json:"price"`
	Quantity         float64        `json:"quantity"`
	MinOrderQuantity float64        `json:"min_order_quantity"`
	BiddingEnabled   bool           `json:"bidding_enabled"`
	MinBidPrice      float64        `json:"min_bid_price"`
	BiddingEndsAt    *time.Time     `json:"bidding_ends_at,omitempty"`
	Status           string         `json:"status"`
	Location         string         `json:"location"`
	HarvestDate      *time.Time     `json:"harvest_date,omitempty"`
	Organic          bool           `json:"organic"`
	Images           []ProductImage `json:"images"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// BiddingOpen reports whether bids may be placed at instant now
func (p Product) BiddingOpen(now time.Time) bool {
	if p.BiddingEndsAt == nil {
		return true
	}
	return now.Before(*p.BiddingEndsAt)
}

// ProductImage is an uploaded picture plus its generated thumbnail
type ProductImage struct {
	ImageID      string    `json:"image_id"`
	ProductID    string    `json:"product_id"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Primary      bool      `json:"primary"`
	CreatedAt    time.Time `json:"created_at"`
}

// Product list orderings
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

// ProductFilter narrows product listings. Nil pointers mean "any".
type ProductFilter struct {
	CategoryID string
	Query      string
	MinPrice   *float64
	MaxPrice   *float64
	Location   string
	FarmerID   string
	Bidding    *bool
	Organic    *bool
	Statuses   []string
	Sort       string
	Page       Page
}
