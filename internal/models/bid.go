package models

import "time"

// Bid statuses
const (
	BidActive    = "active"
	BidOutbid    = "outbid"
	BidAccepted  = "accepted"
	BidRejected  = "rejected"
	BidWithdrawn = "withdrawn"
)

// Bid represents a buyer's offer on a bidding-mode product. Amount is per unit.
type Bid struct {
	BidID     string    `json:"bid_id"`
	ProductID string    `json:"product_id"`
	BuyerID   string    `json:"buyer_id"`
	FarmerID  string    `json:"farmer_id"`
	Amount    float64   `json:"amount"`
	Quantity  float64   `json:"quantity"`
	Message   string    `json:"message,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Open reports whether the bid can still be accepted, rejected or withdrawn
func (b Bid) Open() bool {
	return b.Status == BidActive || b.Status == BidOutbid
}

// Total is the value of the bid across its quantity
func (b Bid) Total() float64 {
	return RoundMoney(b.Amount * b.Quantity)
}

// Higher reports whether b ranks above other: larger amount, earlier on ties
func (b Bid) Higher(other Bid) bool {
	if b.Amount != other.Amount {
		return b.Amount > other.Amount
	}
	return b.CreatedAt.Before(other.CreatedAt)
}

// BidFilter narrows bid listings
type BidFilter struct {
	BuyerID  string
	FarmerID string
	Status   string
	Page     Page
}
