package marketerrors

import (
	"errors"
	"fmt"
)

// Repository-level errors
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrBidNotFound          = errors.New("bid not found")
	ErrNoBids               = errors.New("no bids found for product")
	ErrOrderNotFound        = errors.New("order not found")
	ErrReviewNotFound       = errors.New("review not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrAlreadyExists        = errors.New("record already exists")
	ErrPriceNotFound        = errors.New("no prices found for commodity")
)

// business logic errors
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidBid         = errors.New("invalid bid")
	ErrBidTooLow          = errors.New("bid amount too low")
	ErrNotBiddable        = errors.New("product is not open for bidding")
	ErrBiddingOnly        = errors.New("product is sold through bidding only")
	ErrBiddingClosed      = errors.New("bidding has closed for this product")
	ErrProductUnavailable = errors.New("product is not available")
	ErrOwnProduct         = errors.New("cannot buy or bid on your own product")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrBidClosed          = errors.New("bid is no longer open")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrOrderCancelled     = errors.New("order is cancelled")
	ErrOrderNotDelivered  = errors.New("order has not been delivered")
	ErrAlreadyReviewed    = errors.New("order already reviewed")
	ErrImageLimit         = errors.New("image limit reached")
	ErrUnsupportedImage   = errors.New("unsupported image")
	ErrImageTooLarge      = errors.New("image too large")
)

// access errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountSuspended   = errors.New("account suspended")
	ErrForbidden          = errors.New("forbidden")
	ErrTokenMissing       = errors.New("missing bearer token")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
)

// upstream errors
var (
	ErrAssistantUnavailable = errors.New("assistant is not configured")
	ErrUpstream             = errors.New("upstream service failed")
)

// MinimumBidError rejects a bid below the current minimum acceptable amount
type MinimumBidError struct {
	Minimum float64
}

func (e *MinimumBidError) Error() string {
	return fmt.Sprintf("bid amount too low: minimum is %.2f", e.Minimum)
}

func (e *MinimumBidError) Unwrap() error {
	return ErrBidTooLow
}
