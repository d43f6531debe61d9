package bidding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"farmerconnect/internal/marketerrors"
	"farmerconnect/internal/models"
	"farmerconnect/internal/repository"
	"farmerconnect/utils"
)

// Notifier delivers in-app notifications
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// PlaceBidInput carries a buyer's offer
type PlaceBidInput struct {
	ProductID string
	Amount    float64
	Quantity  float64
	Message   string
}

// BiddingService defines the business logic for product bidding
type BiddingService struct {
	bids         repository.BidStore
	notifier     Notifier
	minIncrement float64
	now          func() time.Time
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(bids repository.BidStore, notifier Notifier, minIncrement float64) *BiddingService {
	return &BiddingService{
		bids:         bids,
		notifier:     notifier,
		minIncrement: minIncrement,
		now:          time.Now,
	}
}

// PlaceBid validates and records a buyer's bid. The rules are evaluated
// inside the store against the locked product and its current highest bid.
func (s *BiddingService) PlaceBid(ctx context.Context, buyerID string, in PlaceBidInput) (models.Bid, error) {
	if in.ProductID == "" || buyerID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - missing productID or buyerID", marketerrors.ErrInvalidBid)
	}
	if in.Amount <= 0 {
		return models.Bid{}, fmt.Errorf("service: %w - non-positive bid amount", marketerrors.ErrInvalidBid)
	}
	if in.Quantity <= 0 {
		return models.Bid{}, fmt.Errorf("service: %w - non-positive quantity", marketerrors.ErrInvalidBid)
	}

	now := s.now().UTC()
	bid := models.Bid{
		BidID:     utils.GenerateID(),
		ProductID: in.ProductID,
		BuyerID:   buyerID,
		Amount:    models.RoundMoney(in.Amount),
		Quantity:  in.Quantity,
		Message:   strings.TrimSpace(in.Message),
		CreatedAt: now,
		UpdatedAt: now,
	}

	var product models.Product
	outbid, err := s.bids.PlaceBid(ctx, bid, func(p models.Product, highest *models.Bid) error {
		product = p
		return ValidateBid(bid, p, highest, s.minIncrement, now)
	})
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to place bid on product %s by buyer %s: %w", in.ProductID, buyerID, err)
	}
	bid.FarmerID = product.FarmerID
	bid.Status = models.BidActive

	s.notify(ctx, models.Notification{
		UserID:      product.FarmerID,
		Kind:        models.NotifyBidPlaced,
		Title:       "New bid on " + product.Name,
		Message:     fmt.Sprintf("A buyer offered ₹%.2f/%s for %g %s", bid.Amount, product.Unit, bid.Quantity, product.Unit),
		ReferenceID: bid.BidID,
	})
	for _, o := range outbid {
		if o.BuyerID == buyerID {
			continue
		}
		s.notify(ctx, models.Notification{
			UserID:      o.BuyerID,
			Kind:        models.NotifyBidOutbid,
			Title:       "You have been outbid on " + product.Name,
			Message:     fmt.Sprintf("The highest bid is now ₹%.2f/%s", bid.Amount, product.Unit),
			ReferenceID: o.BidID,
		})
	}
	return bid, nil
}

// ValidateBid checks a bid against the product and its current highest
// active bid (nil when there is none)
func ValidateBid(bid models.Bid, product models.Product, highest *models.Bid, minIncrement float64, now time.Time) error {
	if product.Status != models.ProductActive {
		return fmt.Errorf("%w - product status is %s", marketerrors.ErrProductUnavailable, product.Status)
	}
	if !product.BiddingEnabled {
		return marketerrors.ErrNotBiddable
	}
	if !product.BiddingOpen(now) {
		return marketerrors.ErrBiddingClosed
	}
	if bid.BuyerID == product.FarmerID {
		return marketerrors.ErrOwnProduct
	}
	if bid.Quantity > product.Quantity {
		return fmt.Errorf("%w - only %g %s available", marketerrors.ErrInsufficientStock, product.Quantity, product.Unit)
	}
	if bid.Quantity < product.MinOrderQuantity {
		return fmt.Errorf("%w - minimum quantity is %g %s", marketerrors.ErrInvalidBid, product.MinOrderQuantity, product.Unit)
	}

	minimum := product.MinBidPrice
	if highest != nil {
		minimum = highest.Amount + minIncrement
	}
	minimum = models.RoundMoney(minimum)
	if bid.Amount < minimum {
		return &marketerrors.MinimumBidError{Minimum: minimum}
	}
	return nil
}

// AcceptBid turns an open bid into a confirmed order and rejects the
// product's other open bids
func (s *BiddingService) AcceptBid(ctx context.Context, farmerID, bidID string) (models.Bid, models.Order, error) {
	if bidID == "" {
		return models.Bid{}, models.Order{}, fmt.Errorf("service: %w - empty bid ID", marketerrors.ErrInvalidBid)
	}

	now := s.now().UTC()
	var product models.Product
	bid, order, closed, err := s.bids.AcceptBid(ctx, bidID, func(b models.Bid, p models.Product) (models.Order, error) {
		product = p
		if p.FarmerID != farmerID {
			return models.Order{}, marketerrors.ErrForbidden
		}
		if !b.Open() {
			return models.Order{}, fmt.Errorf("%w - bid is %s", marketerrors.ErrBidClosed, b.Status)
		}
		if p.Status != models.ProductActive {
			return models.Order{}, fmt.Errorf("%w - product is %s", marketerrors.ErrProductUnavailable, p.Status)
		}
		if b.Quantity > p.Quantity {
			return models.Order{}, fmt.Errorf("%w - only %g %s left", marketerrors.ErrInsufficientStock, p.Quantity, p.Unit)
		}
		return models.Order{
			OrderID:       utils.GenerateID(),
			BuyerID:       b.BuyerID,
			FarmerID:      p.FarmerID,
			ProductID:     p.ProductID,
			ProductName:   p.Name,
			Unit:          p.Unit,
			BidID:         b.BidID,
			Quantity:      b.Quantity,
			UnitPrice:     b.Amount,
			Total:         b.Total(),
			Status:        models.OrderConfirmed,
			PaymentStatus: models.PaymentPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}, nil
	})
	if err != nil {
		return models.Bid{}, models.Order{}, fmt.Errorf("service: failed to accept bid %s: %w", bidID, err)
	}

	s.notify(ctx, models.Notification{
		UserID:      bid.BuyerID,
		Kind:        models.NotifyBidAccepted,
		Title:       "Your bid on " + product.Name + " was accepted",
		Message:     fmt.Sprintf("Order for %g %s at ₹%.2f/%s is confirmed. Total ₹%.2f", order.Quantity, order.Unit, order.UnitPrice, order.Unit, order.Total),
		ReferenceID: order.OrderID,
	})
	for _, c := range closed {
		s.notify(ctx, models.Notification{
			UserID:      c.BuyerID,
			Kind:        models.NotifyBidRejected,
			Title:       "Bidding closed on " + product.Name,
			Message:     "The farmer accepted another offer",
			ReferenceID: c.BidID,
		})
	}
	return bid, order, nil
}

// RejectBid lets the product's farmer decline an open bid
func (s *BiddingService) RejectBid(ctx context.Context, farmerID, bidID string) (models.Bid, error) {
	bid, err := s.closeBid(ctx, bidID, models.BidRejected, func(b models.Bid) bool { return b.FarmerID == farmerID })
	if err != nil {
		return models.Bid{}, err
	}
	s.notify(ctx, models.Notification{
		UserID:      bid.BuyerID,
		Kind:        models.NotifyBidRejected,
		Title:       "Your bid was declined",
		Message:     fmt.Sprintf("The farmer declined your offer of ₹%.2f", bid.Amount),
		ReferenceID: bid.BidID,
	})
	return bid, nil
}

// WithdrawBid lets a buyer take back their own open bid
func (s *BiddingService) WithdrawBid(ctx context.Context, buyerID, bidID string) (models.Bid, error) {
	return s.closeBid(ctx, bidID, models.BidWithdrawn, func(b models.Bid) bool { return b.BuyerID == buyerID })
}

func (s *BiddingService) closeBid(ctx context.Context, bidID, status string, allowed func(models.Bid) bool) (models.Bid, error) {
	if bidID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - empty bid ID", marketerrors.ErrInvalidBid)
	}
	now := s.now().UTC()
	bid, promoted, err := s.bids.CloseBid(ctx, bidID, func(b *models.Bid) error {
		if !allowed(*b) {
			return marketerrors.ErrForbidden
		}
		if !b.Open() {
			return fmt.Errorf("%w - bid is %s", marketerrors.ErrBidClosed, b.Status)
		}
		b.Status = status
		b.UpdatedAt = now
		return nil
	})
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to set bid %s %s: %w", bidID, status, err)
	}
	if promoted != nil {
		utils.Info("BiddingService: restored next highest bid", map[string]any{
			"product_id": promoted.ProductID,
			"bid_id":     promoted.BidID,
			"amount":     promoted.Amount,
		})
	}
	return bid, nil
}

// GetBidsForProduct returns all bids for a product, highest first
func (s *BiddingService) GetBidsForProduct(ctx context.Context, productID string) ([]models.Bid, error) {
	if productID == "" {
		return nil, fmt.Errorf("service: %w - empty product ID", marketerrors.ErrInvalidBid)
	}

	bids, err := s.bids.ListBidsByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for product %s: %w", productID, err)
	}

	return bids, nil
}

// GetHighestBid returns the current highest active bid for a product
func (s *BiddingService) GetHighestBid(ctx context.Context, productID string) (models.Bid, error) {
	if productID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - empty product ID", marketerrors.ErrInvalidBid)
	}

	bid, err := s.bids.GetHighestBid(ctx, productID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to get highest bid for product %s: %w", productID, err)
	}

	return bid, nil
}

// ListBuyerBids returns the bids a buyer has placed
func (s *BiddingService) ListBuyerBids(ctx context.Context, buyerID, status string, page models.Page) ([]models.Bid, int, error) {
	return s.listBids(ctx, models.BidFilter{BuyerID: buyerID, Status: status, Page: page})
}

// ListFarmerBids returns the bids received on a farmer's products
func (s *BiddingService) ListFarmerBids(ctx context.Context, farmerID, status string, page models.Page) ([]models.Bid, int, error) {
	return s.listBids(ctx, models.BidFilter{FarmerID: farmerID, Status: status, Page: page})
}

func (s *BiddingService) listBids(ctx context.Context, filter models.BidFilter) ([]models.Bid, int, error) {
	if filter.Status != "" && !validBidStatus(filter.Status) {
		return nil, 0, fmt.Errorf("service: %w - unknown bid status %q", marketerrors.ErrInvalidInput, filter.Status)
	}
	bids, total, err := s.bids.ListBids(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("service: failed to list bids: %w", err)
	}
	return bids, total, nil
}

func validBidStatus(status string) bool {
	switch status {
	case models.BidActive, models.BidOutbid, models.BidAccepted, models.BidRejected, models.BidWithdrawn:
		return true
	}
	return false
}

func (s *BiddingService) notify(ctx context.Context, n models.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		utils.Warn("BiddingService: notification failed", map[string]any{
			"user_id": n.UserID,
			"kind":    n.Kind,
			"error":   err.Error(),
		})
	}
}
