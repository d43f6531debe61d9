package orders

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

// Payment methods accepted by the simulated gateway
const (
	PayUPI        = "upi"
	PayCard       = "card"
	PayNetBanking = "netbanking"
	PayCOD        = "cod"
)

// Notifier delivers in-app notifications
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Viewer identifies the caller of a role-scoped query
type Viewer struct {
	UserID string
	Role   string
}

// CreateOrderInput carries a fixed-price purchase request
type CreateOrderInput struct {
	ProductID       string
	Quantity        float64
	DeliveryAddress string
	Notes           string
}

// OrderService manages fixed-price orders and the order lifecycle
type OrderService struct {
	orders   repository.OrderStore
	notifier Notifier
	now      func() time.Time
}

// NewOrderService creates a new OrderService instance
func NewOrderService(orders repository.OrderStore, notifier Notifier) *OrderService {
	return &OrderService{
		orders:   orders,
		notifier: notifier,
		now:      time.Now,
	}
}

// Create places a fixed-price order. The purchase rules run against the
// locked product so stock cannot be oversold.
func (s *OrderService) Create(ctx context.Context, buyerID string, in CreateOrderInput) (models.Order, error) {
	if in.ProductID == "" {
		return models.Order{}, fmt.Errorf("service: %w - product_id is required", marketerrors.ErrInvalidInput)
	}
	if in.Quantity <= 0 {
		return models.Order{}, fmt.Errorf("service: %w - quantity must be positive", marketerrors.ErrInvalidInput)
	}

	now := s.now().UTC()
	order := models.Order{
		OrderID:         utils.GenerateID(),
		BuyerID:         buyerID,
		ProductID:       in.ProductID,
		Quantity:        in.Quantity,
		Status:          models.OrderPending,
		PaymentStatus:   models.PaymentPending,
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		Notes:           strings.TrimSpace(in.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	created, err := s.orders.CreateOrder(ctx, order, func(p models.Product, o *models.Order) error {
		if err := checkPurchase(p, buyerID, o.Quantity); err != nil {
			return err
		}
		o.FarmerID = p.FarmerID
		o.ProductName = p.Name
		o.Unit = p.Unit
		o.UnitPrice = p.Price
		o.Total = models.RoundMoney(p.Price * o.Quantity)
		return nil
	})
	if err != nil {
		return models.Order{}, fmt.Errorf("service: failed to create order for product %s: %w", in.ProductID, err)
	}

	s.notify(ctx, models.Notification{
		UserID:      created.FarmerID,
		Kind:        models.NotifyOrderPlaced,
		Title:       "New order received",
		Message:     fmt.Sprintf("New order for %g %s of %s (total ₹%.2f)", created.Quantity, created.Unit, created.ProductName, created.Total),
		ReferenceID: created.OrderID,
	})
	return created, nil
}

// checkPurchase applies the fixed-price purchase rules to a product
func checkPurchase(p models.Product, buyerID string, qty float64) error {
	switch {
	case p.Status != models.ProductActive:
		return marketerrors.ErrProductUnavailable
	case p.BiddingEnabled:
		return marketerrors.ErrBiddingOnly
	case p.FarmerID == buyerID:
		return marketerrors.ErrOwnProduct
	case qty < p.MinOrderQuantity:
		return fmt.Errorf("%w - minimum order quantity is %g %s", marketerrors.ErrInvalidInput, p.MinOrderQuantity, p.Unit)
	case qty > p.Quantity:
		return marketerrors.ErrInsufficientStock
	}
	return nil
}

// List returns the orders visible to the viewer: buyers see their purchases,
// farmers their sales and admins everything
func (s *OrderService) List(ctx context.Context, viewer Viewer, filter models.OrderFilter) ([]models.Order, int, error) {
	switch viewer.Role {
	case models.RoleBuyer:
		filter.BuyerID, filter.FarmerID = viewer.UserID, ""
	case models.RoleFarmer:
		filter.FarmerID, filter.BuyerID = viewer.UserID, ""
	case models.RoleAdmin:
	default:
		return nil, 0, fmt.Errorf("service: %w - unknown role %q", marketerrors.ErrForbidden, viewer.Role)
	}
	if filter.Status != "" && !validStatus(filter.Status) {
		return nil, 0, fmt.Errorf("service: %w - unknown order status %q", marketerrors.ErrInvalidInput, filter.Status)
	}

	list, total, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return list, total, nil
}

// Get returns an order to one of its participants or an admin
func (s *OrderService) Get(ctx context.Context, viewer Viewer, orderID string) (models.Order, error) {
	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, fmt.Errorf("service: failed to get order %s: %w", orderID, err)
	}
	if viewer.Role != models.RoleAdmin && !o.Involves(viewer.UserID) {
		return models.Order{}, fmt.Errorf("service: %w - order %s", marketerrors.ErrForbidden, orderID)
	}
	return o, nil
}

func validStatus(status string) bool {
	return status == models.OrderCancelled || flowIndex(status) >= 0
}

func flowIndex(status string) int {
	for i, s := range models.OrderFlow {
		if s == status {
			return i
		}
	}
	return -1
}

// CanTransition reports whether an order may move from one status to another:
// one step forward along the flow, or cancelled from pending or confirmed
func CanTransition(from, to string) bool {
	if to == models.OrderCancelled {
		return from == models.OrderPending || from == models.OrderConfirmed
	}
	i, j := flowIndex(from), flowIndex(to)
	return i >= 0 && j == i+1
}

// UpdateStatus moves an order along its lifecycle. Only the selling farmer or
// an admin may do so.
func (s *OrderService) UpdateStatus(ctx context.Context, viewer Viewer, orderID, status string) (models.Order, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !validStatus(status) {
		return models.Order{}, fmt.Errorf("service: %w - unknown order status %q", marketerrors.ErrInvalidInput, status)
	}

	updated, err := s.orders.UpdateOrder(ctx, orderID, func(o *models.Order) error {
		if viewer.Role != models.RoleAdmin && o.FarmerID != viewer.UserID {
			return marketerrors.ErrForbidden
		}
		return s.transition(o, status)
	})
	if err != nil {
		return models.Order{}, fmt.Errorf("service: failed to update order %s: %w", orderID, err)
	}

	s.notify(ctx, models.Notification{
		UserID:      updated.BuyerID,
		Kind:        models.NotifyOrderStatus,
		Title:       "Order status updated",
		Message:     fmt.Sprintf("Your order for %s is now %s", updated.ProductName, updated.Status),
		ReferenceID: updated.OrderID,
	})
	return updated, nil
}

// Cancel cancels a pending or confirmed order on behalf of its buyer or farmer
func (s *OrderService) Cancel(ctx context.Context, viewer Viewer, orderID string) (models.Order, error) {
	updated, err := s.orders.UpdateOrder(ctx, orderID, func(o *models.Order) error {
		if !o.Involves(viewer.UserID) {
			return marketerrors.ErrForbidden
		}
		return s.transition(o, models.OrderCancelled)
	})
	if err != nil {
		return models.Order{}, fmt.Errorf("service: failed to cancel order %s: %w", orderID, err)
	}

	// tell the other party
	recipient := updated.FarmerID
	if viewer.UserID == updated.FarmerID {
		recipient = updated.BuyerID
	}
	s.notify(ctx, models.Notification{
		UserID:      recipient,
		Kind:        models.NotifyOrderStatus,
		Title:       "Order cancelled",
		Message:     fmt.Sprintf("The order for %s was cancelled", updated.ProductName),
		ReferenceID: updated.OrderID,
	})
	return updated, nil
}

func (s *OrderService) transition(o *models.Order, to string) error {
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("%w - %s to %s", marketerrors.ErrInvalidTransition, o.Status, to)
	}
	o.Status = to
	if to == models.OrderCancelled && o.PaymentStatus == models.PaymentPaid {
		o.PaymentStatus = models.PaymentRefunded
	}
	o.UpdatedAt = s.now().UTC()
	return nil
}

// Pay records a simulated payment for the buyer's order. Paying an already
// paid order returns it unchanged; the bool reports whether a payment was
// recorded by this call.
func (s *OrderService) Pay(ctx context.Context, buyerID, orderID, method string) (models.Order, bool, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	switch method {
	case PayUPI, PayCard, PayNetBanking, PayCOD:
	default:
		return models.Order{}, false, fmt.Errorf("service: %w - unsupported payment method %q", marketerrors.ErrInvalidInput, method)
	}

	recorded := false
	updated, err := s.orders.UpdateOrder(ctx, orderID, func(o *models.Order) error {
		if o.BuyerID != buyerID {
			return marketerrors.ErrForbidden
		}
		if o.Status == models.OrderCancelled {
			return marketerrors.ErrOrderCancelled
		}
		if o.PaymentStatus == models.PaymentPaid {
			return nil
		}
		now := s.now().UTC()
		o.PaymentStatus = models.PaymentPaid
		o.PaymentMethod = method
		o.PaymentRef = utils.GenerateID()
		o.PaidAt = &now
		o.UpdatedAt = now
		recorded = true
		return nil
	})
	if err != nil {
		return models.Order{}, false, fmt.Errorf("service: failed to pay order %s: %w", orderID, err)
	}

	if recorded {
		s.notify(ctx, models.Notification{
			UserID:      updated.FarmerID,
			Kind:        models.NotifyOrderPaid,
			Title:       "Payment received",
			Message:     fmt.Sprintf("Payment of ₹%.2f received for %s via %s", updated.Total, updated.ProductName, updated.PaymentMethod),
			ReferenceID: updated.OrderID,
		})
	}
	return updated, recorded, nil
}

func (s *OrderService) notify(ctx context.Context, n models.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		utils.Warn("OrderService: failed to notify", map[string]any{
			"user_id": n.UserID,
			"kind":    n.Kind,
			"error":   err.Error(),
		})
	}
}
