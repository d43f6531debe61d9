package admin

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

// Page sizes for admin listings
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Notifier delivers in-app notifications
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Stats is the platform overview
type Stats struct {
	UsersByRole      map[string]int `json:"users_by_role"`
	ProductsByStatus map[string]int `json:"products_by_status"`
	OrdersByStatus   map[string]int `json:"orders_by_status"`
	TotalOrders      int            `json:"total_orders"`
	GrossMerchandise float64        `json:"gross_merchandise_value"`
	PaidValue        float64        `json:"paid_value"`
}

// AdminService implements user, product and order moderation
type AdminService struct {
	users    repository.UserStore
	products repository.ProductStore
	orders   repository.OrderStore
	notifier Notifier
	now      func() time.Time
}

// NewAdminService creates a new AdminService instance
func NewAdminService(users repository.UserStore, products repository.ProductStore, orders repository.OrderStore, notifier Notifier) *AdminService {
	return &AdminService{
		users:    users,
		products: products,
		orders:   orders,
		notifier: notifier,
		now:      time.Now,
	}
}

// ListUsers returns a page of users matching the filter
func (s *AdminService) ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, int, models.Page, error) {
	filter.Page = filter.Page.Normalize(DefaultPageSize, MaxPageSize)
	switch filter.Role {
	case "", models.RoleFarmer, models.RoleBuyer, models.RoleAdmin:
	default:
		return nil, 0, filter.Page, fmt.Errorf("service: %w - unknown role %q", marketerrors.ErrInvalidInput, filter.Role)
	}
	filter.Query = strings.TrimSpace(filter.Query)

	list, total, err := s.users.ListUsers(ctx, filter)
	if err != nil {
		return nil, 0, filter.Page, fmt.Errorf("service: failed to list users: %w", err)
	}
	return list, total, filter.Page, nil
}

// SetUserActive suspends or reactivates an account. Admins cannot suspend themselves.
func (s *AdminService) SetUserActive(ctx context.Context, adminID, userID string, active bool) (models.User, error) {
	if adminID == userID && !active {
		return models.User{}, fmt.Errorf("service: %w - cannot suspend your own account", marketerrors.ErrInvalidInput)
	}
	now := s.now().UTC()
	changed := false
	u, err := s.users.UpdateUser(ctx, userID, func(user *models.User) error {
		if user.Active == active {
			return nil
		}
		user.Active = active
		user.UpdatedAt = now
		changed = true
		return nil
	})
	if err != nil {
		return models.User{}, fmt.Errorf("service: failed to update user %s: %w", userID, err)
	}
	if !changed {
		return u, nil
	}

	msg := "Your account has been suspended by an administrator"
	if active {
		msg = "Your account has been reactivated"
	}
	s.notify(ctx, models.Notification{UserID: u.UserID, Kind: models.NotifyAccount, Title: "Account status changed", Message: msg})
	return u, nil
}

// VerifyFarmer sets the verified badge of a farmer
func (s *AdminService) VerifyFarmer(ctx context.Context, userID string, verified bool) (models.User, error) {
	now := s.now().UTC()
	changed := false
	u, err := s.users.UpdateUser(ctx, userID, func(user *models.User) error {
		if user.Role != models.RoleFarmer {
			return fmt.Errorf("%w - user %s is not a farmer", marketerrors.ErrInvalidInput, userID)
		}
		if user.Verified == verified {
			return nil
		}
		user.Verified = verified
		user.UpdatedAt = now
		changed = true
		return nil
	})
	if err != nil {
		return models.User{}, fmt.Errorf("service: failed to update user %s: %w", userID, err)
	}
	if !changed {
		return u, nil
	}

	msg := "Your farm has been verified"
	if !verified {
		msg = "Your farm verification has been removed"
	}
	s.notify(ctx, models.Notification{UserID: u.UserID, Kind: models.NotifyAccount, Title: "Verification updated", Message: msg})
	return u, nil
}

// ListProducts returns products in any status, optionally narrowed to one
func (s *AdminService) ListProducts(ctx context.Context, status string, page models.Page) ([]models.Product, int, models.Page, error) {
	page = page.Normalize(DefaultPageSize, MaxPageSize)
	statuses := []string{models.ProductActive, models.ProductSold, models.ProductInactive, models.ProductRejected}
	if status != "" {
		if !validProductStatus(status) {
			return nil, 0, page, fmt.Errorf("service: %w - unknown product status %q", marketerrors.ErrInvalidInput, status)
		}
		statuses = []string{status}
	}

	list, total, err := s.products.ListProducts(ctx, models.ProductFilter{Statuses: statuses, Sort: models.SortNewest, Page: page})
	if err != nil {
		return nil, 0, page, fmt.Errorf("service: failed to list products: %w", err)
	}
	return list, total, page, nil
}

func validProductStatus(status string) bool {
	switch status {
	case models.ProductActive, models.ProductSold, models.ProductInactive, models.ProductRejected:
		return true
	}
	return false
}

// SetProductStatus moderates a listing to active, inactive or rejected
func (s *AdminService) SetProductStatus(ctx context.Context, productID, status string) (models.Product, error) {
	switch status {
	case models.ProductActive, models.ProductInactive, models.ProductRejected:
	default:
		return models.Product{}, fmt.Errorf("service: %w - status must be active, inactive or rejected", marketerrors.ErrInvalidInput)
	}

	now := s.now().UTC()
	changed := false
	p, err := s.products.UpdateProduct(ctx, productID, func(product *models.Product) error {
		next := status
		if next == models.ProductActive && product.Quantity <= 0 {
			next = models.ProductSold
		}
		if product.Status == next {
			return nil
		}
		product.Status = next
		product.UpdatedAt = now
		changed = true
		return nil
	})
	if err != nil {
		return models.Product{}, fmt.Errorf("service: failed to update product %s: %w", productID, err)
	}
	if !changed {
		return p, nil
	}

	s.notify(ctx, models.Notification{
		UserID:      p.FarmerID,
		Kind:        models.NotifyProductStatus,
		Title:       "Listing moderated",
		Message:     fmt.Sprintf("Your listing %s is now %s", p.Name, p.Status),
		ReferenceID: p.ProductID,
	})
	return p, nil
}

// ListOrders returns a page of every order on the platform
func (s *AdminService) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, int, models.Page, error) {
	filter.Page = filter.Page.Normalize(DefaultPageSize, MaxPageSize)
	list, total, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, 0, filter.Page, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return list, total, filter.Page, nil
}

// Stats computes the platform overview
func (s *AdminService) Stats(ctx context.Context) (Stats, error) {
	users, err := s.users.CountUsersByRole(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("service: failed to count users: %w", err)
	}
	products, err := s.products.CountProductsByStatus(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("service: failed to count products: %w", err)
	}
	orders, total, err := s.orders.ListOrders(ctx, models.OrderFilter{})
	if err != nil {
		return Stats{}, fmt.Errorf("service: failed to load orders: %w", err)
	}

	out := Stats{
		UsersByRole:      users,
		ProductsByStatus: products,
		OrdersByStatus:   make(map[string]int),
		TotalOrders:      total,
	}
	for _, o := range orders {
		out.OrdersByStatus[o.Status]++
		if o.Status == models.OrderCancelled {
			continue
		}
		out.GrossMerchandise += o.Total
		if o.PaymentStatus == models.PaymentPaid {
			out.PaidValue += o.Total
		}
	}
	out.GrossMerchandise = models.RoundMoney(out.GrossMerchandise)
	out.PaidValue = models.RoundMoney(out.PaidValue)
	return out, nil
}

func (s *AdminService) notify(ctx context.Context, n models.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		utils.Warn("AdminService: failed to notify", map[string]any{
			"user_id": n.UserID,
			"kind":    n.Kind,
			"error":   err.Error(),
		})
	}
}
