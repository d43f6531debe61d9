package repository

import (
	"context"

	"farmerconnect/internal/models"
)

//go:generate mockgen -destination=mock_repository.go -package=repository farmerconnect/internal/repository BidStore,OrderStore

// BidCheck validates a new bid against the locked product and its current
// highest active bid (nil when there is none).
type BidCheck func(product models.Product, highest *models.Bid) error

// OrderBuilder turns an accepted bid into the order to persist
type OrderBuilder func(bid models.Bid, product models.Product) (models.Order, error)

// ProductCheck validates a purchase against the locked product and completes
// the order from it (farmer, price, total)
type ProductCheck func(product models.Product, order *models.Order) error

// BidMutation validates and edits a bid in place
type BidMutation func(bid *models.Bid) error

// ProductMutation validates and edits a product in place
type ProductMutation func(product *models.Product) error

// UserMutation validates and edits an account in place
type UserMutation func(user *models.User) error

// OrderMutation validates and edits an order in place
type OrderMutation func(order *models.Order) error

// UserStore defines account storage
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUserByID(ctx context.Context, userID string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	UpdateUser(ctx context.Context, userID string, mutate UserMutation) (models.User, error)
	ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	CountUsersByRole(ctx context.Context) (map[string]int, error)
}

// ProductStore defines catalog storage
type ProductStore interface {
	CreateCategory(ctx context.Context, category models.Category) error
	GetCategory(ctx context.Context, categoryID string) (models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateProduct(ctx context.Context, product models.Product) error
	GetProduct(ctx context.Context, productID string) (models.Product, error)
	UpdateProduct(ctx context.Context, productID string, mutate ProductMutation) (models.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error)
	AddProductImage(ctx context.Context, image models.ProductImage, maxImages int) (models.ProductImage, error)
	CountProductsByStatus(ctx context.Context) (map[string]int, error)
}

// BidStore defines bid storage. PlaceBid, AcceptBid and CloseBid are atomic
// with respect to every other bid and order operation on the same product.
type BidStore interface {
	PlaceBid(ctx context.Context, bid models.Bid, check BidCheck) ([]models.Bid, error)
	GetBid(ctx context.Context, bidID string) (models.Bid, error)
	GetHighestBid(ctx context.Context, productID string) (models.Bid, error)
	ListBidsByProduct(ctx context.Context, productID string) ([]models.Bid, error)
	ListBids(ctx context.Context, filter models.BidFilter) ([]models.Bid, int, error)
	AcceptBid(ctx context.Context, bidID string, build OrderBuilder) (models.Bid, models.Order, []models.Bid, error)
	CloseBid(ctx context.Context, bidID string, mutate BidMutation) (models.Bid, *models.Bid, error)
}

// OrderStore defines order storage
type OrderStore interface {
	CreateOrder(ctx context.Context, order models.Order, check ProductCheck) (models.Order, error)
	GetOrder(ctx context.Context, orderID string) (models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, int, error)
	UpdateOrder(ctx context.Context, orderID string, mutate OrderMutation) (models.Order, error)
	ProductHasActivity(ctx context.Context, productID string) (bool, error)
}

// ReviewStore defines review storage
type ReviewStore interface {
	CreateReview(ctx context.Context, review models.Review) error
	ListReviews(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int, error)
	RatingSummary(ctx context.Context, filter models.ReviewFilter) (float64, int, error)
}

// NotificationStore defines notification storage
type NotificationStore interface {
	CreateNotification(ctx context.Context, n models.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, page models.Page) ([]models.Notification, int, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

// PriceStore defines reference price storage
type PriceStore interface {
	UpsertMarketPrice(ctx context.Context, price models.MarketPrice) error
	UpsertMSP(ctx context.Context, rate models.MSPRate) error
	ListMarketPrices(ctx context.Context, filter models.PriceFilter) ([]models.MarketPrice, int, error)
	ListMSP(ctx context.Context, filter models.PriceFilter) ([]models.MSPRate, error)
}

// MarketDB is the full storage surface of the marketplace
type MarketDB interface {
	UserStore
	ProductStore
	BidStore
	OrderStore
	ReviewStore
	NotificationStore
	PriceStore
	Close()
}
