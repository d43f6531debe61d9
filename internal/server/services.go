package server

import (
	"context"

	admin "farmerconnect/internal/adminService"
	analytics "farmerconnect/internal/analyticsService"
	assistant "farmerconnect/internal/assistantService"
	auth "farmerconnect/internal/authService"
	bidding "farmerconnect/internal/biddingService"
	catalog "farmerconnect/internal/catalogService"
	"farmerconnect/internal/config"
	"farmerconnect/internal/events"
	notifications "farmerconnect/internal/notificationService"
	orders "farmerconnect/internal/orderService"
	prices "farmerconnect/internal/priceService"
	"farmerconnect/internal/repository"
	reviews "farmerconnect/internal/reviewService"
)

// NewServices wires every service onto one storage backend. Bidding, orders
// and admin deliver their notifications through the notification service.
func NewServices(ctx context.Context, db repository.MarketDB, publisher events.Publisher, cfg config.Config) (Services, error) {
	notifier := notifications.NewNotificationService(db, publisher)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	gemini, err := assistant.NewGeminiClient(ctx, GeminiConfig(cfg))
	if err != nil {
		return Services{}, err
	}

	return Services{
		Auth:          auth.NewAuthService(db, tokens),
		Catalog:       catalog.NewCatalogService(db, db, db, catalog.NewImageStore(cfg.UploadDir)),
		Bidding:       bidding.NewBiddingService(db, notifier, cfg.BidMinIncrement),
		Orders:        orders.NewOrderService(db, notifier),
		Reviews:       reviews.NewReviewService(db, db),
		Notifications: notifier,
		Prices:        prices.NewPriceService(db),
		Analytics:     analytics.NewAnalyticsService(db, db, db, db),
		Admin:         admin.NewAdminService(db, db, db, notifier),
		Assistant:     assistant.NewAssistantService(gemini, cfg.AIMaxHistory),
	}, nil
}

// GeminiConfig picks the assistant client settings out of cfg
func GeminiConfig(cfg config.Config) assistant.GeminiConfig {
	return assistant.GeminiConfig{
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiVersion,
		Model:      cfg.GeminiModel,
		APIKey:     cfg.GeminiAPIKey,
		Timeout:    cfg.AITimeout,
	}
}
