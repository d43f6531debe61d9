package server

import (
	"net/http"

	admin "farmerconnect/internal/adminService"
	analytics "farmerconnect/internal/analyticsService"
	assistant "farmerconnect/internal/assistantService"
	auth "farmerconnect/internal/authService"
	bidding "farmerconnect/internal/biddingService"
	catalog "farmerconnect/internal/catalogService"
	"farmerconnect/internal/models"
	notifications "farmerconnect/internal/notificationService"
	orders "farmerconnect/internal/orderService"
	prices "farmerconnect/internal/priceService"
	reviews "farmerconnect/internal/reviewService"
	adminhandler "farmerconnect/services/admin/handler"
	analyticshandler "farmerconnect/services/analytics/handler"
	assistanthandler "farmerconnect/services/assistant/handler"
	authhandler "farmerconnect/services/auth/handler"
	biddinghandler "farmerconnect/services/bidding/handler"
	cataloghandler "farmerconnect/services/catalog/handler"
	notificationhandler "farmerconnect/services/notifications/handler"
	orderhandler "farmerconnect/services/orders/handler"
	pricehandler "farmerconnect/services/prices/handler"
	reviewhandler "farmerconnect/services/reviews/handler"
	"farmerconnect/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// Services bundles everything the router serves
type Services struct {
	Auth          *auth.AuthService
	Catalog       *catalog.CatalogService
	Bidding       *bidding.BiddingService
	Orders        *orders.OrderService
	Reviews       *reviews.ReviewService
	Notifications *notifications.NotificationService
	Prices        *prices.PriceService
	Analytics     *analytics.AnalyticsService
	Admin         *admin.AdminService
	Assistant     *assistant.AssistantService
}

// Options tunes the HTTP surface
type Options struct {
	UploadDir      string
	RateLimitRPS   float64
	RateLimitBurst int
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(svc Services, opts Options) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	router.GET("/healthz", func(c *gin.Context) {
		utils.JSONResponse(c, http.StatusOK, gin.H{"status": "ok"}, "healthy")
	})
	if opts.UploadDir != "" {
		router.Static("/uploads", opts.UploadDir)
	}

	requireAuth := AuthMiddleware(svc.Auth)
	farmer := RequireRole(models.RoleFarmer)
	buyer := RequireRole(models.RoleBuyer)
	limiter := NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)

	authHandler := authhandler.NewAuthHandler(svc.Auth)
	catalogHandler := cataloghandler.NewCatalogHandler(svc.Catalog)
	biddingHandler := biddinghandler.NewBiddingHandler(svc.Bidding)
	orderHandler := orderhandler.NewOrderHandler(svc.Orders)
	reviewHandler := reviewhandler.NewReviewHandler(svc.Reviews)
	notificationHandler := notificationhandler.NewNotificationHandler(svc.Notifications)
	priceHandler := pricehandler.NewPriceHandler(svc.Prices)
	analyticsHandler := analyticshandler.NewAnalyticsHandler(svc.Analytics)
	adminHandler := adminhandler.NewAdminHandler(svc.Admin)
	assistantHandler := assistanthandler.NewAssistantHandler(svc.Assistant)

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", limiter.Limit, authHandler.RegisterHandler)
		authRoutes.POST("/login", limiter.Limit, authHandler.LoginHandler)
		authRoutes.GET("/me", requireAuth, authHandler.MeHandler)
		authRoutes.PUT("/profile", requireAuth, authHandler.UpdateProfileHandler)
		authRoutes.PUT("/password", requireAuth, authHandler.ChangePasswordHandler)
	}

	router.GET("/categories", catalogHandler.ListCategoriesHandler)

	products := router.Group("/products")
	{
		products.GET("", catalogHandler.ListProductsHandler)
		products.GET("/mine", requireAuth, farmer, catalogHandler.ListMyProductsHandler)
		products.GET("/:id", catalogHandler.GetProductHandler)
		products.GET("/:id/highest-bid", biddingHandler.GetHighestBidHandler)
		products.POST("", requireAuth, farmer, catalogHandler.CreateProductHandler)
		products.PUT("/:id", requireAuth, farmer, catalogHandler.UpdateProductHandler)
		products.DELETE("/:id", requireAuth, farmer, catalogHandler.DeleteProductHandler)
		products.POST("/:id/images", requireAuth, farmer, catalogHandler.UploadImageHandler)
	}

	bids := router.Group("/bids", requireAuth)
	{
		bids.POST("", buyer, biddingHandler.PlaceBidHandler)
		bids.GET("/product/:product_id", biddingHandler.GetBidsByProductHandler)
		bids.GET("/mine", buyer, biddingHandler.ListMyBidsHandler)
		bids.GET("/received", farmer, biddingHandler.ListReceivedBidsHandler)
		bids.PUT("/:id/accept", farmer, biddingHandler.AcceptBidHandler)
		bids.PUT("/:id/reject", farmer, biddingHandler.RejectBidHandler)
		bids.PUT("/:id/withdraw", buyer, biddingHandler.WithdrawBidHandler)
	}

	orderRoutes := router.Group("/orders", requireAuth)
	{
		orderRoutes.POST("", buyer, orderHandler.CreateOrderHandler)
		orderRoutes.GET("", orderHandler.ListOrdersHandler)
		orderRoutes.GET("/:id", orderHandler.GetOrderHandler)
		orderRoutes.PUT("/:id/status", RequireRole(models.RoleFarmer, models.RoleAdmin), orderHandler.UpdateOrderStatusHandler)
		orderRoutes.PUT("/:id/cancel", orderHandler.CancelOrderHandler)
		orderRoutes.POST("/:id/pay", buyer, orderHandler.PayOrderHandler)
		orderRoutes.GET("/:id/receipt", orderHandler.ReceiptHandler)
	}

	reviewRoutes := router.Group("/reviews")
	{
		reviewRoutes.GET("", reviewHandler.ListReviewsHandler)
		reviewRoutes.POST("", requireAuth, buyer, reviewHandler.CreateReviewHandler)
	}

	notificationRoutes := router.Group("/notifications", requireAuth)
	{
		notificationRoutes.GET("", notificationHandler.ListNotificationsHandler)
		notificationRoutes.GET("/unread-count", notificationHandler.UnreadCountHandler)
		notificationRoutes.PUT("/read-all", notificationHandler.MarkAllReadHandler)
		notificationRoutes.PUT("/:id/read", notificationHandler.MarkReadHandler)
	}

	priceRoutes := router.Group("/prices")
	{
		priceRoutes.GET("/market", priceHandler.MarketPricesHandler)
		priceRoutes.GET("/msp", priceHandler.MSPHandler)
		priceRoutes.GET("/commodities", priceHandler.CommoditiesHandler)
		priceRoutes.GET("/compare", priceHandler.CompareHandler)
	}

	analyticsRoutes := router.Group("/analytics", requireAuth)
	{
		analyticsRoutes.GET("/farmer", farmer, analyticsHandler.FarmerAnalyticsHandler)
		analyticsRoutes.GET("/buyer", buyer, analyticsHandler.BuyerAnalyticsHandler)
	}

	adminRoutes := router.Group("/admin", requireAuth, RequireRole(models.RoleAdmin))
	{
		adminRoutes.GET("/users", adminHandler.ListUsersHandler)
		adminRoutes.PUT("/users/:id/status", adminHandler.SetUserStatusHandler)
		adminRoutes.PUT("/farmers/:id/verify", adminHandler.VerifyFarmerHandler)
		adminRoutes.GET("/products", adminHandler.ListProductsHandler)
		adminRoutes.PUT("/products/:id/status", adminHandler.SetProductStatusHandler)
		adminRoutes.GET("/orders", adminHandler.ListOrdersHandler)
		adminRoutes.GET("/stats", adminHandler.StatsHandler)
	}

	router.POST("/ai/chat", requireAuth, limiter.Limit, assistantHandler.ChatHandler)

	return router
}

// WithCORS wraps the engine with the CORS policy for the given origins
func WithCORS(h http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         600,
	}).Handler(h)
}
