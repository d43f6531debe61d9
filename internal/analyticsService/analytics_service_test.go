package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"farmerconnect/internal/models"
	"farmerconnect/internal/repository"

	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func seedOrders(t *testing.T, repo *repository.MemoryRepo) {
	t.Helper()
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		p := models.Product{
			ProductID:        fmt.Sprintf("p%d", i),
			FarmerID:         "farmer1",
			Name:             fmt.Sprintf("Crop %d", i),
			Unit:             "kg",
			Price:            10,
			Quantity:         1000,
			MinOrderQuantity: 1,
			Status:           models.ProductActive,
		}
		require.NoError(t, repo.CreateProduct(ctx, p))
	}

	orders := []models.Order{
		{OrderID: "o1", ProductID: "p1", Total: 100, Status: models.OrderDelivered, PaymentStatus: models.PaymentPaid, CreatedAt: now},
		{OrderID: "o2", ProductID: "p1", Total: 50.5, Status: models.OrderPending, PaymentStatus: models.PaymentPending, CreatedAt: now.AddDate(0, -1, 0)},
		{OrderID: "o3", ProductID: "p2", Total: 300, Status: models.OrderCancelled, PaymentStatus: models.PaymentRefunded, CreatedAt: now},
		{OrderID: "o4", ProductID: "p3", Total: 20, Status: models.OrderConfirmed, PaymentStatus: models.PaymentPaid, CreatedAt: now.AddDate(-2, 0, 0)},
		{OrderID: "o5", ProductID: "p4", Total: 40, Status: models.OrderConfirmed, PaymentStatus: models.PaymentPending, CreatedAt: now},
		{OrderID: "o6", ProductID: "p5", Total: 30, Status: models.OrderConfirmed, PaymentStatus: models.PaymentPending, CreatedAt: now},
		{OrderID: "o7", ProductID: "p6", Total: 10, Status: models.OrderConfirmed, PaymentStatus: models.PaymentPending, CreatedAt: now},
	}
	for _, o := range orders {
		o.BuyerID = "buyer1"
		o.FarmerID = "farmer1"
		o.Quantity = 1
		_, err := repo.CreateOrder(ctx, o, func(p models.Product, o *models.Order) error {
			o.ProductName = p.Name
			return nil
		})
		require.NoError(t, err)
	}
}

func TestAnalyticsService_Farmer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	seedOrders(t, repo)

	_, err := repo.PlaceBid(ctx, models.Bid{BidID: "b1", ProductID: "p1", BuyerID: "buyer1", Amount: 11, Quantity: 1, CreatedAt: now}, nil)
	require.NoError(t, err)
	_, err = repo.PlaceBid(ctx, models.Bid{BidID: "b2", ProductID: "p1", BuyerID: "buyer2", Amount: 12, Quantity: 1, CreatedAt: now}, nil)
	require.NoError(t, err)
	require.NoError(t, repo.CreateReview(ctx, models.Review{ReviewID: "r1", OrderID: "o1", FarmerID: "farmer1", Rating: 5}))
	require.NoError(t, repo.CreateReview(ctx, models.Review{ReviewID: "r2", OrderID: "o2", FarmerID: "farmer1", Rating: 4}))

	svc := NewAnalyticsService(repo, repo, repo, repo)
	svc.now = func() time.Time { return now }

	stats, err := svc.Farmer(ctx, "farmer1")
	require.NoError(t, err)
	require.Equal(t, 7, stats.TotalOrders)
	require.Equal(t, 250.5, stats.TotalRevenue)
	require.Equal(t, 120.0, stats.PaidRevenue)
	require.Equal(t, 4, stats.OrdersByStatus[models.OrderConfirmed])
	require.Equal(t, 1, stats.OrdersByStatus[models.OrderCancelled])

	require.Len(t, stats.MonthlyRevenue, 12)
	last := stats.MonthlyRevenue[11]
	require.Equal(t, "2026-06", last.Month)
	require.Equal(t, 180.0, last.Amount)
	require.Equal(t, 4, last.Orders)
	require.Equal(t, "2026-05", stats.MonthlyRevenue[10].Month)
	require.Equal(t, 50.5, stats.MonthlyRevenue[10].Amount)
	require.Equal(t, "2025-07", stats.MonthlyRevenue[0].Month)

	require.Len(t, stats.TopProducts, 5)
	require.Equal(t, "p1", stats.TopProducts[0].ProductID)
	require.Equal(t, 150.5, stats.TopProducts[0].Revenue)
	require.Equal(t, "Crop 1", stats.TopProducts[0].ProductName)
	for _, p := range stats.TopProducts {
		require.NotEqual(t, "p2", p.ProductID, "cancelled orders do not count")
	}

	require.Equal(t, 6, stats.ActiveProducts)
	require.Equal(t, 2, stats.OpenBids)
	require.Equal(t, 4.5, stats.AverageRating)
	require.Equal(t, 2, stats.ReviewCount)
}

func TestAnalyticsService_Buyer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	seedOrders(t, repo)

	_, err := repo.PlaceBid(ctx, models.Bid{BidID: "b1", ProductID: "p1", BuyerID: "buyer1", Amount: 11, Quantity: 1, CreatedAt: now}, nil)
	require.NoError(t, err)
	_, err = repo.PlaceBid(ctx, models.Bid{BidID: "b2", ProductID: "p1", BuyerID: "buyer1", Amount: 12, Quantity: 1, CreatedAt: now.Add(time.Second)}, nil)
	require.NoError(t, err)

	svc := NewAnalyticsService(repo, repo, repo, repo)
	svc.now = func() time.Time { return now }

	stats, err := svc.Buyer(ctx, "buyer1")
	require.NoError(t, err)
	require.Equal(t, 250.5, stats.TotalSpent)
	require.Equal(t, 120.0, stats.PaidSpent)
	require.Equal(t, 7, stats.TotalOrders)
	require.Len(t, stats.MonthlySpend, 12)
	require.Equal(t, map[string]int{models.BidActive: 1, models.BidOutbid: 1}, stats.BidsByStatus)

	empty, err := svc.Buyer(ctx, "nobody")
	require.NoError(t, err)
	require.Zero(t, empty.TotalSpent)
	require.Empty(t, empty.BidsByStatus)
}
