package perftests

import (
	"context"
	"fmt"
	"testing"
	"time"

	bidding "farmerconnect/internal/biddingService"
	"farmerconnect/internal/events"
	"farmerconnect/internal/models"
	notifications "farmerconnect/internal/notificationService"
	"farmerconnect/internal/repository"
)

const perfFarmer = "farmer_perf"

// setupRepo creates a repository and bidding service with numProducts open listings
func setupRepo(tb testing.TB, numProducts int) (*repository.MemoryRepo, *bidding.BiddingService) {
	tb.Helper()
	repo := repository.NewMemoryRepo()
	notifier := notifications.NewNotificationService(repo, events.LogPublisher{})
	svc := bidding.NewBiddingService(repo, notifier, 1)

	now := time.Now().UTC()
	for i := 0; i < numProducts; i++ {
		err := repo.CreateProduct(context.Background(), models.Product{
			ProductID:      productID(i),
			FarmerID:       perfFarmer,
			CategoryID:     "cat-perf",
			Name:           fmt.Sprintf("Perf Lot %d", i),
			Unit:           "quintal",
			Price:          100,
			Quantity:       1_000_000,
			BiddingEnabled: true,
			MinBidPrice:    50,
			Status:         models.ProductActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			tb.Fatalf("failed to create product: %v", err)
		}
	}
	return repo, svc
}

func productID(i int) string {
	return fmt.Sprintf("product_%d", i)
}

func bidInput(productID string, amount float64) bidding.PlaceBidInput {
	return bidding.PlaceBidInput{ProductID: productID, Amount: amount, Quantity: 1}
}
