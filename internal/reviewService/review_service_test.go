package reviews

import (
	"context"
	"testing"
	"time"

	"farmerconnect/internal/marketerrors"
	"farmerconnect/internal/models"
	"farmerconnect/internal/repository"

	"github.com/stretchr/testify/require"
)

func seedOrder(t *testing.T, repo *repository.MemoryRepo, orderID, status string, createdAt time.Time) {
	t.Helper()
	ctx := context.Background()
	p := models.Product{ProductID: "p-" + orderID, FarmerID: "farmer1", Name: "Wheat", Unit: "quintal", Price: 2300, Quantity: 10, MinOrderQuantity: 1, Status: models.ProductActive}
	require.NoError(t, repo.CreateProduct(ctx, p))
	_, err := repo.CreateOrder(ctx, models.Order{
		OrderID:   orderID,
		BuyerID:   "buyer1",
		FarmerID:  "farmer1",
		ProductID: p.ProductID,
		Quantity:  1,
		Status:    status,
		CreatedAt: createdAt,
	}, nil)
	require.NoError(t, err)
}

func TestReviewService_Create(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		buyer         string
		status        string
		in            ReviewInput
		expectedError error
	}{
		{name: "ok", buyer: "buyer1", status: models.OrderDelivered, in: ReviewInput{Rating: 5, Comment: " fresh "}},
		{name: "not_delivered", buyer: "buyer1", status: models.OrderReady, in: ReviewInput{Rating: 4}, expectedError: marketerrors.ErrOrderNotDelivered},
		{name: "other_buyer", buyer: "buyer2", status: models.OrderDelivered, in: ReviewInput{Rating: 4}, expectedError: marketerrors.ErrForbidden},
		{name: "rating_too_high", buyer: "buyer1", status: models.OrderDelivered, in: ReviewInput{Rating: 6}, expectedError: marketerrors.ErrInvalidInput},
		{name: "rating_zero", buyer: "buyer1", status: models.OrderDelivered, in: ReviewInput{Rating: 0}, expectedError: marketerrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := repository.NewMemoryRepo()
			seedOrder(t, repo, "o1", tt.status, time.Now())
			svc := NewReviewService(repo, repo)

			in := tt.in
			in.OrderID = "o1"
			review, err := svc.Create(context.Background(), tt.buyer, in)
			if tt.expectedError != nil {
				require.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "farmer1", review.FarmerID)
			require.Equal(t, "p-o1", review.ProductID)
			require.Equal(t, "fresh", review.Comment)
		})
	}

	t.Run("one_review_per_order", func(t *testing.T) {
		t.Parallel()
		repo := repository.NewMemoryRepo()
		seedOrder(t, repo, "o1", models.OrderDelivered, time.Now())
		svc := NewReviewService(repo, repo)

		_, err := svc.Create(context.Background(), "buyer1", ReviewInput{OrderID: "o1", Rating: 4})
		require.NoError(t, err)
		_, err = svc.Create(context.Background(), "buyer1", ReviewInput{OrderID: "o1", Rating: 2})
		require.ErrorIs(t, err, marketerrors.ErrAlreadyReviewed)
	})

	t.Run("unknown_order", func(t *testing.T) {
		t.Parallel()
		repo := repository.NewMemoryRepo()
		svc := NewReviewService(repo, repo)
		_, err := svc.Create(context.Background(), "buyer1", ReviewInput{OrderID: "nope", Rating: 4})
		require.ErrorIs(t, err, marketerrors.ErrOrderNotFound)
	})
}

func TestReviewService_List(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	svc := NewReviewService(repo, repo)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, rating := range []int{5, 4, 4} {
		id := string(rune('a' + i))
		seedOrder(t, repo, id, models.OrderDelivered, base)
		svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		_, err := svc.Create(ctx, "buyer1", ReviewInput{OrderID: id, Rating: rating})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, models.ReviewFilter{FarmerID: "farmer1", Page: models.Page{Page: 1, Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Reviews, 2)
	require.Equal(t, 3, page.Total)
	require.Equal(t, 3, page.Count)
	require.Equal(t, 4.3, page.AverageRating)
	require.Equal(t, "c", page.Reviews[0].OrderID)

	byProduct, err := svc.List(ctx, models.ReviewFilter{ProductID: "p-a"})
	require.NoError(t, err)
	require.Equal(t, 1, byProduct.Count)
	require.Equal(t, 5.0, byProduct.AverageRating)

	_, err = svc.List(ctx, models.ReviewFilter{})
	require.ErrorIs(t, err, marketerrors.ErrInvalidInput)
}
