package reviews

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"farmerconnect/internal/marketerrors"
	"farmerconnect/internal/models"
	"farmerconnect/internal/repository"
	"farmerconnect/utils"
)

// maxCommentLength caps review comments
const maxCommentLength = 2000

// ReviewInput carries a buyer's rating of an order
type ReviewInput struct {
	OrderID string
	Rating  int
	Comment string
}

// ReviewPage is a page of reviews with the rating summary of the whole filter
type ReviewPage struct {
	Reviews       []models.Review
	Total         int
	AverageRating float64
	Count         int
}

// ReviewService manages buyer reviews of delivered orders
type ReviewService struct {
	reviews repository.ReviewStore
	orders  repository.OrderStore
	now     func() time.Time
}

// NewReviewService creates a new ReviewService instance
func NewReviewService(reviews repository.ReviewStore, orders repository.OrderStore) *ReviewService {
	return &ReviewService{reviews: reviews, orders: orders, now: time.Now}
}

// Create records a review for one of the buyer's delivered orders
func (s *ReviewService) Create(ctx context.Context, buyerID string, in ReviewInput) (models.Review, error) {
	if in.OrderID == "" {
		return models.Review{}, fmt.Errorf("service: %w - order_id is required", marketerrors.ErrInvalidInput)
	}
	if in.Rating < 1 || in.Rating > 5 {
		return models.Review{}, fmt.Errorf("service: %w - rating must be between 1 and 5", marketerrors.ErrInvalidInput)
	}
	comment := strings.TrimSpace(in.Comment)
	if len(comment) > maxCommentLength {
		return models.Review{}, fmt.Errorf("service: %w - comment is too long", marketerrors.ErrInvalidInput)
	}

	order, err := s.orders.GetOrder(ctx, in.OrderID)
	if err != nil {
		return models.Review{}, fmt.Errorf("service: failed to get order %s: %w", in.OrderID, err)
	}
	if order.BuyerID != buyerID {
		return models.Review{}, fmt.Errorf("service: %w - order %s", marketerrors.ErrForbidden, in.OrderID)
	}
	if order.Status != models.OrderDelivered {
		return models.Review{}, fmt.Errorf("service: %w - order %s is %s", marketerrors.ErrOrderNotDelivered, in.OrderID, order.Status)
	}

	review := models.Review{
		ReviewID:  utils.GenerateID(),
		OrderID:   order.OrderID,
		ProductID: order.ProductID,
		BuyerID:   buyerID,
		FarmerID:  order.FarmerID,
		Rating:    in.Rating,
		Comment:   comment,
		CreatedAt: s.now().UTC(),
	}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		return models.Review{}, fmt.Errorf("service: failed to save review for order %s: %w", in.OrderID, err)
	}
	return review, nil
}

// List returns a page of reviews for a farmer or a product, newest first
func (s *ReviewService) List(ctx context.Context, filter models.ReviewFilter) (ReviewPage, error) {
	if filter.FarmerID == "" && filter.ProductID == "" {
		return ReviewPage{}, fmt.Errorf("service: %w - farmer_id or product_id is required", marketerrors.ErrInvalidInput)
	}
	list, total, err := s.reviews.ListReviews(ctx, filter)
	if err != nil {
		return ReviewPage{}, fmt.Errorf("service: failed to list reviews: %w", err)
	}
	avg, count, err := s.reviews.RatingSummary(ctx, filter)
	if err != nil {
		return ReviewPage{}, fmt.Errorf("service: failed to summarize reviews: %w", err)
	}
	return ReviewPage{
		Reviews:       list,
		Total:         total,
		AverageRating: math.Round(avg*10) / 10,
		Count:         count,
	}, nil
}
