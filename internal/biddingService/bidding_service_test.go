package bidding

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"farmerconnect/internal/marketerrors"
	"farmerconnect/internal/models"
	"farmerconnect/internal/repository"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// recordingNotifier captures notifications sent by the service
type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, note models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return nil
}

func (n *recordingNotifier) kinds() map[string][]string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := map[string][]string{}
	for _, s := range n.sent {
		out[s.Kind] = append(out[s.Kind], s.UserID)
	}
	return out
}

func biddableProduct() models.Product {
	return models.Product{
		ProductID:        "p1",
		FarmerID:         "farmer1",
		Name:             "Basmati Rice",
		Unit:             "quintal",
		Price:            4000,
		Quantity:         50,
		MinOrderQuantity: 5,
		BiddingEnabled:   true,
		MinBidPrice:      3800,
		Status:           models.ProductActive,
	}
}

// Tests ValidateBid
func TestValidateBid(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name          string
		mutate        func(p *models.Product, b *models.Bid)
		highest       *models.Bid
		expectedError error
		minimum       float64
	}{
		{name: "first_bid_at_min_price", mutate: func(p *models.Product, b *models.Bid) {}},
		{
			name:          "first_bid_below_min_price",
			mutate:        func(p *models.Product, b *models.Bid) { b.Amount = 3799.99 },
			expectedError: marketerrors.ErrBidTooLow,
			minimum:       3800,
		},
		{name: "beats_highest_by_increment", highest: &models.Bid{Amount: 3900}, mutate: func(p *models.Product, b *models.Bid) { b.Amount = 3901 }},
		{
			name:          "below_highest_plus_increment",
			highest:       &models.Bid{Amount: 3900},
			mutate:        func(p *models.Product, b *models.Bid) { b.Amount = 3900.5 },
			expectedError: marketerrors.ErrBidTooLow,
			minimum:       3901,
		},
		{
			name:          "equal_to_highest",
			highest:       &models.Bid{Amount: 3900},
			mutate:        func(p *models.Product, b *models.Bid) { b.Amount = 3900 },
			expectedError: marketerrors.ErrBidTooLow,
			minimum:       3901,
		},
		{name: "max_float", highest: &models.Bid{Amount: 3900}, mutate: func(p *models.Product, b *models.Bid) { b.Amount = math.MaxFloat64 }},
		{name: "not_biddable", mutate: func(p *models.Product, b *models.Bid) { p.BiddingEnabled = false }, expectedError: marketerrors.ErrNotBiddable},
		{name: "sold", mutate: func(p *models.Product, b *models.Bid) { p.Status = models.ProductSold }, expectedError: marketerrors.ErrProductUnavailable},
		{name: "closed_window", mutate: func(p *models.Product, b *models.Bid) { p.BiddingEndsAt = &past }, expectedError: marketerrors.ErrBiddingClosed},
		{name: "open_window", mutate: func(p *models.Product, b *models.Bid) { p.BiddingEndsAt = &future }},
		{name: "own_product", mutate: func(p *models.Product, b *models.Bid) { b.BuyerID = p.FarmerID }, expectedError: marketerrors.ErrOwnProduct},
		{name: "more_than_stock", mutate: func(p *models.Product, b *models.Bid) { b.Quantity = 51 }, expectedError: marketerrors.ErrInsufficientStock},
		{name: "below_min_order", mutate: func(p *models.Product, b *models.Bid) { b.Quantity = 4 }, expectedError: marketerrors.ErrInvalidBid},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := biddableProduct()
			b := models.Bid{BuyerID: "buyer1", Amount: 3800, Quantity: 10}
			tc.mutate(&p, &b)

			err := ValidateBid(b, p, tc.highest, 1.0, now)
			if tc.expectedError == nil {
				require.NoError(t, err)
				return
			}
			require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
			if tc.minimum > 0 {
				var minErr *marketerrors.MinimumBidError
				require.True(t, errors.As(err, &minErr))
				require.Equal(t, tc.minimum, minErr.Minimum)
			}
		})
	}
}

// Tests PlaceBid
func TestBiddingService_PlaceBid(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	tests := []struct {
		name          string
		buyerID       string
		input         PlaceBidInput
		mockSetup     func(m *repository.MockBidStore)
		expectError   bool
		expectedError error
		wantOutbid    []string
	}{
		{
			name:    "valid_first_bid",
			buyerID: "buyer1",
			input:   PlaceBidInput{ProductID: "p1", Amount: 3800, Quantity: 10},
			mockSetup: func(m *repository.MockBidStore) {
				m.EXPECT().PlaceBid(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ models.Bid, check repository.BidCheck) ([]models.Bid, error) {
						return nil, check(biddableProduct(), nil)
					})
			},
		},
		{
			name:    "outbids_previous_buyers",
			buyerID: "buyer3",
			input:   PlaceBidInput{ProductID: "p1", Amount: 3950, Quantity: 10},
			mockSetup: func(m *repository.MockBidStore) {
				m.EXPECT().PlaceBid(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ models.Bid, check repository.BidCheck) ([]models.Bid, error) {
						if err := check(biddableProduct(), &models.Bid{Amount: 3900}); err != nil {
							return nil, err
						}
						return []models.Bid{{BidID: "b1", BuyerID: "buyer2"}, {BidID: "b0", BuyerID: "buyer3"}}, nil
					})
			},
			wantOutbid: []string{"buyer2"},
		},
		{
			name:    "bid_too_low",
			buyerID: "buyer2",
			input:   PlaceBidInput{ProductID: "p1", Amount: 3900, Quantity: 10},
			mockSetup: func(m *repository.MockBidStore) {
				m.EXPECT().PlaceBid(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ models.Bid, check repository.BidCheck) ([]models.Bid, error) {
						return nil, check(biddableProduct(), &models.Bid{Amount: 3900})
					})
			},
			expectError:   true,
			expectedError: marketerrors.ErrBidTooLow,
		},
		{
			name:          "empty_productID",
			buyerID:       "buyer1",
			input:         PlaceBidInput{Amount: 100, Quantity: 1},
			mockSetup:     func(m *repository.MockBidStore) {},
			expectError:   true,
			expectedError: marketerrors.ErrInvalidBid,
		},
		{
			name:          "zero_amount",
			buyerID:       "buyer1",
			input:         PlaceBidInput{ProductID: "p1", Quantity: 1},
			mockSetup:     func(m *repository.MockBidStore) {},
			expectError:   true,
			expectedError: marketerrors.ErrInvalidBid,
		},
		{
			name:          "negative_quantity",
			buyerID:       "buyer1",
			input:         PlaceBidInput{ProductID: "p1", Amount: 100, Quantity: -1},
			mockSetup:     func(m *repository.MockBidStore) {},
			expectError:   true,
			expectedError: marketerrors.ErrInvalidBid,
		},
		{
			name:    "repo_fails",
			buyerID: "buyer1",
			input:   PlaceBidInput{ProductID: "p1", Amount: 3800, Quantity: 10},
			mockSetup: func(m *repository.MockBidStore) {
				m.EXPECT().PlaceBid(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("repo write failed"))
			},
			expectError: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockRepo := repository.NewMockBidStore(ctrl)
			notifier := &recordingNotifier{}
			service := NewBiddingService(mockRepo, notifier, 1.0)
			tc.mockSetup(mockRepo)

			bid, err := service.PlaceBid(context.Background(), tc.buyerID, tc.input)

			if tc.expectError {
				require.Error(t, err)
				if tc.expectedError != nil {
					require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
				}
				require.Empty(t, notifier.sent)
				return
			}

			require.NoError(t, err)
			_, parseErr := uuid.Parse(bid.BidID)
			require.NoError(t, parseErr, "BidID should be a valid UUID")
			require.Equal(t, tc.input.ProductID, bid.ProductID)
			require.Equal(t, tc.buyerID, bid.BuyerID)
			require.Equal(t, "farmer1", bid.FarmerID)
			require.Equal(t, models.BidActive, bid.Status)
			require.WithinDuration(t, now, bid.CreatedAt, 2*time.Second)

			kinds := notifier.kinds()
			require.Equal(t, []string{"farmer1"}, kinds[models.NotifyBidPlaced])
			require.Equal(t, tc.wantOutbid, kinds[models.NotifyBidOutbid])
		})
	}
}

// Tests AcceptBid
func TestBiddingService_AcceptBid(t *testing.T) {
	t.Parallel()

	openBid := models.Bid{BidID: "b1", ProductID: "p1", BuyerID: "buyer1", FarmerID: "farmer1", Amount: 3900, Quantity: 10, Status: models.BidOutbid}

	withdrawn := openBid
	withdrawn.Status = models.BidWithdrawn
	oversized := openBid
	oversized.Quantity = 60
	inactive := biddableProduct()
	inactive.Status = models.ProductInactive
	rejected := biddableProduct()
	rejected.Status = models.ProductRejected

	tests := []struct {
		name          string
		farmerID      string
		bid           models.Bid
		product       *models.Product
		expectedError error
	}{
		{name: "accept_outbid_bid", farmerID: "farmer1", bid: openBid},
		{name: "not_owner", farmerID: "farmer2", bid: openBid, expectedError: marketerrors.ErrForbidden},
		{name: "already_withdrawn", farmerID: "farmer1", bid: withdrawn, expectedError: marketerrors.ErrBidClosed},
		{name: "stock_below_bid", farmerID: "farmer1", bid: oversized, expectedError: marketerrors.ErrInsufficientStock},
		{name: "product_deactivated", farmerID: "farmer1", bid: openBid, product: &inactive, expectedError: marketerrors.ErrProductUnavailable},
		{name: "product_rejected", farmerID: "farmer1", bid: openBid, product: &rejected, expectedError: marketerrors.ErrProductUnavailable},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockRepo := repository.NewMockBidStore(ctrl)
			notifier := &recordingNotifier{}
			service := NewBiddingService(mockRepo, notifier, 1.0)

			mockRepo.EXPECT().AcceptBid(gomock.Any(), "b1", gomock.Any()).
				DoAndReturn(func(_ context.Context, _ string, build repository.OrderBuilder) (models.Bid, models.Order, []models.Bid, error) {
					product := biddableProduct()
					if tc.product != nil {
						product = *tc.product
					}
					order, err := build(tc.bid, product)
					if err != nil {
						return models.Bid{}, models.Order{}, nil, err
					}
					accepted := tc.bid
					accepted.Status = models.BidAccepted
					return accepted, order, []models.Bid{{BidID: "b2", BuyerID: "buyer2"}}, nil
				})

			bid, order, err := service.AcceptBid(context.Background(), tc.farmerID, "b1")
			if tc.expectedError != nil {
				require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, models.BidAccepted, bid.Status)
			require.Equal(t, models.OrderConfirmed, order.Status)
			require.Equal(t, models.PaymentPending, order.PaymentStatus)
			require.Equal(t, "b1", order.BidID)
			require.Equal(t, 3900.0, order.UnitPrice)
			require.Equal(t, 39000.0, order.Total)
			require.Equal(t, "buyer1", order.BuyerID)

			kinds := notifier.kinds()
			require.Equal(t, []string{"buyer1"}, kinds[models.NotifyBidAccepted])
			require.Equal(t, []string{"buyer2"}, kinds[models.NotifyBidRejected])
		})
	}

	t.Run("empty_bidID", func(t *testing.T) {
		t.Parallel()
		service := NewBiddingService(repository.NewMockBidStore(gomock.NewController(t)), nil, 1.0)
		_, _, err := service.AcceptBid(context.Background(), "farmer1", "")
		require.ErrorIs(t, err, marketerrors.ErrInvalidBid)
	})
}

// Tests RejectBid and WithdrawBid
func TestBiddingService_CloseBid(t *testing.T) {
	t.Parallel()

	active := models.Bid{BidID: "b1", ProductID: "p1", BuyerID: "buyer1", FarmerID: "farmer1", Amount: 3900, Status: models.BidActive}
	accepted := active
	accepted.Status = models.BidAccepted

	rejectAs := func(farmerID string) func(s *BiddingService) (models.Bid, error) {
		return func(s *BiddingService) (models.Bid, error) {
			return s.RejectBid(context.Background(), farmerID, "b1")
		}
	}
	withdrawAs := func(buyerID string) func(s *BiddingService) (models.Bid, error) {
		return func(s *BiddingService) (models.Bid, error) {
			return s.WithdrawBid(context.Background(), buyerID, "b1")
		}
	}

	tests := []struct {
		name          string
		call          func(s *BiddingService) (models.Bid, error)
		stored        models.Bid
		wantStatus    string
		expectedError error
		wantNotified  bool
	}{
		{
			name:         "farmer_rejects",
			call:         rejectAs("farmer1"),
			stored:       active,
			wantStatus:   models.BidRejected,
			wantNotified: true,
		},
		{
			name:          "other_farmer_rejects",
			call:          rejectAs("farmer2"),
			stored:        active,
			expectedError: marketerrors.ErrForbidden,
		},
		{
			name:       "buyer_withdraws",
			call:       withdrawAs("buyer1"),
			stored:     active,
			wantStatus: models.BidWithdrawn,
		},
		{
			name:          "other_buyer_withdraws",
			call:          withdrawAs("buyer2"),
			stored:        active,
			expectedError: marketerrors.ErrForbidden,
		},
		{
			name:          "withdraw_accepted_bid",
			call:          withdrawAs("buyer1"),
			stored:        accepted,
			expectedError: marketerrors.ErrBidClosed,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockRepo := repository.NewMockBidStore(ctrl)
			notifier := &recordingNotifier{}
			service := NewBiddingService(mockRepo, notifier, 1.0)

			mockRepo.EXPECT().CloseBid(gomock.Any(), "b1", gomock.Any()).
				DoAndReturn(func(_ context.Context, _ string, mutate repository.BidMutation) (models.Bid, *models.Bid, error) {
					b := tc.stored
					if err := mutate(&b); err != nil {
						return models.Bid{}, nil, err
					}
					return b, nil, nil
				})

			bid, err := tc.call(service)
			if tc.expectedError != nil {
				require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantStatus, bid.Status)
			require.Equal(t, tc.wantNotified, len(notifier.sent) == 1)
		})
	}
}

// Tests GetBidsForProduct and GetHighestBid
func TestBiddingService_Queries(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	bidsExample := []models.Bid{
		{BidID: "bid2", ProductID: "p1", BuyerID: "buyer2", Amount: 150, CreatedAt: now.Add(time.Second)},
		{BidID: "bid1", ProductID: "p1", BuyerID: "buyer1", Amount: 100, CreatedAt: now},
	}

	tests := []struct {
		name          string
		mockSetup     func(m *repository.MockBidStore)
		call          func(s *BiddingService) (any, error)
		expected      any
		expectedError error
	}{
		{
			name: "bids_for_product",
			mockSetup: func(m *repository.MockBidStore) {
				m.EXPECT().ListBidsByProduct(gomock.Any(), "p1").Return(bidsExample, nil)
			},
			call:     func(s *BiddingService) (any, error) { return s.GetBidsForProduct(context.Background(), "p1") },
			expected: bidsExample,
		},
		{
			name:          "bids_empty_productID",
			mockSetup:     func(m *repository.MockBidStore) {},
			call:          func(s *BiddingService) (any, error) { return s.GetBidsForProduct(context.Background(), "") },
			expectedError: marketerrors.ErrInvalidBid,
		},
		{
			name: "bids_product_missing",
			mockSetup: func(m *repository.MockBidStore) {
				m.EXPECT().ListBidsByProduct(gomock.Any(), "p9").Return(nil, marketerrors.ErrProductNotFound)
			},
			call:          func(s *BiddingService) (any, error) { return s.GetBidsForProduct(context.Background(), "p9") },
			expectedError: marketerrors.ErrProductNotFound,
		},
		{
			name: "highest_bid",
			mockSetup: func(m *repository.MockBidStore) {
				m.EXPECT().GetHighestBid(gomock.Any(), "p1").Return(bidsExample[0], nil)
			},
			call:     func(s *BiddingService) (any, error) { return s.GetHighestBid(context.Background(), "p1") },
			expected: bidsExample[0],
		},
		{
			name: "highest_bid_none",
			mockSetup: func(m *repository.MockBidStore) {
				m.EXPECT().GetHighestBid(gomock.Any(), "p2").Return(models.Bid{}, marketerrors.ErrNoBids)
			},
			call: func(s *BiddingService) (any, error) {
				return s.GetHighestBid(context.Background(), "p2")
			},
			expectedError: marketerrors.ErrNoBids,
		},
		{
			name: "buyer_bids_by_status",
			mockSetup: func(m *repository.MockBidStore) {
				m.EXPECT().ListBids(gomock.Any(), models.BidFilter{BuyerID: "buyer1", Status: models.BidOutbid, Page: models.Page{Page: 1, Limit: 10}}).
					Return(bidsExample[1:], 1, nil)
			},
			call: func(s *BiddingService) (any, error) {
				bids, _, err := s.ListBuyerBids(context.Background(), "buyer1", models.BidOutbid, models.Page{Page: 1, Limit: 10})
				return bids, err
			},
			expected: bidsExample[1:],
		},
		{
			name:      "unknown_status",
			mockSetup: func(m *repository.MockBidStore) {},
			call: func(s *BiddingService) (any, error) {
				_, _, err := s.ListFarmerBids(context.Background(), "farmer1", "winning", models.Page{})
				return nil, err
			},
			expectedError: marketerrors.ErrInvalidInput,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockRepo := repository.NewMockBidStore(ctrl)
			service := NewBiddingService(mockRepo, nil, 1.0)
			tc.mockSetup(mockRepo)

			got, err := tc.call(service)
			if tc.expectedError != nil {
				require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, got)
		})
	}
}
