package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"farmerconnect/internal/models"
	"farmerconnect/internal/repository"
)

const (
	monthsReported = 12
	topProducts    = 5
)

// MonthlyAmount is the order value of one calendar month (YYYY-MM)
type MonthlyAmount struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
	Orders int     `json:"orders"`
}

// ProductRevenue ranks a product by the value it has sold
type ProductRevenue struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Revenue     float64 `json:"revenue"`
	Quantity    float64 `json:"quantity"`
	Orders      int     `json:"orders"`
}

// FarmerStats is the seller dashboard
type FarmerStats struct {
	TotalRevenue   float64          `json:"total_revenue"`
	PaidRevenue    float64          `json:"paid_revenue"`
	TotalOrders    int              `json:"total_orders"`
	OrdersByStatus map[string]int   `json:"orders_by_status"`
	MonthlyRevenue []MonthlyAmount  `json:"monthly_revenue"`
	TopProducts    []ProductRevenue `json:"top_products"`
	ActiveProducts int              `json:"active_products"`
	OpenBids       int              `json:"open_bids"`
	AverageRating  float64          `json:"average_rating"`
	ReviewCount    int              `json:"review_count"`
}

// BuyerStats is the purchaser dashboard
type BuyerStats struct {
	TotalSpent     float64         `json:"total_spent"`
	PaidSpent      float64         `json:"paid_spent"`
	TotalOrders    int             `json:"total_orders"`
	OrdersByStatus map[string]int  `json:"orders_by_status"`
	MonthlySpend   []MonthlyAmount `json:"monthly_spend"`
	BidsByStatus   map[string]int  `json:"bids_by_status"`
}

// AnalyticsService aggregates dashboard figures from orders, bids and reviews
type AnalyticsService struct {
	products repository.ProductStore
	bids     repository.BidStore
	orders   repository.OrderStore
	reviews  repository.ReviewStore
	now      func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService instance
func NewAnalyticsService(products repository.ProductStore, bids repository.BidStore, orders repository.OrderStore, reviews repository.ReviewStore) *AnalyticsService {
	return &AnalyticsService{
		products: products,
		bids:     bids,
		orders:   orders,
		reviews:  reviews,
		now:      time.Now,
	}
}

// Farmer computes the dashboard of one farmer
func (s *AnalyticsService) Farmer(ctx context.Context, farmerID string) (FarmerStats, error) {
	orders, _, err := s.orders.ListOrders(ctx, models.OrderFilter{FarmerID: farmerID})
	if err != nil {
		return FarmerStats{}, fmt.Errorf("service: failed to load orders of farmer %s: %w", farmerID, err)
	}

	stats := FarmerStats{
		TotalOrders:    len(orders),
		OrdersByStatus: countStatuses(orders),
		TopProducts:    []ProductRevenue{},
	}
	months := s.monthWindow()
	byProduct := make(map[string]*ProductRevenue)
	for _, o := range orders {
		if o.Status == models.OrderCancelled {
			continue
		}
		stats.TotalRevenue += o.Total
		if o.PaymentStatus == models.PaymentPaid {
			stats.PaidRevenue += o.Total
		}
		months.add(o)

		pr, ok := byProduct[o.ProductID]
		if !ok {
			pr = &ProductRevenue{ProductID: o.ProductID, ProductName: o.ProductName}
			byProduct[o.ProductID] = pr
		}
		pr.Revenue += o.Total
		pr.Quantity += o.Quantity
		pr.Orders++
	}
	stats.TotalRevenue = models.RoundMoney(stats.TotalRevenue)
	stats.PaidRevenue = models.RoundMoney(stats.PaidRevenue)
	stats.MonthlyRevenue = months.list()

	for _, pr := range byProduct {
		pr.Revenue = models.RoundMoney(pr.Revenue)
		stats.TopProducts = append(stats.TopProducts, *pr)
	}
	sort.Slice(stats.TopProducts, func(i, j int) bool {
		if stats.TopProducts[i].Revenue != stats.TopProducts[j].Revenue {
			return stats.TopProducts[i].Revenue > stats.TopProducts[j].Revenue
		}
		return stats.TopProducts[i].ProductID < stats.TopProducts[j].ProductID
	})
	if len(stats.TopProducts) > topProducts {
		stats.TopProducts = stats.TopProducts[:topProducts]
	}

	_, active, err := s.products.ListProducts(ctx, models.ProductFilter{
		FarmerID: farmerID,
		Statuses: []string{models.ProductActive},
		Page:     models.Page{Page: 1, Limit: 1},
	})
	if err != nil {
		return FarmerStats{}, fmt.Errorf("service: failed to count products of farmer %s: %w", farmerID, err)
	}
	stats.ActiveProducts = active

	for _, status := range []string{models.BidActive, models.BidOutbid} {
		_, n, err := s.bids.ListBids(ctx, models.BidFilter{FarmerID: farmerID, Status: status, Page: models.Page{Page: 1, Limit: 1}})
		if err != nil {
			return FarmerStats{}, fmt.Errorf("service: failed to count bids of farmer %s: %w", farmerID, err)
		}
		stats.OpenBids += n
	}

	avg, count, err := s.reviews.RatingSummary(ctx, models.ReviewFilter{FarmerID: farmerID})
	if err != nil {
		return FarmerStats{}, fmt.Errorf("service: failed to summarize reviews of farmer %s: %w", farmerID, err)
	}
	stats.AverageRating = roundRating(avg)
	stats.ReviewCount = count
	return stats, nil
}

// Buyer computes the dashboard of one buyer
func (s *AnalyticsService) Buyer(ctx context.Context, buyerID string) (BuyerStats, error) {
	orders, _, err := s.orders.ListOrders(ctx, models.OrderFilter{BuyerID: buyerID})
	if err != nil {
		return BuyerStats{}, fmt.Errorf("service: failed to load orders of buyer %s: %w", buyerID, err)
	}

	stats := BuyerStats{
		TotalOrders:    len(orders),
		OrdersByStatus: countStatuses(orders),
		BidsByStatus:   map[string]int{},
	}
	months := s.monthWindow()
	for _, o := range orders {
		if o.Status == models.OrderCancelled {
			continue
		}
		stats.TotalSpent += o.Total
		if o.PaymentStatus == models.PaymentPaid {
			stats.PaidSpent += o.Total
		}
		months.add(o)
	}
	stats.TotalSpent = models.RoundMoney(stats.TotalSpent)
	stats.PaidSpent = models.RoundMoney(stats.PaidSpent)
	stats.MonthlySpend = months.list()

	bids, _, err := s.bids.ListBids(ctx, models.BidFilter{BuyerID: buyerID})
	if err != nil {
		return BuyerStats{}, fmt.Errorf("service: failed to load bids of buyer %s: %w", buyerID, err)
	}
	for _, b := range bids {
		stats.BidsByStatus[b.Status]++
	}
	return stats, nil
}

func countStatuses(orders []models.Order) map[string]int {
	counts := make(map[string]int)
	for _, o := range orders {
		counts[o.Status]++
	}
	return counts
}

func roundRating(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

// monthWindow buckets order totals into the last twelve calendar months
type monthWindow struct {
	months []MonthlyAmount
	index  map[string]int
}

func (s *AnalyticsService) monthWindow() *monthWindow {
	now := s.now().UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	w := &monthWindow{index: make(map[string]int, monthsReported)}
	for i := monthsReported - 1; i >= 0; i-- {
		key := first.AddDate(0, -i, 0).Format("2006-01")
		w.index[key] = len(w.months)
		w.months = append(w.months, MonthlyAmount{Month: key})
	}
	return w
}

func (w *monthWindow) add(o models.Order) {
	i, ok := w.index[o.CreatedAt.UTC().Format("2006-01")]
	if !ok {
		return
	}
	w.months[i].Amount += o.Total
	w.months[i].Orders++
}

func (w *monthWindow) list() []MonthlyAmount {
	for i := range w.months {
		w.months[i].Amount = models.RoundMoney(w.months[i].Amount)
	}
	return w.months
}
