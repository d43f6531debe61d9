package prices

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"farmerconnect/internal/marketerrors"
	"farmerconnect/internal/models"
	"farmerconnect/internal/repository"
)

// Page sizes for market price listings
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// MarketComparison sets the latest modal price of one market against the MSP
type MarketComparison struct {
	Market       string  `json:"market"`
	State        string  `json:"state"`
	ModalPrice   float64 `json:"modal_price"`
	ArrivalDate  string  `json:"arrival_date"`
	Difference   float64 `json:"difference"`
	PercentVsMSP float64 `json:"percent_vs_msp"`
	AboveMSP     bool    `json:"above_msp"`
}

// Comparison is the price comparison for one commodity. MSP is nil when no
// support price is published for it.
type Comparison struct {
	Commodity string             `json:"commodity"`
	MSP       *models.MSPRate    `json:"msp"`
	Markets   []MarketComparison `json:"markets"`
}

// PriceService serves read-only APMC and MSP reference prices
type PriceService struct {
	prices repository.PriceStore
}

// NewPriceService creates a new PriceService instance
func NewPriceService(prices repository.PriceStore) *PriceService {
	return &PriceService{prices: prices}
}

// MarketPrices returns a page of APMC reports, newest first
func (s *PriceService) MarketPrices(ctx context.Context, filter models.PriceFilter) ([]models.MarketPrice, int, models.Page, error) {
	filter.Page = filter.Page.Normalize(DefaultPageSize, MaxPageSize)
	list, total, err := s.prices.ListMarketPrices(ctx, filter)
	if err != nil {
		return nil, 0, filter.Page, fmt.Errorf("service: failed to list market prices: %w", err)
	}
	return list, total, filter.Page, nil
}

// MSPRates returns the support prices matching the filter
func (s *PriceService) MSPRates(ctx context.Context, filter models.PriceFilter) ([]models.MSPRate, error) {
	list, err := s.prices.ListMSP(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list msp rates: %w", err)
	}
	return list, nil
}

// Commodities returns the distinct commodity names across both sources, sorted
func (s *PriceService) Commodities(ctx context.Context) ([]string, error) {
	market, _, err := s.prices.ListMarketPrices(ctx, models.PriceFilter{})
	if err != nil {
		return nil, fmt.Errorf("service: failed to list market prices: %w", err)
	}
	msp, err := s.prices.ListMSP(ctx, models.PriceFilter{})
	if err != nil {
		return nil, fmt.Errorf("service: failed to list msp rates: %w", err)
	}

	seen := make(map[string]string)
	for _, p := range market {
		seen[strings.ToLower(p.Commodity)] = p.Commodity
	}
	for _, m := range msp {
		if _, ok := seen[strings.ToLower(m.Commodity)]; !ok {
			seen[strings.ToLower(m.Commodity)] = m.Commodity
		}
	}
	out := make([]string, 0, len(seen))
	for _, name := range seen {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out, nil
}

// Compare sets the latest report of each market against the newest MSP of the commodity
func (s *PriceService) Compare(ctx context.Context, commodity string) (Comparison, error) {
	commodity = strings.TrimSpace(commodity)
	if commodity == "" {
		return Comparison{}, fmt.Errorf("service: %w - commodity is required", marketerrors.ErrInvalidInput)
	}

	reports, _, err := s.prices.ListMarketPrices(ctx, models.PriceFilter{Commodity: commodity})
	if err != nil {
		return Comparison{}, fmt.Errorf("service: failed to list market prices: %w", err)
	}
	rates, err := s.prices.ListMSP(ctx, models.PriceFilter{Commodity: commodity})
	if err != nil {
		return Comparison{}, fmt.Errorf("service: failed to list msp rates: %w", err)
	}

	out := Comparison{Commodity: commodity, Markets: []MarketComparison{}}
	if len(rates) > 0 {
		latest := rates[0]
		for _, r := range rates[1:] {
			if r.Year > latest.Year {
				latest = r
			}
		}
		out.MSP = &latest
		out.Commodity = latest.Commodity
	}

	// reports arrive newest first, so the first one per market is its latest
	seen := make(map[string]bool)
	for _, p := range reports {
		key := strings.ToLower(p.Market + "|" + p.State)
		if seen[key] {
			continue
		}
		seen[key] = true
		out.Commodity = p.Commodity

		mc := MarketComparison{
			Market:      p.Market,
			State:       p.State,
			ModalPrice:  p.ModalPrice,
			ArrivalDate: p.ArrivalDate.Format("2006-01-02"),
		}
		if out.MSP != nil && out.MSP.Price > 0 {
			mc.Difference = models.RoundMoney(p.ModalPrice - out.MSP.Price)
			mc.PercentVsMSP = math.Round(mc.Difference/out.MSP.Price*10000) / 100
			mc.AboveMSP = p.ModalPrice >= out.MSP.Price
		}
		out.Markets = append(out.Markets, mc)
	}
	if len(out.Markets) == 0 && out.MSP == nil {
		return Comparison{}, fmt.Errorf("service: %w: %s", marketerrors.ErrPriceNotFound, commodity)
	}
	sort.SliceStable(out.Markets, func(i, j int) bool { return out.Markets[i].ModalPrice > out.Markets[j].ModalPrice })
	return out, nil
}
