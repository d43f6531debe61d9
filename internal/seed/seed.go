package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	auth "farmerconnect/internal/authService"
	"farmerconnect/internal/marketerrors"
	"farmerconnect/internal/models"
	"farmerconnect/internal/repository"
	"farmerconnect/utils"
)

// DemoPassword is the password of every demo account
const DemoPassword = "password123"

// Store is the storage the demo dataset is written to
type Store interface {
	repository.UserStore
	repository.ProductStore
	repository.PriceStore
}

// Result counts the rows created by one run; rows that already existed are skipped
type Result struct {
	Users        int
	Categories   int
	Products     int
	MarketPrices int
	MSPRates     int
}

// Apply writes the fixed demo dataset. Rows use fixed IDs so running it again
// only fills in what is missing.
func Apply(ctx context.Context, store Store, now time.Time) (Result, error) {
	var res Result
	now = now.UTC()

	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return res, fmt.Errorf("seed users: %w", err)
	}
	for _, u := range users(hash, now) {
		created, err := createUser(ctx, store, u)
		if err != nil {
			return res, err
		}
		if created {
			res.Users++
		}
	}

	for _, c := range categories() {
		if _, err := store.GetCategory(ctx, c.CategoryID); err == nil {
			continue
		} else if !errors.Is(err, marketerrors.ErrCategoryNotFound) {
			return res, fmt.Errorf("seed category %s: %w", c.CategoryID, err)
		}
		if err := store.CreateCategory(ctx, c); err != nil {
			return res, fmt.Errorf("seed category %s: %w", c.CategoryID, err)
		}
		res.Categories++
	}

	for _, p := range products(now) {
		if _, err := store.GetProduct(ctx, p.ProductID); err == nil {
			continue
		} else if !errors.Is(err, marketerrors.ErrProductNotFound) {
			return res, fmt.Errorf("seed product %s: %w", p.ProductID, err)
		}
		if err := store.CreateProduct(ctx, p); err != nil {
			return res, fmt.Errorf("seed product %s: %w", p.ProductID, err)
		}
		res.Products++
	}

	for _, mp := range marketPrices(now) {
		if err := store.UpsertMarketPrice(ctx, mp); err != nil {
			return res, fmt.Errorf("seed market price %s: %w", mp.PriceID, err)
		}
		res.MarketPrices++
	}
	for _, rate := range mspRates() {
		if err := store.UpsertMSP(ctx, rate); err != nil {
			return res, fmt.Errorf("seed msp %s: %w", rate.MSPID, err)
		}
		res.MSPRates++
	}

	utils.Info("seed: demo data applied", map[string]any{
		"users":         res.Users,
		"categories":    res.Categories,
		"products":      res.Products,
		"market_prices": res.MarketPrices,
		"msp_rates":     res.MSPRates,
	})
	return res, nil
}

func createUser(ctx context.Context, store Store, u models.User) (bool, error) {
	if _, err := store.GetUserByEmail(ctx, u.Email); err == nil {
		return false, nil
	} else if !errors.Is(err, marketerrors.ErrUserNotFound) {
		return false, fmt.Errorf("seed user %s: %w", u.Email, err)
	}
	if err := store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, marketerrors.ErrEmailTaken) || errors.Is(err, marketerrors.ErrAlreadyExists) {
			return false, nil
		}
		return false, fmt.Errorf("seed user %s: %w", u.Email, err)
	}
	return true, nil
}

func users(hash string, now time.Time) []models.User {
	base := models.User{PasswordHash: hash, Active: true, CreatedAt: now, UpdatedAt: now}
	mk := func(id, name, email, role string, edit func(u *models.User)) models.User {
		u := base
		u.UserID, u.Name, u.Email, u.Role = id, name, email, role
		if edit != nil {
			edit(&u)
		}
		return u
	}
	return []models.User{
		mk("demo-admin", "Platform Admin", "admin@farmerconnect.in", models.RoleAdmin, nil),
		mk("demo-farmer-1", "Ramesh Patil", "ramesh@farmerconnect.in", models.RoleFarmer, func(u *models.User) {
			u.FarmName, u.Location, u.Phone, u.Verified = "Patil Organic Farms", "Nashik, Maharashtra", "9800000001", true
		}),
		mk("demo-farmer-2", "Gurpreet Singh", "gurpreet@farmerconnect.in", models.RoleFarmer, func(u *models.User) {
			u.FarmName, u.Location, u.Phone = "Singh Agro", "Ludhiana, Punjab", "9800000002"
		}),
		mk("demo-buyer-1", "Anita Sharma", "anita@farmerconnect.in", models.RoleBuyer, func(u *models.User) {
			u.BusinessName, u.Location, u.Phone = "Fresh Basket Retail", "Pune, Maharashtra", "9800000003"
		}),
		mk("demo-buyer-2", "Vikram Rao", "vikram@farmerconnect.in", models.RoleBuyer, func(u *models.User) {
			u.BusinessName, u.Location, u.Phone = "Rao Food Processing", "Hyderabad, Telangana", "9800000004"
		}),
	}
}

func categories() []models.Category {
	return []models.Category{
		{CategoryID: "cat-vegetables", Name: "Vegetables", Description: "Fresh seasonal vegetables"},
		{CategoryID: "cat-fruits", Name: "Fruits", Description: "Orchard and seasonal fruits"},
		{CategoryID: "cat-grains", Name: "Grains & Cereals", Description: "Wheat, rice, millets and maize"},
		{CategoryID: "cat-pulses", Name: "Pulses", Description: "Lentils, gram and beans"},
		{CategoryID: "cat-spices", Name: "Spices", Description: "Whole and ground spices"},
		{CategoryID: "cat-dairy", Name: "Dairy", Description: "Milk and milk products"},
	}
}

func products(now time.Time) []models.Product {
	week := now.Add(7 * 24 * time.Hour)
	fortnight := now.Add(14 * 24 * time.Hour)
	harvest := now.Add(-3 * 24 * time.Hour)
	p := func(id, farmer, cat, name, unit string, price, qty, minQty float64, loc string, organic bool) models.Product {
		return models.Product{
			ProductID:        id,
			FarmerID:         farmer,
			CategoryID:       cat,
			Name:             name,
			Unit:             unit,
			Price:            price,
			Quantity:         qty,
			MinOrderQuantity: minQty,
			MinBidPrice:      price,
			Status:           models.ProductActive,
			Location:         loc,
			HarvestDate:      &harvest,
			Organic:          organic,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
	}
	list := []models.Product{
		p("demo-prod-tomato", "demo-farmer-1", "cat-vegetables", "Organic Tomatoes", "kg", 28, 500, 10, "Nashik, Maharashtra", true),
		p("demo-prod-onion", "demo-farmer-1", "cat-vegetables", "Red Onions", "kg", 22, 2000, 50, "Nashik, Maharashtra", false),
		p("demo-prod-grapes", "demo-farmer-1", "cat-fruits", "Thompson Seedless Grapes", "kg", 85, 300, 20, "Nashik, Maharashtra", true),
		p("demo-prod-wheat", "demo-farmer-2", "cat-grains", "Sharbati Wheat", "quintal", 2600, 120, 5, "Ludhiana, Punjab", false),
		p("demo-prod-basmati", "demo-farmer-2", "cat-grains", "Pusa Basmati Rice", "quintal", 4200, 80, 2, "Ludhiana, Punjab", false),
		p("demo-prod-chana", "demo-farmer-2", "cat-pulses", "Desi Chana", "quintal", 5600, 40, 1, "Ludhiana, Punjab", false),
	}
	list[1].Description = "Bulk onions, graded and bagged. Offers welcome."
	list[1].BiddingEnabled, list[1].MinBidPrice, list[1].BiddingEndsAt = true, 20, &week
	list[4].Description = "Aged basmati, 1121 variety. Bidding open for bulk buyers."
	list[4].BiddingEnabled, list[4].MinBidPrice, list[4].BiddingEndsAt = true, 4000, &fortnight
	return list
}

func marketPrices(now time.Time) []models.MarketPrice {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	yesterday := day.Add(-24 * time.Hour)
	return []models.MarketPrice{
		{PriceID: "demo-apmc-1", Commodity: "Wheat", Variety: "Sharbati", Market: "Indore", District: "Indore", State: "Madhya Pradesh", MinPrice: 2350, MaxPrice: 2750, ModalPrice: 2550, ArrivalDate: day},
		{PriceID: "demo-apmc-2", Commodity: "Wheat", Variety: "Dara", Market: "Khanna", District: "Ludhiana", State: "Punjab", MinPrice: 2300, MaxPrice: 2500, ModalPrice: 2425, ArrivalDate: yesterday},
		{PriceID: "demo-apmc-3", Commodity: "Onion", Variety: "Red", Market: "Lasalgaon", District: "Nashik", State: "Maharashtra", MinPrice: 1500, MaxPrice: 2400, ModalPrice: 2100, ArrivalDate: day},
		{PriceID: "demo-apmc-4", Commodity: "Tomato", Variety: "Hybrid", Market: "Pimpalgaon", District: "Nashik", State: "Maharashtra", MinPrice: 1800, MaxPrice: 3200, ModalPrice: 2600, ArrivalDate: day},
		{PriceID: "demo-apmc-5", Commodity: "Paddy", Variety: "Basmati 1121", Market: "Karnal", District: "Karnal", State: "Haryana", MinPrice: 3900, MaxPrice: 4500, ModalPrice: 4250, ArrivalDate: yesterday},
		{PriceID: "demo-apmc-6", Commodity: "Gram", Variety: "Desi", Market: "Bikaner", District: "Bikaner", State: "Rajasthan", MinPrice: 5300, MaxPrice: 5900, ModalPrice: 5650, ArrivalDate: day},
	}
}

func mspRates() []models.MSPRate {
	return []models.MSPRate{
		{MSPID: "demo-msp-1", Commodity: "Wheat", Season: "rabi", Year: "2025-26", Price: 2425},
		{MSPID: "demo-msp-2", Commodity: "Gram", Season: "rabi", Year: "2025-26", Price: 5650},
		{MSPID: "demo-msp-3", Commodity: "Paddy", Season: "kharif", Year: "2025-26", Price: 2369},
		{MSPID: "demo-msp-4", Commodity: "Wheat", Season: "rabi", Year: "2024-25", Price: 2275},
		{MSPID: "demo-msp-5", Commodity: "Tur", Season: "kharif", Year: "2025-26", Price: 8000},
	}
}
