package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"farmerconnect/internal/marketerrors"
	"farmerconnect/internal/models"
	"farmerconnect/internal/repository"
	"farmerconnect/utils"
)

// Page sizes for public product listings
const (
	DefaultPageSize = 12
	MaxPageSize     = 50
)

// ProductInput carries the fields of a new listing
type ProductInput struct {
	CategoryID       string
	Name             string
	Description      string
	Unit             string
	Price            float64
	Quantity         float64
	MinOrderQuantity float64
	BiddingEnabled   bool
	MinBidPrice      float64
	BiddingEndsAt    *time.Time
	Location         string
	HarvestDate      *time.Time
	Organic          bool
}

// ProductPatch carries a partial listing update; nil fields are unchanged
type ProductPatch struct {
	CategoryID       *string
	Name             *string
	Description      *string
	Unit             *string
	Price            *float64
	Quantity         *float64
	MinOrderQuantity *float64
	BiddingEnabled   *bool
	MinBidPrice      *float64
	BiddingEndsAt    *time.Time
	Location         *string
	HarvestDate      *time.Time
	Organic          *bool
}

// ProductDetail is a product with its bidding summary
type ProductDetail struct {
	models.Product
	BidCount   int         `json:"bid_count"`
	HighestBid *models.Bid `json:"highest_bid"`
}

// CatalogService manages categories and product listings
type CatalogService struct {
	products repository.ProductStore
	bids     repository.BidStore
	orders   repository.OrderStore
	images   *ImageStore
	now      func() time.Time
}

// NewCatalogService creates a new CatalogService instance
func NewCatalogService(products repository.ProductStore, bids repository.BidStore, orders repository.OrderStore, images *ImageStore) *CatalogService {
	return &CatalogService{
		products: products,
		bids:     bids,
		orders:   orders,
		images:   images,
		now:      time.Now,
	}
}

// ListCategories returns every category by name
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	cats, err := s.products.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list categories: %w", err)
	}
	return cats, nil
}

// ListProducts returns a page of products. Only active products are listed
// unless the filter names statuses explicitly.
func (s *CatalogService) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, models.Page, error) {
	filter.Page = filter.Page.Normalize(DefaultPageSize, MaxPageSize)
	if len(filter.Statuses) == 0 {
		filter.Statuses = []string{models.ProductActive}
	}
	switch filter.Sort {
	case "", models.SortNewest, models.SortPriceAsc, models.SortPriceDesc:
	default:
		return nil, 0, filter.Page, fmt.Errorf("service: %w - unknown sort %q", marketerrors.ErrInvalidInput, filter.Sort)
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, 0, filter.Page, fmt.Errorf("service: %w - min_price exceeds max_price", marketerrors.ErrInvalidInput)
	}

	list, total, err := s.products.ListProducts(ctx, filter)
	if err != nil {
		return nil, 0, filter.Page, fmt.Errorf("service: failed to list products: %w", err)
	}
	return list, total, filter.Page, nil
}

// ListFarmerProducts returns every product of a farmer regardless of status
func (s *CatalogService) ListFarmerProducts(ctx context.Context, farmerID string) ([]models.Product, error) {
	list, _, err := s.products.ListProducts(ctx, models.ProductFilter{FarmerID: farmerID})
	if err != nil {
		return nil, fmt.Errorf("service: failed to list products of farmer %s: %w", farmerID, err)
	}
	return list, nil
}

// GetProduct returns a product with its bid count and current highest bid
func (s *CatalogService) GetProduct(ctx context.Context, productID string) (ProductDetail, error) {
	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return ProductDetail{}, fmt.Errorf("service: failed to get product %s: %w", productID, err)
	}
	detail := ProductDetail{Product: p}
	if !p.BiddingEnabled {
		return detail, nil
	}

	bids, err := s.bids.ListBidsByProduct(ctx, productID)
	if err != nil {
		return ProductDetail{}, fmt.Errorf("service: failed to load bids for product %s: %w", productID, err)
	}
	detail.BidCount = len(bids)
	highest, err := s.bids.GetHighestBid(ctx, productID)
	switch {
	case err == nil:
		detail.HighestBid = &highest
	case !errors.Is(err, marketerrors.ErrNoBids):
		return ProductDetail{}, fmt.Errorf("service: failed to load highest bid for product %s: %w", productID, err)
	}
	return detail, nil
}

// CreateProduct lists a new product for a farmer
func (s *CatalogService) CreateProduct(ctx context.Context, farmerID string, in ProductInput) (models.Product, error) {
	now := s.now().UTC()
	p := models.Product{
		ProductID:        utils.GenerateID(),
		FarmerID:         farmerID,
		CategoryID:       strings.TrimSpace(in.CategoryID),
		Name:             strings.TrimSpace(in.Name),
		Description:      strings.TrimSpace(in.Description),
		Unit:             strings.TrimSpace(in.Unit),
		Price:            models.RoundMoney(in.Price),
		Quantity:         in.Quantity,
		MinOrderQuantity: in.MinOrderQuantity,
		BiddingEnabled:   in.BiddingEnabled,
		MinBidPrice:      models.RoundMoney(in.MinBidPrice),
		BiddingEndsAt:    in.BiddingEndsAt,
		Status:           models.ProductActive,
		Location:         strings.TrimSpace(in.Location),
		HarvestDate:      in.HarvestDate,
		Organic:          in.Organic,
		Images:           []models.ProductImage{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if p.MinOrderQuantity == 0 {
		p.MinOrderQuantity = 1
	}
	if p.BiddingEnabled && p.MinBidPrice == 0 {
		p.MinBidPrice = p.Price
	}

	if p.Quantity <= 0 {
		return models.Product{}, fmt.Errorf("service: %w - quantity must be positive", marketerrors.ErrInvalidInput)
	}
	if p.BiddingEndsAt != nil && !p.BiddingEndsAt.After(now) {
		return models.Product{}, fmt.Errorf("service: %w - bidding end must be in the future", marketerrors.ErrInvalidInput)
	}
	if err := validateProduct(p); err != nil {
		return models.Product{}, err
	}
	if _, err := s.products.GetCategory(ctx, p.CategoryID); err != nil {
		return models.Product{}, fmt.Errorf("service: %w", err)
	}

	if err := s.products.CreateProduct(ctx, p); err != nil {
		return models.Product{}, fmt.Errorf("service: failed to create product: %w", err)
	}
	return p, nil
}

func validateProduct(p models.Product) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("service: %w - name is required", marketerrors.ErrInvalidInput)
	case p.Unit == "":
		return fmt.Errorf("service: %w - unit is required", marketerrors.ErrInvalidInput)
	case p.CategoryID == "":
		return fmt.Errorf("service: %w - category is required", marketerrors.ErrInvalidInput)
	case p.Price <= 0:
		return fmt.Errorf("service: %w - price must be positive", marketerrors.ErrInvalidInput)
	case p.Quantity < 0:
		return fmt.Errorf("service: %w - quantity cannot be negative", marketerrors.ErrInvalidInput)
	case p.MinOrderQuantity <= 0:
		return fmt.Errorf("service: %w - minimum order quantity must be positive", marketerrors.ErrInvalidInput)
	case p.Quantity > 0 && p.MinOrderQuantity > p.Quantity:
		return fmt.Errorf("service: %w - minimum order quantity exceeds quantity", marketerrors.ErrInvalidInput)
	case p.BiddingEnabled && p.MinBidPrice <= 0:
		return fmt.Errorf("service: %w - minimum bid price must be positive", marketerrors.ErrInvalidInput)
	}
	return nil
}

// ownedProduct loads a product and checks that farmerID listed it
func (s *CatalogService) ownedProduct(ctx context.Context, farmerID, productID string) (models.Product, error) {
	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return models.Product{}, fmt.Errorf("service: failed to get product %s: %w", productID, err)
	}
	if p.FarmerID != farmerID {
		return models.Product{}, fmt.Errorf("service: %w - product %s belongs to another farmer", marketerrors.ErrForbidden, productID)
	}
	return p, nil
}

// UpdateProduct applies a partial update to a farmer's own product. The
// patch is applied to the freshly locked record, so stock taken by
// concurrent orders is never written back.
func (s *CatalogService) UpdateProduct(ctx context.Context, farmerID, productID string, patch ProductPatch) (models.Product, error) {
	current, err := s.ownedProduct(ctx, farmerID, productID)
	if err != nil {
		return models.Product{}, err
	}
	now := s.now().UTC()

	if patch.CategoryID != nil && *patch.CategoryID != current.CategoryID {
		if _, err := s.products.GetCategory(ctx, *patch.CategoryID); err != nil {
			return models.Product{}, fmt.Errorf("service: %w", err)
		}
	}
	if patch.BiddingEndsAt != nil && !patch.BiddingEndsAt.After(now) {
		return models.Product{}, fmt.Errorf("service: %w - bidding end must be in the future", marketerrors.ErrInvalidInput)
	}

	updated, err := s.products.UpdateProduct(ctx, productID, func(p *models.Product) error {
		if p.FarmerID != farmerID {
			return fmt.Errorf("%w - product %s belongs to another farmer", marketerrors.ErrForbidden, productID)
		}
		applyPatch(p, patch)

		// stock drives the sold/active switch; moderation states are left alone
		switch {
		case p.Status == models.ProductSold && p.Quantity > 0:
			p.Status = models.ProductActive
		case p.Status == models.ProductActive && p.Quantity == 0:
			p.Status = models.ProductSold
		}

		if err := validateProduct(*p); err != nil {
			return err
		}
		p.UpdatedAt = now
		return nil
	})
	if err != nil {
		return models.Product{}, fmt.Errorf("service: failed to update product %s: %w", productID, err)
	}
	return updated, nil
}

// applyPatch copies the set fields of patch onto p. Quantity is only
// touched when the farmer sends it explicitly.
func applyPatch(p *models.Product, patch ProductPatch) {
	if patch.CategoryID != nil {
		p.CategoryID = *patch.CategoryID
	}
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		p.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Unit != nil {
		p.Unit = strings.TrimSpace(*patch.Unit)
	}
	if patch.Price != nil {
		p.Price = models.RoundMoney(*patch.Price)
	}
	if patch.Quantity != nil {
		p.Quantity = *patch.Quantity
	}
	if patch.MinOrderQuantity != nil {
		p.MinOrderQuantity = *patch.MinOrderQuantity
	}
	if patch.BiddingEnabled != nil {
		p.BiddingEnabled = *patch.BiddingEnabled
	}
	if patch.MinBidPrice != nil {
		p.MinBidPrice = models.RoundMoney(*patch.MinBidPrice)
	}
	if patch.BiddingEndsAt != nil {
		p.BiddingEndsAt = patch.BiddingEndsAt
	}
	if patch.Location != nil {
		p.Location = strings.TrimSpace(*patch.Location)
	}
	if patch.HarvestDate != nil {
		p.HarvestDate = patch.HarvestDate
	}
	if patch.Organic != nil {
		p.Organic = *patch.Organic
	}
	if p.BiddingEnabled && p.MinBidPrice == 0 {
		p.MinBidPrice = p.Price
	}
}

// DeleteProduct removes a farmer's product, or deactivates it when bids or
// orders reference it. It reports whether the product was only deactivated.
func (s *CatalogService) DeleteProduct(ctx context.Context, farmerID, productID string) (bool, error) {
	if _, err := s.ownedProduct(ctx, farmerID, productID); err != nil {
		return false, err
	}

	active, err := s.orders.ProductHasActivity(ctx, productID)
	if err != nil {
		return false, fmt.Errorf("service: failed to check activity for product %s: %w", productID, err)
	}
	if active {
		now := s.now().UTC()
		_, err := s.products.UpdateProduct(ctx, productID, func(p *models.Product) error {
			p.Status = models.ProductInactive
			p.UpdatedAt = now
			return nil
		})
		if err != nil {
			return false, fmt.Errorf("service: failed to deactivate product %s: %w", productID, err)
		}
		return true, nil
	}

	if err := s.products.DeleteProduct(ctx, productID); err != nil {
		return false, fmt.Errorf("service: failed to delete product %s: %w", productID, err)
	}
	return false, nil
}

// AddImage stores an uploaded image for a farmer's own product
func (s *CatalogService) AddImage(ctx context.Context, farmerID, productID string, r io.Reader) (models.ProductImage, error) {
	p, err := s.ownedProduct(ctx, farmerID, productID)
	if err != nil {
		return models.ProductImage{}, err
	}
	if len(p.Images) >= MaxImagesPerProduct {
		return models.ProductImage{}, fmt.Errorf("service: %w - at most %d images per product", marketerrors.ErrImageLimit, MaxImagesPerProduct)
	}

	stored, err := s.images.Save(productID, r)
	if err != nil {
		return models.ProductImage{}, fmt.Errorf("service: failed to store image for product %s: %w", productID, err)
	}

	img, err := s.products.AddProductImage(ctx, models.ProductImage{
		ImageID:      stored.ID,
		ProductID:    productID,
		URL:          stored.URL,
		ThumbnailURL: stored.ThumbnailURL,
		CreatedAt:    s.now().UTC(),
	}, MaxImagesPerProduct)
	if err != nil {
		s.images.Discard(stored)
		return models.ProductImage{}, fmt.Errorf("service: failed to attach image to product %s: %w", productID, err)
	}
	return img, nil
}
