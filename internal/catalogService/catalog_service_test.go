package catalog

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"farmerconnect/internal/marketerrors"
	"farmerconnect/internal/models"
	"farmerconnect/internal/repository"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*CatalogService, *repository.MemoryRepo) {
	t.Helper()
	repo := repository.NewMemoryRepo()
	require.NoError(t, repo.CreateCategory(context.Background(), models.Category{CategoryID: "cat-veg", Name: "Vegetables"}))
	svc := NewCatalogService(repo, repo, repo, NewImageStore(t.TempDir()))
	return svc, repo
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func validInput() ProductInput {
	return ProductInput{
		CategoryID: "cat-veg",
		Name:       "Tomatoes",
		Unit:       "kg",
		Price:      24.5,
		Quantity:   100,
	}
}

func TestCatalogService_CreateProduct(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(48 * time.Hour)

	tests := []struct {
		name    string
		mutate  func(in *ProductInput)
		wantErr error
		check   func(t *testing.T, p models.Product)
	}{
		{
			name: "defaults applied",
			check: func(t *testing.T, p models.Product) {
				require.Equal(t, models.ProductActive, p.Status)
				require.Equal(t, 1.0, p.MinOrderQuantity)
				require.Equal(t, "farmer-1", p.FarmerID)
				require.NotEmpty(t, p.ProductID)
			},
		},
		{
			name: "bidding defaults min bid price to price",
			mutate: func(in *ProductInput) {
				in.BiddingEnabled = true
				in.BiddingEndsAt = &future
			},
			check: func(t *testing.T, p models.Product) {
				require.True(t, p.BiddingEnabled)
				require.Equal(t, 24.5, p.MinBidPrice)
			},
		},
		{name: "missing name", mutate: func(in *ProductInput) { in.Name = "  " }, wantErr: marketerrors.ErrInvalidInput},
		{name: "missing unit", mutate: func(in *ProductInput) { in.Unit = "" }, wantErr: marketerrors.ErrInvalidInput},
		{name: "zero price", mutate: func(in *ProductInput) { in.Price = 0 }, wantErr: marketerrors.ErrInvalidInput},
		{name: "zero quantity", mutate: func(in *ProductInput) { in.Quantity = 0 }, wantErr: marketerrors.ErrInvalidInput},
		{name: "min order above quantity", mutate: func(in *ProductInput) { in.MinOrderQuantity = 101 }, wantErr: marketerrors.ErrInvalidInput},
		{name: "bidding end in the past", mutate: func(in *ProductInput) { in.BiddingEndsAt = &past }, wantErr: marketerrors.ErrInvalidInput},
		{name: "unknown category", mutate: func(in *ProductInput) { in.CategoryID = "cat-none" }, wantErr: marketerrors.ErrCategoryNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, repo := newTestService(t)
			in := validInput()
			if tt.mutate != nil {
				tt.mutate(&in)
			}

			p, err := svc.CreateProduct(context.Background(), "farmer-1", in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, p)

			stored, err := repo.GetProduct(context.Background(), p.ProductID)
			require.NoError(t, err)
			require.Equal(t, p.Name, stored.Name)
		})
	}
}

func TestCatalogService_ListProducts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo := newTestService(t)

	p1, err := svc.CreateProduct(ctx, "farmer-1", validInput())
	require.NoError(t, err)
	in := validInput()
	in.Name = "Onions"
	in.Price = 30
	p2, err := svc.CreateProduct(ctx, "farmer-1", in)
	require.NoError(t, err)
	_, err = repo.UpdateProduct(ctx, p2.ProductID, func(p *models.Product) error {
		p.Status = models.ProductInactive
		return nil
	})
	require.NoError(t, err)

	t.Run("public sees active only", func(t *testing.T) {
		list, total, page, err := svc.ListProducts(ctx, models.ProductFilter{})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Equal(t, p1.ProductID, list[0].ProductID)
		require.Equal(t, models.Page{Page: 1, Limit: DefaultPageSize}, page)
	})

	t.Run("explicit statuses", func(t *testing.T) {
		_, total, _, err := svc.ListProducts(ctx, models.ProductFilter{Statuses: []string{models.ProductActive, models.ProductInactive}})
		require.NoError(t, err)
		require.Equal(t, 2, total)
	})

	t.Run("limit clamped", func(t *testing.T) {
		_, _, page, err := svc.ListProducts(ctx, models.ProductFilter{Page: models.Page{Page: 0, Limit: 500}})
		require.NoError(t, err)
		require.Equal(t, MaxPageSize, page.Limit)
	})

	t.Run("unknown sort", func(t *testing.T) {
		_, _, _, err := svc.ListProducts(ctx, models.ProductFilter{Sort: "random"})
		require.ErrorIs(t, err, marketerrors.ErrInvalidInput)
	})

	t.Run("inverted price range", func(t *testing.T) {
		lo, hi := 50.0, 10.0
		_, _, _, err := svc.ListProducts(ctx, models.ProductFilter{MinPrice: &lo, MaxPrice: &hi})
		require.ErrorIs(t, err, marketerrors.ErrInvalidInput)
	})

	t.Run("farmer listing includes every status", func(t *testing.T) {
		list, err := svc.ListFarmerProducts(ctx, "farmer-1")
		require.NoError(t, err)
		require.Len(t, list, 2)
	})
}

func TestCatalogService_GetProduct(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo := newTestService(t)

	in := validInput()
	in.BiddingEnabled = true
	p, err := svc.CreateProduct(ctx, "farmer-1", in)
	require.NoError(t, err)

	detail, err := svc.GetProduct(ctx, p.ProductID)
	require.NoError(t, err)
	require.Zero(t, detail.BidCount)
	require.Nil(t, detail.HighestBid)

	now := time.Now().UTC()
	for i, amount := range []float64{25, 27} {
		_, err := repo.PlaceBid(ctx, models.Bid{
			BidID:     "bid-" + string(rune('a'+i)),
			ProductID: p.ProductID,
			BuyerID:   "buyer-1",
			Amount:    amount,
			Quantity:  5,
			Status:    models.BidActive,
			CreatedAt: now,
		}, func(models.Product, *models.Bid) error { return nil })
		require.NoError(t, err)
	}

	detail, err = svc.GetProduct(ctx, p.ProductID)
	require.NoError(t, err)
	require.Equal(t, 2, detail.BidCount)
	require.NotNil(t, detail.HighestBid)
	require.Equal(t, 27.0, detail.HighestBid.Amount)

	_, err = svc.GetProduct(ctx, "missing")
	require.ErrorIs(t, err, marketerrors.ErrProductNotFound)
}

func TestCatalogService_UpdateProduct(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("not owner", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		p, err := svc.CreateProduct(ctx, "farmer-1", validInput())
		require.NoError(t, err)

		name := "Stolen"
		_, err = svc.UpdateProduct(ctx, "farmer-2", p.ProductID, ProductPatch{Name: &name})
		require.ErrorIs(t, err, marketerrors.ErrForbidden)
	})

	t.Run("partial update", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		p, err := svc.CreateProduct(ctx, "farmer-1", validInput())
		require.NoError(t, err)

		price := 26.456
		updated, err := svc.UpdateProduct(ctx, "farmer-1", p.ProductID, ProductPatch{Price: &price})
		require.NoError(t, err)
		require.Equal(t, 26.46, updated.Price)
		require.Equal(t, p.Name, updated.Name)
	})

	t.Run("zero quantity marks product sold and restock reopens it", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		in := validInput()
		in.MinOrderQuantity = 5
		p, err := svc.CreateProduct(ctx, "farmer-1", in)
		require.NoError(t, err)

		zero := 0.0
		sold, err := svc.UpdateProduct(ctx, "farmer-1", p.ProductID, ProductPatch{Quantity: &zero})
		require.NoError(t, err)
		require.Equal(t, models.ProductSold, sold.Status)

		restock := 40.0
		reopened, err := svc.UpdateProduct(ctx, "farmer-1", p.ProductID, ProductPatch{Quantity: &restock})
		require.NoError(t, err)
		require.Equal(t, models.ProductActive, reopened.Status)
	})

	t.Run("invalid min order", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		p, err := svc.CreateProduct(ctx, "farmer-1", validInput())
		require.NoError(t, err)

		moq := 500.0
		_, err = svc.UpdateProduct(ctx, "farmer-1", p.ProductID, ProductPatch{MinOrderQuantity: &moq})
		require.ErrorIs(t, err, marketerrors.ErrInvalidInput)
	})

	t.Run("unknown category", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		p, err := svc.CreateProduct(ctx, "farmer-1", validInput())
		require.NoError(t, err)

		cat := "cat-none"
		_, err = svc.UpdateProduct(ctx, "farmer-1", p.ProductID, ProductPatch{CategoryID: &cat})
		require.ErrorIs(t, err, marketerrors.ErrCategoryNotFound)
	})
}

// orderingStore takes stock right after every product read, the way a
// buyer's order committing mid-edit would
type orderingStore struct {
	*repository.MemoryRepo
	take float64
}

func (s orderingStore) GetProduct(ctx context.Context, productID string) (models.Product, error) {
	p, err := s.MemoryRepo.GetProduct(ctx, productID)
	if err != nil {
		return p, err
	}
	_, err = s.MemoryRepo.UpdateProduct(ctx, productID, func(stored *models.Product) error {
		stored.Quantity -= s.take
		return nil
	})
	return p, err
}

func TestCatalogService_EditKeepsConcurrentStock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("description edit", func(t *testing.T) {
		t.Parallel()
		_, repo := newTestService(t)
		svc := NewCatalogService(orderingStore{MemoryRepo: repo, take: 60}, repo, repo, NewImageStore(t.TempDir()))
		p, err := svc.CreateProduct(ctx, "farmer-1", validInput())
		require.NoError(t, err)

		desc := "Fresh from the farm"
		updated, err := svc.UpdateProduct(ctx, "farmer-1", p.ProductID, ProductPatch{Description: &desc})
		require.NoError(t, err)
		require.Equal(t, desc, updated.Description)
		require.Equal(t, 40.0, updated.Quantity)

		stored, err := repo.GetProduct(ctx, p.ProductID)
		require.NoError(t, err)
		require.Equal(t, 40.0, stored.Quantity)
	})

	t.Run("edit after sell out keeps product sold", func(t *testing.T) {
		t.Parallel()
		_, repo := newTestService(t)
		svc := NewCatalogService(orderingStore{MemoryRepo: repo, take: 100}, repo, repo, NewImageStore(t.TempDir()))
		p, err := svc.CreateProduct(ctx, "farmer-1", validInput())
		require.NoError(t, err)

		name := "Cherry tomatoes"
		updated, err := svc.UpdateProduct(ctx, "farmer-1", p.ProductID, ProductPatch{Name: &name})
		require.NoError(t, err)
		require.Zero(t, updated.Quantity)
		require.Equal(t, models.ProductSold, updated.Status)
	})
}

func TestCatalogService_DeleteProduct(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("removes product without activity", func(t *testing.T) {
		t.Parallel()
		svc, repo := newTestService(t)
		p, err := svc.CreateProduct(ctx, "farmer-1", validInput())
		require.NoError(t, err)

		deactivated, err := svc.DeleteProduct(ctx, "farmer-1", p.ProductID)
		require.NoError(t, err)
		require.False(t, deactivated)

		_, err = repo.GetProduct(ctx, p.ProductID)
		require.ErrorIs(t, err, marketerrors.ErrProductNotFound)
	})

	t.Run("deactivates product with orders", func(t *testing.T) {
		t.Parallel()
		svc, repo := newTestService(t)
		p, err := svc.CreateProduct(ctx, "farmer-1", validInput())
		require.NoError(t, err)

		_, err = repo.CreateOrder(ctx, models.Order{
			OrderID:   "order-1",
			ProductID: p.ProductID,
			BuyerID:   "buyer-1",
			FarmerID:  "farmer-1",
			Quantity:  2,
			Status:    models.OrderPending,
		}, func(models.Product, *models.Order) error { return nil })
		require.NoError(t, err)

		deactivated, err := svc.DeleteProduct(ctx, "farmer-1", p.ProductID)
		require.NoError(t, err)
		require.True(t, deactivated)

		stored, err := repo.GetProduct(ctx, p.ProductID)
		require.NoError(t, err)
		require.Equal(t, models.ProductInactive, stored.Status)
	})

	t.Run("not owner", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		p, err := svc.CreateProduct(ctx, "farmer-1", validInput())
		require.NoError(t, err)

		_, err = svc.DeleteProduct(ctx, "farmer-2", p.ProductID)
		require.ErrorIs(t, err, marketerrors.ErrForbidden)
	})
}

func TestCatalogService_AddImage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores original and thumbnail", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		p, err := svc.CreateProduct(ctx, "farmer-1", validInput())
		require.NoError(t, err)

		img, err := svc.AddImage(ctx, "farmer-1", p.ProductID, bytes.NewReader(pngBytes(t, 600, 400)))
		require.NoError(t, err)
		require.True(t, img.Primary)
		require.True(t, strings.HasPrefix(img.URL, "/uploads/products/"+p.ProductID+"/"))

		root := svc.images.Root()
		rel := strings.TrimPrefix(img.ThumbnailURL, "/uploads/")
		f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
		require.NoError(t, err)
		defer f.Close()
		cfg, _, err := image.DecodeConfig(f)
		require.NoError(t, err)
		require.Equal(t, 300, cfg.Width)
		require.Equal(t, 200, cfg.Height)

		second, err := svc.AddImage(ctx, "farmer-1", p.ProductID, bytes.NewReader(pngBytes(t, 20, 20)))
		require.NoError(t, err)
		require.False(t, second.Primary)
	})

	t.Run("rejects non-image upload", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		p, err := svc.CreateProduct(ctx, "farmer-1", validInput())
		require.NoError(t, err)

		_, err = svc.AddImage(ctx, "farmer-1", p.ProductID, strings.NewReader("not an image"))
		require.ErrorIs(t, err, marketerrors.ErrUnsupportedImage)
	})

	t.Run("rejects oversized upload", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		p, err := svc.CreateProduct(ctx, "farmer-1", validInput())
		require.NoError(t, err)

		_, err = svc.AddImage(ctx, "farmer-1", p.ProductID, bytes.NewReader(make([]byte, MaxImageBytes+1)))
		require.ErrorIs(t, err, marketerrors.ErrImageTooLarge)
	})

	t.Run("enforces image limit", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		p, err := svc.CreateProduct(ctx, "farmer-1", validInput())
		require.NoError(t, err)

		data := pngBytes(t, 10, 10)
		for i := 0; i < MaxImagesPerProduct; i++ {
			_, err := svc.AddImage(ctx, "farmer-1", p.ProductID, bytes.NewReader(data))
			require.NoError(t, err)
		}
		_, err = svc.AddImage(ctx, "farmer-1", p.ProductID, bytes.NewReader(data))
		require.ErrorIs(t, err, marketerrors.ErrImageLimit)
	})

	t.Run("not owner", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		p, err := svc.CreateProduct(ctx, "farmer-1", validInput())
		require.NoError(t, err)

		_, err = svc.AddImage(ctx, "farmer-2", p.ProductID, bytes.NewReader(pngBytes(t, 10, 10)))
		require.ErrorIs(t, err, marketerrors.ErrForbidden)
	})
}
