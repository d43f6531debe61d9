package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	catalog "farmerconnect/internal/catalogService"
	"farmerconnect/internal/marketerrors"
	"farmerconnect/internal/models"
	"farmerconnect/services/helpers"
	"farmerconnect/utils"

	"github.com/gin-gonic/gin"
)

type CatalogServiceInterface interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, models.Page, error)
	ListFarmerProducts(ctx context.Context, farmerID string) ([]models.Product, error)
	GetProduct(ctx context.Context, productID string) (catalog.ProductDetail, error)
	CreateProduct(ctx context.Context, farmerID string, in catalog.ProductInput) (models.Product, error)
	UpdateProduct(ctx context.Context, farmerID, productID string, patch catalog.ProductPatch) (models.Product, error)
	DeleteProduct(ctx context.Context, farmerID, productID string) (bool, error)
	AddImage(ctx context.Context, farmerID, productID string, r io.Reader) (models.ProductImage, error)
}

type CatalogHandler struct {
	service CatalogServiceInterface
}

func NewCatalogHandler(service CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// ListCategoriesHandler handles GET /categories
func (h *CatalogHandler) ListCategoriesHandler(c *gin.Context) {
	cats, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		helpers.RespondError(c, "ListCategoriesHandler", "error listing categories", err, nil)
		return
	}
	if cats == nil {
		cats = []models.Category{}
	}
	utils.JSONResponse(c, http.StatusOK, cats, "categories retrieved successfully")
}

// ListProductsHandler handles GET /products
func (h *CatalogHandler) ListProductsHandler(c *gin.Context) {
	filter, err := productFilter(c)
	if err != nil {
		helpers.RespondError(c, "ListProductsHandler", "invalid product filter", err, map[string]any{"query": c.Request.URL.RawQuery})
		return
	}

	list, total, page, err := h.service.ListProducts(c.Request.Context(), filter)
	if err != nil {
		helpers.RespondError(c, "ListProductsHandler", "error listing products", err, map[string]any{"query": c.Request.URL.RawQuery})
		return
	}

	utils.JSONResponse(c, http.StatusOK, utils.NewPageData(list, page.Page, page.Limit, total), "products retrieved successfully")
	helpers.LogSuccess("ListProductsHandler", "products retrieved successfully", map[string]any{"total": total, "page": page.Page})
}

func productFilter(c *gin.Context) (models.ProductFilter, error) {
	filter := models.ProductFilter{
		CategoryID: strings.TrimSpace(c.Query("category")),
		Query:      strings.TrimSpace(c.Query("q")),
		Location:   strings.TrimSpace(c.Query("location")),
		FarmerID:   strings.TrimSpace(c.Query("farmer_id")),
		Sort:       strings.TrimSpace(c.Query("sort")),
		Page:       helpers.ParsePage(c, catalog.DefaultPageSize, catalog.MaxPageSize),
	}

	var err error
	if filter.MinPrice, err = helpers.QueryFloat(c, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = helpers.QueryFloat(c, "max_price"); err != nil {
		return filter, err
	}
	if filter.Bidding, err = helpers.QueryBool(c, "bidding"); err != nil {
		return filter, err
	}
	if filter.Organic, err = helpers.QueryBool(c, "organic"); err != nil {
		return filter, err
	}
	return filter, nil
}

// GetProductHandler handles GET /products/:id
func (h *CatalogHandler) GetProductHandler(c *gin.Context) {
	productID := c.Param("id")
	detail, err := h.service.GetProduct(c.Request.Context(), productID)
	if err != nil {
		helpers.RespondError(c, "GetProductHandler", "error retrieving product", err, map[string]any{"product_id": productID})
		return
	}
	utils.JSONResponse(c, http.StatusOK, detail, "product retrieved successfully")
}

// ListMyProductsHandler handles GET /products/mine
func (h *CatalogHandler) ListMyProductsHandler(c *gin.Context) {
	farmerID, _ := helpers.CurrentUser(c)
	list, err := h.service.ListFarmerProducts(c.Request.Context(), farmerID)
	if err != nil {
		helpers.RespondError(c, "ListMyProductsHandler", "error listing products", err, map[string]any{"farmer_id": farmerID})
		return
	}
	if list == nil {
		list = []models.Product{}
	}
	utils.JSONResponse(c, http.StatusOK, list, "products retrieved successfully")
	helpers.LogSuccess("ListMyProductsHandler", "products retrieved successfully", map[string]any{"farmer_id": farmerID, "count": len(list)})
}

// CreateProductHandler handles POST /products
func (h *CatalogHandler) CreateProductHandler(c *gin.Context) {
	var req helpers.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateProductHandler", err)
		return
	}
	farmerID, _ := helpers.CurrentUser(c)

	p, err := h.service.CreateProduct(c.Request.Context(), farmerID, catalog.ProductInput{
		CategoryID:       req.CategoryID,
		Name:             req.Name,
		Description:      req.Description,
		Unit:             req.Unit,
		Price:            req.Price,
		Quantity:         req.Quantity,
		MinOrderQuantity: req.MinOrderQuantity,
		BiddingEnabled:   req.BiddingEnabled,
		MinBidPrice:      req.MinBidPrice,
		BiddingEndsAt:    req.BiddingEndsAt,
		Location:         req.Location,
		HarvestDate:      req.HarvestDate,
		Organic:          req.Organic,
	})
	if err != nil {
		helpers.RespondError(c, "CreateProductHandler", "failed to create product", err, map[string]any{"farmer_id": farmerID, "name": req.Name})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, p, "product created successfully")
	helpers.LogSuccess("CreateProductHandler", "product created successfully", map[string]any{
		"product_id": p.ProductID,
		"farmer_id":  farmerID,
		"bidding":    p.BiddingEnabled,
	})
}

// UpdateProductHandler handles PUT /products/:id
func (h *CatalogHandler) UpdateProductHandler(c *gin.Context) {
	var req helpers.ProductPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "UpdateProductHandler", err)
		return
	}
	farmerID, _ := helpers.CurrentUser(c)
	productID := c.Param("id")

	p, err := h.service.UpdateProduct(c.Request.Context(), farmerID, productID, catalog.ProductPatch{
		CategoryID:       req.CategoryID,
		Name:             req.Name,
		Description:      req.Description,
		Unit:             req.Unit,
		Price:            req.Price,
		Quantity:         req.Quantity,
		MinOrderQuantity: req.MinOrderQuantity,
		BiddingEnabled:   req.BiddingEnabled,
		MinBidPrice:      req.MinBidPrice,
		BiddingEndsAt:    req.BiddingEndsAt,
		Location:         req.Location,
		HarvestDate:      req.HarvestDate,
		Organic:          req.Organic,
	})
	if err != nil {
		helpers.RespondError(c, "UpdateProductHandler", "failed to update product", err, map[string]any{"product_id": productID, "farmer_id": farmerID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, p, "product updated successfully")
	helpers.LogSuccess("UpdateProductHandler", "product updated successfully", map[string]any{"product_id": productID, "status": p.Status})
}

// DeleteProductHandler handles DELETE /products/:id
func (h *CatalogHandler) DeleteProductHandler(c *gin.Context) {
	farmerID, _ := helpers.CurrentUser(c)
	productID := c.Param("id")

	deactivated, err := h.service.DeleteProduct(c.Request.Context(), farmerID, productID)
	if err != nil {
		helpers.RespondError(c, "DeleteProductHandler", "failed to delete product", err, map[string]any{"product_id": productID, "farmer_id": farmerID})
		return
	}

	message := "product deleted successfully"
	if deactivated {
		message = "product has bids or orders and was deactivated"
	}
	utils.JSONResponse(c, http.StatusOK, gin.H{"product_id": productID, "deactivated": deactivated}, message)
	helpers.LogSuccess("DeleteProductHandler", message, map[string]any{"product_id": productID})
}

// UploadImageHandler handles POST /products/:id/images with a multipart "image" field
func (h *CatalogHandler) UploadImageHandler(c *gin.Context) {
	farmerID, _ := helpers.CurrentUser(c)
	productID := c.Param("id")

	// multipart overhead on top of the image itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, catalog.MaxImageBytes+1<<20)
	fh, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = marketerrors.ErrImageTooLarge
		} else {
			err = fmt.Errorf("%w - multipart field \"image\" is required", marketerrors.ErrInvalidInput)
		}
		helpers.RespondError(c, "UploadImageHandler", "bad upload", err, map[string]any{"product_id": productID})
		return
	}
	if fh.Size > catalog.MaxImageBytes {
		helpers.RespondError(c, "UploadImageHandler", "bad upload", marketerrors.ErrImageTooLarge, map[string]any{"product_id": productID, "size": fh.Size})
		return
	}

	f, err := fh.Open()
	if err != nil {
		helpers.RespondError(c, "UploadImageHandler", "failed to open upload", err, map[string]any{"product_id": productID})
		return
	}
	defer f.Close()

	img, err := h.service.AddImage(c.Request.Context(), farmerID, productID, f)
	if err != nil {
		helpers.RespondError(c, "UploadImageHandler", "failed to add image", err, map[string]any{"product_id": productID, "farmer_id": farmerID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, img, "image uploaded successfully")
	helpers.LogSuccess("UploadImageHandler", "image uploaded successfully", map[string]any{
		"product_id": productID,
		"image_id":   img.ImageID,
		"primary":    img.Primary,
	})
}
