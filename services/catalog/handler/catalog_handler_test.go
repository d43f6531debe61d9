package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	catalog "farmerconnect/internal/catalogService"
	"farmerconnect/internal/models"
	"farmerconnect/internal/repository"
	"farmerconnect/services/helpers"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	repo := repository.NewMemoryRepo()
	require.NoError(t, repo.CreateCategory(context.Background(), models.Category{CategoryID: "cat-veg", Name: "Vegetables"}))
	h := NewCatalogHandler(catalog.NewCatalogService(repo, repo, repo, catalog.NewImageStore(t.TempDir())))

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if user := c.GetHeader("X-Test-User"); user != "" {
			c.Set(helpers.ContextUserID, user)
			c.Set(helpers.ContextUserRole, models.RoleFarmer)
		}
		c.Next()
	})
	router.GET("/categories", h.ListCategoriesHandler)
	router.GET("/products", h.ListProductsHandler)
	router.GET("/products/mine", h.ListMyProductsHandler)
	router.GET("/products/:id", h.GetProductHandler)
	router.POST("/products", h.CreateProductHandler)
	router.PUT("/products/:id", h.UpdateProductHandler)
	router.DELETE("/products/:id", h.DeleteProductHandler)
	router.POST("/products/:id/images", h.UploadImageHandler)
	return router
}

func serve(t *testing.T, router *gin.Engine, req *http.Request, user string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func createProduct(t *testing.T, router *gin.Engine, farmer string, req helpers.ProductRequest) string {
	t.Helper()
	w, resp := serve(t, router, jsonRequest(t, http.MethodPost, "/products", req), farmer)
	require.Equal(t, http.StatusCreated, w.Code, resp["message"])
	return resp["data"].(map[string]any)["product_id"].(string)
}

func tomatoes() helpers.ProductRequest {
	return helpers.ProductRequest{CategoryID: "cat-veg", Name: "Tomatoes", Unit: "kg", Price: 24, Quantity: 100, Organic: true}
}

func TestListProductsHandler(t *testing.T) {
	t.Parallel()

	router := newRouter(t)
	createProduct(t, router, "farmer1", tomatoes())
	onions := tomatoes()
	onions.Name, onions.Price, onions.Organic = "Onions", 30, false
	createProduct(t, router, "farmer1", onions)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedTotal  float64
		expectedMsg    string
	}{
		{name: "all_active", query: "", expectedStatus: http.StatusOK, expectedTotal: 2},
		{name: "organic_only", query: "?organic=true", expectedStatus: http.StatusOK, expectedTotal: 1},
		{name: "text_search", query: "?q=onion", expectedStatus: http.StatusOK, expectedTotal: 1},
		{name: "price_range", query: "?min_price=25&max_price=40", expectedStatus: http.StatusOK, expectedTotal: 1},
		{name: "bad_bool", query: "?organic=maybe", expectedStatus: http.StatusBadRequest, expectedMsg: "organic must be true or false"},
		{name: "negative_price", query: "?min_price=-1", expectedStatus: http.StatusBadRequest, expectedMsg: "min_price must be a non-negative number"},
		{name: "unknown_sort", query: "?sort=random", expectedStatus: http.StatusBadRequest, expectedMsg: "unknown sort \"random\""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			w, resp := serve(t, router, httptest.NewRequest(http.MethodGet, "/products"+tc.query, nil), "")
			require.Equal(t, tc.expectedStatus, w.Code)
			if tc.expectedMsg != "" {
				require.Equal(t, tc.expectedMsg, resp["message"])
				return
			}
			data := resp["data"].(map[string]any)
			require.Equal(t, tc.expectedTotal, data["total"])
			require.Equal(t, float64(catalog.DefaultPageSize), data["limit"])
		})
	}
}

func TestProductLifecycleHandlers(t *testing.T) {
	t.Parallel()

	router := newRouter(t)
	id := createProduct(t, router, "farmer1", tomatoes())

	w, resp := serve(t, router, httptest.NewRequest(http.MethodGet, "/products/"+id, nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 0.0, resp["data"].(map[string]any)["bid_count"])

	w, _ = serve(t, router, httptest.NewRequest(http.MethodGet, "/products/missing", nil), "")
	require.Equal(t, http.StatusNotFound, w.Code)

	price := 26.0
	w, resp = serve(t, router, jsonRequest(t, http.MethodPut, "/products/"+id, helpers.ProductPatchRequest{Price: &price}), "farmer2")
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, helpers.CodeForbidden, resp["code"])

	w, resp = serve(t, router, jsonRequest(t, http.MethodPut, "/products/"+id, helpers.ProductPatchRequest{Price: &price}), "farmer1")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 26.0, resp["data"].(map[string]any)["price"])

	w, resp = serve(t, router, httptest.NewRequest(http.MethodGet, "/products/mine", nil), "farmer1")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp["data"].([]any), 1)

	w, resp = serve(t, router, httptest.NewRequest(http.MethodDelete, "/products/"+id, nil), "farmer1")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, false, resp["data"].(map[string]any)["deactivated"])

	w, _ = serve(t, router, httptest.NewRequest(http.MethodGet, "/products/"+id, nil), "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateProductHandler_Validation(t *testing.T) {
	t.Parallel()

	router := newRouter(t)

	missingPrice := tomatoes()
	missingPrice.Price = 0
	w, resp := serve(t, router, jsonRequest(t, http.MethodPost, "/products", missingPrice), "farmer1")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid request payload", resp["message"])

	unknownCategory := tomatoes()
	unknownCategory.CategoryID = "cat-none"
	w, resp = serve(t, router, jsonRequest(t, http.MethodPost, "/products", unknownCategory), "farmer1")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "category not found", resp["message"])
}

func multipartImage(t *testing.T, path, field string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "photo.png")
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadImageHandler(t *testing.T) {
	t.Parallel()

	router := newRouter(t)
	id := createProduct(t, router, "farmer1", tomatoes())

	var png64 bytes.Buffer
	require.NoError(t, png.Encode(&png64, image.NewRGBA(image.Rect(0, 0, 64, 64))))

	t.Run("first_image_is_primary", func(t *testing.T) {
		w, resp := serve(t, router, multipartImage(t, "/products/"+id+"/images", "image", png64.Bytes()), "farmer1")
		require.Equal(t, http.StatusCreated, w.Code, resp["message"])
		data := resp["data"].(map[string]any)
		require.Equal(t, true, data["primary"])
		require.Contains(t, data["thumbnail_url"], "/uploads/products/"+id+"/thumb/")
	})

	t.Run("missing_field", func(t *testing.T) {
		w, resp := serve(t, router, multipartImage(t, "/products/"+id+"/images", "file", png64.Bytes()), "farmer1")
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "multipart field \"image\" is required", resp["message"])
	})

	t.Run("not_an_image", func(t *testing.T) {
		w, _ := serve(t, router, multipartImage(t, "/products/"+id+"/images", "image", []byte("hello")), "farmer1")
		require.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("not_owner", func(t *testing.T) {
		w, _ := serve(t, router, multipartImage(t, "/products/"+id+"/images", "image", png64.Bytes()), "farmer2")
		require.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestListCategoriesHandler(t *testing.T) {
	t.Parallel()

	router := newRouter(t)
	w, resp := serve(t, router, httptest.NewRequest(http.MethodGet, "/categories", nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp["data"].([]any), 1)
}
