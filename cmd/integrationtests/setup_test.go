package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"farmerconnect/internal/config"
	"farmerconnect/internal/events"
	"farmerconnect/internal/repository"
	"farmerconnect/internal/seed"
	"farmerconnect/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// testConfig is the configuration every integration router runs with
func testConfig(t *testing.T) config.Config {
	return config.Config{
		JWTSecret:       "integration-secret",
		JWTTTL:          time.Hour,
		GeminiModel:     "gemini-1.5-flash",
		GeminiBaseURL:   "http://127.0.0.1:0/",
		GeminiVersion:   "v1beta",
		AITimeout:       time.Second,
		AIMaxHistory:    10,
		UploadDir:       t.TempDir(),
		BidMinIncrement: 1,
		RateLimitRPS:    1000,
		RateLimitBurst:  1000,
	}
}

// SetupTestRouter initializes the full router over an in-memory repository.
// With seeded set the demo dataset is loaded first.
func SetupTestRouter(t *testing.T, seeded bool) (*gin.Engine, *repository.MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	if seeded {
		_, err := seed.Apply(context.Background(), repo, time.Now())
		require.NoError(t, err)
	}
	cfg := testConfig(t)
	services, err := server.NewServices(context.Background(), repo, events.LogPublisher{}, cfg)
	require.NoError(t, err)
	router := server.SetupRouter(services, server.Options{
		UploadDir:      cfg.UploadDir,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	return router, repo
}

// ExecuteRequest executes an HTTP request and returns the response recorder.
func ExecuteRequest(t *testing.T, router http.Handler, method, url, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response envelope
func ExecuteRequestAndParse(t *testing.T, router http.Handler, method, url, token string, body any) (map[string]any, *httptest.ResponseRecorder) {
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := ExecuteRequest(t, router, method, url, token, reqBody)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 && w.Header().Get("Content-Type") != "application/pdf" {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}
	return resp, w
}

// Data returns the data object of a success envelope
func Data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", resp)
	return data
}

// Login signs in with the given credentials and returns the bearer token
func Login(t *testing.T, router http.Handler, email, password string) string {
	t.Helper()
	resp, w := ExecuteRequestAndParse(t, router, http.MethodPost, "/auth/login", "", map[string]any{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token, _ := Data(t, resp)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// Register creates an account and returns its token and user id
func Register(t *testing.T, router http.Handler, name, email, role string) (string, string) {
	t.Helper()
	resp, w := ExecuteRequestAndParse(t, router, http.MethodPost, "/auth/register", "", map[string]any{
		"name": name, "email": email, "password": "secret123", "role": role,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := Data(t, resp)
	user := data["user"].(map[string]any)
	return data["token"].(string), user["user_id"].(string)
}
