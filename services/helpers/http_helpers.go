package helpers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"farmerconnect/internal/marketerrors"
	"farmerconnect/internal/models"
	"farmerconnect/utils"

	"github.com/gin-gonic/gin"
)

// Keys under which the auth middleware stores the caller on the gin context
const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
	ContextUserName = "user_name"
)

// Error codes the client reacts to
const (
	CodeTokenMissing       = "TOKEN_MISSING"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeAccountSuspended   = "ACCOUNT_SUSPENDED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeForbidden          = "FORBIDDEN"
	CodeRateLimited        = "RATE_LIMITED"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	var minErr *marketerrors.MinimumBidError
	if errors.As(err, &minErr) {
		return http.StatusConflict, minErr.Error()
	}

	switch {
	case errors.Is(err, marketerrors.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, marketerrors.ErrProductNotFound):
		return http.StatusNotFound, "product not found"
	case errors.Is(err, marketerrors.ErrCategoryNotFound):
		return http.StatusNotFound, "category not found"
	case errors.Is(err, marketerrors.ErrBidNotFound):
		return http.StatusNotFound, "bid not found"
	case errors.Is(err, marketerrors.ErrNoBids):
		return http.StatusNotFound, "no bids found for product"
	case errors.Is(err, marketerrors.ErrOrderNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, marketerrors.ErrReviewNotFound):
		return http.StatusNotFound, "review not found"
	case errors.Is(err, marketerrors.ErrNotificationNotFound):
		return http.StatusNotFound, "notification not found"
	case errors.Is(err, marketerrors.ErrPriceNotFound):
		return http.StatusNotFound, "no prices found for commodity"
	case errors.Is(err, marketerrors.ErrEmailTaken):
		return http.StatusConflict, "email already registered"
	case errors.Is(err, marketerrors.ErrAlreadyExists):
		return http.StatusConflict, "record already exists"

	case errors.Is(err, marketerrors.ErrInvalidInput):
		return http.StatusBadRequest, sentinelDetail(err, marketerrors.ErrInvalidInput, marketerrors.ErrInvalidInput.Error())
	case errors.Is(err, marketerrors.ErrInvalidBid):
		return http.StatusBadRequest, sentinelDetail(err, marketerrors.ErrInvalidBid, "invalid bid details")
	case errors.Is(err, marketerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, marketerrors.ErrNotBiddable):
		return http.StatusBadRequest, "product is not open for bidding"
	case errors.Is(err, marketerrors.ErrBiddingOnly):
		return http.StatusBadRequest, "product is sold through bidding only, place a bid instead"
	case errors.Is(err, marketerrors.ErrBiddingClosed):
		return http.StatusConflict, "bidding has closed for this product"
	case errors.Is(err, marketerrors.ErrProductUnavailable):
		return http.StatusConflict, "product is not available"
	case errors.Is(err, marketerrors.ErrOwnProduct):
		return http.StatusForbidden, "cannot buy or bid on your own product"
	case errors.Is(err, marketerrors.ErrInsufficientStock):
		return http.StatusConflict, "insufficient stock"
	case errors.Is(err, marketerrors.ErrBidClosed):
		return http.StatusConflict, "bid is no longer open"
	case errors.Is(err, marketerrors.ErrInvalidTransition):
		return http.StatusConflict, "invalid status transition"
	case errors.Is(err, marketerrors.ErrOrderCancelled):
		return http.StatusConflict, "order is cancelled"
	case errors.Is(err, marketerrors.ErrOrderNotDelivered):
		return http.StatusConflict, "order has not been delivered"
	case errors.Is(err, marketerrors.ErrAlreadyReviewed):
		return http.StatusConflict, "order already reviewed"
	case errors.Is(err, marketerrors.ErrImageLimit):
		return http.StatusConflict, "image limit reached"
	case errors.Is(err, marketerrors.ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType, "unsupported image, use jpeg, png or gif"
	case errors.Is(err, marketerrors.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge, "image too large"

	case errors.Is(err, marketerrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, marketerrors.ErrAccountSuspended):
		return http.StatusForbidden, "account suspended"
	case errors.Is(err, marketerrors.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, marketerrors.ErrTokenMissing):
		return http.StatusUnauthorized, "missing bearer token"
	case errors.Is(err, marketerrors.ErrTokenExpired):
		return http.StatusUnauthorized, "token expired"
	case errors.Is(err, marketerrors.ErrTokenInvalid):
		return http.StatusUnauthorized, "invalid token"

	case errors.Is(err, marketerrors.ErrAssistantUnavailable):
		return http.StatusServiceUnavailable, "assistant is not configured"
	case errors.Is(err, marketerrors.ErrUpstream):
		return http.StatusBadGateway, "assistant service failed, try again later"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// ErrorCode returns the machine-readable code for errors the client acts on
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, marketerrors.ErrTokenMissing):
		return CodeTokenMissing
	case errors.Is(err, marketerrors.ErrTokenExpired):
		return CodeTokenExpired
	case errors.Is(err, marketerrors.ErrTokenInvalid):
		return CodeTokenInvalid
	case errors.Is(err, marketerrors.ErrAccountSuspended):
		return CodeAccountSuspended
	case errors.Is(err, marketerrors.ErrInvalidCredentials):
		return CodeInvalidCredentials
	case errors.Is(err, marketerrors.ErrForbidden):
		return CodeForbidden
	}
	return ""
}

// sentinelDetail keeps the explanation wrapped after sentinel, or fallback
// when the error carries none
func sentinelDetail(err, sentinel error, fallback string) string {
	msg := err.Error()
	marker := sentinel.Error() + " - "
	if i := strings.Index(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return fallback
}

// RespondError maps err, writes the error envelope and logs the failure
func RespondError(c *gin.Context, handlerName, logMessage string, err error, fields map[string]any) {
	status, message := MapErrorToHTTP(err)
	if code := ErrorCode(err); code != "" {
		utils.JSONErrorCode(c, status, code, fmt.Errorf("%s: %w", message, err), message)
	} else {
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
	}

	logFields := map[string]any{"handler": handlerName, "error": err.Error()}
	for k, v := range fields {
		logFields[k] = v
	}
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": "+logMessage, logFields)
		return
	}
	utils.Warn(handlerName+": "+logMessage, logFields)
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}

// CurrentUser returns the authenticated caller's id and role
func CurrentUser(c *gin.Context) (string, string) {
	return c.GetString(ContextUserID), c.GetString(ContextUserRole)
}

// ParsePage reads page and limit query parameters; bad values fall back to defaults
func ParsePage(c *gin.Context, def, max int) models.Page {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return models.Page{Page: page, Limit: limit}.Normalize(def, max)
}

// QueryBool parses an optional boolean query parameter
func QueryBool(c *gin.Context, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%w - %s must be true or false", marketerrors.ErrInvalidInput, key)
	}
	return &v, nil
}

// QueryFloat parses an optional numeric query parameter
func QueryFloat(c *gin.Context, key string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil, fmt.Errorf("%w - %s must be a non-negative number", marketerrors.ErrInvalidInput, key)
	}
	return &v, nil
}
