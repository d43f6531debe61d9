package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"farmerconnect/internal/marketerrors"
	"farmerconnect/internal/models"
	"farmerconnect/services/helpers"
	"farmerconnect/utils"

	"github.com/gin-gonic/gin"
)

// Authenticator resolves a bearer token to the current user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	fields := map[string]any{
		"method":    c.Request.Method,
		"path":      c.Request.URL.Path,
		"status":    c.Writer.Status(),
		"latency":   time.Since(start).String(),
		"client_ip": c.ClientIP(),
	}
	if userID := c.GetString(helpers.ContextUserID); userID != "" {
		fields["user_id"] = userID
	}
	utils.Info("HTTP Request", fields)
}

// AuthMiddleware requires a valid bearer token of an active account and
// stores the caller on the context. Failures are 401 with a code the client
// reacts to by logging out.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			rejectAuth(c, marketerrors.ErrTokenMissing)
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			rejectAuth(c, err)
			return
		}

		c.Set(helpers.ContextUserID, user.UserID)
		c.Set(helpers.ContextUserRole, user.Role)
		c.Set(helpers.ContextUserName, user.Name)
		c.Next()
	}
}

func rejectAuth(c *gin.Context, err error) {
	code := helpers.ErrorCode(err)
	if code == "" {
		helpers.RespondError(c, "AuthMiddleware", "authentication failed", err, map[string]any{"path": c.Request.URL.Path})
		c.Abort()
		return
	}

	_, message := helpers.MapErrorToHTTP(err)
	utils.JSONErrorCode(c, http.StatusUnauthorized, code, err, message)
	utils.Warn("AuthMiddleware: request rejected", map[string]any{
		"path":      c.Request.URL.Path,
		"code":      code,
		"client_ip": c.ClientIP(),
	})
}

// RequireRole allows only callers holding one of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role := helpers.CurrentUser(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		utils.JSONErrorCode(c, http.StatusForbidden, helpers.CodeForbidden, marketerrors.ErrForbidden,
			"this action requires the "+strings.Join(roles, " or ")+" role")
		utils.Warn("RequireRole: request rejected", map[string]any{"path": c.Request.URL.Path, "role": role})
	}
}
