package handler

import (
	"context"
	"net/http"

	auth "farmerconnect/internal/authService"
	"farmerconnect/internal/models"
	"farmerconnect/services/helpers"
	"farmerconnect/utils"

	"github.com/gin-gonic/gin"
)

type AuthServiceInterface interface {
	Register(ctx context.Context, in auth.RegisterInput) (auth.Session, error)
	Login(ctx context.Context, email, password string) (auth.Session, error)
	Me(ctx context.Context, userID string) (models.User, error)
	UpdateProfile(ctx context.Context, userID string, in auth.ProfileInput) (models.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
}

type AuthHandler struct {
	service AuthServiceInterface
}

func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// RegisterHandler handles POST /auth/register
func (h *AuthHandler) RegisterHandler(c *gin.Context) {
	var req helpers.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RegisterHandler", err)
		return
	}

	session, err := h.service.Register(c.Request.Context(), auth.RegisterInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Role:         req.Role,
		Phone:        req.Phone,
		Location:     req.Location,
		FarmName:     req.FarmName,
		BusinessName: req.BusinessName,
	})
	if err != nil {
		helpers.RespondError(c, "RegisterHandler", "registration failed", err, map[string]any{"email": req.Email, "role": req.Role})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, session, "registered successfully")
	helpers.LogSuccess("RegisterHandler", "user registered", map[string]any{"user_id": session.User.UserID, "role": session.User.Role})
}

// LoginHandler handles POST /auth/login
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req helpers.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "LoginHandler", err)
		return
	}

	session, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		helpers.RespondError(c, "LoginHandler", "login failed", err, map[string]any{"email": req.Email, "client_ip": c.ClientIP()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, session, "logged in successfully")
	helpers.LogSuccess("LoginHandler", "user logged in", map[string]any{"user_id": session.User.UserID})
}

// MeHandler handles GET /auth/me
func (h *AuthHandler) MeHandler(c *gin.Context) {
	userID, _ := helpers.CurrentUser(c)
	user, err := h.service.Me(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondError(c, "MeHandler", "failed to load profile", err, map[string]any{"user_id": userID})
		return
	}
	utils.JSONResponse(c, http.StatusOK, user, "profile retrieved successfully")
}

// UpdateProfileHandler handles PUT /auth/profile
func (h *AuthHandler) UpdateProfileHandler(c *gin.Context) {
	var req helpers.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "UpdateProfileHandler", err)
		return
	}
	userID, _ := helpers.CurrentUser(c)

	user, err := h.service.UpdateProfile(c.Request.Context(), userID, auth.ProfileInput{
		Name:         req.Name,
		Phone:        req.Phone,
		Location:     req.Location,
		FarmName:     req.FarmName,
		BusinessName: req.BusinessName,
	})
	if err != nil {
		helpers.RespondError(c, "UpdateProfileHandler", "failed to update profile", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, user, "profile updated successfully")
	helpers.LogSuccess("UpdateProfileHandler", "profile updated", map[string]any{"user_id": userID})
}

// ChangePasswordHandler handles PUT /auth/password
func (h *AuthHandler) ChangePasswordHandler(c *gin.Context) {
	var req helpers.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "ChangePasswordHandler", err)
		return
	}
	userID, _ := helpers.CurrentUser(c)

	if err := h.service.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		helpers.RespondError(c, "ChangePasswordHandler", "failed to change password", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, nil, "password changed successfully")
	helpers.LogSuccess("ChangePasswordHandler", "password changed", map[string]any{"user_id": userID})
}
