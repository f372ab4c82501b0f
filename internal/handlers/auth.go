package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskhive-dev/taskhive/internal/auth"
	"github.com/taskhive-dev/taskhive/internal/middleware"
	"github.com/taskhive-dev/taskhive/internal/types"
)

type AuthHandler struct {
	svc        *auth.Service
	production bool
}

func NewAuthHandler(svc *auth.Service, production bool) *AuthHandler {
	return &AuthHandler{svc: svc, production: production}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ResetRequestRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func (h *AuthHandler) client(ctx *gin.Context) auth.Client {
	return auth.Client{IP: ctx.ClientIP(), UserAgent: ctx.Request.UserAgent()}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var body RegisterRequest

	if err := ctx.BindJSON(&body); err != nil {
		log.Printf("Failed to bind JSON: %v", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.svc.Register(body.Name, body.Email, body.Password, h.client(ctx))

	if err != nil {
		respondError(ctx, err)
		return
	}

	auth.SetRefreshCookie(ctx.Writer, result.RefreshToken, h.production)

	ctx.JSON(http.StatusCreated, gin.H{
		"access_token": result.AccessToken,
		"user":         types.NewUserResponse(result.User),
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var body LoginRequest

	if err := ctx.BindJSON(&body); err != nil {
		log.Printf("Failed to bind JSON: %v", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.svc.Login(body.Email, body.Password, h.client(ctx))

	if err != nil {
		respondError(ctx, err)
		return
	}

	auth.SetRefreshCookie(ctx.Writer, result.RefreshToken, h.production)

	ctx.JSON(http.StatusOK, gin.H{
		"access_token": result.AccessToken,
		"user":         types.NewUserResponse(result.User),
	})
}

// Refresh rotates the refresh token from the cookie, or from the body for
// clients that cannot carry cookies. At most one rotation succeeds per
// token value; a failed retry means the caller must log in again.
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	refreshToken := ""

	if cookie, err := ctx.Request.Cookie(auth.RefreshCookieName); err == nil {
		refreshToken = cookie.Value
	}

	if refreshToken == "" {
		var body RefreshRequest
		if err := ctx.ShouldBindJSON(&body); err == nil {
			refreshToken = body.RefreshToken
		}
	}

	result, err := h.svc.Refresh(refreshToken, h.client(ctx))

	if err != nil {
		respondError(ctx, err)
		return
	}

	auth.SetRefreshCookie(ctx.Writer, result.RefreshToken, h.production)

	ctx.JSON(http.StatusOK, gin.H{
		"access_token": result.AccessToken,
	})
}

// Logout treats an absent cookie as already logged out.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	refreshToken := ""

	if cookie, err := ctx.Request.Cookie(auth.RefreshCookieName); err == nil {
		refreshToken = cookie.Value
	}

	if err := h.svc.Logout(refreshToken); err != nil {
		respondError(ctx, err)
		return
	}

	auth.ClearRefreshCookie(ctx.Writer, h.production)

	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	currentUser, err := middleware.CurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": currentUser})
}

func (h *AuthHandler) RequestPasswordReset(ctx *gin.Context) {
	var body ResetRequestRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": h.svc.RequestPasswordReset(body.Email)})
}

func (h *AuthHandler) ConfirmPasswordReset(ctx *gin.Context) {
	var body ResetConfirmRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": h.svc.ConfirmPasswordReset(body.Token, body.NewPassword)})
}
