package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/taskhive-dev/taskhive/internal/auth"
	"github.com/taskhive-dev/taskhive/internal/models"
	"github.com/taskhive-dev/taskhive/internal/types"
	"gorm.io/gorm"
)

type AuthenticatedUser struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Guard resolves the identity behind each request: a bearer access claim
// first, then one transparent rotation of the refresh cookie. The fallback
// runs at most once per request; a second failure is terminal.
type Guard struct {
	svc        *auth.Service
	db         *gorm.DB
	production bool
}

func NewGuard(svc *auth.Service, db *gorm.DB, production bool) *Guard {
	return &Guard{svc: svc, db: db, production: production}
}

// RequireAuth aborts with 401 when no identity can be resolved.
func (g *Guard) RequireAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := g.resolve(ctx)

		if user == nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		ctx.Set(types.ContextUserKey, *user)
		ctx.Next()
	}
}

func (g *Guard) resolve(ctx *gin.Context) *AuthenticatedUser {
	if userID, ok := g.fromBearer(ctx); ok {
		return g.lookup(userID)
	}

	userID, ok := g.fromRefreshCookie(ctx)
	if !ok {
		return nil
	}

	return g.lookup(userID)
}

func (g *Guard) fromBearer(ctx *gin.Context) (uint, bool) {
	authHeader := ctx.GetHeader("Authorization")

	if authHeader == "" {
		return 0, false
	}

	parts := strings.SplitN(authHeader, " ", 2)

	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, false
	}

	userID, err := g.svc.VerifyAccess(parts[1])

	if err != nil {
		return 0, false
	}

	return userID, true
}

// fromRefreshCookie rotates the refresh cookie and hands the replacement
// access token back in a response header, so an expired access token heals
// without a visible re-login.
func (g *Guard) fromRefreshCookie(ctx *gin.Context) (uint, bool) {
	cookie, err := ctx.Request.Cookie(auth.RefreshCookieName)

	if err != nil || cookie.Value == "" {
		return 0, false
	}

	result, err := g.svc.Refresh(cookie.Value, auth.Client{
		IP:        ctx.ClientIP(),
		UserAgent: ctx.Request.UserAgent(),
	})

	if err != nil {
		return 0, false
	}

	auth.SetRefreshCookie(ctx.Writer, result.RefreshToken, g.production)
	ctx.Header(types.AccessTokenHeader, result.AccessToken)

	return result.User.ID, true
}

// CurrentUser returns the identity RequireAuth stored on the context.
func CurrentUser(ctx *gin.Context) (AuthenticatedUser, error) {
	value, exists := ctx.Get(types.ContextUserKey)
	if !exists {
		return AuthenticatedUser{}, errors.New("user not authenticated")
	}

	user, ok := value.(AuthenticatedUser)
	if !ok {
		return AuthenticatedUser{}, errors.New("invalid user type in context")
	}

	return user, nil
}

func CurrentUserID(ctx *gin.Context) (uint, error) {
	user, err := CurrentUser(ctx)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (g *Guard) lookup(userID uint) *AuthenticatedUser {
	var user models.User

	if err := g.db.First(&user, userID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Failed to load user %d: %v", userID, err)
		}
		return nil
	}

	return &AuthenticatedUser{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}
}
