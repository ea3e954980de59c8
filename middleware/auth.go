package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cvasq/critiq/models"
	"github.com/cvasq/critiq/utils"
)

const (
	// ContextUserKey stores the authenticated *models.User in Gin context.
	ContextUserKey = "current_user"
	// ContextUserIDKey stores the authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
)

// AuthRequired ensures the request carries a valid bearer token and loads
// the caller's user record into the context.
func AuthRequired(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, ok := authenticate(ctx, db)
		if !ok {
			return
		}
		ctx.Set(ContextUserKey, user)
		ctx.Set(ContextUserIDKey, user.ID)
		ctx.Next()
	}
}

// AuthOptional authenticates when a credential is present and passes
// anonymous requests through untouched. A present but invalid credential is
// still rejected.
func AuthOptional(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.GetHeader("Authorization") == "" {
			ctx.Next()
			return
		}
		user, ok := authenticate(ctx, db)
		if !ok {
			return
		}
		ctx.Set(ContextUserKey, user)
		ctx.Set(ContextUserIDKey, user.ID)
		ctx.Next()
	}
}

func authenticate(ctx *gin.Context, db *gorm.DB) (*models.User, bool) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		fail(ctx, 40101, "authorization header missing")
		return nil, false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		fail(ctx, 40102, "invalid authorization header format")
		return nil, false
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		fail(ctx, 40103, "empty bearer token")
		return nil, false
	}

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		fail(ctx, 40104, "invalid token")
		return nil, false
	}

	var user models.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		fail(ctx, 40105, "token subject no longer exists")
		return nil, false
	}

	return &user, true
}

func fail(ctx *gin.Context, code int, message string) {
	utils.Error(ctx, http.StatusUnauthorized, code, message)
	ctx.Abort()
}

// CurrentUser returns the authenticated user from the context, or nil for
// anonymous requests.
func CurrentUser(ctx *gin.Context) *models.User {
	v, exists := ctx.Get(ContextUserKey)
	if !exists {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
