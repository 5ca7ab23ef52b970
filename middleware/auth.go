package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/devboard/models"
	"github.com/cppla/devboard/services"
	"github.com/cppla/devboard/utils"
)

const (
	// ContextUserKey stores the authenticated *models.User inside Gin context.
	ContextUserKey = "user"
	// ContextTokenKey stores the raw bearer token of the request.
	ContextTokenKey = "token"
)

// TokenValidator resolves bearer tokens to users.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.User, error)
}

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired(auth TokenValidator) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, ok := bearerToken(ctx)
		if !ok {
			return
		}
		if token == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}
		authenticate(ctx, auth, token)
	}
}

// OptionalAuth authenticates the request when it carries a bearer token and lets
// anonymous requests through. A token that is present but invalid is still rejected.
func OptionalAuth(auth TokenValidator) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, ok := bearerToken(ctx)
		if !ok {
			return
		}
		if token == "" {
			ctx.Next()
			return
		}
		authenticate(ctx, auth, token)
	}
}

// CurrentUser returns the user set by AuthRequired or OptionalAuth.
func CurrentUser(ctx *gin.Context) (*models.User, bool) {
	v, ok := ctx.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// bearerToken extracts the token, returning "" when no header is sent. A malformed
// header aborts the request and reports ok=false.
func bearerToken(ctx *gin.Context) (string, bool) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return "", true
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
		ctx.Abort()
		return "", false
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
		ctx.Abort()
		return "", false
	}
	return tokenString, true
}

func authenticate(ctx *gin.Context, auth TokenValidator, token string) {
	user, err := auth.ValidateToken(ctx.Request.Context(), token)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		} else {
			utils.Sugar.Errorw("token validation failed", "error", err)
			utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to validate token")
		}
		ctx.Abort()
		return
	}

	ctx.Set(ContextUserKey, user)
	ctx.Set(ContextTokenKey, token)
	ctx.Next()
}
