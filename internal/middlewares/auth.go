package middlewares

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/3Eeeecho/go-docflow/internal/config"
	"github.com/3Eeeecho/go-docflow/internal/models"
	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"github.com/3Eeeecho/go-docflow/internal/pkg/utils"
	"github.com/3Eeeecho/go-docflow/internal/pkg/xerr"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenVerifier firebase auth.Client 的校验能力
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// JWTAuthMiddleware 校验 HS256 签名的 token
func JWTAuthMiddleware(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			return
		}

		claims, err := utils.ParseToken(tokenString, cfg.SecretKey, cfg.Issuer)
		if err != nil {
			logger.Warn("JWTAuthMiddleware: Invalid token", zap.Error(err))
			xerr.AbortWithError(c, http.StatusUnauthorized, xerr.TokenInvalidCode, "Invalid or malformed token: "+err.Error())
			return
		}

		// 将用户信息存储到 Gin Context 中，以便后续 Handler 使用
		utils.SetActor(c, models.NewActor(claims.UserID, claims.Username, claims.Email))
		c.Next()
	}
}

// FirebaseAuthMiddleware 使用 Firebase Auth 校验 ID token
func FirebaseAuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			return
		}

		token, err := verifier.VerifyIDToken(c.Request.Context(), tokenString)
		if err != nil {
			logger.Warn("FirebaseAuthMiddleware: Invalid ID token", zap.Error(err))
			xerr.AbortWithError(c, http.StatusUnauthorized, xerr.TokenInvalidCode, "Invalid or expired ID token")
			return
		}

		name, _ := token.Claims["name"].(string)
		email, _ := token.Claims["email"].(string)
		utils.SetActor(c, models.NewActor(token.UID, name, email))
		c.Next()
	}
}

// NewAuthMiddleware 根据 auth.provider 选择中间件
// provider 为 firebase 但没有 verifier 时返回错误，不会退回到 JWT
func NewAuthMiddleware(cfg *config.Config, verifier TokenVerifier) (gin.HandlerFunc, error) {
	switch cfg.Auth.Provider {
	case config.AuthFirebase:
		if verifier == nil {
			return nil, errors.New("auth.provider is firebase but no Firebase Auth client is available")
		}
		logger.Info("NewAuthMiddleware: Using Firebase ID token verification")
		return FirebaseAuthMiddleware(verifier), nil
	case config.AuthJWT:
		logger.Info("NewAuthMiddleware: Using JWT verification", zap.String("issuer", cfg.JWT.Issuer))
		return JWTAuthMiddleware(cfg.JWT), nil
	default:
		return nil, fmt.Errorf("unknown auth.provider %q", cfg.Auth.Provider)
	}
}

// bearerToken 失败时已终止请求
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		xerr.AbortWithError(c, http.StatusUnauthorized, xerr.UnauthorizedCode, "Authorization header is required")
		return "", false
	}

	// Token 格式通常是 "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
		xerr.AbortWithError(c, http.StatusUnauthorized, xerr.UnauthorizedCode, "Invalid Authorization header format")
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
