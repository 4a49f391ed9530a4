package utils

import (
	"net/http"

	"github.com/3Eeeecho/go-docflow/internal/models"
	"github.com/3Eeeecho/go-docflow/internal/pkg/xerr"
	"github.com/gin-gonic/gin"
)

// ActorContextKey 认证中间件写入 gin.Context 的键
const ActorContextKey = "actor"

// SetActor 由认证中间件调用
func SetActor(c *gin.Context, actor models.Actor) {
	c.Set(ActorContextKey, actor)
}

// GetActorFromContext 从 Gin 上下文中获取当前用户
// 如果获取失败或类型不正确，会中止请求并返回错误
func GetActorFromContext(c *gin.Context) (models.Actor, bool) {
	v, exists := c.Get(ActorContextKey)
	if !exists {
		xerr.AbortWithError(c, http.StatusUnauthorized, xerr.UnauthorizedCode, "User not found in context")
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	if !ok || actor.UID == "" {
		xerr.AbortWithError(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "Invalid user type in context")
		return models.Actor{}, false
	}
	return actor, true
}
