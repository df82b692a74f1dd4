package api

import (
	"github.com/gin-gonic/gin"

	"cvbuilder/internal/api/middleware"
	"cvbuilder/internal/database"
)

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), v != 0
	case int64:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}

// planFromContext 读取令牌中的套餐，缺省按免费版处理。
func planFromContext(c *gin.Context) string {
	if plan := c.GetString(middleware.PlanKey); plan != "" {
		return plan
	}
	return database.PlanFree
}
