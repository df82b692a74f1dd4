package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/auth"
)

// 上下文键，处理器通过 api 包的辅助函数读取。
const (
	UserIDKey             = "userID"
	PlanKey               = "plan"
	MustChangePasswordKey = "mustChangePassword"
)

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// AuthMiddleware 校验访问令牌并将 userID、套餐与改密标记注入上下文。
func AuthMiddleware(authService *auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil || claims.TokenType != auth.TokenTypeAccess {
			abortUnauthorized(c)
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(PlanKey, claims.Plan)
		c.Set(MustChangePasswordKey, claims.MustChangePassword)
		c.Next()
	}
}
