package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	correlationIDKey    = "correlationID"
	correlationIDHeader = "X-Correlation-ID"
	maxCorrelationIDLen = 64
)

type correlationCtxKey struct{}

// CorrelationIDMiddleware 为每个请求确定 Correlation ID：沿用调用方传入的合法值，否则生成新的 UUID。
// ID 同时写入 gin 上下文、请求 context 与响应头，导出任务和通知会继续携带它。
func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(correlationIDHeader)
		if !validCorrelationID(id) {
			id = uuid.NewString()
		}

		c.Set(correlationIDKey, id)
		c.Request = c.Request.WithContext(WithCorrelationID(c.Request.Context(), id))
		c.Header(correlationIDHeader, id)

		c.Next()
	}
}

// GetCorrelationID 从 gin 上下文中取出 Correlation ID。
func GetCorrelationID(c *gin.Context) string {
	if value, ok := c.Get(correlationIDKey); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return CorrelationIDFromContext(c.Request.Context())
}

// WithCorrelationID 把 id 挂到 ctx 上。
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationCtxKey{}, id)
}

// CorrelationIDFromContext 返回 ctx 上的 Correlation ID，没有时返回空串。
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationCtxKey{}).(string)
	return id
}

// 只接受可打印 ASCII，避免把任意头部内容写进日志。
func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
