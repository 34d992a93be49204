package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const correlationIDKey = "correlationID"

// CorrelationIDMiddleware 给每个请求补齐 Correlation ID：宿主带了就沿用，
// 没带则生成一个，并在响应头回显，便于把一次聊天指令串到队列侧日志。
func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Correlation-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(correlationIDKey, id)
		c.Header("X-Correlation-ID", id)
		c.Next()
	}
}

// GetCorrelationID 返回当前请求的 Correlation ID，缺失时返回空串。
func GetCorrelationID(c *gin.Context) string {
	if value, ok := c.Get(correlationIDKey); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}
