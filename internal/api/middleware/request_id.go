package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	// requestIDMaxLen 外部传入 ID 的最大长度
	requestIDMaxLen = 64
)

// RequestID 请求追踪 ID 中间件
// 沿用上游传入的 X-Request-ID（仅限可打印 ASCII），否则生成 UUID，
// 写入 gin.Context 与响应头
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}

		c.Set(requestIDKey, rid)
		c.Header(requestIDHeader, rid)

		c.Next()
	}
}

// GetRequestID 当前请求的追踪 ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func validRequestID(rid string) bool {
	if rid == "" || len(rid) > requestIDMaxLen {
		return false
	}
	for i := 0; i < len(rid); i++ {
		if rid[i] < 0x21 || rid[i] > 0x7e {
			return false
		}
	}
	return true
}
