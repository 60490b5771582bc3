package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Hamzak1712/supervisor-works/pkg/response"
)

// BodyLimit 全局请求体大小限制中间件
// 声明的 Content-Length 超限时直接拒绝；未声明长度的请求在读取时截断
// maxBytes <= 0 时不限制
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

		c.Next()

		if c.IsAborted() || c.Writer.Written() {
			return
		}
		var tooLarge *http.MaxBytesError
		for _, err := range c.Errors {
			if errors.As(err.Err, &tooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				return
			}
		}
	}
}
