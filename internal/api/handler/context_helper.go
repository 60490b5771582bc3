package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Hamzak1712/supervisor-works/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get("role")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetCaller 同时提取 user_id 与 role
func MustGetCaller(c *gin.Context) (string, string, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return "", "", false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return "", "", false
	}
	return userID, role, true
}

// tokenMeta 提取 JWT 中间件注入的 jti 与过期时间（登出拉黑使用）
func tokenMeta(c *gin.Context) (string, time.Time, bool) {
	jti := c.GetString("token_jti")
	exp, ok := c.Get("token_exp")
	if jti == "" || !ok {
		return "", time.Time{}, false
	}
	t, ok := exp.(time.Time)
	return jti, t, ok
}
