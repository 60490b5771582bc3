package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Hamzak1712/supervisor-works/pkg/response"
)

// TokenRevoker Token 黑名单（由 pkg/redis.Client 实现）
type TokenRevoker interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthHandler 认证模块 HTTP 处理器
// 身份由上游签发，本服务只负责登出拉黑与返回当前身份
type AuthHandler struct {
	revoker TokenRevoker
}

// NewAuthHandler 创建 AuthHandler；revoker 为 nil 时登出仅返回成功
func NewAuthHandler(revoker TokenRevoker) *AuthHandler {
	return &AuthHandler{revoker: revoker}
}

// Me 当前身份
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	response.OK(c, gin.H{"user_id": userID, "role": role})
}

// Logout 登出：将当前 Access Token 加入黑名单直至其过期
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if h.revoker == nil {
		response.OK(c, nil)
		return
	}

	jti, exp, ok := tokenMeta(c)
	if !ok {
		response.Unauthorized(c, 10002, "未认证")
		return
	}

	ttl := time.Until(exp)
	if ttl > 0 {
		if err := h.revoker.BlacklistToken(c.Request.Context(), jti, ttl); err != nil {
			response.InternalError(c)
			return
		}
	}

	response.OK(c, nil)
}
