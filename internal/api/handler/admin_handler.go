package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Hamzak1712/supervisor-works/internal/dto"
	"github.com/Hamzak1712/supervisor-works/internal/service"
	"github.com/Hamzak1712/supervisor-works/pkg/response"
)

// AdminHandler 管理员模块 HTTP 处理器
type AdminHandler struct {
	allocationSvc service.AllocationService
	statsSvc      service.StatsService
}

// NewAdminHandler 创建 AdminHandler
func NewAdminHandler(allocationSvc service.AllocationService, statsSvc service.StatsService) *AdminHandler {
	return &AdminHandler{allocationSvc: allocationSvc, statsSvc: statsSvc}
}

// UpdateCapacity 修改导师名额
// PUT /api/v1/admin/supervisors/:id/capacity
func (h *AdminHandler) UpdateCapacity(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "导师ID不能为空")
		return
	}

	var req dto.UpdateCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.allocationSvc.UpdateCapacity(c.Request.Context(), id, &req, callerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSupervisorNotFound):
			response.NotFound(c, 15001, "导师不存在")
		case errors.Is(err, service.ErrCapacityBelowLoad):
			response.Conflict(c, 15002, "名额不能低于当前已指导人数")
		default:
			response.InternalError(c)
		}
		return
	}

	response.OK(c, result)
}

// CapacitySummary 全体导师名额汇总
// GET /api/v1/admin/capacity
func (h *AdminHandler) CapacitySummary(c *gin.Context) {
	result, err := h.allocationSvc.CapacitySummary(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// SystemStats 系统统计
// GET /api/v1/admin/stats
func (h *AdminHandler) SystemStats(c *gin.Context) {
	result, err := h.statsSvc.SystemStats(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}
