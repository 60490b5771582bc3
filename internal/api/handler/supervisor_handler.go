package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Hamzak1712/supervisor-works/internal/dto"
	"github.com/Hamzak1712/supervisor-works/internal/service"
	"github.com/Hamzak1712/supervisor-works/pkg/response"
)

// SupervisorHandler 导师视图与活跃度 HTTP 处理器
type SupervisorHandler struct {
	activitySvc service.ActivityService
}

// NewSupervisorHandler 创建 SupervisorHandler
func NewSupervisorHandler(activitySvc service.ActivityService) *SupervisorHandler {
	return &SupervisorHandler{activitySvc: activitySvc}
}

// ListStudents 导师名下学生概览
// GET /api/v1/supervisors/me/students
func (h *SupervisorHandler) ListStudents(c *gin.Context) {
	supervisorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.activitySvc.StudentOverview(c.Request.Context(), supervisorID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListAlerts 不活跃预警
// GET /api/v1/supervisors/me/alerts
func (h *SupervisorHandler) ListAlerts(c *gin.Context) {
	supervisorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.activitySvc.ListAlerts(c.Request.Context(), supervisorID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Classify 按不活跃天数分级
// GET /api/v1/activity/classify?days=
func (h *SupervisorHandler) Classify(c *gin.Context) {
	var req dto.ClassifyRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "days 必须为整数")
		return
	}

	response.OK(c, h.activitySvc.Classify(req.Days))
}
