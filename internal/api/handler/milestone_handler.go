package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Hamzak1712/supervisor-works/internal/dto"
	"github.com/Hamzak1712/supervisor-works/internal/milestone"
	"github.com/Hamzak1712/supervisor-works/internal/service"
	pkgerrors "github.com/Hamzak1712/supervisor-works/pkg/errors"
	"github.com/Hamzak1712/supervisor-works/pkg/response"
)

// MilestoneHandler 里程碑模块 HTTP 处理器
type MilestoneHandler struct {
	milestoneSvc service.MilestoneService
}

// NewMilestoneHandler 创建 MilestoneHandler
func NewMilestoneHandler(milestoneSvc service.MilestoneService) *MilestoneHandler {
	return &MilestoneHandler{milestoneSvc: milestoneSvc}
}

// GetTimeline 项目里程碑时间线
// GET /api/v1/projects/:id/milestones
func (h *MilestoneHandler) GetTimeline(c *gin.Context) {
	projectID := c.Param("id")
	if projectID == "" {
		response.BadRequest(c, 10001, "项目ID不能为空")
		return
	}

	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.milestoneSvc.ListByProject(c.Request.Context(), projectID, callerID, role)
	if err != nil {
		h.handleMilestoneError(c, err)
		return
	}

	response.OK(c, result)
}

// ListActivity 项目操作记录
// GET /api/v1/projects/:id/activity
func (h *MilestoneHandler) ListActivity(c *gin.Context) {
	projectID := c.Param("id")
	if projectID == "" {
		response.BadRequest(c, 10001, "项目ID不能为空")
		return
	}

	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.milestoneSvc.ListActivity(c.Request.Context(), projectID, callerID, role)
	if err != nil {
		h.handleMilestoneError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// UpdateStatus 推进里程碑状态
// PUT /api/v1/milestones/:id/status
func (h *MilestoneHandler) UpdateStatus(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "里程碑ID不能为空")
		return
	}

	var req dto.UpdateMilestoneStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.milestoneSvc.UpdateStatus(c.Request.Context(), id, &req, callerID, role)
	if err != nil {
		h.handleMilestoneError(c, err)
		return
	}

	response.OK(c, result)
}

// Reschedule 调整里程碑截止日期
// PUT /api/v1/milestones/:id/due-date
func (h *MilestoneHandler) Reschedule(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "里程碑ID不能为空")
		return
	}

	var req dto.RescheduleMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.milestoneSvc.Reschedule(c.Request.Context(), id, &req, callerID, role)
	if err != nil {
		h.handleMilestoneError(c, err)
		return
	}

	response.OK(c, result)
}

// SetFeedback 填写导师反馈
// PUT /api/v1/milestones/:id/feedback
func (h *MilestoneHandler) SetFeedback(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "里程碑ID不能为空")
		return
	}

	var req dto.MilestoneFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.milestoneSvc.SetFeedback(c.Request.Context(), id, &req, callerID, role)
	if err != nil {
		h.handleMilestoneError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *MilestoneHandler) handleMilestoneError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProjectNotFound):
		response.NotFound(c, 13001, "项目不存在")
	case errors.Is(err, service.ErrMilestoneNotFound):
		response.NotFound(c, 13002, "里程碑不存在")
	case errors.Is(err, service.ErrProjectAccessDenied):
		response.Forbidden(c, 13003, "无权操作该项目")
	case errors.Is(err, service.ErrInvalidDueDate):
		response.BadRequest(c, 13004, "截止日期格式错误，应为 YYYY-MM-DD")
	case errors.Is(err, milestone.ErrUnknownStatus):
		response.BadRequest(c, 13005, "未知的里程碑状态")
	case errors.Is(err, milestone.ErrInvalidTransition):
		response.UnprocessableEntity(c, 13006, "里程碑状态流转不合法")
	case errors.Is(err, milestone.ErrLockedMilestone):
		response.UnprocessableEntity(c, 13007, "关键节点截止日期不可修改")
	case errors.Is(err, milestone.ErrMilestoneCompleted):
		response.UnprocessableEntity(c, 13008, "已完成的里程碑不可修改")
	case errors.Is(err, milestone.ErrScheduleOrderViolation):
		response.UnprocessableEntity(c, 13009, "调整后的截止日期破坏里程碑顺序")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 13010, "数据已被修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
