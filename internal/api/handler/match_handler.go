package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Hamzak1712/supervisor-works/internal/dto"
	"github.com/Hamzak1712/supervisor-works/internal/model"
	"github.com/Hamzak1712/supervisor-works/internal/service"
	"github.com/Hamzak1712/supervisor-works/pkg/response"
)

// MatchHandler 匹配与指导申请 HTTP 处理器
type MatchHandler struct {
	allocationSvc service.AllocationService
}

// NewMatchHandler 创建 MatchHandler
func NewMatchHandler(allocationSvc service.AllocationService) *MatchHandler {
	return &MatchHandler{allocationSvc: allocationSvc}
}

// RankMatches 获取导师匹配排名
// GET /api/v1/matches
// 管理员可通过 ?student_id= 查看任意学生
func (h *MatchHandler) RankMatches(c *gin.Context) {
	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	studentID := callerID
	if role == model.RoleAdmin {
		studentID = c.Query("student_id")
		if studentID == "" {
			response.BadRequest(c, 10001, "student_id 不能为空")
			return
		}
	}

	result, err := h.allocationSvc.RankMatches(c.Request.Context(), studentID)
	if err != nil {
		h.handleAllocationError(c, err)
		return
	}

	response.OK(c, result)
}

// SubmitRequest 提交指导申请
// POST /api/v1/supervision-requests
func (h *MatchHandler) SubmitRequest(c *gin.Context) {
	var req dto.SubmitRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.allocationSvc.SubmitRequest(c.Request.Context(), studentID, &req)
	if err != nil {
		h.handleAllocationError(c, err)
		return
	}

	response.Created(c, result)
}

// ListMine 我的指导申请
// GET /api/v1/supervision-requests/mine
func (h *MatchHandler) ListMine(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.allocationSvc.ListMine(c.Request.Context(), studentID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListPending 待处理的指导申请（导师）
// GET /api/v1/supervision-requests/pending
func (h *MatchHandler) ListPending(c *gin.Context) {
	supervisorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.allocationSvc.ListPending(c.Request.Context(), supervisorID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Decide 接受或拒绝指导申请
// POST /api/v1/supervision-requests/:id/decision
func (h *MatchHandler) Decide(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "申请ID不能为空")
		return
	}

	var req dto.DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, 400, 10001, "参数校验失败", "decision 必须为 accept 或 decline")
		return
	}

	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.allocationSvc.Decide(c.Request.Context(), id, &req, callerID, role)
	if err != nil {
		h.handleAllocationError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *MatchHandler) handleAllocationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 12001, "学生档案不存在")
	case errors.Is(err, service.ErrSupervisorNotFound):
		response.NotFound(c, 12002, "导师不存在")
	case errors.Is(err, service.ErrProjectNotFound):
		response.NotFound(c, 12003, "项目不存在")
	case errors.Is(err, service.ErrRequestNotFound):
		response.NotFound(c, 12004, "指导申请不存在")
	case errors.Is(err, service.ErrProjectNotOwned):
		response.Forbidden(c, 12005, "只能为自己的项目提交申请")
	case errors.Is(err, service.ErrNotRequestSupervisor):
		response.Forbidden(c, 12006, "只能处理发给自己的申请")
	case errors.Is(err, service.ErrDuplicateRequest):
		response.Conflict(c, 12007, "已向该导师提交过待处理的申请")
	case errors.Is(err, service.ErrCapacityExceeded):
		response.Conflict(c, 12008, "导师名额已满")
	case errors.Is(err, service.ErrAlreadyDecided):
		response.Conflict(c, 12009, "该申请已处理")
	case errors.Is(err, service.ErrStudentAlreadyAssigned):
		response.Conflict(c, 12010, "该学生已有导师")
	default:
		response.InternalError(c)
	}
}
