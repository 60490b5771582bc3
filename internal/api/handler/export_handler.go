package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Hamzak1712/supervisor-works/internal/service"
	"github.com/Hamzak1712/supervisor-works/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportCapacity 导出导师名额报表
// GET /api/v1/admin/export/capacity
func (h *ExportHandler) ExportCapacity(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportCapacity(c.Request.Context())
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	sendFile(c, buf, filename, contentTypeXLSX)
}

// ExportTimeline 导出项目里程碑时间线
// GET /api/v1/projects/:id/milestones/export
func (h *ExportHandler) ExportTimeline(c *gin.Context) {
	projectID := c.Param("id")
	if projectID == "" {
		response.BadRequest(c, 10001, "项目ID不能为空")
		return
	}

	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportTimeline(c.Request.Context(), projectID, callerID, role)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	sendFile(c, buf, filename, contentTypeXLSX)
}

// ExportCalendar 导出项目里程碑日历
// GET /api/v1/projects/:id/milestones/calendar
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	projectID := c.Param("id")
	if projectID == "" {
		response.BadRequest(c, 10001, "项目ID不能为空")
		return
	}

	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportCalendar(c.Request.Context(), projectID, callerID, role)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	sendFile(c, buf, filename, contentTypeICS)
}

// sendFile 设置下载响应头并写入文件内容
func sendFile(c *gin.Context, buf *bytes.Buffer, filename, contentType string) {
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProjectNotFound):
		response.NotFound(c, 16101, "项目不存在")
	case errors.Is(err, service.ErrProjectAccessDenied):
		response.Forbidden(c, 16102, "无权导出该项目")
	case errors.Is(err, service.ErrExportNoMilestones):
		response.BadRequest(c, 16103, "该项目暂无里程碑")
	default:
		response.InternalError(c)
	}
}
