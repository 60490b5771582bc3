package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Hamzak1712/supervisor-works/internal/milestone"
	"github.com/Hamzak1712/supervisor-works/internal/model"
	"github.com/Hamzak1712/supervisor-works/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoMilestones = errors.New("该项目暂无里程碑")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 名额报表与项目时间线导出为 Excel (.xlsx)
//   - 项目时间线另可导出为 iCalendar (.ics)，每个里程碑一个全天事件
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportCapacity 导出全体导师名额报表
	ExportCapacity(ctx context.Context) (*bytes.Buffer, string, error)
	// ExportTimeline 导出项目里程碑时间线
	ExportTimeline(ctx context.Context, projectID, callerID, callerRole string) (*bytes.Buffer, string, error)
	// ExportCalendar 导出项目里程碑日历
	ExportCalendar(ctx context.Context, projectID, callerID, callerRole string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger, now: time.Now}
}

// ═══════════════════════════════════════════════════════════
// ExportCapacity — 导师名额报表
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Capacity"
//   - 列：导师 | 院系 | 最大名额 | 已指导 | 剩余 | 状态
//   - 末行为合计

func (s *exportService) ExportCapacity(ctx context.Context) (*bytes.Buffer, string, error) {
	supervisors, err := s.repo.Supervisor.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询导师列表失败", zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Capacity"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "B", 24)
	f.SetColWidth(sheetName, "C", "F", 14)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	fullStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "#C00000", Bold: true},
	})

	headers := []string{"Supervisor", "Department", "Max Capacity", "Current Load", "Available", "Status"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(headers)-1), 1), headerStyle)

	row := 2
	totalMax, totalLoad := 0, 0
	for i := range supervisors {
		c := toCapacityResponse(&supervisors[i])
		status := "Available"
		if c.IsFull {
			status = "Full"
		}
		f.SetCellValue(sheetName, cell("A", row), c.Name)
		f.SetCellValue(sheetName, cell("B", row), c.Department)
		f.SetCellValue(sheetName, cell("C", row), c.MaxCapacity)
		f.SetCellValue(sheetName, cell("D", row), c.CurrentLoad)
		f.SetCellValue(sheetName, cell("E", row), c.Available)
		f.SetCellValue(sheetName, cell("F", row), status)
		if c.IsFull {
			f.SetCellStyle(sheetName, cell("F", row), cell("F", row), fullStyle)
		}
		totalMax += c.MaxCapacity
		totalLoad += c.CurrentLoad
		row++
	}

	f.SetCellValue(sheetName, cell("A", row), "Total")
	f.SetCellValue(sheetName, cell("C", row), totalMax)
	f.SetCellValue(sheetName, cell("D", row), totalLoad)
	f.SetCellValue(sheetName, cell("E", row), totalMax-totalLoad)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("supervisor_capacity_%s.xlsx", s.now().Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportTimeline — 项目里程碑时间线
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行标题为项目名称
//   - 列：序号 | 里程碑 | 截止日期 | 状态 | 关键节点 | 完成日期 | 反馈

func (s *exportService) ExportTimeline(ctx context.Context, projectID, callerID, callerRole string) (*bytes.Buffer, string, error) {
	project, list, err := s.loadTimeline(ctx, projectID, callerID, callerRole)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Timeline"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 6)
	f.SetColWidth(sheetName, "B", "B", 40)
	f.SetColWidth(sheetName, "C", "F", 14)
	f.SetColWidth(sheetName, "G", "G", 50)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	criticalStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FCE4D6"}, Pattern: 1},
	})

	f.SetCellValue(sheetName, "A1", project.Title)
	f.MergeCell(sheetName, "A1", "G1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	headers := []string{"#", "Milestone", "Due Date", "Status", "Critical", "Completed", "Feedback"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}

	row := 3
	for i := range list {
		m := toMilestoneResponse(&list[i])
		critical := "No"
		if m.IsCriticalPath {
			critical = "Yes"
		}
		f.SetCellValue(sheetName, cell("A", row), i+1)
		f.SetCellValue(sheetName, cell("B", row), m.Title)
		f.SetCellValue(sheetName, cell("C", row), m.DueDate)
		f.SetCellValue(sheetName, cell("D", row), m.Status)
		f.SetCellValue(sheetName, cell("E", row), critical)
		f.SetCellValue(sheetName, cell("F", row), m.CompletedDate)
		f.SetCellValue(sheetName, cell("G", row), m.Feedback)
		if m.IsCriticalPath {
			f.SetCellStyle(sheetName, cell("A", row), cell("G", row), criticalStyle)
		}
		row++
	}

	if project.ScheduleWarning != nil {
		row++
		f.SetCellValue(sheetName, cell("A", row), "Warning: "+*project.ScheduleWarning)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	return buf, fmt.Sprintf("timeline_%s.xlsx", project.ProjectID), nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar — 项目里程碑日历 (RFC 5545)
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportCalendar(ctx context.Context, projectID, callerID, callerRole string) (*bytes.Buffer, string, error) {
	project, list, err := s.loadTimeline(ctx, projectID, callerID, callerRole)
	if err != nil {
		return nil, "", err
	}

	now := s.now().UTC()
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//supervisor-works//milestones//EN")
	cal.SetName(project.Title)

	for i := range list {
		m := &list[i]
		evt := cal.AddEvent(m.MilestoneID + "@supervisor-works")
		evt.SetDtStampTime(now)
		evt.SetAllDayStartAt(m.DueDate)
		evt.SetAllDayEndAt(m.DueDate.AddDate(0, 0, 1))

		summary := m.Title
		if m.IsCriticalPath {
			summary = "[Critical] " + summary
		}
		evt.SetSummary(summary)

		desc := fmt.Sprintf("Status: %s", m.Status)
		if m.Description != "" {
			desc = m.Description + "\n" + desc
		}
		evt.SetDescription(desc)
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, fmt.Sprintf("milestones_%s.ics", project.ProjectID), nil
}

// ── 辅助函数 ──

func (s *exportService) loadTimeline(ctx context.Context, projectID, callerID, callerRole string) (*model.Project, []model.Milestone, error) {
	project, err := s.repo.Project.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, nil, err
	}
	if !canView(project, callerID, callerRole) {
		return nil, nil, ErrProjectAccessDenied
	}

	list, err := s.repo.Milestone.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("查询项目里程碑失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, nil, err
	}
	if len(list) == 0 {
		return nil, nil, ErrExportNoMilestones
	}
	milestone.SortByDueDate(list)
	return project, list, nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
