package milestone

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Hamzak1712/supervisor-works/internal/model"
)

//go:embed templates.yaml
var defaultTemplates []byte

var ErrUnknownProjectType = errors.New("未知的项目类型，没有对应的里程碑模板")

// TemplateItem 模板中的单个里程碑
type TemplateItem struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	OffsetDays  int    `yaml:"offset_days"`
	Critical    bool   `yaml:"critical"`
}

// Templates 项目类型 → 里程碑模板
type Templates map[string][]TemplateItem

// LoadTemplates 读取模板文件；path 为空时使用内置模板。
func LoadTemplates(path string) (Templates, error) {
	data := defaultTemplates
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取里程碑模板失败: %w", err)
		}
		data = b
	}
	return ParseTemplates(data)
}

// ParseTemplates 解析并校验 YAML 模板
func ParseTemplates(data []byte) (Templates, error) {
	var t Templates
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("解析里程碑模板失败: %w", err)
	}
	if len(t) == 0 {
		return nil, errors.New("里程碑模板为空")
	}
	for typ, items := range t {
		if len(items) == 0 {
			return nil, fmt.Errorf("项目类型 %s 的模板没有里程碑", typ)
		}
		for _, it := range items {
			if it.Title == "" {
				return nil, fmt.Errorf("项目类型 %s 存在无标题的里程碑", typ)
			}
			if it.OffsetDays < 0 {
				return nil, fmt.Errorf("项目类型 %s 的里程碑 %s 偏移天数为负", typ, it.Title)
			}
		}
	}
	return t, nil
}

// Materialize 以 start 为起点生成项目的完整里程碑集合。
// 结果按截止日期排序并写入 Sequence，状态均为 pending。
func (t Templates) Materialize(projectType, projectID string, start time.Time) ([]model.Milestone, error) {
	items, ok := t[projectType]
	if !ok {
		return nil, ErrUnknownProjectType
	}

	sorted := make([]TemplateItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OffsetDays < sorted[j].OffsetDays })

	base := DateOf(start)
	out := make([]model.Milestone, 0, len(sorted))
	for i, it := range sorted {
		out = append(out, model.Milestone{
			ProjectID:      projectID,
			Sequence:       i + 1,
			Title:          it.Title,
			Description:    it.Description,
			DueDate:        base.AddDate(0, 0, it.OffsetDays),
			Status:         model.MilestoneStatusPending,
			IsCriticalPath: it.Critical,
		})
	}
	return out, nil
}

// ProjectTypes 返回已配置的项目类型（升序）
func (t Templates) ProjectTypes() []string {
	types := make([]string, 0, len(t))
	for k := range t {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}
