// Package matching 实现学生与导师的特征提取、评分与排序。
//
// 所有函数均为纯计算，不做 I/O，也不会失败：缺失数据退化为零值特征。
package matching

import (
	"sort"
	"strings"
	"unicode"
)

// Availability 学生投入类型
type Availability string

const (
	AvailabilityFullTime Availability = "full-time"
	AvailabilityPartTime Availability = "part-time"
)

// StudentFeatureSet 匹配时刻的学生特征快照
type StudentFeatureSet struct {
	StudentID    string
	Skills       []string
	Interests    []string
	Availability Availability
}

// SupervisorCapacityRecord 导师特征与容量快照
type SupervisorCapacityRecord struct {
	SupervisorID  string
	Expertise     []string
	ResearchAreas []string
	PastProjects  []string
	MaxCapacity   int
	CurrentLoad   int
}

// IsFull 当前负载已达上限
func (r SupervisorCapacityRecord) IsFull() bool {
	return r.CurrentLoad >= r.MaxCapacity
}

// CapacityFactor 空闲名额比例 1 - load/max，取值 [0,1]
func (r SupervisorCapacityRecord) CapacityFactor() float64 {
	if r.MaxCapacity <= 0 {
		return 0
	}
	f := 1 - float64(r.CurrentLoad)/float64(r.MaxCapacity)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Overlap 一对学生/导师的归一化重叠结构
type Overlap struct {
	SkillOverlap    float64
	InterestOverlap float64
	// 命中的原始词（取导师一侧的写法），用于生成理由
	MatchedSkills    []string
	MatchedInterests []string
}

// Extract 计算技能与兴趣的 Jaccard 重叠度。
//
// 词语比较仅做去空白和大小写归一，不做同义词合并：
// "NLP" 与 "Natural Language Processing" 视为不同词。
func Extract(student StudentFeatureSet, supervisor SupervisorCapacityRecord) Overlap {
	skill, skillHits := jaccard(student.Skills, supervisor.Expertise)
	interest, interestHits := jaccard(student.Interests, supervisor.ResearchAreas)
	return Overlap{
		SkillOverlap:     skill,
		InterestOverlap:  interest,
		MatchedSkills:    skillHits,
		MatchedInterests: interestHits,
	}
}

// NormalizeToken 去除首尾空白并转小写
func NormalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// tokenSet 归一化后的集合，value 保留首次出现的原始写法
func tokenSet(tokens []string) map[string]string {
	set := make(map[string]string, len(tokens))
	for _, t := range tokens {
		key := NormalizeToken(t)
		if key == "" {
			continue
		}
		if _, ok := set[key]; !ok {
			set[key] = strings.TrimSpace(t)
		}
	}
	return set
}

// jaccard |A∩B| / |A∪B|，两边都为空时返回 0
func jaccard(a, b []string) (float64, []string) {
	setA := tokenSet(a)
	setB := tokenSet(b)

	union := len(setA)
	var hits []string
	for key, display := range setB {
		if _, ok := setA[key]; ok {
			hits = append(hits, display)
		} else {
			union++
		}
	}
	if union == 0 {
		return 0, nil
	}
	sort.Strings(hits)
	return float64(len(hits)) / float64(union), hits
}

// SimilarPastProjects 返回以整词形式包含学生任一技能/兴趣词的导师往期项目标题，
// 大小写不敏感，保持导师列表顺序
func SimilarPastProjects(student StudentFeatureSet, supervisor SupervisorCapacityRecord) []string {
	terms := make([]string, 0, len(student.Skills)+len(student.Interests))
	for _, t := range append(append([]string{}, student.Skills...), student.Interests...) {
		if w := wordSequence(t); w != "" {
			terms = append(terms, w)
		}
	}

	result := make([]string, 0)
	if len(terms) == 0 {
		return result
	}
	for _, title := range supervisor.PastProjects {
		padded := " " + wordSequence(title) + " "
		for _, term := range terms {
			if strings.Contains(padded, " "+term+" ") {
				result = append(result, title)
				break
			}
		}
	}
	return result
}

// wordSequence 小写并按非字母数字切词，再以单个空格连接
func wordSequence(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, " ")
}
