package matching

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Weights 三个评分项的权重，默认 0.5 / 0.35 / 0.15
type Weights struct {
	Skill    float64
	Interest float64
	Capacity float64
}

// DefaultWeights 默认权重
func DefaultWeights() Weights {
	return Weights{Skill: 0.5, Interest: 0.35, Capacity: 0.15}
}

// MaxReasons 理由条数上限
const MaxReasons = 3

// NoOverlapReason 三项均为零时的兜底理由
const NoOverlapReason = "No overlap detected between your profile and this supervisor's expertise or research areas"

// MatchResult 一对学生/导师的评分结果，可随时由当前特征重新计算
type MatchResult struct {
	StudentID                string
	SupervisorID             string
	Score                    int
	Reasons                  []string
	SimilarPastProjectTitles []string
	SkillOverlap             float64
	InterestOverlap          float64
	CapacityFactor           float64
}

// Scorer 加权评分器
type Scorer struct {
	weights Weights
}

// NewScorer 创建评分器
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Weights 返回当前权重
func (s *Scorer) Weights() Weights {
	return s.weights
}

type term struct {
	kind     int // 0 技能 1 兴趣 2 容量，同分时按此顺序
	weighted float64
}

// Score 计算 round(100 * (wS*skill + wI*interest + wC*capacity))，结果限定在 [0,100]
func (s *Scorer) Score(student StudentFeatureSet, supervisor SupervisorCapacityRecord) MatchResult {
	ov := Extract(student, supervisor)
	capFactor := supervisor.CapacityFactor()

	terms := []term{
		{kind: 0, weighted: s.weights.Skill * ov.SkillOverlap},
		{kind: 1, weighted: s.weights.Interest * ov.InterestOverlap},
		{kind: 2, weighted: s.weights.Capacity * capFactor},
	}

	total := 0.0
	for _, t := range terms {
		total += t.weighted
	}
	score := int(math.Round(100 * total))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	sort.SliceStable(terms, func(i, j int) bool {
		return terms[i].weighted > terms[j].weighted
	})

	reasons := make([]string, 0, MaxReasons)
	for _, t := range terms {
		if t.weighted <= 0 || len(reasons) == MaxReasons {
			continue
		}
		switch t.kind {
		case 0:
			reasons = append(reasons, fmt.Sprintf("Supervisor expertise matches your skills: %s", strings.Join(ov.MatchedSkills, ", ")))
		case 1:
			reasons = append(reasons, fmt.Sprintf("Shared research interests: %s", strings.Join(ov.MatchedInterests, ", ")))
		case 2:
			free := supervisor.MaxCapacity - supervisor.CurrentLoad
			reasons = append(reasons, fmt.Sprintf("Available capacity: %d of %d supervision slots free", free, supervisor.MaxCapacity))
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, NoOverlapReason)
	}

	return MatchResult{
		StudentID:                student.StudentID,
		SupervisorID:             supervisor.SupervisorID,
		Score:                    score,
		Reasons:                  reasons,
		SimilarPastProjectTitles: SimilarPastProjects(student, supervisor),
		SkillOverlap:             ov.SkillOverlap,
		InterestOverlap:          ov.InterestOverlap,
		CapacityFactor:           capFactor,
	}
}

// Rank 对候选导师评分并排序。
//
// 已满额导师（currentLoad >= maxCapacity）直接剔除，不论重叠度多高。
// 排序：分数降序，其次 capacityFactor 降序，再按导师 ID 字典序升序。
// 无合格候选时返回空切片。
func (s *Scorer) Rank(student StudentFeatureSet, pool []SupervisorCapacityRecord) []MatchResult {
	results := make([]MatchResult, 0, len(pool))
	for _, sup := range pool {
		if sup.IsFull() {
			continue
		}
		results = append(results, s.Score(student, sup))
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.CapacityFactor != b.CapacityFactor {
			return a.CapacityFactor > b.CapacityFactor
		}
		return a.SupervisorID < b.SupervisorID
	})
	return results
}
