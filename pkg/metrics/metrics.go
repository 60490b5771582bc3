// Package metrics 定义分配引擎、里程碑与 HTTP 层的 Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDecisions 指导申请处理结果：accepted | declined | capacity_exceeded | already_decided
	RequestDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sworks_request_decisions_total",
			Help: "Supervision request decisions by outcome",
		},
		[]string{"outcome"},
	)

	RequestsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sworks_requests_submitted_total",
			Help: "Supervision request submissions by outcome",
		},
		[]string{"outcome"},
	)

	MatchRankDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sworks_match_rank_duration_seconds",
			Help:    "Time spent ranking supervisors for a student",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cache"},
	)

	MilestoneTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sworks_milestone_transitions_total",
			Help: "Milestone status transitions",
		},
		[]string{"from", "to"},
	)

	// ScheduleOverConstrained 延期无法在关键节点前被吸收的次数
	ScheduleOverConstrained = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sworks_schedule_over_constrained_total",
			Help: "Delay cascades that were clamped by a critical-path deadline",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sworks_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
