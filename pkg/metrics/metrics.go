package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，API 进程注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		RequestDuration, RequestTotal,
		ToolDuration, ToolFailTotal,
		ConfidenceScore, LLMTokensTotal,
		CacheHitTotal, RateLimitWaitSeconds,
		WriteOpsTotal,
	)
}

// RequestDuration 单次编排运行耗时（秒），按 query_type 维度
var RequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "advisor_request_duration_seconds",
		Help:    "编排运行耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"query_type"},
)

// RequestTotal 请求总数（按校验结论）
var RequestTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "advisor_request_total",
		Help: "请求总数（按校验结论）",
	},
	[]string{"outcome"}, // pass | flag | escalate
)

// ToolDuration 工具调用耗时（秒）
var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "advisor_tool_duration_seconds",
		Help:    "工具调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// ToolFailTotal 工具调用失败总数（按错误码）
var ToolFailTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "advisor_tool_fail_total",
		Help: "工具调用失败总数",
	},
	[]string{"tool", "code"},
)

// ConfidenceScore 置信度分布
var ConfidenceScore = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "advisor_confidence_score",
		Help:    "回答置信度分布",
		Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	},
)

// LLMTokensTotal 生成服务 token 用量（估算）
var LLMTokensTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "advisor_llm_tokens_total",
		Help: "生成服务 token 用量",
	},
	[]string{"direction"}, // input | output
)

// CacheHitTotal 读穿缓存命中统计
var CacheHitTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "advisor_cache_hit_total",
		Help: "缓存命中统计",
	},
	[]string{"cache", "result"}, // result: hit | miss
)

// RateLimitWaitSeconds 限流等待耗时（秒）
var RateLimitWaitSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "advisor_rate_limit_wait_seconds",
		Help:    "限流等待耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"kind", "target"}, // kind: llm | tool
)

// WriteOpsTotal 已执行写操作总数
var WriteOpsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "advisor_write_ops_total",
		Help: "已执行写操作总数",
	},
	[]string{"operation", "status"}, // status: success | failure
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 /metrics 复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
