package tool

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Schema 表示工具的 JSON Schema（供 /api/v1/tools 与 LLM 描述使用）
type Schema struct {
	Type        string                    `json:"type,omitempty"`
	Description string                    `json:"description,omitempty"`
	Properties  map[string]SchemaProperty `json:"properties,omitempty"`
	Required    []string                  `json:"required,omitempty"`
}

// SchemaProperty 表示 Schema 中单个属性的描述
type SchemaProperty struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// 工具失败错误码
const (
	CodeTimeout          = "TIMEOUT"
	CodeAPIError         = "API_ERROR"
	CodeNoData           = "NO_DATA"
	CodeUpstreamError    = "UPSTREAM_ERROR"
	CodeBadInput         = "BAD_INPUT"
	CodeInternal         = "INTERNAL"
	CodeUnknownOperation = "UNKNOWN_OPERATION"
)

// Error 工具失败信息，只出现在失败结果中
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error 实现 error 接口
func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Result 工具执行结果。成功与失败互斥：Success=true 时只有 Payload，
// Success=false 时只有 Error，不存在两者都有或都无的中间态。
type Result struct {
	ToolName  string         `json:"tool_name"`
	ResultID  string         `json:"tool_result_id"`
	Timestamp time.Time      `json:"timestamp"`
	Success   bool           `json:"success"`
	Payload   map[string]any `json:"payload,omitempty"`
	Error     *Error         `json:"error,omitempty"`
}

// Success 构造成功结果，ResultID 形如 tr-<uuid>，作为引用锚点
func Success(toolName string, payload map[string]any) Result {
	return Result{
		ToolName:  toolName,
		ResultID:  "tr-" + uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Success:   true,
		Payload:   payload,
	}
}

// Failure 构造失败结果
func Failure(toolName, code, message string) Result {
	return Result{
		ToolName:  toolName,
		ResultID:  "tr-" + uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Success:   false,
		Error:     &Error{Code: code, Message: message},
	}
}

// FailureFromErr 将 Go error 映射为失败结果：超时/取消 → TIMEOUT，其余 → API_ERROR。
// resty 等客户端会把 context 错误包在 url.Error 里，因此用 errors.Is 判断。
func FailureFromErr(toolName string, err error) Result {
	code := CodeAPIError
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		code = CodeTimeout
	}
	return Failure(toolName, code, err.Error())
}

// Tool 工具接口。Execute 不返回 Go error：所有失败都折叠进失败 Result，
// 调度层之上永远只看到两种形态之一。
type Tool interface {
	Name() string
	Description() string
	Schema() Schema
	Execute(ctx context.Context, args map[string]any) Result
}
