package monitor

import "time"

// EventType 表示监控事件类型。
type EventType string

const (
	EventBatch EventType = "batch"
	EventJob   EventType = "job"
	EventOrder EventType = "order"
	EventAuth  EventType = "auth"
	EventError EventType = "error"
)

// Event 封装通用监控事件。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// BatchOutcome 表示一次无人值守批量执行的结果。
type BatchOutcome string

const (
	BatchCompleted       BatchOutcome = "completed"
	BatchPasswordMissing BatchOutcome = "password_missing"
	BatchFailed          BatchOutcome = "failed"
)

// BatchPayload 记录一次批量执行的汇总。
type BatchPayload struct {
	BatchID  string       `json:"batch_id"`
	Outcome  BatchOutcome `json:"outcome"`
	Due      int          `json:"due"`
	Executed []string     `json:"executed,omitempty"`
	Failed   []string     `json:"failed,omitempty"`
	Pending  []string     `json:"pending,omitempty"`
	Error    string       `json:"error,omitempty"`
	Duration string       `json:"duration"`
}

// JobPayload 记录单个任务的执行结果。
type JobPayload struct {
	BatchID  string  `json:"batch_id,omitempty"`
	JobID    string  `json:"job_id"`
	Symbol   string  `json:"symbol,omitempty"`
	Quantity int64   `json:"quantity,omitempty"`
	Price    float64 `json:"price,omitempty"`
	OrderID  string  `json:"order_id,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// OrderPayload 记录手动下单。
type OrderPayload struct {
	OrderID  string  `json:"order_id"`
	Side     string  `json:"side"`
	Symbol   string  `json:"symbol"`
	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
}

// AuthPayload 记录认证状态变化。
type AuthPayload struct {
	State   string `json:"state"`
	MfaType string `json:"mfa_type,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}
