package execution

import (
	"time"

	"github.com/azerpas/bourso-desktop/internal/order"
)

// Options 控制执行器行为。
type Options struct {
	// CallTimeout 限制单次券商调用耗时，0 表示不限制。
	CallTimeout time.Duration
	// Clock 返回当前时间，默认 time.Now。
	Clock func() time.Time
}

// historyAppender 追加成交记录。
type historyAppender interface {
	Append(p order.Passed) error
}
