package notify

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Message 是一条面向用户的通知。
type Message struct {
	Title string
	Body  string
}

func (m Message) String() string {
	if m.Title == "" {
		return m.Body
	}
	return m.Title + "\n" + m.Body
}

// Notifier 向用户投递通知。
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// OrderPassed 构造成交通知。
func OrderPassed(quantity int64, symbol string) Message {
	return Message{
		Title: "DCA order passed",
		Body:  fmt.Sprintf("%d share(s) of %s", quantity, symbol),
	}
}

// Log 把通知写入日志。
type Log struct {
	logger *zap.Logger
}

// NewLog 创建日志通知器。
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, msg Message) error {
	l.logger.Info("通知", zap.String("title", msg.Title), zap.String("body", msg.Body))
	return nil
}

// Multi 依次投递给所有通知器，汇总全部错误。
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Notify(ctx, msg))
	}
	return err
}

// Nop 丢弃所有通知。
type Nop struct{}

func (Nop) Notify(context.Context, Message) error { return nil }
