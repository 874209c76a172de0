package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/azerpas/bourso-desktop/internal/store"
)

// Service 把任务、批量执行与认证事件写入 sqlite 日志，并同步更新指标。
type Service struct {
	db      *sql.DB
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewService 初始化监控服务，创建所需表结构。metrics 可为空。
func NewService(db *store.SQLite, metrics *Metrics, logger *zap.Logger) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("monitor: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:      db.DB(),
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS monitor_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitor_events_type ON monitor_events(event_type);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("monitor: 初始化表失败: %w", err)
	}
	return nil
}

// Record 写入单个事件。
func (s *Service) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("monitor: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO monitor_events (event_type, payload, created_at) VALUES (?, ?, ?)`,
		string(event.Type), string(payload), event.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入事件失败: %w", err)
	}

	return nil
}

// RecordBatch 记录批量执行汇总。
func (s *Service) RecordBatch(ctx context.Context, payload BatchPayload) {
	s.metrics.observeBatch(payload.Outcome)
	if err := s.Record(ctx, Event{Type: EventBatch, Payload: payload}); err != nil {
		s.logger.Warn("记录批量执行事件失败", zap.Error(err))
	}
}

// RecordJob 记录任务执行结果，payload.Error 非空表示失败。
func (s *Service) RecordJob(ctx context.Context, payload JobPayload, elapsed time.Duration) {
	s.metrics.observeJob(payload.Error == "", elapsed)
	if err := s.Record(ctx, Event{Type: EventJob, Payload: payload}); err != nil {
		s.logger.Warn("记录任务事件失败", zap.Error(err))
	}
}

// RecordOrder 记录手动下单。
func (s *Service) RecordOrder(ctx context.Context, payload OrderPayload) {
	s.metrics.observeOrder(payload.Side)
	if err := s.Record(ctx, Event{Type: EventOrder, Payload: payload}); err != nil {
		s.logger.Warn("记录下单事件失败", zap.Error(err))
	}
}

// RecordAuth 记录认证状态变化。
func (s *Service) RecordAuth(ctx context.Context, payload AuthPayload) {
	s.metrics.observeAuth(payload.State)
	if err := s.Record(ctx, Event{Type: EventAuth, Payload: payload}); err != nil {
		s.logger.Warn("记录认证事件失败", zap.Error(err))
	}
}

// RecordError 记录异常。
func (s *Service) RecordError(ctx context.Context, msg string, err error, ctxMap map[string]interface{}) {
	payload := ErrorPayload{
		Message: msg,
		Error:   err.Error(),
		Context: ctxMap,
	}
	if recErr := s.Record(ctx, Event{Type: EventError, Payload: payload}); recErr != nil {
		s.logger.Warn("记录异常事件失败", zap.Error(recErr))
	}
}

// ListEvents 按类型检索最近事件，eventType 为空时返回全部类型。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT event_type, payload, created_at FROM monitor_events`
	args := make([]interface{}, 0, 2)
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			typ     string
			payload string
			created string
		)
		if scanErr := rows.Scan(&typ, &payload, &created); scanErr != nil {
			return nil, fmt.Errorf("monitor: 解析事件失败: %w", scanErr)
		}

		ts, parseErr := time.Parse(time.RFC3339, created)
		if parseErr != nil {
			ts = s.now()
		}

		events = append(events, Event{
			Type:      EventType(typ),
			Timestamp: ts,
			Payload:   json.RawMessage(payload),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 读取事件失败: %w", err)
	}

	return events, nil
}
