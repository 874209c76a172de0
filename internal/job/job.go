package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/azerpas/bourso-desktop/internal/order"
	"github.com/azerpas/bourso-desktop/internal/schedule"
)

// CommandKind 表示任务指令类型。
type CommandKind string

const (
	CommandOrder    CommandKind = "order"
	CommandTransfer CommandKind = "transfer"
)

// TransferArgs 描述账户间转账，目前只被接受和保存，不被执行。
type TransferArgs struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// Command 是下单或转账二选一的任务指令。
type Command struct {
	Kind     CommandKind
	Order    *order.Args
	Transfer *TransferArgs
}

// OrderCommand 构造下单指令。
func OrderCommand(args order.Args) Command {
	return Command{Kind: CommandOrder, Order: &args}
}

// TransferCommand 构造转账指令。
func TransferCommand(args TransferArgs) Command {
	return Command{Kind: CommandTransfer, Transfer: &args}
}

// String 返回指令摘要，参与任务 ID 的生成，如 order_buy_100_1rTCW8。
func (c Command) String() string {
	switch c.Kind {
	case CommandOrder:
		if c.Order == nil {
			return "order"
		}
		return fmt.Sprintf("order_%s_%s_%s", c.Order.Side, c.Order.QuantityOrAmount(), c.Order.Symbol)
	case CommandTransfer:
		if c.Transfer == nil {
			return "transfer"
		}
		return fmt.Sprintf("transfer_%s_%s", c.Transfer.From, c.Transfer.To)
	default:
		return "unknown"
	}
}

// Describe 返回面向用户的描述。
func (c Command) Describe() string {
	if c.Kind == CommandOrder && c.Order != nil {
		return "Order: " + c.Order.Describe()
	}
	if c.Kind == CommandTransfer && c.Transfer != nil {
		return fmt.Sprintf("Transfer: %s from %s to %s", c.Transfer.Amount, c.Transfer.From, c.Transfer.To)
	}
	return "Unknown"
}

// MarshalJSON 编码为 {"order": {...}} 或 {"transfer": {...}}。
func (c Command) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CommandOrder:
		if c.Order == nil {
			return nil, errors.New("job: order 指令缺少参数")
		}
		return json.Marshal(map[string]*order.Args{string(CommandOrder): c.Order})
	case CommandTransfer:
		if c.Transfer == nil {
			return nil, errors.New("job: transfer 指令缺少参数")
		}
		return json.Marshal(map[string]*TransferArgs{string(CommandTransfer): c.Transfer})
	default:
		return nil, fmt.Errorf("job: 未知指令类型 %q", c.Kind)
	}
}

// UnmarshalJSON 解析 MarshalJSON 产生的格式。
func (c *Command) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("job: 解析指令失败: %w", err)
	}
	if len(tagged) != 1 {
		return errors.New("job: 指令必须且只能包含一种类型")
	}

	for key, raw := range tagged {
		switch CommandKind(key) {
		case CommandOrder:
			var args order.Args
			if err := json.Unmarshal(raw, &args); err != nil {
				return fmt.Errorf("job: 解析下单参数失败: %w", err)
			}
			*c = OrderCommand(args)
		case CommandTransfer:
			var args TransferArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return fmt.Errorf("job: 解析转账参数失败: %w", err)
			}
			*c = TransferCommand(args)
		default:
			return fmt.Errorf("job: 未知指令类型 %q", key)
		}
	}
	return nil
}

// Job 是一个周期性定投任务。LastRun 为 Unix 秒。
type Job struct {
	ID       string            `json:"id"`
	Schedule schedule.Schedule `json:"schedule"`
	LastRun  int64             `json:"last_run"`
	Command  Command           `json:"command"`
}

// New 创建任务，ID 由周期与指令确定性生成，之后不再重新计算。
func New(s schedule.Schedule, cmd Command, now time.Time) Job {
	return Job{
		ID:       s.String() + cmd.String(),
		Schedule: s,
		LastRun:  now.Unix(),
		Command:  cmd,
	}
}

// LastRunTime 返回上次执行时间。
func (j Job) LastRunTime() time.Time {
	return time.Unix(j.LastRun, 0).UTC()
}

// IsDue 判断任务在 now 时刻是否到期。
func (j Job) IsDue(now time.Time) bool {
	return schedule.IsDue(j.Schedule, now, j.LastRunTime())
}

// MarkRun 将上次执行时间推进到 now，只向前推进。
func (j *Job) MarkRun(now time.Time) {
	if ts := now.Unix(); ts > j.LastRun {
		j.LastRun = ts
	}
}

// Due 返回 jobs 中在 now 时刻到期的任务副本。
func Due(jobs []Job, now time.Time) []Job {
	due := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if j.IsDue(now) {
			due = append(due, j)
		}
	}
	return due
}
