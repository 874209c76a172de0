package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind 表示调度周期类型。
type Kind string

const (
	KindDaily   Kind = "daily"
	KindWeekly  Kind = "weekly"
	KindMonthly Kind = "monthly"
)

// Schedule 描述任务的执行周期。
// Day 只是用户输入的记录，不参与到期判断。
type Schedule struct {
	Kind Kind
	Day  int
}

// Daily 返回每日调度。
func Daily() Schedule {
	return Schedule{Kind: KindDaily}
}

// Weekly 返回每周调度。
func Weekly(day int) Schedule {
	return Schedule{Kind: KindWeekly, Day: day}
}

// Monthly 返回每月调度。
func Monthly(day int) Schedule {
	return Schedule{Kind: KindMonthly, Day: day}
}

// String 返回周期名称，同时参与任务 ID 的生成。
func (s Schedule) String() string {
	return string(s.Kind)
}

// Describe 返回面向用户的描述。
func (s Schedule) Describe() string {
	switch s.Kind {
	case KindDaily:
		return "Daily"
	case KindWeekly:
		return fmt.Sprintf("Weekly: %d", s.Day)
	case KindMonthly:
		return fmt.Sprintf("Monthly: %d", s.Day)
	default:
		return "Unknown"
	}
}

// IsDue 判断任务在 now 时刻是否到期，按 UTC 日历边界比较而非时间间隔。
//
//   - Daily: now 的日期晚于 lastRun 的日期。
//   - Weekly: now 的日期晚于 lastRun 的日期，或 now 的 ISO 周序号大于 lastRun 的。
//   - Monthly: now 的日期晚于 lastRun 的日期，或 now 的月份大于 lastRun 的。
//
// 日期条件在前，因此只要跨过自然日三种周期都会到期；周序号与月份比较不带年份。
func IsDue(s Schedule, now, lastRun time.Time) bool {
	now = now.UTC()
	lastRun = lastRun.UTC()
	newDay := dateOf(now).After(dateOf(lastRun))

	switch s.Kind {
	case KindDaily:
		return newDay
	case KindWeekly:
		_, nowWeek := now.ISOWeek()
		_, lastWeek := lastRun.ISOWeek()
		return newDay || nowWeek > lastWeek
	case KindMonthly:
		return newDay || now.Month() > lastRun.Month()
	default:
		return false
	}
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Validate 校验周期参数。
func (s Schedule) Validate() error {
	switch s.Kind {
	case KindDaily:
		return nil
	case KindWeekly:
		if s.Day < 0 || s.Day > 7 {
			return fmt.Errorf("schedule: weekly day 应位于[0,7]: %d", s.Day)
		}
		return nil
	case KindMonthly:
		if s.Day < 1 || s.Day > 31 {
			return fmt.Errorf("schedule: monthly day 应位于[1,31]: %d", s.Day)
		}
		return nil
	default:
		return fmt.Errorf("schedule: 未知周期 %q", s.Kind)
	}
}

type dayPayload struct {
	Day int `json:"day"`
}

// MarshalJSON 编码为 "daily"、{"weekly":{"day":N}} 或 {"monthly":{"day":N}}。
func (s Schedule) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case KindDaily:
		return json.Marshal(string(KindDaily))
	case KindWeekly, KindMonthly:
		return json.Marshal(map[string]dayPayload{string(s.Kind): {Day: s.Day}})
	default:
		return nil, fmt.Errorf("schedule: 未知周期 %q", s.Kind)
	}
}

// UnmarshalJSON 解析 MarshalJSON 产生的格式。
func (s *Schedule) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		if Kind(name) != KindDaily {
			return fmt.Errorf("schedule: 未知周期 %q", name)
		}
		*s = Daily()
		return nil
	}

	var tagged map[string]dayPayload
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("schedule: 解析失败: %w", err)
	}
	if len(tagged) != 1 {
		return errors.New("schedule: 必须且只能包含一个周期类型")
	}
	for key, payload := range tagged {
		switch Kind(key) {
		case KindWeekly:
			*s = Weekly(payload.Day)
		case KindMonthly:
			*s = Monthly(payload.Day)
		default:
			return fmt.Errorf("schedule: 未知周期 %q", key)
		}
	}
	return nil
}

// Parse 根据名称与日期构造周期，供命令行使用。
func Parse(kind string, day int) (Schedule, error) {
	var s Schedule
	switch Kind(kind) {
	case KindDaily:
		s = Daily()
	case KindWeekly:
		s = Weekly(day)
	case KindMonthly:
		s = Monthly(day)
	default:
		return Schedule{}, fmt.Errorf("schedule: 未知周期 %q", kind)
	}
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}
