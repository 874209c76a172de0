package markethours

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/azerpas/bourso-desktop/internal/config"
)

const dateLayout = "2006-01-02"

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// clock 表示一天中的时刻。
type clock struct {
	hour   int
	minute int
}

func parseClock(raw string) (clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return clock{}, fmt.Errorf("markethours: 时间格式应为 HH:MM: %q", raw)
	}
	return clock{hour: t.Hour(), minute: t.Minute()}, nil
}

func (c clock) minutes() int {
	return c.hour*60 + c.minute
}

func (c clock) on(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.hour, c.minute, 0, 0, day.Location())
}

// Calendar 描述单一交易所的交易日历：时区、开收盘时间、交易日与休市日。
type Calendar struct {
	loc      *time.Location
	open     clock
	close    clock
	weekdays map[time.Weekday]bool
	holidays map[string]bool
}

// New 根据配置构造交易日历，并额外计入 Euronext 的法定休市日。
func New(cfg config.MarketHoursConfig) (*Calendar, error) {
	var errs error

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("markethours: 时区无效: %w", err))
	}
	open, err := parseClock(cfg.Open)
	errs = multierr.Append(errs, err)
	closeAt, err := parseClock(cfg.Close)
	errs = multierr.Append(errs, err)

	weekdays := make(map[time.Weekday]bool, len(cfg.Weekdays))
	for _, name := range cfg.Weekdays {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("markethours: 未知星期 %q", name))
			continue
		}
		weekdays[wd] = true
	}

	holidays := make(map[string]bool, len(cfg.Holidays))
	for _, raw := range cfg.Holidays {
		d, err := time.Parse(dateLayout, strings.TrimSpace(raw))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("markethours: 日期格式应为 YYYY-MM-DD: %q", raw))
			continue
		}
		holidays[d.Format(dateLayout)] = true
	}

	if errs != nil {
		return nil, errs
	}
	if open.minutes() >= closeAt.minutes() {
		return nil, fmt.Errorf("markethours: 开盘时间必须早于收盘时间")
	}

	return &Calendar{
		loc:      loc,
		open:     open,
		close:    closeAt,
		weekdays: weekdays,
		holidays: holidays,
	}, nil
}

// IsOpen 判断 t 时刻市场是否处于交易时段，区间为 [open, close)。
func (c *Calendar) IsOpen(t time.Time) bool {
	local := t.In(c.loc)
	if !c.weekdays[local.Weekday()] {
		return false
	}
	if c.IsHoliday(local) {
		return false
	}
	openAt := c.open.on(local)
	closeAt := c.close.on(local)
	return !local.Before(openAt) && local.Before(closeAt)
}

// IsHoliday 判断 t 所在的本地日期是否休市。
func (c *Calendar) IsHoliday(t time.Time) bool {
	local := t.In(c.loc)
	if c.holidays[local.Format(dateLayout)] {
		return true
	}
	for _, h := range euronextHolidays(local.Year()) {
		if h.Month() == local.Month() && h.Day() == local.Day() {
			return true
		}
	}
	return false
}

// NextOpen 返回 t 之后（含 t）最近一次开盘时刻，最多向后查找 30 天。
func (c *Calendar) NextOpen(t time.Time) (time.Time, bool) {
	local := t.In(c.loc)
	if c.IsOpen(local) {
		return local, true
	}
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
	for i := 0; i < 30; i++ {
		candidate := c.open.on(day.AddDate(0, 0, i))
		if candidate.Before(local) {
			continue
		}
		if c.IsOpen(candidate) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

// euronextHolidays 返回 Euronext Paris 全天休市的日期：
// 元旦、耶稣受难日、复活节星期一、劳动节、圣诞节与节礼日。
func euronextHolidays(year int) []time.Time {
	easter := gregorianEaster(year)
	return []time.Time{
		time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		easter.AddDate(0, 0, -2),
		easter.AddDate(0, 0, 1),
		time.Date(year, time.May, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 26, 0, 0, 0, 0, time.UTC),
	}
}

// gregorianEaster 使用 Meeus/Jones/Butcher 算法计算复活节日期。
func gregorianEaster(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
