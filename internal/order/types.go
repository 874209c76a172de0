package order

import (
	"fmt"
	"strconv"
	"strings"
)

// Side 表示下单方向。
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide 解析下单方向，大小写不敏感。
func ParseSide(raw string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(raw))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", fmt.Errorf("order: 不支持的下单方向 %q", raw)
	}
}

// Args 描述一次下单意图：数量与金额二选一，金额优先。
type Args struct {
	Account  string   `json:"account"`
	Symbol   string   `json:"symbol"`
	Quantity *int64   `json:"quantity"`
	Amount   *float64 `json:"amount"`
	Side     Side     `json:"side"`
}

// Passed 是已成交订单的记录，只追加不修改。
type Passed struct {
	ID    string  `json:"id"`
	Price float64 `json:"price"`
	Args  Args    `json:"args"`

	// Quantity 为实际下单股数，按金额下单时由报价换算得出，不写入历史文件。
	Quantity int64 `json:"-"`
}

// QuantityOrAmount 返回用于任务 ID 与描述的数量或金额文本。
func (a Args) QuantityOrAmount() string {
	if a.Quantity != nil {
		return strconv.FormatInt(*a.Quantity, 10)
	}
	if a.Amount != nil {
		return strconv.FormatFloat(*a.Amount, 'f', -1, 64)
	}
	return ""
}

// Describe 返回面向用户的描述。
func (a Args) Describe() string {
	switch {
	case a.Amount != nil:
		return fmt.Sprintf("%s %s€ of %s", a.Side, strconv.FormatFloat(*a.Amount, 'f', -1, 64), a.Symbol)
	case a.Quantity != nil:
		return fmt.Sprintf("%s %d share(s) of %s", a.Side, *a.Quantity, a.Symbol)
	default:
		return "Unknown amount/quantity"
	}
}

// Validate 校验下单参数是否完整。
func (a Args) Validate() error {
	if a.Account == "" {
		return fmt.Errorf("order: account 不能为空")
	}
	if a.Symbol == "" {
		return fmt.Errorf("order: symbol 不能为空")
	}
	if _, err := ParseSide(string(a.Side)); err != nil {
		return err
	}
	if a.Quantity == nil && a.Amount == nil {
		return ErrUnresolvedQuantity
	}
	if a.Quantity != nil && *a.Quantity <= 0 {
		return fmt.Errorf("order: quantity 必须大于0")
	}
	if a.Amount != nil && *a.Amount <= 0 {
		return fmt.Errorf("order: amount 必须大于0")
	}
	return nil
}

// Int64 返回 v 的指针，便于构造 Args。
func Int64(v int64) *int64 {
	return &v
}

// Float64 返回 v 的指针，便于构造 Args。
func Float64(v float64) *float64 {
	return &v
}
