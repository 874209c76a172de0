package execution

import "errors"

var (
	// ErrMarketClosed 表示标的当前不可交易，任务留待下一次调度。
	ErrMarketClosed = errors.New("market closed")
	// ErrOrderPlacement 表示券商拒绝或未能完成下单。
	ErrOrderPlacement = errors.New("order placement failed")
	// ErrMissingFillPrice 表示券商回执缺少成交价。
	ErrMissingFillPrice = errors.New("broker returned no fill price")
	// ErrNotImplemented 表示任务指令尚无执行实现，目前仅 transfer。
	ErrNotImplemented = errors.New("command not implemented")
	// ErrHistoryNotRecorded 表示订单已成交，但成交记录未能写入历史。
	// 此时任务的上次执行时间已经推进，调用方仍需保存任务。
	ErrHistoryNotRecorded = errors.New("order passed but history not recorded")
)
