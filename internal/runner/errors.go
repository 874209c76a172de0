package runner

import "errors"

var (
	// ErrPasswordMissing 表示没有保存密码，调用方应转为交互式提示而不是报错退出。
	ErrPasswordMissing = errors.New("password missing")
	// ErrClientIDMissing 表示没有保存客户号。
	ErrClientIDMissing = errors.New("client id missing")
)
