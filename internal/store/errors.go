package store

import (
	"errors"
	"fmt"
)

// Op 标识出错的持久化步骤。
type Op string

const (
	OpCreate Op = "create"
	OpRead   Op = "read"
	OpDecode Op = "decode"
	OpEncode Op = "encode"
	OpWrite  Op = "write"
)

// PersistenceError 表示存储文件损坏或无法读写。
// Corrupt=true 表示内容无法解析，重试无意义；否则为 I/O 故障，可在稍后重试。
type PersistenceError struct {
	Op      Op
	Path    string
	Corrupt bool
	Err     error
}

func (e *PersistenceError) Error() string {
	kind := "I/O 失败"
	if e.Corrupt {
		kind = "内容损坏"
	}
	return fmt.Sprintf("store: %s %s %s: %v", e.Op, e.Path, kind, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Retryable 判断错误是否值得重试。
func (e *PersistenceError) Retryable() bool {
	return !e.Corrupt
}

// IsCorrupt 判断 err 链中是否存在内容损坏的持久化错误。
func IsCorrupt(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.Corrupt
}
