package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// JSONFile 以整文件读写的方式持久化一个 JSON 文档。
// 不提供事务与乐观锁：进程内的并发写入由互斥锁串行化，跨进程并发写入以最后写入者为准。
type JSONFile struct {
	path string
	mu   sync.Mutex
}

// NewJSONFile 创建指向 path 的 JSON 文件存储。
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Path 返回文件路径。
func (f *JSONFile) Path() string {
	return f.path
}

// Lock 获取文件级互斥锁，供读-改-写序列使用。
func (f *JSONFile) Lock() {
	f.mu.Lock()
}

// Unlock 释放文件级互斥锁。
func (f *JSONFile) Unlock() {
	f.mu.Unlock()
}

// Read 读取并解析文件到 v。
// 文件不存在时原子创建一个空文件；文件为空时不做解析。两种情况都返回 found=false。
func (f *JSONFile) Read(v any) (found bool, err error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		if createErr := f.createEmpty(); createErr != nil {
			return false, createErr
		}
		return false, nil
	}
	if err != nil {
		return false, &PersistenceError{Op: OpRead, Path: f.path, Err: err}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, &PersistenceError{Op: OpDecode, Path: f.path, Corrupt: true, Err: err}
	}
	return true, nil
}

// Write 序列化 v 并原子地覆盖整个文件。
func (f *JSONFile) Write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &PersistenceError{Op: OpEncode, Path: f.path, Corrupt: true, Err: err}
	}

	if err := ensureDir(filepath.Dir(f.path)); err != nil {
		return &PersistenceError{Op: OpWrite, Path: f.path, Err: err}
	}
	if err := writeAtomic(f.path, data); err != nil {
		return &PersistenceError{Op: OpWrite, Path: f.path, Err: err}
	}
	return nil
}

// writeAtomic 先写入同目录临时文件再重命名，避免留下写了一半的文件。
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (f *JSONFile) createEmpty() error {
	if err := ensureDir(filepath.Dir(f.path)); err != nil {
		return &PersistenceError{Op: OpCreate, Path: f.path, Err: err}
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return &PersistenceError{Op: OpCreate, Path: f.path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &PersistenceError{Op: OpCreate, Path: f.path, Err: err}
	}
	return nil
}

func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("store: 创建目录 %q 失败: %w", path, err)
	}
	return nil
}
