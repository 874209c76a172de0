package order

import (
	"fmt"

	"github.com/azerpas/bourso-desktop/internal/store"
)

// HistoryFileName 为成交历史文件名。
const HistoryFileName = "history.json"

type historyDocument struct {
	Orders []Passed `json:"orders"`
}

// History 以 {"orders": [...]} 文档形式保存成交记录，只追加。
type History struct {
	file *store.JSONFile
}

// NewHistory 创建成交历史存储。
func NewHistory(path string) *History {
	return &History{file: store.NewJSONFile(path)}
}

// List 返回全部成交记录，按追加顺序排列。
func (h *History) List() ([]Passed, error) {
	h.file.Lock()
	defer h.file.Unlock()

	doc, err := h.load()
	if err != nil {
		return nil, err
	}
	return doc.Orders, nil
}

// Append 读取整份历史、追加一条记录后整体写回。
func (h *History) Append(p Passed) error {
	h.file.Lock()
	defer h.file.Unlock()

	doc, err := h.load()
	if err != nil {
		return err
	}
	doc.Orders = append(doc.Orders, p)

	if err := h.file.Write(doc); err != nil {
		return fmt.Errorf("order: 写入成交历史失败: %w", err)
	}
	return nil
}

func (h *History) load() (historyDocument, error) {
	var doc historyDocument
	if _, err := h.file.Read(&doc); err != nil {
		return historyDocument{}, fmt.Errorf("order: 读取成交历史失败: %w", err)
	}
	if doc.Orders == nil {
		doc.Orders = []Passed{}
	}
	return doc, nil
}
