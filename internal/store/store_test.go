package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/azerpas/bourso-desktop/internal/config"
)

type document struct {
	Items []string `json:"items"`
}

func TestJSONFile_MissingFileIsCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")
	f := NewJSONFile(path)

	var doc document
	found, err := f.Read(&doc)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if found {
		t.Fatalf("expected found=false for missing file")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected file to be created: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("expected empty file, got %d bytes", info.Size())
	}
}

func TestJSONFile_WriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	f := NewJSONFile(path)

	if err := f.Write(document{Items: []string{"a", "b"}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var doc document
	found, err := f.Read(&doc)
	if err != nil || !found {
		t.Fatalf("Read: found=%v err=%v", found, err)
	}
	if len(doc.Items) != 2 || doc.Items[1] != "b" {
		t.Fatalf("unexpected document %+v", doc)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected temporary files to be cleaned up, got %d entries", len(entries))
	}
}

func TestJSONFile_CorruptIsNotRetryable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte("[1,"), 0o600); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	var doc document
	_, err := NewJSONFile(path).Read(&doc)
	if !IsCorrupt(err) {
		t.Fatalf("expected corrupt error, got %v", err)
	}
	var pe *PersistenceError
	if !errors.As(err, &pe) || pe.Retryable() || pe.Op != OpDecode {
		t.Fatalf("unexpected persistence error %+v", pe)
	}
}

func TestJSONFile_UnwritableIsRetryable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	err := NewJSONFile(filepath.Join(blocker, "doc.json")).Write(document{})
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if !pe.Retryable() || IsCorrupt(err) {
		t.Fatalf("expected retryable I/O error, got %+v", pe)
	}
}

func TestSQLite_InMemory(t *testing.T) {
	db, err := NewSQLite(config.DatabaseConfig{InMemory: true})
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := db.DB().ExecContext(ctx, `CREATE TABLE t (v INTEGER)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := db.DB().ExecContext(ctx, `INSERT INTO t (v) VALUES (1)`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var count int
	if err := db.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM t`).Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
}

func TestSQLite_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "journal.db")
	db, err := NewSQLite(config.DatabaseConfig{Path: path, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected database file: %v", err)
	}

	var nilDB *SQLite
	if err := nilDB.Close(); err != nil {
		t.Fatalf("Close on nil store must be a no-op")
	}
}
