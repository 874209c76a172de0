package job

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/azerpas/bourso-desktop/internal/order"
	"github.com/azerpas/bourso-desktop/internal/schedule"
)

func buyAmount(symbol string, amount float64) Command {
	return OrderCommand(order.Args{Account: "acc", Symbol: symbol, Amount: order.Float64(amount), Side: order.SideBuy})
}

func TestNew_DerivesID(t *testing.T) {
	now := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)

	qty := OrderCommand(order.Args{Account: "acc", Symbol: "SYM", Quantity: order.Int64(1), Amount: order.Float64(50), Side: order.SideBuy})
	j := New(schedule.Daily(), qty, now)
	if j.ID != "dailyorder_buy_1_SYM" {
		t.Fatalf("unexpected id %q", j.ID)
	}
	if j.LastRun != now.Unix() {
		t.Fatalf("expected last_run=%d got %d", now.Unix(), j.LastRun)
	}

	byAmount := New(schedule.Weekly(1), buyAmount("1rTCW8", 100), now)
	if byAmount.ID != "weeklyorder_buy_100_1rTCW8" {
		t.Fatalf("unexpected id %q", byAmount.ID)
	}

	transfer := New(schedule.Monthly(5), TransferCommand(TransferArgs{From: "a", To: "b", Amount: "10"}), now)
	if transfer.ID != "monthlytransfer_a_b" {
		t.Fatalf("unexpected id %q", transfer.ID)
	}
}

func TestJob_JSONFormat(t *testing.T) {
	j := New(schedule.Weekly(2), buyAmount("1rTCW8", 100), time.Unix(1700000000, 0))

	raw, err := json.Marshal(j)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, fragment := range []string{
		`"id":"weeklyorder_buy_100_1rTCW8"`,
		`"schedule":{"weekly":{"day":2}}`,
		`"last_run":1700000000`,
		`"command":{"order":{`,
		`"quantity":null`,
		`"amount":100`,
	} {
		if !strings.Contains(string(raw), fragment) {
			t.Errorf("expected %s in %s", fragment, raw)
		}
	}

	var decoded Job
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.ID != j.ID || decoded.LastRun != j.LastRun || decoded.Schedule != j.Schedule {
		t.Fatalf("decoded job differs: %+v", decoded)
	}
	if decoded.Command.Kind != CommandOrder || decoded.Command.Order.Symbol != "1rTCW8" {
		t.Fatalf("decoded command differs: %+v", decoded.Command)
	}
}

func TestCommand_RejectsUnknownVariant(t *testing.T) {
	var c Command
	if err := json.Unmarshal([]byte(`{"swap":{}}`), &c); err == nil {
		t.Fatalf("expected unknown command to be rejected")
	}
	if err := json.Unmarshal([]byte(`{"order":{},"transfer":{}}`), &c); err == nil {
		t.Fatalf("expected two-variant command to be rejected")
	}
}

func TestJob_IsDueAndMarkRun(t *testing.T) {
	last := time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC)
	j := New(schedule.Daily(), buyAmount("X", 10), last)

	if j.IsDue(last.Add(2 * time.Hour)) {
		t.Fatalf("daily job must not be due the same day")
	}
	next := last.Add(24 * time.Hour)
	if !j.IsDue(next) {
		t.Fatalf("daily job must be due the next day")
	}

	j.MarkRun(next)
	if j.IsDue(next) {
		t.Fatalf("job must not be due right after it ran")
	}
	j.MarkRun(last)
	if j.LastRun != next.Unix() {
		t.Fatalf("MarkRun must never move last_run backwards")
	}
}

func TestStore_CRUD(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	s := NewStore(path, zaptest.NewLogger(t))

	jobs, err := s.Load()
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs, got %d", len(jobs))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected Load to create the file: %v", err)
	}

	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	a := New(schedule.Daily(), buyAmount("A", 10), now)
	b := New(schedule.Monthly(1), buyAmount("B", 20), now)
	for _, j := range []Job{a, b} {
		if err := s.Upsert(j); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	a.LastRun = now.Add(48 * time.Hour).Unix()
	if err := s.Upsert(a); err != nil {
		t.Fatalf("Upsert existing: %v", err)
	}
	jobs, _ = s.Load()
	if len(jobs) != 2 {
		t.Fatalf("expected upsert to replace, got %d jobs", len(jobs))
	}
	if jobs[0].ID != a.ID || jobs[1].ID != b.ID {
		t.Fatalf("upsert must replace in place, got %s, %s", jobs[0].ID, jobs[1].ID)
	}
	got, err := s.Get(a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LastRun != a.LastRun {
		t.Fatalf("expected updated last_run, got %d", got.LastRun)
	}

	if err := s.Delete("missing"); err != nil {
		t.Fatalf("Delete of missing id must be a no-op, got %v", err)
	}
	if err := s.Delete(b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(b.ID); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestStore_SaveLoadIsIdempotent(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), FileName), nil)
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	if err := s.Save([]Job{
		New(schedule.Daily(), buyAmount("A", 10), now),
		New(schedule.Weekly(3), buyAmount("B", 20), now.Add(time.Hour)),
		New(schedule.Monthly(15), buyAmount("C", 30), now.Add(2*time.Hour)),
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	before, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read jobs: %v", err)
	}
	for i := 0; i < 2; i++ {
		jobs, err := s.Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if err := s.Save(jobs); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	after, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read jobs: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("save(load()) changed the file\nbefore: %s\nafter:  %s", before, after)
	}
}

func TestStore_EmptyFileIsEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	jobs, err := NewStore(path, nil).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected empty list, got %d", len(jobs))
	}
}

func TestStore_Skip(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), FileName), nil)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	j := New(schedule.Daily(), buyAmount("A", 10), start)
	if err := s.Upsert(j); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	later := start.Add(72 * time.Hour)
	if due := Due([]Job{j}, later); len(due) != 1 {
		t.Fatalf("expected job to be due before skip")
	}
	skipped, err := s.Skip(j.ID, later)
	if err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if skipped.IsDue(later) {
		t.Fatalf("skipped job must not be due")
	}
	if _, err := s.Skip("missing", later); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}
