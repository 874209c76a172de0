package credential

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestFile_MissingAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), FileName)
	src := NewFile(path)

	creds, err := src.Load(ctx)
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if creds.HasPassword() || creds.HasClientID() {
		t.Fatalf("expected empty credentials, got %+v", creds)
	}

	if err := src.Save(ctx, Credentials{ClientID: "12345678", Password: "secret"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !strings.Contains(string(raw), `"clientId":"12345678"`) {
		t.Fatalf("unexpected file content %s", raw)
	}

	creds, err = src.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if creds.ClientID != "12345678" || creds.Password != "secret" {
		t.Fatalf("unexpected credentials %+v", creds)
	}
}

func TestFile_ClientIDWithoutPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(`{"clientId":"12345678"}`), 0o600); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	creds, err := NewFile(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !creds.HasClientID() || creds.HasPassword() {
		t.Fatalf("unexpected credentials %+v", creds)
	}
}

func TestKeyring_RoundTrip(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	src := NewKeyring("bourso-dca-test")

	creds, err := src.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if creds.HasPassword() {
		t.Fatalf("expected no password before save")
	}

	if err := src.Save(ctx, Credentials{ClientID: "id", Password: "pw"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	creds, _ = src.Load(ctx)
	if creds.ClientID != "id" || creds.Password != "pw" {
		t.Fatalf("unexpected credentials %+v", creds)
	}

	if err := src.Save(ctx, Credentials{ClientID: "id"}); err != nil {
		t.Fatalf("Save without password: %v", err)
	}
	creds, _ = src.Load(ctx)
	if creds.HasPassword() {
		t.Fatalf("expected password to be removed")
	}
}
