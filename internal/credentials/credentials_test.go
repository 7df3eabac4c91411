package credentials

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStorePathAndDelete(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	path, err := store.Path("admin")
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if store.Exists("admin") {
		t.Fatal("Expected no credentials before any write")
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(path, "creds.json"), []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	if !store.Exists("admin") {
		t.Fatal("Expected credentials to exist after write")
	}

	if err := store.Delete("admin"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.Exists("admin") {
		t.Fatal("Expected credentials gone after delete")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("Expected credential directory removed")
	}
}

func TestStoreRejectsBadUserIDs(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for _, userID := range []string{"", ".", "..", "a/b", `a\b`} {
		if _, err := store.Path(userID); err == nil {
			t.Errorf("Expected error for user id %q", userID)
		}
	}
}
