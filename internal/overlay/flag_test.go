package overlay

import (
	"os"
	"testing"
)

func TestFlagLifecycle(t *testing.T) {
	f, err := NewFlag(t.TempDir())
	if err != nil {
		t.Fatalf("NewFlag() error = %v", err)
	}
	view := f.View()
	if !view.Active() {
		t.Fatal("new flag should read active")
	}

	did, err := f.Clear()
	if err != nil || !did {
		t.Fatalf("first Clear() = (%v, %v), want (true, nil)", did, err)
	}
	if view.Active() {
		t.Error("cleared flag should read inactive")
	}
	if did, _ := f.Clear(); did {
		t.Error("second Clear() should be a no-op")
	}
	if f.Clears() != 1 {
		t.Errorf("Clears() = %d, want 1", f.Clears())
	}

	if err := f.Remove(); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := f.Remove(); err != nil {
		t.Errorf("second Remove() error = %v", err)
	}
}

func TestFlagViewMissingFileIsInactive(t *testing.T) {
	f, err := NewFlag(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	view := OpenFlagView(f.Path())
	if err := os.Remove(f.Path()); err != nil {
		t.Fatal(err)
	}
	if view.Active() {
		t.Error("missing flag file should read inactive (parent gone)")
	}
}

func TestFlagViewRejectsGarbage(t *testing.T) {
	f, err := NewFlag(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.Path(), []byte("yes"), 0o600); err != nil {
		t.Fatal(err)
	}
	if f.View().Active() {
		t.Error("unexpected content should read inactive")
	}
}
