package overlay

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Flag is the parent's side of the cross-process run flag. It can only be
// cleared; the child sees it through a FlagView.
type Flag struct {
	path string

	mu     sync.Mutex
	clears int
}

// NewFlag creates a flag file in dir (os.TempDir when empty) holding the active value.
func NewFlag(dir string) (*Flag, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, fmt.Sprintf("scan-sentry-overlay-%d-*.flag", os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("create flag file: %w", err)
	}
	_, werr := f.WriteString(flagActive)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("write flag file: %v %v", werr, cerr)
	}
	return &Flag{path: f.Name()}, nil
}

// Path is handed to the child.
func (f *Flag) Path() string { return f.path }

// View returns the read-only side.
func (f *Flag) View() FlagView { return FlagView{path: f.path} }

// Clear sets the flag false. Only the first call writes; it reports whether
// this call did the transition.
func (f *Flag) Clear() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clears > 0 {
		return false, nil
	}
	f.clears++
	return true, writeAtomic(f.path, flagCleared)
}

// Clears reports how many transitions to false happened (0 or 1).
func (f *Flag) Clears() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clears
}

// Remove deletes the flag file. A missing file already reads as false.
func (f *Flag) Remove() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// writeAtomic replaces path's content via rename so the reader never sees a torn write.
func writeAtomic(path, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// FlagView is the child's read-only side of a Flag.
type FlagView struct {
	path string
}

// OpenFlagView attaches to a flag file created by the parent.
func OpenFlagView(path string) FlagView { return FlagView{path: path} }

// Active reports whether the parent still wants the overlay. Unreadable or
// missing files read as false, which also covers a parent that died.
func (v FlagView) Active() bool {
	b, err := os.ReadFile(v.path)
	if err != nil {
		return false
	}
	return string(bytes.TrimSpace(b)) == flagActive
}
