// Package input injects synthetic key events and reads the pointer position.
package input

import (
	"strings"
	"sync"

	"github.com/go-vgo/robotgo"

	apperrors "github.com/GriffinCanCode/scan-sentry/internal/errors"
	"github.com/GriffinCanCode/scan-sentry/internal/region"
)

// Keyboard taps a single named key.
type Keyboard interface {
	Press(key string) error
}

// Cursor reports the current pointer position in screen coordinates.
type Cursor interface {
	Position() (region.Point, error)
}

// Robot implements Keyboard and Cursor on top of robotgo.
type Robot struct {
	// robotgo keeps per-process keyboard state; serialize taps from
	// the scan loop and the command surface.
	mu sync.Mutex
}

// NewRobot returns the OS-backed input device.
func NewRobot() *Robot { return &Robot{} }

// Press implements Keyboard.
func (r *Robot) Press(key string) error {
	key = NormalizeKey(key)
	if key == "" {
		return apperrors.New(apperrors.CodeDispatch, "empty key name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := robotgo.KeyTap(key); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeDispatch, "tap %q", key)
	}
	return nil
}

// Position implements Cursor.
func (r *Robot) Position() (region.Point, error) {
	x, y := robotgo.Location()
	return region.Point{X: x, Y: y}, nil
}

var keyAliases = map[string]string{
	"return":    "enter",
	"esc":       "escape",
	"arrowdown": "down",
	"arrowup":   "up",
	"pgdn":      "pagedown",
	"pgup":      "pageup",
	"spacebar":  "space",
}

// NormalizeKey lowercases a key name and maps common aliases onto the names
// the injection backend understands.
func NormalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if alias, ok := keyAliases[k]; ok {
		return alias
	}
	return k
}
