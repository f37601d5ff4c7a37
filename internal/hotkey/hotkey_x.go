//go:build !nohotkey

package hotkey

import (
	"fmt"
	"strings"
	"sync"

	"golang.design/x/hotkey"
)

var keys = map[string]hotkey.Key{
	"F1": hotkey.KeyF1, "F2": hotkey.KeyF2, "F3": hotkey.KeyF3, "F4": hotkey.KeyF4,
	"F5": hotkey.KeyF5, "F6": hotkey.KeyF6, "F7": hotkey.KeyF7, "F8": hotkey.KeyF8,
	"F9": hotkey.KeyF9, "F10": hotkey.KeyF10, "F11": hotkey.KeyF11, "F12": hotkey.KeyF12,
}

type systemHook struct {
	hk   *hotkey.Hotkey
	out  chan struct{}
	once sync.Once
	stop chan struct{}
}

func platformFactory(key string) (Hook, error) {
	k, ok := keys[strings.ToUpper(key)]
	if !ok {
		return nil, fmt.Errorf("unsupported hotkey %q", key)
	}
	return &systemHook{
		hk:   hotkey.New(nil, k),
		out:  make(chan struct{}, 1),
		stop: make(chan struct{}),
	}, nil
}

func (h *systemHook) Register() error {
	if err := h.hk.Register(); err != nil {
		return err
	}
	go func() {
		in := h.hk.Keydown()
		for {
			select {
			case <-h.stop:
				close(h.out)
				return
			case <-in:
				select {
				case h.out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return nil
}

func (h *systemHook) Unregister() error {
	h.once.Do(func() { close(h.stop) })
	return h.hk.Unregister()
}

func (h *systemHook) Keydown() <-chan struct{} { return h.out }
