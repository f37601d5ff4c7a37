//go:build nohotkey

package hotkey

import "errors"

func platformFactory(string) (Hook, error) {
	return nil, errors.New("built without global hotkey support")
}
