package clipboard

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"

	"golang.design/x/clipboard"
)

var (
	ErrNotInitialized = errors.New("clipboard not initialized")
	ErrNotWritten     = errors.New("clipboard write did not take effect")
)

var (
	writeMu sync.Mutex
	ready   atomic.Bool
)

// Init must succeed before Write is used; it fails on systems without a
// clipboard (e.g. headless Linux without X11).
func Init() error {
	if err := clipboard.Init(); err != nil {
		return err
	}
	ready.Store(true)
	return nil
}

// Write replaces the clipboard text and reads it back to confirm another
// process did not reject or immediately overwrite it.
func Write(text string) error {
	if !ready.Load() {
		return ErrNotInitialized
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte(text))
	if got := clipboard.Read(clipboard.FmtText); !bytes.Equal(got, []byte(text)) {
		return ErrNotWritten
	}
	return nil
}
