// Package window finds the watched application's window, raises it, and
// reports where it sits on screen.
package window

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"screen-watch-llm/src/screenshot"
)

var (
	ErrWindowNotFound    = errors.New("window not found")
	ErrRegionUnavailable = errors.New("window region unavailable")
)

// Handle identifies the target window. Region is the rectangle observed when
// the window was located.
type Handle struct {
	PID    int
	Name   string
	Region screenshot.Region
}

// Locator is the window capability the polling loop consumes.
type Locator interface {
	Locate(ctx context.Context, processName string) (Handle, error)
	Activate(h Handle) error
	Region(h Handle) (screenshot.Region, error)
}

type procInfo struct {
	PID  int
	Name string
}

// desktop is the platform surface behind DesktopLocator.
type desktop interface {
	processes(ctx context.Context) ([]procInfo, error)
	activate(pid int) error
	bounds(pid int) (x, y, w, h int)
}

// DesktopLocator resolves windows on the local desktop.
type DesktopLocator struct {
	platform desktop
}

func NewLocator() *DesktopLocator {
	return &DesktopLocator{platform: systemDesktop{}}
}

// Locate returns the first process named processName that owns a window with
// a non-empty rectangle. Names match case-insensitively, with or without a
// trailing ".exe".
func (l *DesktopLocator) Locate(ctx context.Context, processName string) (Handle, error) {
	want := normalizeName(processName)
	if want == "" {
		return Handle{}, fmt.Errorf("%w: empty process name", ErrWindowNotFound)
	}

	procs, err := l.platform.processes(ctx)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to list processes: %w", err)
	}

	matched := 0
	for _, p := range procs {
		if normalizeName(p.Name) != want {
			continue
		}
		matched++
		region := regionFromBounds(l.platform.bounds(p.PID))
		if region.Empty() {
			continue
		}
		log.Printf("Found %s window (pid %d) at %dx%d+%d+%d", p.Name, p.PID, region.Width, region.Height, region.X, region.Y)
		return Handle{PID: p.PID, Name: p.Name, Region: region}, nil
	}

	if matched == 0 {
		return Handle{}, fmt.Errorf("%w: no %q process running", ErrWindowNotFound, processName)
	}
	return Handle{}, fmt.Errorf("%w: %d %q process(es) but none has a visible window", ErrWindowNotFound, matched, processName)
}

// Activate brings the window to the foreground.
func (l *DesktopLocator) Activate(h Handle) error {
	if err := l.platform.activate(h.PID); err != nil {
		return fmt.Errorf("failed to activate %s (pid %d): %w", h.Name, h.PID, err)
	}
	return nil
}

// Region re-reads the window rectangle so moved or resized windows are
// captured where they currently are.
func (l *DesktopLocator) Region(h Handle) (screenshot.Region, error) {
	region := regionFromBounds(l.platform.bounds(h.PID))
	if region.Empty() {
		return screenshot.Region{}, fmt.Errorf("%w: %s (pid %d)", ErrRegionUnavailable, h.Name, h.PID)
	}
	return region, nil
}

func regionFromBounds(x, y, w, h int) screenshot.Region {
	return screenshot.Region{X: x, Y: y, Width: w, Height: h}
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(filepath.Base(name)))
	return strings.TrimSuffix(name, ".exe")
}
