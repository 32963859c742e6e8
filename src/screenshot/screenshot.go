package screenshot

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/kbinani/screenshot"
)

// Region represents a screen region to capture
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r Region) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Capturer turns a screen region into an encoded snapshot.
type Capturer interface {
	Capture(region Region) ([]byte, error)
}

// ScreenCapturer captures from the live desktop.
type ScreenCapturer struct{}

func NewCapturer() ScreenCapturer { return ScreenCapturer{} }

// Capture captures the region as PNG. Parts of the region that lie outside
// every active display are clipped away.
func (ScreenCapturer) Capture(region Region) ([]byte, error) {
	if region.Empty() {
		return nil, fmt.Errorf("invalid region dimensions: width=%d, height=%d", region.Width, region.Height)
	}

	virtual, err := VirtualScreenBounds()
	if err != nil {
		return nil, err
	}
	bounds := region.Rect().Intersect(virtual)
	if bounds.Empty() {
		return nil, fmt.Errorf("region %v is outside the visible screen %v", region.Rect(), virtual)
	}

	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture region: %w", err)
	}

	return Encode(img)
}

// Encode converts an image to PNG bytes.
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// VirtualScreenBounds returns the union of all active display bounds.
func VirtualScreenBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return union, nil
}
