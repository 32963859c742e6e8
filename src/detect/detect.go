// Package detect decides whether the watched window changed enough between
// two polling cycles to warrant a query.
package detect

import (
	"strings"
)

// DefaultThreshold is the image difference sum above which two snapshots
// count as different.
const DefaultThreshold = 1000.0

// CycleState is the outcome of one capture and extraction pass.
type CycleState struct {
	Text     string
	Snapshot []byte
}

// Verdict is the result of comparing two cycles. ImageChanged is only ever
// set when the image channel is enabled.
type Verdict struct {
	TextChanged  bool
	ImageChanged bool
}

// Triggered reports whether a query should be dispatched.
func (v Verdict) Triggered() bool { return v.TextChanged || v.ImageChanged }

type Options struct {
	// NormalizeText trims and collapses whitespace runs before comparing.
	NormalizeText bool
	// ImageDiff enables the pixel comparison channel.
	ImageDiff bool
	// Threshold for the image channel; nil means DefaultThreshold. Zero is
	// valid and makes any pixel change count.
	Threshold *float64
}

type Detector struct {
	opts      Options
	threshold float64
}

func New(opts Options) *Detector {
	threshold := DefaultThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	return &Detector{opts: opts, threshold: threshold}
}

// Threshold returns the image channel threshold in effect.
func (d *Detector) Threshold() float64 { return d.threshold }

// Compare is a pure function of its inputs. A nil prev (the first cycle)
// never triggers.
func (d *Detector) Compare(prev *CycleState, cur CycleState) Verdict {
	if prev == nil {
		return Verdict{}
	}

	v := Verdict{TextChanged: d.TextChanged(prev.Text, cur.Text)}
	if d.opts.ImageDiff {
		v.ImageChanged = ImagesDiffer(prev.Snapshot, cur.Snapshot, d.threshold)
	}
	return v
}

// TextChanged compares exactly unless normalization is enabled.
func (d *Detector) TextChanged(prev, cur string) bool {
	if d.opts.NormalizeText {
		return normalize(prev) != normalize(cur)
	}
	return prev != cur
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
