package eventloop

import (
	"context"
	"fmt"
	"log"
	"time"

	"screen-watch-llm/src/detect"
	"screen-watch-llm/src/llm"
	"screen-watch-llm/src/logutil"
	"screen-watch-llm/src/screenshot"
	"screen-watch-llm/src/session"
	"screen-watch-llm/src/window"
)

const DefaultInterval = 10 * time.Second

// TextExtractor never fails; unreadable snapshots yield "".
type TextExtractor interface {
	Extract(ctx context.Context, imageData []byte) string
}

// Dispatcher sends changed text to the model.
type Dispatcher interface {
	Query(ctx context.Context, text string) (llm.Result, error)
}

type Options struct {
	Locator     window.Locator
	Capturer    screenshot.Capturer
	Extractor   TextExtractor
	Detector    *detect.Detector
	Dispatcher  Dispatcher
	Target      session.ResultTarget
	ProcessName string
	Interval    time.Duration
}

// Loop is the single-threaded polling coordinator. Exactly one cycle runs at
// a time and prev is only touched from the goroutine calling Run.
type Loop struct {
	locator     window.Locator
	capturer    screenshot.Capturer
	extractor   TextExtractor
	detector    *detect.Detector
	dispatcher  Dispatcher
	target      session.ResultTarget
	processName string
	interval    time.Duration

	handle window.Handle
	prev   *detect.CycleState
	cycle  int
}

// New creates a loop. Missing Detector, Target and Interval fall back to
// exact-text detection, stdout reporting and a 10s interval.
func New(opts Options) *Loop {
	l := &Loop{
		locator:     opts.Locator,
		capturer:    opts.Capturer,
		extractor:   opts.Extractor,
		detector:    opts.Detector,
		dispatcher:  opts.Dispatcher,
		target:      opts.Target,
		processName: opts.ProcessName,
		interval:    opts.Interval,
	}
	if l.detector == nil {
		l.detector = detect.New(detect.Options{})
	}
	if l.target == nil {
		l.target = session.StdoutTarget{}
	}
	if l.interval <= 0 {
		l.interval = DefaultInterval
	}
	return l
}

// Interval returns the pause between cycles.
func (l *Loop) Interval() time.Duration { return l.interval }

// Start locates and raises the target window. A missing window is fatal;
// failing to raise it is not.
func (l *Loop) Start(ctx context.Context) error {
	h, err := l.locator.Locate(ctx, l.processName)
	if err != nil {
		return fmt.Errorf("cannot watch %q: %w", l.processName, err)
	}
	if err := l.locator.Activate(h); err != nil {
		log.Printf("Warning: %v", err)
	} else {
		log.Printf("%s window has been brought to the front", h.Name)
	}
	l.handle = h
	return nil
}

// Run starts the loop and cycles until ctx is cancelled. It returns the
// startup error, or ctx.Err() on shutdown.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Start(ctx); err != nil {
		return err
	}
	log.Printf("Polling %s every %v", l.handle.Name, l.interval)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.Step(ctx)
		if !sleep(ctx, l.interval) {
			return ctx.Err()
		}
	}
}

// RunOnce starts the loop and executes a single cycle. With no previous
// cycle to compare against it never dispatches.
func (l *Loop) RunOnce(ctx context.Context) (detect.CycleState, error) {
	if err := l.Start(ctx); err != nil {
		return detect.CycleState{}, err
	}
	if err := l.Step(ctx); err != nil {
		return detect.CycleState{}, fmt.Errorf("no snapshot captured: %w", err)
	}
	return *l.prev, nil
}

// Step runs one capture, extract, detect, dispatch cycle. It returns an error
// only when the cycle was skipped because no snapshot could be taken; the
// previous state is then left untouched. Later failures are logged and still
// advance it.
func (l *Loop) Step(ctx context.Context) error {
	l.cycle++
	start := time.Now()
	defer func() {
		log.Printf("Cycle %d finished in %v", l.cycle, time.Since(start).Round(time.Millisecond))
	}()

	region, err := l.locator.Region(l.handle)
	if err != nil {
		log.Printf("Cycle %d: %v; skipping", l.cycle, err)
		return err
	}
	snapshot, err := l.capturer.Capture(region)
	if err != nil {
		log.Printf("Cycle %d: capture failed: %v; skipping", l.cycle, err)
		return fmt.Errorf("capture failed: %w", err)
	}

	cur := detect.CycleState{
		Text:     l.extractor.Extract(ctx, snapshot),
		Snapshot: snapshot,
	}

	verdict := l.detector.Compare(l.prev, cur)
	switch {
	case l.prev == nil:
		log.Printf("Cycle %d: baseline captured (%d chars)", l.cycle, len(cur.Text))
	case verdict.Triggered():
		log.Printf("Cycle %d: change detected (text=%v image=%v): %q", l.cycle, verdict.TextChanged, verdict.ImageChanged, logutil.Sanitize(cur.Text, 100))
		l.dispatch(ctx, cur.Text)
	}

	l.prev = &cur
	return nil
}

func (l *Loop) dispatch(ctx context.Context, text string) {
	start := time.Now()
	res, err := l.dispatcher.Query(ctx, text)
	if err != nil {
		log.Printf("Dispatch failed after %v: %v", time.Since(start).Round(time.Millisecond), err)
		if terr := l.target.OnFailure(err); terr != nil {
			log.Printf("Reporting dispatch failure failed: %v", terr)
		}
		return
	}
	log.Printf("Dispatch succeeded in %v (status %d, %d bytes)", time.Since(start).Round(time.Millisecond), res.StatusCode, len(res.Body))
	if err := l.target.OnSuccess(res); err != nil {
		log.Printf("Delivering response failed: %v", err)
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
