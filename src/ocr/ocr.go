package ocr

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"screen-watch-llm/src/logutil"
)

// Engine recognises text in an encoded image.
type Engine interface {
	Recognize(ctx context.Context, imageData []byte) (string, error)
}

// Extractor adapts an Engine to the loop's contract: failures are logged and
// reported as empty text instead of an error.
type Extractor struct {
	engine     Engine
	saveImages bool
}

func NewExtractor(engine Engine) *Extractor {
	return &Extractor{
		engine:     engine,
		saveImages: os.Getenv("OCR_DEBUG_SAVE_IMAGES") == "true",
	}
}

func (e *Extractor) Extract(ctx context.Context, imageData []byte) string {
	if e.saveImages {
		saveDebugImage(imageData)
	}

	start := time.Now()
	text, err := e.engine.Recognize(ctx, imageData)
	if err != nil {
		log.Printf("OCR failed after %v, continuing with empty text: %v", time.Since(start).Round(time.Millisecond), err)
		return ""
	}
	log.Printf("OCR extracted %d chars in %v: %q", len(text), time.Since(start).Round(time.Millisecond), logutil.Sanitize(text, 100))
	return text
}

func saveDebugImage(imageData []byte) {
	debugFilename := fmt.Sprintf("debug_snapshot_%s.png", time.Now().Format("20060102_150405"))
	if err := os.WriteFile(debugFilename, imageData, 0600); err != nil {
		log.Printf("Warning: Could not save debug image: %v", err)
		return
	}
	log.Printf("DEBUG: Saved snapshot to %s (size: %d bytes)", debugFilename, len(imageData))
}

type recognized struct {
	text string
	err  error
}

// recognizeWithContext runs a blocking recognizer and gives up when ctx ends.
// The recognizer keeps running in the background until it returns.
func recognizeWithContext(ctx context.Context, fn func() (string, error)) (string, error) {
	resCh := make(chan recognized, 1)
	go func() {
		text, err := fn()
		resCh <- recognized{text: text, err: err}
	}()
	select {
	case r := <-resCh:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
