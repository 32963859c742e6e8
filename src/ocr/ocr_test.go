package ocr

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeEngine struct {
	text  string
	err   error
	calls int
}

func (f *fakeEngine) Recognize(ctx context.Context, imageData []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestExtractReturnsText(t *testing.T) {
	e := NewExtractor(&fakeEngine{text: "Hello"})
	if got := e.Extract(context.Background(), []byte{1}); got != "Hello" {
		t.Fatalf("Expected 'Hello', got %q", got)
	}
}

func TestExtractFailureYieldsEmptyText(t *testing.T) {
	engine := &fakeEngine{text: "partial", err: errors.New("tesseract exploded")}
	e := NewExtractor(engine)
	if got := e.Extract(context.Background(), []byte{1}); got != "" {
		t.Fatalf("Expected empty text on failure, got %q", got)
	}
	if engine.calls != 1 {
		t.Fatalf("Expected exactly one attempt, got %d", engine.calls)
	}
}

type fakeVision struct {
	got []byte
}

func (f *fakeVision) QueryVision(ctx context.Context, imageData []byte) (string, error) {
	f.got = imageData
	return "from vision", nil
}

func TestVisionEngine(t *testing.T) {
	v := &fakeVision{}
	text, err := VisionEngine{Client: v}.Recognize(context.Background(), []byte{9})
	if err != nil || text != "from vision" {
		t.Fatalf("Unexpected result %q, %v", text, err)
	}
	if len(v.got) != 1 || v.got[0] != 9 {
		t.Fatalf("Image not forwarded: %v", v.got)
	}
}

func TestRecognizeWithContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release := make(chan struct{})
	defer close(release)
	_, err := recognizeWithContext(ctx, func() (string, error) {
		<-release
		return "late", nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestRecognizeWithContextCompletes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	text, err := recognizeWithContext(ctx, func() (string, error) { return "done", nil })
	if err != nil || text != "done" {
		t.Fatalf("Unexpected result %q, %v", text, err)
	}
}
