package runtimeinit

import (
	"testing"

	"screen-watch-llm/src/config"
	"screen-watch-llm/src/detect"
	"screen-watch-llm/src/ocr"
)

func TestBootstrapDoesNotRequireAPIKey(t *testing.T) {
	t.Setenv("API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("API_KEY_FILE", "")
	t.Setenv("OCR_ENGINE", "")

	called := false
	rt, err := Bootstrap(Options{SetupLogging: func(bool) { called = true }})
	if err != nil {
		t.Fatalf("Bootstrap failed without API key: %v", err)
	}
	if !called {
		t.Fatal("Expected SetupLogging to be called")
	}
	if rt.Client == nil || rt.Extractor == nil || rt.Detector == nil {
		t.Fatalf("Incomplete runtime: %+v", rt)
	}
}

func TestBootstrapPropagatesConfigErrors(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "never")
	if _, err := Bootstrap(Options{}); err == nil {
		t.Fatal("Expected configuration error")
	}
}

func TestEngineSelection(t *testing.T) {
	if _, ok := Engine(&config.Config{OCREngine: config.OCREngineVision}, nil).(ocr.VisionEngine); !ok {
		t.Fatal("Expected vision engine")
	}
	engine, ok := Engine(&config.Config{OCREngine: config.OCREngineTesseract, OCRLanguage: "deu"}, nil).(ocr.TesseractEngine)
	if !ok || engine.Language != "deu" {
		t.Fatalf("Expected tesseract engine with deu, got %#v", engine)
	}
}

func TestDetectorHonoursConfig(t *testing.T) {
	d := Detector(&config.Config{NormalizeText: true})
	prev := &detect.CycleState{Text: "a  b"}
	if d.Compare(prev, detect.CycleState{Text: "a b"}).Triggered() {
		t.Fatal("Expected normalized comparison")
	}
}

func TestDetectorKeepsZeroThreshold(t *testing.T) {
	t.Setenv("IMAGE_DIFF_ENABLED", "true")
	t.Setenv("IMAGE_DIFF_THRESHOLD", "0")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := Detector(cfg).Threshold(); got != 0 {
		t.Fatalf("Expected configured threshold 0, got %v", got)
	}
}
