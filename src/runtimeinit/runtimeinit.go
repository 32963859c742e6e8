package runtimeinit

import (
	"fmt"
	"log"

	"screen-watch-llm/src/config"
	"screen-watch-llm/src/detect"
	"screen-watch-llm/src/llm"
	"screen-watch-llm/src/logutil"
	"screen-watch-llm/src/ocr"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
}

// Runtime holds the collaborators shared by every entry point.
type Runtime struct {
	Config    *config.Config
	Client    *llm.Client
	Extractor *ocr.Extractor
	Detector  *detect.Detector
}

// Bootstrap loads configuration and builds the chat client, OCR extractor and
// change detector. The API key is deliberately not checked here; a missing
// key surfaces on the first dispatch.
func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	log.Printf("Configuration: process=%s interval=%v ocr=%s model=%s key=%s",
		cfg.TargetProcess, cfg.PollInterval, cfg.OCREngine, cfg.TextModel, logutil.RedactKey(cfg.APIKey))

	client := llm.New(llm.Config{
		APIKey:      cfg.APIKey,
		Endpoint:    cfg.Endpoint,
		TextModel:   cfg.TextModel,
		VisionModel: cfg.VisionModel,
		Timeout:     cfg.RequestTimeout(),
	})

	return &Runtime{
		Config:    cfg,
		Client:    client,
		Extractor: ocr.NewExtractor(Engine(cfg, client)),
		Detector:  Detector(cfg),
	}, nil
}

// Engine selects the OCR engine named by cfg.OCREngine.
func Engine(cfg *config.Config, client *llm.Client) ocr.Engine {
	if cfg.OCREngine == config.OCREngineVision {
		return ocr.VisionEngine{Client: client}
	}
	return ocr.TesseractEngine{Language: cfg.OCRLanguage, TessdataPrefix: cfg.TessdataPrefix}
}

func Detector(cfg *config.Config) *detect.Detector {
	if cfg.ImageDiffEnabled {
		log.Printf("Image diff trigger enabled (threshold %.0f)", cfg.ImageDiffThreshold)
	}
	threshold := cfg.ImageDiffThreshold
	return detect.New(detect.Options{
		NormalizeText: cfg.NormalizeText,
		ImageDiff:     cfg.ImageDiffEnabled,
		Threshold:     &threshold,
	})
}
