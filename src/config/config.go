package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	APIKeyEnvVar       = "API_KEY"
	LegacyAPIKeyEnvVar = "GROQ_API_KEY"
	APIKeyPathEnvVar   = "API_KEY_FILE"
	EnvPathEnvVar      = "SCREEN_WATCH_LLM"

	DefaultEndpoint           = "https://api.groq.com/v1/chat/completions"
	DefaultTextModel          = "llama-3.2-90b-text-preview"
	DefaultVisionModel        = "llama-3.2-11b-vision-preview"
	DefaultTargetProcess      = "chrome"
	DefaultPollInterval       = 10 * time.Second
	DefaultImageDiffThreshold = 1000.0
	DefaultRequestTimeoutSec  = 60
	DefaultSingleInstancePort = 49600

	OCREngineTesseract = "tesseract"
	OCREngineVision    = "vision"
)

// LoadOptions carries command-line overrides. Zero values mean "not set".
type LoadOptions struct {
	APIKeyPathOverride    string
	TargetProcessOverride string
	PollIntervalOverride  time.Duration
	ImageDiffOverride     *bool
	ClipboardOverride     *bool
}

type Config struct {
	APIKey             string
	APIKeyPath         string
	Endpoint           string
	TextModel          string
	VisionModel        string
	TargetProcess      string
	PollInterval       time.Duration
	ImageDiffEnabled   bool
	ImageDiffThreshold float64
	NormalizeText      bool
	OCREngine          string
	OCRLanguage        string
	TessdataPrefix     string
	RequestTimeoutSec  int
	CopyToClipboard    bool
	EnableFileLogging  bool
	SingleInstancePort int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// godotenv.Load never overrides variables already present in the process
	// environment, so loading the executable's .env first gives it priority
	// over the working directory's.
	for _, envPath := range resolveEnvPaths() {
		_ = godotenv.Load(envPath)
	}

	pollInterval, err := durationFromEnv("POLL_INTERVAL", DefaultPollInterval)
	if err != nil {
		return nil, err
	}
	if opts.PollIntervalOverride > 0 {
		pollInterval = opts.PollIntervalOverride
	}

	threshold := DefaultImageDiffThreshold
	if v := strings.TrimSpace(os.Getenv("IMAGE_DIFF_THRESHOLD")); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid IMAGE_DIFF_THRESHOLD %q", v)
		}
		threshold = n
	}

	requestTimeoutSec, err := intFromEnv("REQUEST_TIMEOUT_SEC", DefaultRequestTimeoutSec, 1, math.MaxInt32)
	if err != nil {
		return nil, err
	}

	// Port 0 disables the single instance lock.
	port, err := intFromEnv("SINGLEINSTANCE_PORT", DefaultSingleInstancePort, 0, 65535)
	if err != nil {
		return nil, err
	}

	engine, err := resolveOCREngine(os.Getenv("OCR_ENGINE"))
	if err != nil {
		return nil, err
	}

	apiKeyPath := resolveAPIKeyPath(opts)

	cfg := &Config{
		APIKey:             resolveAPIKey(apiKeyPath),
		APIKeyPath:         apiKeyPath,
		Endpoint:           getEnvWithDefault("API_ENDPOINT", DefaultEndpoint),
		TextModel:          getEnvWithDefault("TEXT_MODEL", DefaultTextModel),
		VisionModel:        getEnvWithDefault("VISION_MODEL", DefaultVisionModel),
		TargetProcess:      getEnvWithDefault("TARGET_PROCESS", DefaultTargetProcess),
		PollInterval:       pollInterval,
		ImageDiffEnabled:   boolFromEnv("IMAGE_DIFF_ENABLED"),
		ImageDiffThreshold: threshold,
		NormalizeText:      boolFromEnv("NORMALIZE_TEXT"),
		OCREngine:          engine,
		OCRLanguage:        getEnvWithDefault("OCR_LANGUAGE", "eng"),
		TessdataPrefix:     os.Getenv("TESSDATA_PREFIX"),
		RequestTimeoutSec:  requestTimeoutSec,
		CopyToClipboard:    boolFromEnv("COPY_TO_CLIPBOARD"),
		EnableFileLogging:  boolFromEnv("ENABLE_FILE_LOGGING"),
		SingleInstancePort: port,
	}

	if p := strings.TrimSpace(opts.TargetProcessOverride); p != "" {
		cfg.TargetProcess = p
	}
	if opts.ImageDiffOverride != nil {
		cfg.ImageDiffEnabled = *opts.ImageDiffOverride
	}
	if opts.ClipboardOverride != nil {
		cfg.CopyToClipboard = *opts.ClipboardOverride
	}

	return cfg, nil
}

// RequestTimeout returns the HTTP client timeout for dispatch and vision OCR.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

func resolveEnvPaths() []string {
	var paths []string

	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			paths = append(paths, exeEnv)
		}
	}

	if len(paths) == 0 {
		if alt := os.Getenv(EnvPathEnvVar); alt != "" {
			if _, err := os.Stat(alt); err == nil {
				paths = append(paths, alt)
			}
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		paths = append(paths, ".env")
	}

	return paths
}

func resolveAPIKeyPath(opts LoadOptions) string {
	if overridePath := strings.TrimSpace(opts.APIKeyPathOverride); overridePath != "" {
		return overridePath
	}
	return strings.TrimSpace(os.Getenv(APIKeyPathEnvVar))
}

// resolveAPIKey prefers the key file, then API_KEY, then GROQ_API_KEY.
// An empty result is not an error here; dispatch reports it on first use.
func resolveAPIKey(keyPath string) string {
	if keyPath != "" {
		if data, err := os.ReadFile(keyPath); err == nil {
			if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
				return fileKey
			}
		}
	}

	if key := strings.TrimSpace(os.Getenv(APIKeyEnvVar)); key != "" {
		return key
	}
	return strings.TrimSpace(os.Getenv(LegacyAPIKeyEnvVar))
}

func resolveOCREngine(value string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", OCREngineTesseract:
		return OCREngineTesseract, nil
	case OCREngineVision:
		return OCREngineVision, nil
	default:
		return "", fmt.Errorf("unknown OCR_ENGINE %q (want %q or %q)", value, OCREngineTesseract, OCREngineVision)
	}
}

func durationFromEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Bare integers are accepted as seconds.
		n, nerr := strconv.Atoi(v)
		if nerr != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		d = time.Duration(n) * time.Second
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return d, nil
}

func intFromEnv(key string, defaultValue, lo, hi int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s %q: must be between %d and %d", key, v, lo, hi)
	}
	return n, nil
}

func boolFromEnv(key string) bool {
	return strings.ToLower(strings.TrimSpace(os.Getenv(key))) == "true"
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
