package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"screen-watch-llm/src/config"
	"screen-watch-llm/src/detect"
	"screen-watch-llm/src/runtimeinit"
	"screen-watch-llm/src/session"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

type cliOptions struct {
	prevPath   string
	curPath    string
	jsonOutput bool
	verbose    bool
	dispatch   bool
	imageDiff  bool
	apiKeyPath string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"screen-watch-cli"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-watch-cli",
		Short:         "Run one detection cycle offline on two saved snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var imageDiff *bool
			if cmd.Flags().Changed("image-diff") {
				imageDiff = &opts.imageDiff
			}
			return runWithOptions(*opts, imageDiff, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&opts.prevPath, "prev", "", "PNG snapshot from the previous cycle (use '-' for stdin)")
	cmd.Flags().StringVar(&opts.curPath, "cur", "", "PNG snapshot from the current cycle (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().BoolVar(&opts.dispatch, "dispatch", false, "Send the current text to the model when a change is detected")
	cmd.Flags().BoolVar(&opts.imageDiff, "image-diff", false, "Enable the pixel comparison channel (overrides IMAGE_DIFF_ENABLED)")
	cmd.Flags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	_ = cmd.MarkFlagRequired("prev")
	_ = cmd.MarkFlagRequired("cur")

	return cmd
}

func runWithOptions(opts cliOptions, imageDiff *bool, stdout io.Writer) error {
	// Configure logging BEFORE any other operations.
	setupLogging := func(bool) {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		if opts.verbose {
			log.SetOutput(os.Stderr)
		} else {
			log.SetOutput(io.Discard)
		}
	}

	if opts.prevPath == "-" && opts.curPath == "-" {
		return fmt.Errorf("only one of --prev and --cur may read from stdin")
	}

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:  config.LoadOptions{APIKeyPathOverride: opts.apiKeyPath, ImageDiffOverride: imageDiff},
		SetupLogging: setupLogging,
	})
	if err != nil {
		return err
	}

	prev, err := readSnapshot(opts.prevPath)
	if err != nil {
		return err
	}
	cur, err := readSnapshot(opts.curPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	start := time.Now()
	prevState := detect.CycleState{Text: rt.Extractor.Extract(ctx, prev), Snapshot: prev}
	curState := detect.CycleState{Text: rt.Extractor.Extract(ctx, cur), Snapshot: cur}
	verdict := rt.Detector.Compare(&prevState, curState)
	log.Printf("Compared snapshots in %v: %+v", time.Since(start), verdict)

	result := CompareResult{
		PrevText:     prevState.Text,
		CurText:      curState.Text,
		TextChanged:  verdict.TextChanged,
		ImageChanged: verdict.ImageChanged,
		Triggered:    verdict.Triggered(),
	}

	if opts.dispatch && verdict.Triggered() {
		res, err := rt.Client.Query(ctx, curState.Text)
		if err != nil {
			return fmt.Errorf("dispatch failed: %w", err)
		}
		result.Response = res.Body
		if !opts.jsonOutput {
			if err := (session.StdoutTarget{Writer: stdout}).OnSuccess(res); err != nil {
				return err
			}
		}
	}

	return outputResult(result, opts.jsonOutput, stdout)
}

func readSnapshot(path string) ([]byte, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(io.LimitReader(os.Stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", path, err)
		}
	}

	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input %s exceeds maximum size of %d MB", path, maxFileSizeMB)
	}
	if err := validatePNG(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

func validatePNG(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("input file is empty")
	}
	if len(data) < len(pngMagic) || !bytes.Equal(data[:len(pngMagic)], pngMagic) {
		return fmt.Errorf("input is not a valid PNG file (invalid magic number)")
	}
	return nil
}

type CompareResult struct {
	PrevText     string `json:"prev_text"`
	CurText      string `json:"cur_text"`
	TextChanged  bool   `json:"text_changed"`
	ImageChanged bool   `json:"image_changed"`
	Triggered    bool   `json:"triggered"`
	Response     string `json:"response,omitempty"`
}

func outputResult(result CompareResult, jsonOutput bool, w io.Writer) error {
	if jsonOutput {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		return nil
	}

	_, err := fmt.Fprintf(w, "text_changed=%v image_changed=%v triggered=%v\n",
		result.TextChanged, result.ImageChanged, result.Triggered)
	return err
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	long := []string{"prev", "cur", "json", "verbose", "dispatch", "image-diff", "api-key-path"}
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range long {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}
