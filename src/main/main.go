package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"screen-watch-llm/src/clipboard"
	"screen-watch-llm/src/config"
	"screen-watch-llm/src/eventloop"
	"screen-watch-llm/src/logutil"
	"screen-watch-llm/src/runtimeinit"
	"screen-watch-llm/src/screenshot"
	"screen-watch-llm/src/session"
	"screen-watch-llm/src/singleinstance"
	"screen-watch-llm/src/window"
)

type mainOptions struct {
	process    string
	interval   time.Duration
	imageDiff  bool
	clipboard  bool
	apiKeyPath string
	once       bool
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
		args = []string{"screen-watch-llm"}
	}

	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-watch-llm",
		Short:         "Watch a window's text and ask an LLM whenever it changes",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(loadOptionsFrom(cmd, opts), opts.once)
		},
	}

	cmd.Flags().StringVar(&opts.process, "process", "", "Process whose main window is watched (overrides TARGET_PROCESS)")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "Pause between polling cycles (overrides POLL_INTERVAL)")
	cmd.Flags().BoolVar(&opts.imageDiff, "image-diff", false, "Also trigger on pixel changes (overrides IMAGE_DIFF_ENABLED)")
	cmd.Flags().BoolVar(&opts.clipboard, "clipboard", false, "Copy each response to the clipboard (overrides COPY_TO_CLIPBOARD)")
	cmd.Flags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	cmd.Flags().BoolVar(&opts.once, "once", false, "Run a single capture and OCR cycle, print the text and exit")

	return cmd
}

// loadOptionsFrom turns explicitly set flags into config overrides.
func loadOptionsFrom(cmd *cobra.Command, opts *mainOptions) config.LoadOptions {
	lo := config.LoadOptions{
		APIKeyPathOverride:    opts.apiKeyPath,
		TargetProcessOverride: opts.process,
		PollIntervalOverride:  opts.interval,
	}
	if cmd.Flags().Changed("image-diff") {
		v := opts.imageDiff
		lo.ImageDiffOverride = &v
	}
	if cmd.Flags().Changed("clipboard") {
		v := opts.clipboard
		lo.ClipboardOverride = &v
	}
	return lo
}

func runWithOptions(loadOptions config.LoadOptions, once bool) error {
	enableDPIAwareness()

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:  loadOptions,
		SetupLogging: logutil.Setup,
	})
	if err != nil {
		return err
	}
	cfg := rt.Config

	lock, err := singleinstance.Acquire(cfg.SingleInstancePort)
	if err != nil {
		return err
	}
	defer lock.Release()

	loop := eventloop.New(eventloop.Options{
		Locator:     window.NewLocator(),
		Capturer:    screenshot.NewCapturer(),
		Extractor:   rt.Extractor,
		Detector:    rt.Detector,
		Dispatcher:  rt.Client,
		Target:      buildTarget(cfg, os.Stdout),
		ProcessName: cfg.TargetProcess,
		Interval:    cfg.PollInterval,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if once {
		state, err := loop.RunOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Print(state.Text)
		return nil
	}

	err = loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Printf("Screen watch stopped")
		return nil
	}
	return err
}

// buildTarget always reports to stdout; the clipboard is added when enabled
// and available.
func buildTarget(cfg *config.Config, stdout io.Writer) session.ResultTarget {
	stdoutTarget := session.StdoutTarget{Writer: stdout}
	if !cfg.CopyToClipboard {
		return stdoutTarget
	}
	if err := clipboard.Init(); err != nil {
		log.Printf("Warning: clipboard unavailable, responses will only be printed: %v", err)
		return stdoutTarget
	}
	return session.MultiTarget{stdoutTarget, session.ClipboardTarget{}}
}

// normalizeLegacyArgs maps single-dash long flags (-once, -process=x) to the
// double-dash form cobra expects.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	long := []string{"process", "interval", "image-diff", "clipboard", "api-key-path", "once"}
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
