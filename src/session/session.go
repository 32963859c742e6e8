package session

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"screen-watch-llm/src/clipboard"
	"screen-watch-llm/src/llm"
)

// ResultTarget receives the outcome of each dispatch.
type ResultTarget interface {
	OnSuccess(res llm.Result) error
	OnFailure(err error) error
}

// StdoutTarget prints one line per outcome.
type StdoutTarget struct {
	Writer io.Writer
}

func (t StdoutTarget) writer() io.Writer {
	if t.Writer == nil {
		return os.Stdout
	}
	return t.Writer
}

func (t StdoutTarget) OnSuccess(res llm.Result) error {
	_, err := fmt.Fprintf(t.writer(), "Text response: %s\n", strings.TrimRight(res.Body, "\n"))
	return err
}

func (t StdoutTarget) OnFailure(err error) error {
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		_, werr := fmt.Fprintf(t.writer(), "Error: %d\n", statusErr.Code)
		return werr
	}
	_, werr := fmt.Fprintf(t.writer(), "Error: %v\n", err)
	return werr
}

// ClipboardTarget copies the model's answer to the system clipboard. When the
// body is not a chat completion the raw body is copied instead.
type ClipboardTarget struct{}

func (ClipboardTarget) OnSuccess(res llm.Result) error {
	text := res.Content
	if text == "" {
		text = res.Body
	}
	return clipboard.Write(text)
}

func (ClipboardTarget) OnFailure(err error) error {
	return nil
}

// MultiTarget fans out to several targets. Every target is called; the first
// error is returned.
type MultiTarget []ResultTarget

func (m MultiTarget) OnSuccess(res llm.Result) error {
	var first error
	for _, t := range m {
		if err := t.OnSuccess(res); err != nil {
			log.Printf("result target %T failed: %v", t, err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func (m MultiTarget) OnFailure(err error) error {
	var first error
	for _, t := range m {
		if terr := t.OnFailure(err); terr != nil && first == nil {
			first = terr
		}
	}
	return first
}
