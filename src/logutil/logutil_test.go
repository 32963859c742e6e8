package logutil

import (
	"bytes"
	"testing"
)

func TestRedactKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: "(unset)"},
		{in: "short", want: "********"},
		{in: "gsk_1234567890abcd", want: "gsk_...abcd"},
	}
	for _, tt := range tests {
		if got := RedactKey(tt.in); got != tt.want {
			t.Errorf("RedactKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{name: "Plain", in: "hello", maxLen: 10, want: "hello"},
		{name: "Newlines", in: "a\nb\r\tc", maxLen: 10, want: `a\nb\n\tc`},
		{name: "Control", in: "a\x07b", maxLen: 10, want: "a?b"},
		{name: "Truncated", in: "abcdef", maxLen: 3, want: "abc..."},
		{name: "Unlimited", in: "abcdef", maxLen: 0, want: "abcdef"},
		{name: "Runes", in: "héllo", maxLen: 2, want: "hé..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in, tt.maxLen); got != tt.want {
				t.Fatalf("Sanitize(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestWriterWithoutFileLogging(t *testing.T) {
	var buf bytes.Buffer
	w := writer(&buf, false)
	if _, err := w.Write([]byte("line\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if buf.String() != "line\n" {
		t.Fatalf("Expected console output, got %q", buf.String())
	}
}
