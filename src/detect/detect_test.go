package detect

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func solidPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFirstCycleNeverTriggers(t *testing.T) {
	d := New(Options{ImageDiff: true})
	for _, text := range []string{"", "Hello", "anything at all"} {
		v := d.Compare(nil, CycleState{Text: text, Snapshot: []byte("not an image")})
		assert.False(t, v.Triggered(), "first cycle must not trigger for %q", text)
		assert.Equal(t, Verdict{}, v)
	}
}

func TestTextComparison(t *testing.T) {
	tests := []struct {
		name      string
		prev, cur string
		normalize bool
		want      bool
	}{
		{name: "Empty to text", prev: "", cur: "Hello", want: true},
		{name: "Unchanged", prev: "Hello", cur: "Hello", want: false},
		{name: "Text to empty", prev: "Hello", cur: "", want: true},
		{name: "Case is significant", prev: "hello", cur: "Hello", want: true},
		{name: "Whitespace is significant", prev: "Hello world", cur: "Hello  world\n", want: true},
		{name: "Normalized whitespace", prev: "Hello world", cur: " Hello \n world ", normalize: true, want: false},
		{name: "Normalized keeps case", prev: "hello", cur: "Hello", normalize: true, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(Options{NormalizeText: tt.normalize})
			v := d.Compare(&CycleState{Text: tt.prev}, CycleState{Text: tt.cur})
			assert.Equal(t, tt.want, v.TextChanged)
			assert.Equal(t, tt.want, v.Triggered())
			assert.False(t, v.ImageChanged, "image channel is off")
		})
	}
}

func TestCompareIsIdempotent(t *testing.T) {
	d := New(Options{ImageDiff: true})
	prev := &CycleState{Text: "a", Snapshot: solidPNG(t, 4, 4, color.RGBA{A: 255})}
	cur := CycleState{Text: "b", Snapshot: solidPNG(t, 4, 4, color.RGBA{R: 255, A: 255})}

	first := d.Compare(prev, cur)
	second := d.Compare(prev, cur)
	assert.Equal(t, first, second)
	assert.Equal(t, "a", prev.Text)
}

func TestImageChannelDisabledByDefault(t *testing.T) {
	d := New(Options{})
	prev := &CycleState{Text: "same", Snapshot: solidPNG(t, 4, 4, color.RGBA{A: 255})}
	cur := CycleState{Text: "same", Snapshot: solidPNG(t, 8, 8, color.RGBA{R: 255, A: 255})}
	v := d.Compare(prev, cur)
	assert.False(t, v.ImageChanged)
	assert.False(t, v.Triggered())
}

func TestImageChannelOredIntoTrigger(t *testing.T) {
	d := New(Options{ImageDiff: true})
	prev := &CycleState{Text: "same", Snapshot: solidPNG(t, 4, 4, color.RGBA{A: 255})}
	cur := CycleState{Text: "same", Snapshot: solidPNG(t, 8, 8, color.RGBA{A: 255})}
	v := d.Compare(prev, cur)
	assert.False(t, v.TextChanged)
	assert.True(t, v.ImageChanged)
	assert.True(t, v.Triggered())
}

func TestImagesDiffer(t *testing.T) {
	black := color.RGBA{A: 255}
	tests := []struct {
		name      string
		a, b      []byte
		threshold float64
		want      bool
	}{
		{name: "Identical", a: solidPNG(t, 10, 10, black), b: solidPNG(t, 10, 10, black), threshold: 1000, want: false},
		{name: "Identical zero threshold", a: solidPNG(t, 10, 10, black), b: solidPNG(t, 10, 10, black), threshold: 0, want: false},
		{name: "Dimension mismatch", a: solidPNG(t, 10, 10, black), b: solidPNG(t, 10, 11, black), threshold: 1e12, want: true},
		{name: "Small change", a: solidPNG(t, 1, 1, black), b: solidPNG(t, 1, 1, color.RGBA{R: 200, A: 255}), threshold: 1000, want: false},
		// 100 pixels * 20 = 2000
		{name: "Large change", a: solidPNG(t, 10, 10, black), b: solidPNG(t, 10, 10, color.RGBA{G: 20, A: 255}), threshold: 1000, want: true},
		// 50 pixels * 20 = 1000, strictly greater is required
		{name: "Exactly threshold", a: solidPNG(t, 10, 5, black), b: solidPNG(t, 10, 5, color.RGBA{B: 20, A: 255}), threshold: 1000, want: false},
		{name: "Just over threshold", a: solidPNG(t, 10, 5, black), b: solidPNG(t, 10, 5, color.RGBA{B: 20, A: 255}), threshold: 999, want: true},
		{name: "Undecodable", a: []byte("junk"), b: solidPNG(t, 1, 1, black), threshold: 1000, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ImagesDiffer(tt.a, tt.b, tt.threshold))
		})
	}
}

func TestDiffSum(t *testing.T) {
	a := solidPNG(t, 2, 2, color.RGBA{R: 10, G: 10, B: 10, A: 255})
	b := solidPNG(t, 2, 2, color.RGBA{R: 15, G: 5, B: 10, A: 255})
	sum, err := DiffSum(a, b)
	require.NoError(t, err)
	// 4 pixels * (5 + 5 + 0)
	assert.Equal(t, 40.0, sum)

	_, err = DiffSum(a, solidPNG(t, 3, 3, color.RGBA{A: 255}))
	assert.Error(t, err)
}

func TestDiffSumAcrossFormats(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 3, 3))
	var bmpBuf bytes.Buffer
	require.NoError(t, bmp.Encode(&bmpBuf, gray))

	black := solidPNG(t, 3, 3, color.RGBA{A: 255})
	sum, err := DiffSum(bmpBuf.Bytes(), black)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sum)
}

func TestThresholdOption(t *testing.T) {
	assert.Equal(t, DefaultThreshold, New(Options{}).Threshold())

	zero := 0.0
	d := New(Options{ImageDiff: true, Threshold: &zero})
	assert.Equal(t, 0.0, d.Threshold())

	// 10x10 pixels * 5 = 500, below the default but above zero.
	prev := &CycleState{Text: "same", Snapshot: solidPNG(t, 10, 10, color.RGBA{A: 255})}
	cur := CycleState{Text: "same", Snapshot: solidPNG(t, 10, 10, color.RGBA{R: 5, A: 255})}
	assert.True(t, d.Compare(prev, cur).ImageChanged)
	assert.False(t, New(Options{ImageDiff: true}).Compare(prev, cur).ImageChanged)
}

func TestDiffSumIgnoresAlpha(t *testing.T) {
	encode := func(c color.NRGBA) []byte {
		img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		img.SetNRGBA(0, 0, c)
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, img))
		return buf.Bytes()
	}

	sum, err := DiffSum(encode(color.NRGBA{R: 200, A: 128}), encode(color.NRGBA{R: 100, A: 128}))
	require.NoError(t, err)
	assert.Equal(t, 100.0, sum)

	sum, err = DiffSum(encode(color.NRGBA{G: 50, A: 10}), encode(color.NRGBA{G: 50, A: 255}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, sum)
}
