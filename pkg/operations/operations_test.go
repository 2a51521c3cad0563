package operations_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yi-nology/mediaedge/pkg/operations"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw     string
		width   int
		height  int
		format  string
		quality int
	}{
		{"", 0, 0, "", 0},
		{"x", 0, 0, "", 0},
		{"width", 0, 0, "", 0},
		{"width=", 0, 0, "", 0},
		{"width=abc", 0, 0, "", 0},
		{"width=0", 0, 0, "", 0},
		{"width=-5", 0, 0, "", 0},
		{"width=100", 100, 0, "", 0},
		{"width=100px", 100, 0, "", 0},
		{"height=50", 0, 50, "", 0},
		{"width=100,height=50", 100, 50, "", 0},
		{"format=webp,quality=50", 0, 0, "webp", 50},
		{"format,quality=50", 0, 0, "", 50},
		{"FOO=BAR,width=1,BAR=foo,format=png", 1, 0, "png", 0},
		{"width=1,width=2", 2, 0, "", 0},
	}

	for _, tt := range tests {
		set := operations.Parse(tt.raw)

		w, _ := set.Width()
		h, _ := set.Height()
		f, _ := set.Format()
		q, _ := set.Quality()
		if w != tt.width || h != tt.height || f != tt.format || q != tt.quality {
			t.Errorf("Parse(%q) = width %d height %d format %q quality %d, want %d %d %q %d",
				tt.raw, w, h, f, q, tt.width, tt.height, tt.format, tt.quality)
		}
	}
}

func TestParseValueLessToken(t *testing.T) {
	set := operations.Parse("format,width=10")

	v, ok := set.Lookup(operations.Format)
	require.True(t, ok)
	require.False(t, v.Present)

	_, ok = set.Format()
	require.False(t, ok, "value-less token behaves like an absent option")
	require.Equal(t, 2, set.Len())
}

func TestParseIgnoresUnrecognizedKeys(t *testing.T) {
	set := operations.Parse("rotate=90,blur=3")
	require.Zero(t, set.Len())
	require.Equal(t, "rotate=90,blur=3", set.Raw())
}

func TestParseSplitsOnFirstEquals(t *testing.T) {
	set := operations.Parse("format=webp=x")
	f, ok := set.Format()
	require.True(t, ok)
	require.Equal(t, "webp=x", f)
}

func TestQuery(t *testing.T) {
	set := operations.Parse("width=100,format=webp,quality=50")
	require.Equal(t, "width=100&format=webp&quality=50", set.Query())
	require.Equal(t, "", operations.Parse("").Query())
}
