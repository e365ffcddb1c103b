package lookup_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/siwire/level"
	"github.com/nabbar/siwire/lookup"
)

func TestTableStringBoolInt(t *testing.T) {
	tb := lookup.New()
	tb.Put("Filename", "log.sil")
	tb.Put("Append", "true")
	tb.Put("Retries", "3")

	require.Equal(t, "log.sil", tb.GetString("filename", ""))
	require.True(t, tb.GetBool("APPEND", false))
	require.Equal(t, 3, tb.GetInt("retries", 0))
	require.Equal(t, "fallback", tb.GetString("missing", "fallback"))
}

func TestTableAddDoesNotOverwrite(t *testing.T) {
	tb := lookup.New()
	tb.Put("key", "first")
	tb.Add("key", "second")
	require.Equal(t, "first", tb.GetString("key", ""))
}

func TestTableLevel(t *testing.T) {
	tb := lookup.New()
	tb.Put("level", "Warning")
	require.Equal(t, level.Warning, tb.GetLevel("level", level.Message))
	require.Equal(t, level.Message, tb.GetLevel("absent", level.Message))
}

func TestTableSizeSuffixes(t *testing.T) {
	tb := lookup.New()
	tb.Put("a", "2KB")
	tb.Put("b", "1MB")
	tb.Put("c", "1GB")
	tb.Put("d", "5")

	require.Equal(t, int64(2*1024), tb.GetSize("a", 0))
	require.Equal(t, int64(1024*1024), tb.GetSize("b", 0))
	require.Equal(t, int64(1024*1024*1024), tb.GetSize("c", 0))
	require.Equal(t, int64(5*1024), tb.GetSize("d", 0))
	require.Equal(t, int64(2048*1024), tb.GetSize("missing", 2048))
}

func TestTableTimespanSuffixes(t *testing.T) {
	tb := lookup.New()
	tb.Put("a", "30s")
	tb.Put("b", "2m")
	tb.Put("c", "1h")
	tb.Put("d", "1d")

	require.Equal(t, int64(30*1000), tb.GetTimespan("a", 0))
	require.Equal(t, int64(2*60*1000), tb.GetTimespan("b", 0))
	require.Equal(t, int64(60*60*1000), tb.GetTimespan("c", 0))
	require.Equal(t, int64(24*60*60*1000), tb.GetTimespan("d", 0))
	require.Equal(t, int64(5*1000), tb.GetTimespan("missing", 5))
}

func TestTableColor(t *testing.T) {
	tb := lookup.New()
	tb.Put("color", "0xFF0000")
	c := tb.GetColor("color", lookup.DefaultColor)
	require.Equal(t, lookup.Color{R: 0xFF, G: 0, B: 0, A: 255}, c)

	tb.Put("argb", "&H80FF0000")
	c2 := tb.GetColor("argb", lookup.DefaultColor)
	require.Equal(t, lookup.Color{R: 0xFF, G: 0, B: 0, A: 0x80}, c2)
}

func TestTableRotate(t *testing.T) {
	tb := lookup.New()
	tb.Put("rotate", "daily")
	require.Equal(t, lookup.Daily, tb.GetRotate("rotate", lookup.NoRotate))
	require.Equal(t, lookup.NoRotate, tb.GetRotate("missing", lookup.NoRotate))
}

func TestTableBytesFixedLength(t *testing.T) {
	tb := lookup.New()
	tb.Put("key", "ab")
	got := tb.GetBytes("key", 4, nil)
	require.Equal(t, []byte{'a', 'b', 0, 0}, got)
}
