package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	tag, ok := ParseTag("design")
	require.True(t, ok)
	require.Equal(t, TagDesign, tag)

	tag, ok = ParseTag("  ")
	require.True(t, ok)
	require.Equal(t, TagNone, tag)

	_, ok = ParseTag("Music")
	require.False(t, ok)
}

func TestTagPalette(t *testing.T) {
	palette := TagPalette()
	require.Len(t, palette, 6)
	require.Equal(t, TagDev, palette[0].Name)
	require.Equal(t, "#3B82F6", palette[0].Color)
	for _, item := range palette {
		require.True(t, item.Name.Valid())
		require.NotEmpty(t, item.Color)
	}
	require.False(t, Tag("All").Valid())
}
