package netscape

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><H3>Dev</H3>
    <DL><p>
        <DT><A HREF="https://go.dev" ADD_DATE="1700000000" TAGS="Dev,golang">Go</A>
        <DD>The Go site
        <DT><A HREF="https://pkg.go.dev">pkg</A>
    </DL><p>
    <DT><A HREF="https://example.com">Example</A>
    <DT><A HREF="">broken</A>
    <DT><A HREF="https://untitled.example"></A>
</DL><p>
`

func TestParse(t *testing.T) {
	entries, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, entries, 4)

	require.Equal(t, "Go", entries[0].Title)
	require.Equal(t, "https://go.dev", entries[0].URL)
	require.Equal(t, "Dev", entries[0].Folder)
	require.Equal(t, []string{"Dev", "golang"}, entries[0].Tags)
	require.Equal(t, int64(1700000000), entries[0].AddDate)
	require.Equal(t, "The Go site", entries[0].Note)

	require.Equal(t, "pkg", entries[1].Title)
	require.Equal(t, "Dev", entries[1].Folder)
	require.Empty(t, entries[1].Note)

	require.Equal(t, "Example", entries[2].Title)
	require.Empty(t, entries[2].Folder)

	// empty anchor text falls back to the URL
	require.Equal(t, "https://untitled.example", entries[3].Title)
}

func TestWriteThenParse(t *testing.T) {
	in := []Entry{
		{Title: "Go", URL: "https://go.dev", Folder: "Dev", Tags: []string{"Dev"}, AddDate: 1700000000, Note: "the *Go* site"},
		{Title: "A & B", URL: "https://a.example/?x=1&y=2", AddDate: 1700000100},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))
	out := buf.String()
	require.Contains(t, out, "<!DOCTYPE NETSCAPE-Bookmark-file-1>")
	require.Contains(t, out, "<DT><H3>Dev</H3>")
	require.Contains(t, out, `TAGS="Dev"`)
	require.Contains(t, out, "<em>Go</em>")
	require.Contains(t, out, "A &amp; B</A>")

	parsed, err := Parse(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	require.Equal(t, "Go", parsed[0].Title)
	require.Equal(t, "Dev", parsed[0].Folder)
	require.Equal(t, "the Go site", parsed[0].Note)
	require.Equal(t, "A & B", parsed[1].Title)
	require.Equal(t, "https://a.example/?x=1&y=2", parsed[1].URL)
	require.Equal(t, int64(1700000100), parsed[1].AddDate)
}
