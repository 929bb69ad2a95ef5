package favicon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "https", raw: "https://Go.dev/doc", want: "https://www.google.com/s2/favicons?domain=go.dev&sz=64"},
		{name: "with port", raw: "http://localhost:8080/x", want: "https://www.google.com/s2/favicons?domain=localhost&sz=64"},
		{name: "no scheme", raw: "example.com/path", want: "https://www.google.com/s2/favicons?domain=example.com&sz=64"},
		{name: "empty", raw: "", want: ""},
		{name: "garbage", raw: "http://[::1", want: ""},
		{name: "no host", raw: "http://", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, URL(tt.raw))
		})
	}
}

func TestResolver_CustomBase(t *testing.T) {
	r := NewResolver("https://icons.example/fav")
	require.Equal(t, "https://icons.example/fav?domain=a.example&sz=64", r.URL("https://a.example"))
}
