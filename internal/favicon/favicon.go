package favicon

import (
	"net/url"
	"strconv"
	"strings"
)

const DefaultBase = "https://www.google.com/s2/favicons"

const Size = 64

// Resolver derives favicon image URLs from bookmark URLs.
type Resolver struct {
	base string
}

func NewResolver(base string) *Resolver {
	base = strings.TrimSpace(base)
	if base == "" {
		base = DefaultBase
	}
	return &Resolver{base: base}
}

// URL returns the favicon service URL for raw, or "" when raw has no
// usable host. Callers render a fallback glyph for "".
func (r *Resolver) URL(raw string) string {
	host := Host(raw)
	if host == "" {
		return ""
	}
	params := url.Values{}
	params.Set("domain", host)
	params.Set("sz", strconv.Itoa(Size))
	return r.base + "?" + params.Encode()
}

// Host extracts the hostname of a bookmark URL. Scheme-less input such as
// "example.com/x" is accepted.
func Host(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

var defaultResolver = NewResolver("")

func URL(raw string) string {
	return defaultResolver.URL(raw)
}
