package netscape

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Entry is one bookmark of a Netscape bookmark file.
type Entry struct {
	Title   string
	URL     string
	Note    string
	Folder  string
	Tags    []string
	AddDate int64
}

// Parse reads a Netscape bookmark file. Folder holds the innermost
// enclosing folder name; nested folders are flattened.
func Parse(r io.Reader) ([]Entry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	var folders []string
	pending := ""
	last := -1

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h3":
				pending = textContent(n)
				return
			case "a":
				href := strings.TrimSpace(attr(n, "href"))
				if href == "" {
					return
				}
				entry := Entry{URL: href, Title: textContent(n)}
				if entry.Title == "" {
					entry.Title = href
				}
				if len(folders) > 0 {
					entry.Folder = folders[len(folders)-1]
				}
				if raw := attr(n, "tags"); raw != "" {
					for _, tag := range strings.Split(raw, ",") {
						if tag = strings.TrimSpace(tag); tag != "" {
							entry.Tags = append(entry.Tags, tag)
						}
					}
				}
				if ts, err := strconv.ParseInt(attr(n, "add_date"), 10, 64); err == nil {
					entry.AddDate = ts
				}
				entries = append(entries, entry)
				last = len(entries) - 1
				return
			case "dd":
				if last >= 0 && entries[last].Note == "" {
					entries[last].Note = directText(n)
				}
			case "dl":
				pushed := false
				if pending != "" {
					folders = append(folders, pending)
					pending = ""
					pushed = true
				}
				last = -1
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				if pushed {
					folders = folders[:len(folders)-1]
				}
				last = -1
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return entries, nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(b.String())
}

// directText collects a DD's text without descending into a nested list.
func directText(n *html.Node) string {
	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "dl" || c.Data == "dt") {
			break
		}
		if c.Type == html.TextNode {
			parts = append(parts, c.Data)
			continue
		}
		parts = append(parts, textContent(c))
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
