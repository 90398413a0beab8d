// Package scrape provides the small HTML-traversal helpers shared by the
// YFull and FTDNA scrapers, on top of golang.org/x/net/html.
package scrape

import (
	"strings"

	"golang.org/x/net/html"
)

// Find returns the first element in the subtree matching the predicate,
// depth-first.
func Find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := Find(c, match); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns all elements in the subtree matching the predicate,
// depth-first. Matched elements are not descended into.
func FindAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	if n.Type == html.ElementNode && match(n) {
		return []*html.Node{n}
	}
	var found []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		found = append(found, FindAll(c, match)...)
	}
	return found
}

// Child returns the first direct child element matching the predicate.
func Child(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}
	}
	return nil
}

// Tag matches elements by tag name.
func Tag(name string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Data == name }
}

// ID matches elements by their id attribute.
func ID(id string) func(*html.Node) bool {
	return func(n *html.Node) bool { return Attr(n, "id") == id }
}

// Class matches elements carrying the given class.
func Class(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		for _, field := range strings.Fields(Attr(n, "class")) {
			if field == class {
				return true
			}
		}
		return false
	}
}

// Attr returns the value of the named attribute, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// Text returns the concatenated text content of the subtree.
func Text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
