// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides utility functions for working with HTML.
package htmlutils

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ErrNoTitle is returned by Title when the document has no usable <title>.
var ErrNoTitle = errors.New("document has no title")

// Node2string appends the whitespace-normalized text of n to sb.
func Node2string(n *html.Node, sb *strings.Builder) (err error) {
	if n.Type == html.TextNode {
		tmp := strings.Join(strings.Fields(n.Data), " ")

		// a REPLACEMENT CHARACTER (U+FFFD) means the page was decoded
		// with the wrong charset
		if strings.ContainsRune(tmp, utf8.RuneError) {
			return fmt.Errorf("charset mismatch found: `%s'", tmp)
		}

		if len(tmp) > 0 {
			if sb.Len() != 0 {
				sb.WriteByte(' ')
			}

			sb.WriteString(tmp)
		}

		return nil
	}

	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return nil
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if err = Node2string(child, sb); err != nil {
			break
		}
	}

	return err
}

// Validates that response seems to be an HTML response.
func hasHTMLContentType(media string) bool {
	const expectedMedia = "text/html"

	return strings.EqualFold(
		expectedMedia,
		media[0:min(len(media), len(expectedMedia))],
	)
}

// AsReader converts an HTTP response body to an io.Reader with the correct charset.
func AsReader(resp *http.Response) (io.Reader, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	media := resp.Header.Get("Content-Type")
	if !hasHTMLContentType(media) {
		return nil, fmt.Errorf("media type is %s", media)
	}

	rr, err := charset.NewReader(resp.Body, media)
	if err != nil {
		return nil, err
	}

	return rr, nil
}

// ReadString reads a whole HTML response as UTF-8 text, capped at limit bytes.
func ReadString(resp *http.Response, limit int64) (string, error) {
	r, err := AsReader(resp)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(r, limit)); err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}

	return buf.String(), nil
}

// AsNode parses an io.Reader as an HTML node.
func AsNode(r io.Reader) (*html.Node, error) {
	n, err := html.Parse(r)
	if nil != err {
		return nil, fmt.Errorf("parsing body as HTML: %w", err)
	}

	return n, nil
}

// Attr returns the value of the key attribute of n, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}

	return ""
}

// Find returns, in document order, every element node for which match holds.
func Find(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var found []*html.Node

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			found = append(found, n)
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)

	return found
}

// Title returns the text of the first <title> element.
func Title(n *html.Node) (string, error) {
	for _, t := range Find(n, func(n *html.Node) bool { return strings.EqualFold(n.Data, "title") }) {
		sb := strings.Builder{}
		if err := Node2string(t, &sb); err != nil {
			return "", err
		}

		if s := sb.String(); s != "" {
			return s, nil
		}
	}

	return "", ErrNoTitle
}

// MetaContent returns the content of the first <meta> whose name or
// property equals name.
func MetaContent(n *html.Node, name string) string {
	metas := Find(n, func(n *html.Node) bool {
		return strings.EqualFold(n.Data, "meta") &&
			(strings.EqualFold(Attr(n, "name"), name) || strings.EqualFold(Attr(n, "property"), name))
	})
	if len(metas) == 0 {
		return ""
	}

	return Attr(metas[0], "content")
}
