// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/htlee1999/food-map/spatial"
	"github.com/htlee1999/food-map/utils/htmlutils"
	"golang.org/x/net/html"
)

const coord = `(-?\d+\.?\d*)`

var (
	atSignRegex    = regexp.MustCompile(`@` + coord + `,` + coord)
	dataPairRegex  = regexp.MustCompile(`!3d` + coord + `!4d` + coord)
	latLngRegex    = regexp.MustCompile(`^\s*` + coord + `\s*,\s*` + coord + `\s*$`)
	metaPairRegex  = regexp.MustCompile(`^\s*` + coord + `\s*[;,]\s*` + coord + `\s*$`)
	googleSuffixRe = regexp.MustCompile(`\s+-\s+Google Maps$`)
)

func parsePoint(lat, lng string) (spatial.Point, bool) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return spatial.Point{}, false
	}

	ln, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return spatial.Point{}, false
	}

	p := spatial.Point{Lat: la, Lng: ln}

	return p, p.Valid()
}

func submatchPoint(re *regexp.Regexp, s string) (spatial.Point, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return spatial.Point{}, false
	}

	return parsePoint(m[1], m[2])
}

// urlMatcher looks for a location in the link itself.
type urlMatcher struct {
	name  string
	match func(u *url.URL, bounds spatial.BoundingBox) *Result
}

// coordinate matchers are checked against the bounding box; a pair outside
// of it is a non-match.
func coordinateMatcher(name string, find func(u *url.URL) (spatial.Point, bool)) urlMatcher {
	return urlMatcher{
		name: name,
		match: func(u *url.URL, bounds spatial.BoundingBox) *Result {
			p, ok := find(u)
			if !ok || !bounds.Contains(p) {
				return nil
			}

			return Coordinates(p, name)
		},
	}
}

var urlCoordinateMatchers = []urlMatcher{
	// /maps/place/Name/@1.2804,103.8448,17z
	coordinateMatcher("url_at_sign", func(u *url.URL) (spatial.Point, bool) {
		return submatchPoint(atSignRegex, u.Path)
	}),
	// ?ll=1.2804,103.8448
	coordinateMatcher("url_ll_param", func(u *url.URL) (spatial.Point, bool) {
		return submatchPoint(latLngRegex, u.Query().Get("ll"))
	}),
	// ?data=...!3d1.2804!4d103.8448 or a /data=... path segment
	coordinateMatcher("url_data_param", func(u *url.URL) (spatial.Point, bool) {
		if p, ok := submatchPoint(dataPairRegex, u.Query().Get("data")); ok {
			return p, true
		}

		for _, seg := range strings.Split(u.Path, "/") {
			if strings.HasPrefix(seg, "data=") {
				return submatchPoint(dataPairRegex, seg)
			}
		}

		return spatial.Point{}, false
	}),
}

// queryMatcher reads q= (or query= as used by the Maps URLs API). A value
// that is itself a lat,lng pair is taken as coordinates.
var queryMatcher = urlMatcher{
	name: "url_q_param",
	match: func(u *url.URL, bounds spatial.BoundingBox) *Result {
		params := u.Query()

		for _, key := range []string{"q", "query"} {
			v := strings.TrimSpace(params.Get(key))
			if v == "" {
				continue
			}

			if p, ok := submatchPoint(latLngRegex, v); ok {
				if bounds.Contains(p) {
					return Coordinates(p, "url_q_param")
				}

				continue
			}

			return Address(v, "url_q_param")
		}

		return nil
	},
}

// placeName returns the decoded /place/<name>/ path segment.
func placeName(u *url.URL) string {
	parts := strings.Split(u.Path, "/")
	for i, p := range parts {
		if p == "place" && i+1 < len(parts) {
			return strings.TrimSpace(strings.ReplaceAll(parts[i+1], "+", " "))
		}
	}

	return ""
}

// separators split "name — location" place names.
var separators = []string{"—", "–", "|", " in "}

// TrailingLocation returns the text after the last separator of name, if
// any.
func TrailingLocation(name string) (string, bool) {
	best, bestLen := -1, 0

	for _, sep := range separators {
		if i := strings.LastIndex(name, sep); i > best {
			best, bestLen = i, len(sep)
		}
	}

	if best <= 0 {
		return "", false
	}

	loc := strings.TrimSpace(name[best+bestLen:])

	return loc, loc != ""
}

// Page is a fetched share link target.
type Page struct {
	// URL is the final URL, after redirects.
	URL  string
	HTML string

	node    *html.Node
	nodeErr error
	parsed  bool
}

// Node parses the page once.
func (p *Page) Node() (*html.Node, error) {
	if !p.parsed {
		p.node, p.nodeErr = htmlutils.AsNode(strings.NewReader(p.HTML))
		p.parsed = true
	}

	return p.node, p.nodeErr
}

// htmlMatcher looks for coordinates embedded in a fetched page.
type htmlMatcher struct {
	name string
	find func(p *Page) (spatial.Point, bool)
}

func regexMatcher(name, expr string) htmlMatcher {
	re := regexp.MustCompile(expr)

	return htmlMatcher{
		name: name,
		find: func(p *Page) (spatial.Point, bool) {
			return submatchPoint(re, p.HTML)
		},
	}
}

var htmlMatchers = []htmlMatcher{
	regexMatcher("html_center", `"center":\s*\[`+coord+`,\s*`+coord+`\]`),
	regexMatcher("html_lat_lng", `"lat":\s*`+coord+`,\s*"lng":\s*`+coord),
	regexMatcher("html_data_attrs", `data-lat="`+coord+`"[^>]*data-lng="`+coord+`"`),
	regexMatcher("html_app_state", `window\.APP_INITIALIZATION_STATE.*?\[`+coord+`,`+coord+`\]`),
	regexMatcher("html_data_pair", `!3d`+coord+`!4d`+coord),
	regexMatcher("html_zoom_pair", `\[`+coord+`,\s*`+coord+`\].*?zoom`),
	regexMatcher("html_at_sign", `"@`+coord+`,`+coord+`,\d+z"`),
	{name: "html_meta_geo", find: metaGeoPosition},
	regexMatcher("html_json_ld", `"geo":\s*\{[^}]*?"latitude":\s*"?`+coord+`"?,\s*"longitude":\s*"?`+coord),
	{name: "html_microdata", find: microdataPosition},
}

func metaGeoPosition(p *Page) (spatial.Point, bool) {
	n, err := p.Node()
	if err != nil {
		return spatial.Point{}, false
	}

	for _, name := range []string{"geo.position", "ICBM"} {
		if pt, ok := submatchPoint(metaPairRegex, htmlutils.MetaContent(n, name)); ok {
			return pt, true
		}
	}

	return spatial.Point{}, false
}

func microdataPosition(p *Page) (spatial.Point, bool) {
	n, err := p.Node()
	if err != nil {
		return spatial.Point{}, false
	}

	value := func(prop string) string {
		nodes := htmlutils.Find(n, func(n *html.Node) bool {
			return strings.EqualFold(htmlutils.Attr(n, "itemprop"), prop)
		})
		if len(nodes) == 0 {
			return ""
		}

		if c := htmlutils.Attr(nodes[0], "content"); c != "" {
			return c
		}

		sb := strings.Builder{}
		_ = htmlutils.Node2string(nodes[0], &sb)

		return sb.String()
	}

	return parsePoint(value("latitude"), value("longitude"))
}

// pageTitle returns the page title without the map-service suffix. Titles
// that do not name a place are rejected.
func pageTitle(p *Page) (string, bool) {
	n, err := p.Node()
	if err != nil {
		return "", false
	}

	title, err := htmlutils.Title(n)
	if err != nil {
		return "", false
	}

	title = strings.TrimSpace(googleSuffixRe.ReplaceAllString(title, ""))

	switch {
	case title == "", strings.EqualFold(title, "Google Maps"):
		return "", false
	case strings.HasPrefix(title, "Before you continue"):
		// consent wall
		return "", false
	}

	return title, true
}
