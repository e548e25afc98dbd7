// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils provides the HTTP plumbing shared by the geocoding
// providers, the page fetchers and the remote API client.
package httputils

import (
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httputil"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// BrowserUserAgent is sent when fetching pages meant for browsers. Share
// link hosts serve a stripped page to unknown agents.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ClientOptions configures NewClient.
type ClientOptions struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	// Trace receives a dump of every request and response when not nil.
	Trace     io.Writer
	TraceBody bool
	// CookieTTL enables a cookie jar whose session cookies expire after the
	// given duration.
	CookieTTL time.Duration
}

// NewClient builds an *http.Client with the round trippers requested by opts.
func NewClient(opts ClientOptions) *http.Client {
	var transport http.RoundTripper = http.DefaultTransport

	headers := make(map[string]string, len(opts.Headers)+1)
	for k, v := range opts.Headers {
		headers[k] = v
	}

	if opts.UserAgent != "" {
		headers["User-Agent"] = opts.UserAgent
	}

	if len(headers) > 0 {
		transport = &AppendRequestHeadersRoundTripper{Transport: transport, Headers: headers}
	}

	if opts.Trace != nil {
		transport = &LoggingRoundTripper{Transport: transport, Writer: opts.Trace, DumpBody: opts.TraceBody}
	}

	client := &http.Client{Transport: transport, Timeout: opts.Timeout}

	if opts.CookieTTL > 0 {
		jar, _ := cookiejar.New(nil) // never fails with nil options
		client.Jar = &EnforceExpirationCookieJar{Target: jar, Duration: opts.CookieTTL}
	}

	return client
}

/////////////////////////////////////////
/// RoundTrippers

// LoggingRoundTripper adds a very primitive logging to a http transaction.
type LoggingRoundTripper struct {
	Transport http.RoundTripper
	Writer    io.Writer
	DumpBody  bool
}

var secretsRegex = regexp.MustCompile(`(?i)((?:authorization|x-api-key):\s*)[^\r\n]+|([?&]key=)[^\s&]+`)

// reduce the content of the lines.
func abbreviate(lines []string, prefix rune) []string {
	const maxLines, maxChars = 2048, 512

	for i, line := range lines {
		if i >= maxLines {
			break
		}

		line = secretsRegex.ReplaceAllString(line, "${1}${2}<redacted>")
		lines[i] = fmt.Sprintf("%c %s", prefix, line)
	}

	if len(lines) > maxLines {
		lines = lines[:maxLines]
		lines = append(lines, "…")
	}

	for i, line := range lines {
		if len(line) > maxChars {
			lines[i] = line[0:maxChars] + "…"
		}
	}

	return lines
}

func (t *LoggingRoundTripper) dumpRequest(req *http.Request) error {
	dump, err := httputil.DumpRequestOut(req, t.DumpBody)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines := abbreviate(strings.Split(string(dump), "\n"), '>')
	lines = append(lines, "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

func (t *LoggingRoundTripper) dumpResponse(resp *http.Response, duration time.Duration) error {
	dump, err := httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return fmt.Errorf("tracing HTTP response: %w", err)
	}

	lines := abbreviate(strings.Split(string(dump), "\n"), '<')

	_, err = fmt.Fprintf(t.Writer, "< RESPONSE: [%v]\n", duration)
	if err != nil {
		return fmt.Errorf("tracing HTTP response: %w", err)
	}

	lines = append(lines, "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

// RoundTrip implements the http.RoundTripper interface.
func (t *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Writer == nil {
		return t.Transport.RoundTrip(req)
	}

	if err := t.dumpRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		fmt.Fprintf(t.Writer, "< ERROR: [%v] %v\n", time.Since(start), err)

		return nil, err
	}

	if err := t.dumpResponse(resp, time.Since(start)); err != nil {
		resp.Body.Close()

		return nil, err
	}

	return resp, nil
}

// AppendRequestHeadersRoundTripper adds headers to the request. Headers
// already present on the request win.
type AppendRequestHeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *AppendRequestHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())

	for k, v := range t.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	return t.Transport.RoundTrip(req)
}

////////////////////////////////////////////////////

// EnforceExpirationCookieJar wraps a cookie jar, enforcing expiration dates
// on session cookies.
type EnforceExpirationCookieJar struct {
	Target   *cookiejar.Jar
	Duration time.Duration
}

// SetCookies sets the cookies.
func (t *EnforceExpirationCookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	now := time.Now()

	for _, cookie := range cookies {
		if cookie.Expires.IsZero() && cookie.MaxAge == 0 {
			cookie.Expires = now.Add(t.Duration)
		}
	}

	t.Target.SetCookies(u, cookies)
}

// Cookies returns the cookies.
func (t *EnforceExpirationCookieJar) Cookies(u *url.URL) []*http.Cookie {
	return t.Target.Cookies(u)
}
