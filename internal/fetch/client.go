// Package fetch is the HTTP retrieval capability every source uses: one GET
// or POST with custom headers, a hard timeout and manual redirect following.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; jobradar/1.0; +https://github.com/jobradar/jobradar)"
	maxRedirects     = 5
	maxBody          = 16 << 20
)

var (
	ErrStatus            = errors.New("unexpected status")
	ErrTooManyRedirects  = errors.New("too many redirects")
	errMissingLocation   = errors.New("redirect without location")
	errUnsupportedScheme = errors.New("unsupported url scheme")
)

// StatusError carries the upstream status. It matches ErrStatus with errors.Is.
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d body=%s", e.URL, e.Code, truncate(e.Body, 200))
}

func (e *StatusError) Is(target error) bool { return target == ErrStatus }

type Options struct {
	Timeout   time.Duration
	UserAgent string
	Limiter   *HostLimiter
	Transport http.RoundTripper
}

type Client struct {
	hc        *http.Client
	timeout   time.Duration
	userAgent string
	limiter   *HostLimiter
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Client{
		hc: &http.Client{
			Transport: opts.Transport,
			// redirects are followed by hand so every hop is rate limited
			// and keeps our headers
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		limiter:   opts.Limiter,
	}
}

// Request describes one retrieval. Method defaults to GET.
type Request struct {
	Method string
	URL    string
	Header map[string]string
	Body   []byte
}

// Text performs a GET and returns the body as a string.
func (c *Client) Text(ctx context.Context, rawURL string, header map[string]string) (string, error) {
	b, err := c.Do(ctx, Request{URL: rawURL, Header: header})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Do performs the request, following up to five redirects. The timeout
// covers the whole chain.
func (c *Client) Do(ctx context.Context, r Request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	body := r.Body
	target := r.URL

	for hop := 0; ; hop++ {
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("parse url %q: %w", target, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("%w: %q", errUnsupportedScheme, target)
		}

		if err := c.limiter.WaitURL(ctx, target); err != nil {
			return nil, err
		}

		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, rd)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		for k, v := range r.Header {
			req.Header.Set(k, v)
		}

		res, err := c.hc.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, target, err)
		}

		if isRedirect(res.StatusCode) {
			loc := res.Header.Get("Location")
			_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))
			res.Body.Close()

			if loc == "" {
				return nil, fmt.Errorf("%s %s: %w", method, target, errMissingLocation)
			}
			if hop >= maxRedirects {
				return nil, fmt.Errorf("%s %s: %w", method, r.URL, ErrTooManyRedirects)
			}
			next, err := u.Parse(loc)
			if err != nil {
				return nil, fmt.Errorf("bad redirect location %q: %w", loc, err)
			}
			target = next.String()
			// 301/302/303 downgrade to a body-less GET, like browsers do
			if res.StatusCode != http.StatusTemporaryRedirect && res.StatusCode != http.StatusPermanentRedirect {
				method = http.MethodGet
				body = nil
			}
			continue
		}

		data, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
		res.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", target, err)
		}
		if res.StatusCode < 200 || res.StatusCode > 299 {
			return nil, &StatusError{Code: res.StatusCode, URL: target, Body: string(data)}
		}
		return data, nil
	}
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
