package workday

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type board struct {
	Scheme string
	Host   string
	Tenant string
	Site   string
	Locale string
	Root   string // public board URL, no trailing slash
}

// parseBoardURL splits a public board URL such as
// https://acme.wd5.myworkdayjobs.com/en-US/External into its parts.
func parseBoardURL(raw string) (board, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return board{}, errors.New("empty board url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return board{}, err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	if u.Host == "" {
		return board{}, fmt.Errorf("missing host in %q", raw)
	}

	parts := strings.Split(u.Hostname(), ".")
	if len(parts) < 3 {
		return board{}, fmt.Errorf("unexpected host %q", u.Host)
	}

	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) == 0 || segs[0] == "" {
		return board{}, fmt.Errorf("unexpected path %q", u.Path)
	}

	locale := ""
	if len(segs) >= 2 && looksLikeLocale(segs[0]) {
		locale = normalizeLocale(segs[0])
		segs = segs[1:]
	}

	site := segs[len(segs)-1]
	if site == "" {
		return board{}, fmt.Errorf("could not derive site from path %q", u.Path)
	}

	return board{
		Scheme: u.Scheme,
		Host:   u.Host,
		Tenant: parts[0],
		Site:   site,
		Locale: locale,
		Root:   strings.TrimRight(fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, u.Path), "/"),
	}, nil
}

func looksLikeLocale(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 5 || s[2] != '-' {
		return false
	}
	return isAlpha(s[0:2]) && isAlpha(s[3:5])
}

func normalizeLocale(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 5 && s[2] == '-' {
		return strings.ToLower(s[0:2]) + "-" + strings.ToUpper(s[3:5])
	}
	return s
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
			return false
		}
	}
	return true
}

func (b board) jobsEndpoint() string {
	return fmt.Sprintf("%s://%s/wday/cxs/%s/%s/jobs", b.Scheme, b.Host, b.Tenant, b.Site)
}

// jobURL turns a posting's externalPath into a link on the public board.
func (b board) jobURL(externalURL, externalPath string) string {
	if externalURL = strings.TrimSpace(externalURL); externalURL != "" {
		return externalURL
	}
	path := strings.TrimSpace(externalPath)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return b.Root + path
}
