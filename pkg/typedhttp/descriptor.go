package typedhttp

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Package typedhttp turns declarative request descriptors into decoded,
// strongly-typed values over an injected HTTP transport.

const (
	defaultPort   = 80
	defaultScheme = "http"
)

// Descriptor is an immutable value fully describing one outbound HTTP call.
// Construct one per call; a descriptor is never mutated by the client.
type Descriptor struct {
	// Scheme overrides the derived scheme ("http", or "https" when Port is 443).
	Scheme string
	Host   string
	// Port defaults to 80 when zero.
	Port int
	Path string
	// Method defaults to GET when empty.
	Method string
	// Query is appended to the URL as an encoded query string.
	Query map[string]string
	// Header holds extra request headers beyond the cookie/bearer shortcuts.
	Header map[string]string
	// CookieHeader, when set, is sent verbatim as the Cookie header.
	CookieHeader string
	// BearerToken, when set, is sent as "Authorization: Bearer <token>".
	BearerToken string
	// Body and ContentType apply to write methods; both may be empty.
	Body        []byte
	ContentType string
	// Label is an optional caller-chosen identifier echoed on call reports.
	Label string
}

// URL assembles the full request URL. An error marks the descriptor invalid.
func (d Descriptor) URL() (string, error) {
	host := strings.TrimSpace(d.Host)
	if host == "" {
		return "", fmt.Errorf("descriptor host is empty")
	}
	if strings.ContainsAny(host, "/?# ") {
		return "", fmt.Errorf("descriptor host %q is malformed", host)
	}

	port := d.Port
	if port <= 0 {
		port = defaultPort
	}

	scheme := strings.TrimSpace(strings.ToLower(d.Scheme))
	if scheme == "" {
		scheme = defaultScheme
		if port == 443 {
			scheme = "https"
		}
	}
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("descriptor scheme %q is unsupported", d.Scheme)
	}

	hostport := host
	if !isDefaultPort(scheme, port) {
		hostport = host + ":" + strconv.Itoa(port)
	}

	path := d.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	u := url.URL{
		Scheme: scheme,
		Host:   hostport,
		Path:   path,
	}

	if len(d.Query) > 0 {
		q := url.Values{}
		for k, v := range d.Query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	built := u.String()
	parsed, err := url.Parse(built)
	if err != nil {
		return "", fmt.Errorf("descriptor does not form a valid URL: %w", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("descriptor URL %q has no host", built)
	}

	return built, nil
}

func isDefaultPort(scheme string, port int) bool {
	return (scheme == "http" && port == 80) || (scheme == "https" && port == 443)
}

// method returns the effective request method.
func (d Descriptor) method() string {
	m := strings.ToUpper(strings.TrimSpace(d.Method))
	if m == "" {
		return http.MethodGet
	}
	return m
}

// headers materializes the full header map for the transport.
func (d Descriptor) headers() map[string]string {
	out := make(map[string]string, len(d.Header)+3)
	for k, v := range d.Header {
		out[k] = v
	}
	if d.CookieHeader != "" {
		out["Cookie"] = d.CookieHeader
	}
	if d.BearerToken != "" {
		out["Authorization"] = "Bearer " + d.BearerToken
	}
	if d.ContentType != "" {
		out["Content-Type"] = d.ContentType
	}
	return out
}
