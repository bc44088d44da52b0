// Package service implements the core proxy forwarding logic.
package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"fetch-proxy/internal/client"
	"fetch-proxy/internal/metrics"
	"fetch-proxy/internal/model"
	"fetch-proxy/internal/rewrite"
)

// ErrMissingURL is returned when the url query parameter is absent or empty.
var ErrMissingURL = errors.New("missing url parameter")

// FetchError wraps any failure to build, send or read the upstream request.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return e.Err.Error() }

func (e *FetchError) Unwrap() error { return e.Err }

var (
	// percentEscape detects a url value that was sent already encoded.
	percentEscape = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)
	httpScheme    = regexp.MustCompile(`(?i)^https?://`)
)

// Response headers forced onto every proxied response.
var decorations = [][2]string{
	{"Cache-Control", "no-store"},
	{"Access-Control-Allow-Origin", "*"},
	{"Access-Control-Allow-Methods", "GET, POST, PUT, DELETE"},
	{"Access-Control-Allow-Headers", "*"},
}

// ProxyService fetches target URLs and transforms their responses.
type ProxyService struct {
	client   *client.UpstreamClient
	rewriter *rewrite.Rewriter
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewProxyService creates a ProxyService. The metrics parameter is optional.
func NewProxyService(c *client.UpstreamClient, rw *rewrite.Rewriter, logger *slog.Logger, m *metrics.Metrics) *ProxyService {
	return &ProxyService{
		client:   c,
		rewriter: rw,
		logger:   logger.With("component", "proxy_service"),
		metrics:  m,
	}
}

// Forward fetches pr.TargetURL and returns the transformed response.
// The caller is responsible for closing the response body.
//
// Errors are either ErrMissingURL or a *FetchError.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	if pr.TargetURL == "" {
		return nil, ErrMissingURL
	}

	target := BuildTargetURL(pr.TargetURL, pr.Extra)
	header := FilterRequestHeaders(pr.Header)

	s.logger.Debug("forwarding request",
		"target", target,
		"rewrite", pr.Rewrite,
	)

	resp, err := s.client.Get(pr.Ctx, target, header)
	if err != nil {
		return nil, &FetchError{Err: err}
	}

	DecorateResponseHeaders(resp.Header)

	if IsRedirect(resp) {
		_ = resp.Body.Close()
		resp.Body = http.NoBody
		resp.Header.Del("Content-Length")
		return resp, nil
	}

	if pr.Rewrite && IsHTML(resp.Header) {
		if err := s.rewriteBody(resp, target, pr.Rewrite); err != nil {
			return nil, &FetchError{Err: err}
		}
	}

	return resp, nil
}

// rewriteBody replaces resp.Body with the rewritten document. The original
// body is always closed.
func (s *ProxyService) rewriteBody(resp *model.ProxyResponse, target string, rewriteFlag bool) error {
	defer func() { _ = resp.Body.Close() }()

	base, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("parse target url: %w", err)
	}

	encoding := resp.Header.Get("Content-Encoding")
	out, decoded, err := s.rewriter.Rewrite(resp.Body, encoding, base, rewriteFlag)
	if err != nil {
		return fmt.Errorf("rewrite html: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RewritesTotal.WithLabelValues(s.rewriter.Engine(), metrics.NormalizeEncoding(strings.ToLower(encoding))).Inc()
	}

	resp.Header.Del("Content-Length")
	if decoded {
		resp.Header.Del("Content-Encoding")
	}
	resp.Body = io.NopCloser(bytes.NewReader(out))
	return nil
}

// BuildTargetURL turns the raw url parameter into the URL that is fetched.
//
// A value that already contains a %XX escape is taken verbatim; otherwise the
// extra query parameters are appended after the target's own query, in
// order. In both cases a missing http(s) scheme becomes https.
func BuildTargetURL(raw string, extra []model.QueryParam) string {
	target := raw
	if !percentEscape.MatchString(raw) && len(extra) > 0 {
		target = appendQuery(raw, extra)
	}
	if !httpScheme.MatchString(target) {
		target = "https://" + target
	}
	return target
}

// appendQuery appends params to the query of rawURL, keeping any fragment last.
func appendQuery(rawURL string, params []model.QueryParam) string {
	base, fragment := rawURL, ""
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		base, fragment = rawURL[:i], rawURL[i:]
	}

	var b strings.Builder
	b.WriteString(base)
	switch {
	case !strings.Contains(base, "?"):
		b.WriteByte('?')
	case !strings.HasSuffix(base, "?") && !strings.HasSuffix(base, "&"):
		b.WriteByte('&')
	}
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	b.WriteString(fragment)
	return b.String()
}

// FilterRequestHeaders copies src without the cf-* headers injected by the
// hosting edge. Everything else is forwarded untouched.
func FilterRequestHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for key, vals := range src {
		if strings.HasPrefix(strings.ToLower(key), "cf-") {
			continue
		}
		dst[key] = append([]string(nil), vals...)
	}
	return dst
}

// DecorateResponseHeaders disables caching and opens CORS on h, overriding
// whatever the upstream sent for those headers.
func DecorateResponseHeaders(h http.Header) {
	for _, kv := range decorations {
		h.Set(kv[0], kv[1])
	}
}

// IsRedirect reports whether resp is a 3xx carrying a Location header.
func IsRedirect(resp *model.ProxyResponse) bool {
	return resp.StatusCode >= 300 && resp.StatusCode < 400 && resp.Header.Get("Location") != ""
}

// IsHTML reports whether the Content-Type contains "text/html". The check is
// a plain, case-sensitive substring match.
func IsHTML(h http.Header) bool {
	return strings.Contains(h.Get("Content-Type"), "text/html")
}
