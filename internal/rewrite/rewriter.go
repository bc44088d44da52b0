// Package rewrite turns resource links inside proxied HTML documents into
// links that route back through the proxy.
package rewrite

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"fetch-proxy/internal/config"
)

// attrPattern matches a quoted src or href attribute. It is a textual match,
// so it also fires inside scripts, comments and attributes like data-src.
var attrPattern = regexp.MustCompile(`(src|href)=["']([^"']+)["']`)

// Rewriter rewrites src/href attributes of HTML documents with the engine
// chosen in config: "regex" substitutes matches in place and leaves all other
// bytes alone, "dom" parses the document and re-serializes it.
type Rewriter struct {
	engine string
}

// New creates a Rewriter for cfg.Rewrite.Engine.
func New(cfg *config.Config) *Rewriter {
	return NewWithEngine(cfg.Rewrite.Engine)
}

// NewWithEngine creates a Rewriter for the named engine. Unknown names fall
// back to the regex engine.
func NewWithEngine(engine string) *Rewriter {
	if engine != config.EngineDOM {
		engine = config.EngineRegex
	}
	return &Rewriter{engine: engine}
}

// Engine returns the engine name in use.
func (r *Rewriter) Engine() string {
	return r.engine
}

// Rewrite reads the whole body, decoding it first according to
// contentEncoding, and returns the rewritten document. decoded reports
// whether a content coding was removed, in which case the caller must drop
// its Content-Encoding header.
func (r *Rewriter) Rewrite(body io.Reader, contentEncoding string, base *url.URL, rewrite bool) (out []byte, decoded bool, err error) {
	rc, decoded, err := NewDecoder(body, contentEncoding)
	if err != nil {
		return nil, false, fmt.Errorf("decode body: %w", err)
	}
	defer func() { _ = rc.Close() }()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, fmt.Errorf("read body: %w", err)
	}

	return r.HTML(raw, base, rewrite), decoded, nil
}

// HTML rewrites every src/href value in doc using Link.
func (r *Rewriter) HTML(doc []byte, base *url.URL, rewrite bool) []byte {
	if r.engine == config.EngineDOM {
		if out, err := rewriteDOM(doc, base, rewrite); err == nil {
			return out
		}
	}
	return rewriteRegex(doc, base, rewrite)
}

func rewriteRegex(doc []byte, base *url.URL, rewrite bool) []byte {
	return attrPattern.ReplaceAllFunc(doc, func(match []byte) []byte {
		sub := attrPattern.FindSubmatch(match)
		link, ok := Link(string(sub[2]), base, rewrite)
		if !ok {
			return match
		}
		out := make([]byte, 0, len(sub[1])+len(link)+3)
		out = append(out, sub[1]...)
		out = append(out, `="`...)
		out = append(out, link...)
		return append(out, '"')
	})
}

func rewriteDOM(doc []byte, base *url.URL, rewrite bool) ([]byte, error) {
	d, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	for _, attr := range []string{"src", "href"} {
		d.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			v, _ := s.Attr(attr)
			if v == "" {
				return
			}
			if link, ok := Link(v, base, rewrite); ok {
				s.SetAttr(attr, link)
			}
		})
	}

	out, err := d.Html()
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return []byte(out), nil
}
