package rewrite

import (
	"bytes"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"fetch-proxy/internal/config"
)

func TestRewriter_Regex(t *testing.T) {
	base := mustParse(t, "https://example.com")
	r := NewWithEngine(config.EngineRegex)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "root relative img",
			in:   `<img src="/a.png">`,
			want: `<img src="/proxy?url=https://example.com/a.png&rewrite=1">`,
		},
		{
			name: "single quotes become double",
			in:   `<link href='/s.css' rel=stylesheet>`,
			want: `<link href="/proxy?url=https://example.com/s.css&rewrite=1" rel=stylesheet>`,
		},
		{
			name: "absolute untouched",
			in:   `<a href="https://other.example/">x</a>`,
			want: `<a href="https://other.example/">x</a>`,
		},
		{
			name: "protocol relative",
			in:   `<script src="//cdn.example/x.js"></script>`,
			want: `<script src="/proxy?url=https://cdn.example/x.js&rewrite=1"></script>`,
		},
		{
			name: "relative",
			in:   `<img src="img/x.png">`,
			want: `<img src="/proxy?url=https://example.com/img/x.png&rewrite=1">`,
		},
		{
			name: "other markup untouched",
			in:   `<p class="a">hi</p><img alt='/x' src="/y">`,
			want: `<p class="a">hi</p><img alt='/x' src="/proxy?url=https://example.com/y&rewrite=1">`,
		},
		{
			name: "empty value not matched",
			in:   `<img src="">`,
			want: `<img src="">`,
		},
		{
			name: "unquoted value not matched",
			in:   `<img src=/a.png>`,
			want: `<img src=/a.png>`,
		},
		{
			name: "textual match inside data-src",
			in:   `<img data-src="/lazy.png">`,
			want: `<img data-src="/proxy?url=https://example.com/lazy.png&rewrite=1">`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(r.HTML([]byte(tt.in), base, true))
			if got != tt.want {
				t.Errorf("HTML() =\n  %s\nwant\n  %s", got, tt.want)
			}
		})
	}
}

func TestRewriter_RegexPreservesNonUTF8(t *testing.T) {
	base := mustParse(t, "https://example.com")
	r := NewWithEngine(config.EngineRegex)

	in := []byte("<p>\xff\xfe</p><img src=\"/a.png\">")
	got := r.HTML(in, base, true)

	if !bytes.HasPrefix(got, []byte("<p>\xff\xfe</p>")) {
		t.Errorf("non-UTF8 bytes were altered: %q", got)
	}
	if !bytes.Contains(got, []byte(`src="/proxy?url=https://example.com/a.png&rewrite=1"`)) {
		t.Errorf("link not rewritten: %q", got)
	}
}

func TestRewriter_DOM(t *testing.T) {
	base := mustParse(t, "https://example.com/dir/")
	r := NewWithEngine(config.EngineDOM)

	in := `<html><head><link href="/s.css"></head><body>` +
		`<img src="a.png"><a href="https://x.example/">x</a><script src="//cdn.example/j.js"></script>` +
		`</body></html>`

	out := r.HTML([]byte(in), base, true)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}

	tests := []struct {
		selector string
		attr     string
		want     string
	}{
		{"link", "href", "/proxy?url=https://example.com/s.css&rewrite=1"},
		{"img", "src", "/proxy?url=https://example.com/dir/a.png&rewrite=1"},
		{"a", "href", "https://x.example/"},
		{"script", "src", "/proxy?url=https://cdn.example/j.js&rewrite=1"},
	}
	for _, tt := range tests {
		got, _ := doc.Find(tt.selector).Attr(tt.attr)
		if got != tt.want {
			t.Errorf("%s[%s] = %q, want %q", tt.selector, tt.attr, got, tt.want)
		}
	}
}

func TestNewWithEngine_UnknownFallsBackToRegex(t *testing.T) {
	if got := NewWithEngine("xslt").Engine(); got != config.EngineRegex {
		t.Errorf("Engine() = %q, want %q", got, config.EngineRegex)
	}
	cfg := &config.Config{Rewrite: config.RewriteConfig{Engine: config.EngineDOM}}
	if got := New(cfg).Engine(); got != config.EngineDOM {
		t.Errorf("Engine() = %q, want %q", got, config.EngineDOM)
	}
}

func TestRewriter_Rewrite_Identity(t *testing.T) {
	base := mustParse(t, "https://example.com")
	r := NewWithEngine(config.EngineRegex)

	out, decoded, err := r.Rewrite(strings.NewReader(`<img src="/a.png">`), "", base, true)
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if decoded {
		t.Error("decoded = true, want false for identity body")
	}
	want := `<img src="/proxy?url=https://example.com/a.png&rewrite=1">`
	if string(out) != want {
		t.Errorf("Rewrite() = %q, want %q", out, want)
	}
}
