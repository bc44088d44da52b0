package rewrite

import (
	"net/url"
	"testing"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q): %v", raw, err)
	}
	return u
}

func TestLink(t *testing.T) {
	base := mustParse(t, "https://example.com/docs/page.html?x=1")

	tests := []struct {
		name    string
		value   string
		rewrite bool
		want    string
		wantOK  bool
	}{
		{"absolute https untouched", "https://cdn.example.com/a.js", true, "https://cdn.example.com/a.js", false},
		{"absolute http untouched", "http://cdn.example.com/a.js", true, "http://cdn.example.com/a.js", false},
		{"protocol relative", "//cdn.example.com/a.js", true, "/proxy?url=https://cdn.example.com/a.js&rewrite=1", true},
		{"root relative", "/a.png", true, "/proxy?url=https://example.com/a.png&rewrite=1", true},
		{"root relative keeps query", "/a.png?v=2", true, "/proxy?url=https://example.com/a.png?v=2&rewrite=1", true},
		{"document relative", "img/b.png", true, "/proxy?url=https://example.com/docs/img/b.png&rewrite=1", true},
		{"parent relative", "../c.css", true, "/proxy?url=https://example.com/c.css&rewrite=1", true},
		{"query only", "?page=2", true, "/proxy?url=https://example.com/docs/page.html?page=2&rewrite=1", true},
		{"without rewrite flag", "/a.png", false, "/proxy?url=https://example.com/a.png", true},
		{"bare percent in file name", "100%.html", true, "/proxy?url=https://example.com/docs/100%25.html&rewrite=1", true},
		{"bare percent in path", "img/50%off.png", false, "/proxy?url=https://example.com/docs/img/50%25off.png", true},
		{"valid escape kept beside bare percent", "a%20b%.html", true, "/proxy?url=https://example.com/docs/a%20b%25.html&rewrite=1", true},
		{"invalid escape", "%zz", true, "/proxy?url=https://example.com/docs/%25zz&rewrite=1", true},
		{"unparsable relative untouched", ":nope", true, ":nope", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Link(tt.value, base, tt.rewrite)
			if got != tt.want {
				t.Errorf("Link(%q) = %q, want %q", tt.value, got, tt.want)
			}
			if ok != tt.wantOK {
				t.Errorf("Link(%q) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
		})
	}
}

func TestLink_AbsoluteIsIdempotent(t *testing.T) {
	base := mustParse(t, "https://example.com/")
	for _, v := range []string{"https://a.example/x?y=1#z", "http://b.example:8080/"} {
		got, _ := Link(v, base, true)
		if got != v {
			t.Errorf("Link(%q) = %q, want byte-identical", v, got)
		}
	}
}

func TestEscapeStrayPercent(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain.html", "plain.html"},
		{"100%.html", "100%25.html"},
		{"50%off", "50%25off"},
		{"a%2Fb", "a%2Fb"},
		{"tail%", "tail%25"},
		{"tail%4", "tail%254"},
	}

	for _, tt := range tests {
		if got := escapeStrayPercent(tt.in); got != tt.want {
			t.Errorf("escapeStrayPercent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOrigin(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.com/a/b", "https://example.com"},
		{"http://example.com:8080/a", "http://example.com:8080"},
		{"https://example.com:443/a", "https://example.com"},
		{"http://example.com:80/", "http://example.com"},
		{"https://example.com:80/", "https://example.com:80"},
		{"https://[::1]:443/", "https://[::1]"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := Origin(mustParse(t, tt.raw)); got != tt.want {
				t.Errorf("Origin(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
