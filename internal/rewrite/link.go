package rewrite

import (
	"net/url"
	"strings"
)

// proxyPrefix is the path every rewritten link points back to.
const proxyPrefix = "/proxy?url="

// Link rewrites a single src/href value found in a document fetched from base.
// The second result is false when the value is left as it is.
//
//	https://cdn.example/x.js  -> unchanged
//	//cdn.example/x.js        -> /proxy?url=https://cdn.example/x.js
//	/img/a.png                -> /proxy?url=<origin of base>/img/a.png
//	img/a.png                 -> /proxy?url=<img/a.png resolved against base>
//
// When rewrite is set, "&rewrite=1" is appended so that documents reached
// through a rewritten link are rewritten as well.
func Link(value string, base *url.URL, rewrite bool) (string, bool) {
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return value, false
	}

	var target string
	switch {
	case strings.HasPrefix(value, "//"):
		target = "https:" + value
	case strings.HasPrefix(value, "/"):
		target = Origin(base) + value
	default:
		ref, err := base.Parse(value)
		if err != nil {
			// Browsers accept a bare %, as in "100%.html"; net/url does not.
			if ref, err = base.Parse(escapeStrayPercent(value)); err != nil {
				return value, false
			}
		}
		target = ref.String()
	}

	link := proxyPrefix + target
	if rewrite {
		link += "&rewrite=1"
	}
	return link, true
}

// Origin returns scheme://host[:port] of u, omitting the port when it is the
// scheme's default.
func Origin(u *url.URL) string {
	host := u.Host
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		host = u.Hostname()
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
	}
	return u.Scheme + "://" + host
}

// escapeStrayPercent rewrites every % that does not start a %XX escape as %25.
func escapeStrayPercent(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && (i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2])) {
			b.WriteString("%25")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
