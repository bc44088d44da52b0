package service

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"fetch-proxy/internal/model"
)

// NewProxyRequest extracts the proxy parameters from a raw query string.
//
// The first "url" and "rewrite" values drive the proxy; every other pair is
// kept, in order, to be forwarded onto the target. Pairs that fail to
// unescape are dropped, as net/url does.
func NewProxyRequest(ctx context.Context, rawQuery string, header http.Header) *model.ProxyRequest {
	pr := &model.ProxyRequest{Ctx: ctx, Header: header}

	var seenURL, seenRewrite bool
	for _, p := range parseQuery(rawQuery) {
		switch p.Key {
		case "url":
			if !seenURL {
				pr.TargetURL, seenURL = p.Value, true
			}
		case "rewrite":
			if !seenRewrite {
				pr.Rewrite, seenRewrite = p.Value == "1" || p.Value == "true", true
			}
		default:
			pr.Extra = append(pr.Extra, p)
		}
	}
	return pr
}

// parseQuery is url.ParseQuery without the map, so parameter order survives.
func parseQuery(rawQuery string) []model.QueryParam {
	var params []model.QueryParam
	for rawQuery != "" {
		var pair string
		pair, rawQuery, _ = strings.Cut(rawQuery, "&")
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			continue
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			continue
		}
		params = append(params, model.QueryParam{Key: key, Value: value})
	}
	return params
}
