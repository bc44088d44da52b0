// Package model defines shared types for the proxy.
package model

import (
	"context"
	"io"
	"net/http"
)

// QueryParam is a single decoded query parameter. Order matters when extra
// parameters are merged onto the target URL, so they are kept as a slice
// rather than url.Values.
type QueryParam struct {
	Key   string
	Value string
}

// ProxyRequest is a framework-independent view of an inbound /proxy call.
type ProxyRequest struct {
	Ctx       context.Context
	TargetURL string
	Rewrite   bool
	Header    http.Header
	Extra     []QueryParam
}

// ProxyResponse represents the upstream response to be streamed back.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
