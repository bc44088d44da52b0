package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"

	"fetch-proxy/internal/middleware"
	"fetch-proxy/internal/service"
)

// Client-facing error messages.
const (
	msgMissingURL  = "missing url parameter"
	msgProxyFailed = "proxy request failed"
)

// ProxyHandler serves GET /proxy by forwarding to the url query parameter.
type ProxyHandler struct {
	service *service.ProxyService
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle fetches the requested target and streams the transformed response back.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()
	pr := service.NewProxyRequest(req.Context(), req.URL.RawQuery, req.Header)

	resp, err := h.service.Forward(pr)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	out := c.Response().Header()
	for key, vals := range resp.Header {
		if middleware.IsHopByHop(key) {
			continue
		}
		// Upstream values replace anything set by middleware, e.g. X-Request-Id.
		out.Del(key)
		for _, v := range vals {
			out.Add(key, v)
		}
	}
	c.Response().WriteHeader(resp.StatusCode)

	// The status is already on the wire, so a failed copy (client gone,
	// upstream reset) can only truncate the body; it is logged, not mapped.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"status", resp.StatusCode,
		)
	}
	return nil
}

// Preflight answers CORS preflight requests for /proxy.
func (h *ProxyHandler) Preflight(c echo.Context) error {
	service.DecorateResponseHeaders(c.Response().Header())
	return c.NoContent(http.StatusNoContent)
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	if errors.Is(err, service.ErrMissingURL) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": msgMissingURL,
		})
	}

	h.logger.Error("proxy error",
		"err", err,
		"reason", failureReason(err),
	)

	return c.JSON(http.StatusBadGateway, map[string]string{
		"error":  msgProxyFailed,
		"detail": err.Error(),
	})
}

// failureReason classifies upstream failures for logs. Every class maps to
// the same 502 response.
func failureReason(err error) string {
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return "client_disconnected"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &dnsErr):
		return "dns"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "truncated"
	default:
		return "upstream"
	}
}
