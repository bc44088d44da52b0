package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"fetch-proxy/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

const landingPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>fetch-proxy</title></head>
<body>
<h1>Hello!</h1>
<p>This is a proxy server, currently running normally.</p>
<p>Usage: <code>/proxy?url=&lt;target&gt;[&amp;rewrite=1]</code></p>
</body>
</html>
`

// HealthHandler serves the landing page and health/status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v}
}

// Landing returns the static informational page.
func (h *HealthHandler) Landing(c echo.Context) error {
	return c.HTML(http.StatusOK, landingPage)
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status returns proxy status information.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":         "ok",
		"version":        string(h.version),
		"rewrite_engine": h.cfg.Rewrite.Engine,
	})
}
