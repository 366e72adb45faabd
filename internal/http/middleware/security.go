// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// SecurityHeaders hardens the JSON API's responses. The baseline headers are
// always on; HSTS, cache suppression, and the browser feature policies are
// opt-in because their value depends on how the service is deployed. There is
// no Content-Security-Policy here: the API serves JSON, not HTML.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions selects the optional header groups.
//
// EnableHSTS emits Strict-Transport-Security, and only on requests that
// actually arrived over HTTPS. Turn it on only when the path from client to
// app is HTTPS end to end, proxy hop included. HSTSMaxAge is the advertised
// lifetime; a zero or negative value falls back to 180 days.
//
// NoStore adds Cache-Control: no-store (with the legacy Pragma/Expires pair)
// so journal content is never held in shared caches.
//
// EnablePolicy adds Permissions-Policy and X-Permitted-Cross-Domain-Policies.
// Both only matter to browsers and are inert for other clients.
type SecurityOptions struct {
	EnableHSTS   bool
	HSTSMaxAge   time.Duration
	NoStore      bool
	EnablePolicy bool
}

// SecurityHeaders returns a Gin middleware attaching the configured security
// headers to every response.
//
// Always set:
//
//	X-Content-Type-Options: nosniff
//	X-Frame-Options: DENY
//	Referrer-Policy: no-referrer
//
// When a request id is already on the response, it is also listed in
// Access-Control-Expose-Headers so browser clients can read it back for
// support correlation. Safe to combine with CORS and the loggers.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		// Never advertise HSTS on a plain-HTTP request.
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security",
				"max-age="+itoa(maxAge)+"; includeSubDomains; preload")
		}

		if rid := h.Get("X-Request-ID"); rid != "" {
			// append without clobbering headers exposed upstream
			const hdr = "Access-Control-Expose-Headers"
			cur := h.Get(hdr)
			if cur == "" {
				h.Set(hdr, "X-Request-ID")
			} else if !strings.Contains(cur, "X-Request-ID") {
				h.Set(hdr, cur+", X-Request-ID")
			}
		}

		c.Next()
	}
}

// isHTTPS reports whether the request was HTTPS, either terminated here
// (r.TLS set) or at a proxy that recorded X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func itoa(i int) string { return strconv.Itoa(i) }
