package metadata

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"parish/pkg/requestcontext"
)

// ClientMetadata stores the client IP, the raw User-Agent and a parsed device
// label in the context for audit events.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), ua)
		ctx = requestcontext.WithDevice(ctx, DeviceFromUserAgent(ua))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceFromUserAgent summarises a User-Agent as "<browser> <version> on <os>",
// with a "(mobile)" suffix for handsets. Crawlers are reported as "bot" and an
// empty header yields "".
func DeviceFromUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	ua := useragent.New(raw)
	if ua.Bot() {
		return "bot"
	}
	name, version := ua.Browser()
	label := strings.TrimSpace(name + " " + version)
	if platform := ua.OS(); platform != "" {
		label += " on " + platform
	}
	if ua.Mobile() {
		label += " (mobile)"
	}
	if label == "" {
		return "unknown"
	}
	return label
}

// ClientIPFromRequest extracts the client IP, preferring proxy headers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For is "client, proxy1, proxy2"
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}
	return "unknown"
}
