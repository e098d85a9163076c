package authapi

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"ebauth/cmd/identity"
)

// Log events emitted for successful or rejected user API actions.
const (
	EventTokenIssued = "authapi.token.issued"
	EventUserAdded   = "authapi.user.added"
	EventUserDeleted = "authapi.user.deleted"
	EventAddRejected = "authapi.user.add_rejected"
)

// event logs one user API action with the caller's address.
func (h *Handler) event(r *http.Request, msg string, actor identity.Identity, target string, attrs ...any) {
	base := []any{
		"actor", actor.User,
		"target", target,
	}
	if ip := clientIP(r, h.cfg.TrustProxy); ip != nil {
		base = append(base, "ip", ip.String())
	}
	if ua := strings.TrimSpace(r.UserAgent()); ua != "" {
		base = append(base, "user_agent", ua)
	}
	h.log.Log(r.Context(), slog.LevelInfo, msg, append(base, attrs...)...)
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for p := range strings.SplitSeq(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
