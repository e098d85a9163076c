package gate

import (
	"errors"
	"log/slog"
	"net/http"

	"ebauth/cmd/internal/auth/authn"
)

// Challenge is the WWW-Authenticate value sent with denials.
const Challenge = `Basic realm="Authentication Required"`

const deniedBody = "Could not verify your access privilege for that URL.\n"

// CredentialsFunc extracts the credential carrier from a request.
type CredentialsFunc func(*http.Request) authn.Credentials

// Middleware applies g to every request. Allowed requests continue with the
// identity in their context (see IdentityFrom). Denials get a 401 basic-auth
// challenge; store failures get a 503.
func (g Gate) Middleware(r Resolver, creds CredentialsFunc, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			id, err := g.Authorize(req.Context(), r, creds(req))
			if err != nil {
				if errors.Is(err, ErrDenied) {
					log.InfoContext(req.Context(), "gate.denied", "path", req.URL.Path, "required", g.String())
					WriteDenied(w)
					return
				}
				log.ErrorContext(req.Context(), "gate.resolve.fail", "path", req.URL.Path, "err", err)
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"error":{"code":"store_unavailable","message":"credential store unavailable"}}` + "\n"))
				return
			}
			next.ServeHTTP(w, req.WithContext(WithIdentity(req.Context(), id)))
		})
	}
}

// WriteDenied renders the access-denied response.
func WriteDenied(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", Challenge)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(deniedBody))
}
