// Package authapi exposes the user API over HTTP: token issuance and user
// administration, each behind a privilege gate.
package authapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ebauth/cmd/identity"
	"ebauth/cmd/internal/auth/authn"
	"ebauth/cmd/internal/auth/directory"
	"ebauth/cmd/internal/auth/gate"
)

// Handler wires the user API endpoints to the resolver and directory.
type Handler struct {
	log *slog.Logger
	cfg Config

	resolver  *authn.Resolver
	directory *directory.Service
}

// NewHandler constructs a Handler.
func NewHandler(log *slog.Logger, cfg Config, resolver *authn.Resolver, dir *directory.Service) (*Handler, error) {
	if resolver == nil {
		return nil, errors.New("authapi: nil resolver")
	}
	if dir == nil {
		return nil, errors.New("authapi: nil directory")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		log:       log,
		cfg:       cfg.normalize(),
		resolver:  resolver,
		directory: dir,
	}, nil
}

// Routes returns the user API router, meant to be mounted at /api/user.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Timeout(h.cfg.RequestTimeout))
	r.Use(h.parseForm)

	authenticated := gate.Authenticated().Middleware(h.resolver, CredentialsFromRequest, h.log)
	admin := gate.Admin().Middleware(h.resolver, CredentialsFromRequest, h.log)

	r.With(authenticated).Post("/token", h.handleToken)
	r.With(admin).Post("/add", h.handleAdd)
	r.With(admin).Post("/delete", h.handleDelete)
	return r
}

// Register mounts the user API onto r.
func (h *Handler) Register(r chi.Router) {
	if h == nil || r == nil {
		return
	}
	r.Mount("/api/user", h.Routes())
}

// ---- handlers ----

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	id := gate.IdentityFrom(r.Context())

	res, err := h.resolver.GetToken(r.Context(), &id, authn.None())
	if err != nil {
		h.log.ErrorContext(r.Context(), "authapi.token.fail", "user", id.User, "err", err)
		writeError(w, http.StatusInternalServerError, "token_failed", "could not issue token")
		return
	}
	if res.Token != nil {
		h.event(r, EventTokenIssued, id, id.User)
	}
	writeJSON(w, http.StatusOK, envelope{Identity: id, API: apiUser, Action: actionToken, Data: res})
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	id := gate.IdentityFrom(r.Context())

	in := directory.AddUserInput{
		User:       formField(r, fieldUser),
		Password:   formField(r, fieldPassword),
		Privileges: privilegesField(r),
	}
	res, err := h.directory.AddUser(r.Context(), in)
	switch {
	case err == nil:
		h.event(r, EventUserAdded, id, res.User, "privileges", res.Privileges)
	case directory.IsInputError(err):
		var target string
		if in.User != nil {
			target = *in.User
		}
		h.event(r, EventAddRejected, id, target, "reason", err.Error())
	}
	h.writeAdmin(w, r, actionAdd, id, res, err)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := gate.IdentityFrom(r.Context())

	res, err := h.directory.DeleteUser(r.Context(), directory.DeleteUserInput{User: formField(r, fieldUser)})
	if err == nil {
		h.event(r, EventUserDeleted, id, res.User)
	}
	h.writeAdmin(w, r, actionDelete, id, res, err)
}

// writeAdmin renders an administration result. Input errors travel inside a
// 200 envelope as {"error": msg}; store failures are a 503.
func (h *Handler) writeAdmin(w http.ResponseWriter, r *http.Request, action string, id identity.Identity, data any, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, envelope{Identity: id, API: apiUser, Action: action, Data: data})
	case directory.IsInputError(err):
		writeJSON(w, http.StatusOK, envelope{Identity: id, API: apiUser, Action: action, Data: errorData{Error: err.Error()}})
	case identity.IsUnavailable(err):
		h.log.ErrorContext(r.Context(), "authapi.store.fail", "action", action, "err", err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "credential store unavailable")
	default:
		h.log.ErrorContext(r.Context(), "authapi.internal", "action", action, "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
