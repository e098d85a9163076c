package authapi

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"ebauth/cmd/internal/auth/authn"
)

// parseForm bounds and parses the request body once, before any gate reads
// credentials out of it.
func (h *Handler) parseForm(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
		}
		if err := h.readForm(r); err != nil {
			if bodyTooLarge(err) {
				writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid_form", "invalid form body")
			return
		}
		if r.MultipartForm != nil {
			defer func() { _ = r.MultipartForm.RemoveAll() }()
		}
		next.ServeHTTP(w, r)
	})
}

// readForm fills r.PostForm from an urlencoded or multipart body.
func (h *Handler) readForm(r *http.Request) error {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "multipart/form-data" {
		return r.ParseForm()
	}
	return r.ParseMultipartForm(h.cfg.MaxBodyBytes)
}

func bodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return true
	}
	// multipart.Reader does not always wrap the reader error.
	return err != nil && strings.Contains(err.Error(), "request body too large")
}

// CredentialsFromRequest picks the credential carrier: a "token" form field
// wins over basic auth; neither yields None.
func CredentialsFromRequest(r *http.Request) authn.Credentials {
	if tok := formField(r, fieldToken); tok != nil {
		return authn.FormToken(*tok)
	}
	if user, pw, ok := r.BasicAuth(); ok {
		return authn.BasicAuth(user, pw)
	}
	return authn.None()
}

// formField returns the first body value of name, or nil when the field is
// absent. A present but empty field is "".
func formField(r *http.Request, name string) *string {
	if r.PostForm == nil {
		_ = r.ParseForm()
	}
	vs, ok := r.PostForm[name]
	if !ok || len(vs) == 0 {
		return nil
	}
	v := vs[0]
	return &v
}

func privilegesField(r *http.Request) *string {
	if p := formField(r, fieldPrivileges); p != nil {
		return p
	}
	return formField(r, fieldPrivilegesLegacy)
}
