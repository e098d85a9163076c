// Package directory implements the user administration operations over the
// credential store: add a user and delete a user.
//
// Both are single-shot. addUser's existence check is backed by the store's
// conditional Create, so two concurrent adds of one user yield one success and
// one AlreadyExistsError; the first digest is never overwritten.
package directory

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"ebauth/cmd/identity"
	"ebauth/cmd/internal/metrics"
	"ebauth/cmd/internal/tenant"
	"ebauth/cmd/security/password"
)

// AddUserInput mirrors the submitted form; nil means the field was absent.
type AddUserInput struct {
	User       *string
	Password   *string
	Privileges *string // comma-separated
}

// AddUserResult is the success payload of AddUser.
type AddUserResult struct {
	User       string   `json:"user"`
	Privileges []string `json:"privileges"`
}

// DeleteUserInput mirrors the submitted form.
type DeleteUserInput struct {
	User *string
}

// DeleteUserResult is the success payload of DeleteUser.
type DeleteUserResult struct {
	User string `json:"user"`
}

// Service administers the directory of one service.
type Service struct {
	service string
	store   identity.Store
	hasher  *password.Hasher
	now     func() time.Time
	log     *slog.Logger
}

// New wires a Service for cfg.Name. log may be nil.
func New(cfg tenant.Config, store identity.Store, hasher *password.Hasher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		service: cfg.Name,
		store:   store,
		hasher:  hasher,
		now:     time.Now,
		log:     log,
	}
}

// AddUser creates a directory row.
//
// Checks run in order: user present, user not already stored, password
// present, password policy. Input problems come back as MissingFieldError,
// AlreadyExistsError or InvalidFieldError; store failures as identity.StoreError.
func (s *Service) AddUser(ctx context.Context, in AddUserInput) (AddUserResult, error) {
	res, err := s.addUser(ctx, in)
	metrics.AdminOperationsTotal.WithLabelValues("add", resultLabel(err)).Inc()
	return res, err
}

func (s *Service) addUser(ctx context.Context, in AddUserInput) (AddUserResult, error) {
	if in.User == nil || strings.TrimSpace(*in.User) == "" {
		return AddUserResult{}, MissingFieldError{Field: "user"}
	}
	user := *in.User

	switch _, err := s.store.Get(ctx, s.service, user); {
	case err == nil:
		return AddUserResult{}, AlreadyExistsError{User: user}
	case !identity.IsNotFound(err):
		return AddUserResult{}, err
	}

	if in.Password == nil {
		return AddUserResult{}, MissingFieldError{Field: "password"}
	}
	if err := s.hasher.Validate(*in.Password); err != nil {
		return AddUserResult{}, InvalidFieldError{Field: "password", Reason: err}
	}

	privs := ParsePrivileges(in.Privileges)

	salt, err := s.hasher.NewSalt()
	if err != nil {
		return AddUserResult{}, err
	}
	digest, err := s.hasher.Digest(*in.Password, salt)
	if err != nil {
		return AddUserResult{}, err
	}

	err = s.store.Create(ctx, identity.StoredCredential{
		Service:        s.service,
		User:           user,
		PasswordDigest: digest,
		Salt:           salt,
		Privileges:     privs,
		CreatedAt:      s.now().UTC(),
	})
	if identity.IsConflict(err) {
		// Lost a race with a concurrent add between Get and Create.
		return AddUserResult{}, AlreadyExistsError{User: user}
	}
	if err != nil {
		return AddUserResult{}, err
	}

	s.log.InfoContext(ctx, "directory.user.added", "service", s.service, "user", user, "privileges", privs)
	return AddUserResult{User: user, Privileges: slices.Clone(privs)}, nil
}

// DeleteUser removes a directory row. Deleting an absent user succeeds.
func (s *Service) DeleteUser(ctx context.Context, in DeleteUserInput) (DeleteUserResult, error) {
	res, err := s.deleteUser(ctx, in)
	metrics.AdminOperationsTotal.WithLabelValues("delete", resultLabel(err)).Inc()
	return res, err
}

func (s *Service) deleteUser(ctx context.Context, in DeleteUserInput) (DeleteUserResult, error) {
	if in.User == nil || strings.TrimSpace(*in.User) == "" {
		return DeleteUserResult{}, MissingFieldError{Field: "user"}
	}
	user := *in.User

	if err := s.store.Delete(ctx, s.service, user); err != nil {
		return DeleteUserResult{}, err
	}

	s.log.InfoContext(ctx, "directory.user.deleted", "service", s.service, "user", user)
	return DeleteUserResult{User: user}, nil
}

// ParsePrivileges splits a comma-separated list, trimming entries and dropping
// empties and duplicates. Absent or empty input yields ["user"].
func ParsePrivileges(raw *string) []string {
	if raw == nil {
		return []string{identity.PrivilegeUser}
	}
	var out []string
	for p := range strings.SplitSeq(*raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return []string{identity.PrivilegeUser}
	}
	return out
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsInputError(err):
		return "rejected"
	default:
		return "error"
	}
}
