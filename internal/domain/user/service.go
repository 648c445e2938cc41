package user

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/heartcare/heartcare/internal/domain/audit"
	"github.com/heartcare/heartcare/internal/platform/auth"
	"github.com/heartcare/heartcare/internal/platform/db"
	"github.com/heartcare/heartcare/pkg/apperr"
	"github.com/heartcare/heartcare/pkg/pagination"
)

const auditTable = "users"

const minPasswordLen = 8

// Service manages accounts and credentials. Account mutations and their
// audit entries commit in one transaction.
type Service struct {
	repo     Repository
	recorder audit.Recorder
	hasher   auth.PasswordHasher
	issuer   *auth.TokenIssuer
	patients PatientCounter
	tx       db.TxRunner
}

func NewService(repo Repository, recorder audit.Recorder, hasher auth.PasswordHasher,
	issuer *auth.TokenIssuer, patients PatientCounter, tx db.TxRunner) *Service {
	return &Service{repo: repo, recorder: recorder, hasher: hasher,
		issuer: issuer, patients: patients, tx: tx}
}

// Authenticate checks credentials and returns the user with a session
// token. Unknown username, wrong password, and disabled account all
// yield the same error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, string, error) {
	u, err := s.repo.GetActiveByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, "", apperr.Auth("invalid username or password")
		}
		return nil, "", err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, "", apperr.Auth("invalid username or password")
	}

	token, err := s.issuer.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return nil, "", apperr.Storage("issue session token", err)
	}

	// Best effort; a failed timestamp update must not block the login.
	if err := s.repo.UpdateLastLogin(ctx, u.ID); err != nil {
		log.Warn().Err(err).Str("username", u.Username).Msg("failed to update last login")
	}

	return u, token, nil
}

// CreateInput carries a new staff account. The API never creates admins.
type CreateInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (in CreateInput) validate() error {
	var bad []string
	if strings.TrimSpace(in.Username) == "" {
		bad = append(bad, "username")
	}
	if strings.TrimSpace(in.Email) == "" || !strings.Contains(in.Email, "@") {
		bad = append(bad, "email")
	}
	if len(in.Password) < minPasswordLen {
		bad = append(bad, "password")
	}
	if strings.TrimSpace(in.FullName) == "" {
		bad = append(bad, "full_name")
	}
	if len(bad) > 0 {
		return apperr.Validation("missing or invalid fields", bad...)
	}
	return nil
}

// Create registers a staff account and writes its CREATE audit entry.
func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Storage("hash password", err)
	}

	u := &User{
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		Role:         RoleStaff,
		IsActive:     true,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Insert(ctx, u); err != nil {
			return err
		}
		return s.recorder.Record(ctx, audit.ActionCreate, auditTable, u.ID.String(), nil, u.Snapshot())
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateInput carries an account edit. The role is immutable; a blank
// password leaves the current one in place.
type UpdateInput struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsActive *bool  `json:"is_active"`
	Password string `json:"password"`
}

// Update edits an account and writes the UPDATE audit entry with before
// and after snapshots.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*User, error) {
	old, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var bad []string
	if strings.TrimSpace(in.Email) == "" || !strings.Contains(in.Email, "@") {
		bad = append(bad, "email")
	}
	if strings.TrimSpace(in.FullName) == "" {
		bad = append(bad, "full_name")
	}
	if in.Password != "" && len(in.Password) < minPasswordLen {
		bad = append(bad, "password")
	}
	if len(bad) > 0 {
		return nil, apperr.Validation("missing or invalid fields", bad...)
	}

	updated := *old
	updated.Email = strings.TrimSpace(in.Email)
	updated.FullName = strings.TrimSpace(in.FullName)
	if in.IsActive != nil {
		updated.IsActive = *in.IsActive
	}
	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, apperr.Storage("hash password", err)
		}
		updated.PasswordHash = hash
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, &updated); err != nil {
			return err
		}
		return s.recorder.Record(ctx, audit.ActionUpdate, auditTable, updated.ID.String(),
			old.Snapshot(), updated.Snapshot())
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an account. Accounts that still own patient records,
// and the caller's own account, are protected.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if auth.UserIDFromContext(ctx) == id {
		return apperr.Conflict("cannot delete your own account")
	}

	old, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if old.Role == RoleAdmin {
		return apperr.Conflict("cannot delete an admin account")
	}

	// The ownership count reads through the delete transaction, so a
	// patient created concurrently cannot slip past the guard and lose
	// its owner.
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		n, err := s.patients.CountByOwner(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("user still owns patient records")
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.recorder.Record(ctx, audit.ActionDelete, auditTable, old.ID.String(),
			old.Snapshot(), nil)
	})
}

// List returns all accounts newest first.
func (s *Service) List(ctx context.Context, p pagination.Params) ([]User, int, error) {
	return s.repo.List(ctx, p)
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// ProfileInput carries a self-service profile edit.
type ProfileInput struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// UpdateProfile lets the acting user edit their own contact details.
func (s *Service) UpdateProfile(ctx context.Context, in ProfileInput) (*User, error) {
	return s.Update(ctx, auth.UserIDFromContext(ctx), UpdateInput{
		Email:    in.Email,
		FullName: in.FullName,
	})
}

// ChangePassword rotates the acting user's password after verifying the
// current one.
func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	u, err := s.repo.GetByID(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	if !s.hasher.Verify(u.PasswordHash, current) {
		return apperr.Auth("current password is incorrect")
	}
	if len(next) < minPasswordLen {
		return apperr.Validation("password too short", "password")
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return apperr.Storage("hash password", err)
	}

	old := *u
	u.PasswordHash = hash
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, u); err != nil {
			return err
		}
		return s.recorder.Record(ctx, audit.ActionUpdate, auditTable, u.ID.String(),
			old.Snapshot(), u.Snapshot())
	})
}
