package user

import (
	"context"

	"github.com/google/uuid"

	"github.com/heartcare/heartcare/pkg/pagination"
)

// Repository persists user accounts.
type Repository interface {
	Insert(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// GetActiveByUsername only matches active accounts, so a disabled
	// login fails the same way as a wrong password.
	GetActiveByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, p pagination.Params) ([]User, int, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
}

// PatientCounter reports how many patient records a user owns. The
// patient repository implements it; users with records cannot be deleted.
type PatientCounter interface {
	CountByOwner(ctx context.Context, owner uuid.UUID) (int, error)
}
