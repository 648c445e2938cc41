package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/heartcare/heartcare/pkg/pagination"
)

// Repository persists patient records. A nil owner means no ownership
// filter; a non-nil owner restricts reads and writes to that user's
// records, and a miss is indistinguishable from a nonexistent record.
type Repository interface {
	Insert(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID, owner *uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID, owner *uuid.UUID) error
	List(ctx context.Context, owner *uuid.UUID, search string, p pagination.Params) ([]Patient, int, error)
	Stats(ctx context.Context, owner *uuid.UUID) (Stats, error)
	DailyCounts(ctx context.Context, owner *uuid.UUID, days int) ([]DailyCount, error)
	CountByOwner(ctx context.Context, owner uuid.UUID) (int, error)
}
