package audit

import (
	"context"

	"github.com/heartcare/heartcare/pkg/pagination"
)

// Repository persists audit entries. Entries are append-only; there is
// no update or delete.
type Repository interface {
	Insert(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter, p pagination.Params) ([]Entry, int, error)
}
