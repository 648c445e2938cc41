package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/heartcare/heartcare/internal/platform/auth"
	"github.com/heartcare/heartcare/internal/platform/middleware"
	"github.com/heartcare/heartcare/pkg/apperr"
	"github.com/heartcare/heartcare/pkg/pagination"
)

// Recorder is the write side of the audit trail, consumed by the other
// domain services. Record must be called inside the same transaction as
// the mutation it describes.
type Recorder interface {
	Record(ctx context.Context, action, tableName, recordID string, oldValues, newValues any) error
}

// Service records and lists audit entries.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record snapshots a mutation as one audit entry. The acting user and
// request metadata are taken from the context; a nil snapshot side is
// stored as SQL NULL.
func (s *Service) Record(ctx context.Context, action, tableName, recordID string, oldValues, newValues any) error {
	entry := &Entry{
		Action:    action,
		TableName: tableName,
		RecordID:  recordID,
	}

	if uid := auth.UserIDFromContext(ctx); uid != uuid.Nil {
		entry.UserID = &uid
	}

	meta := middleware.RequestMetaFromContext(ctx)
	entry.IPAddress = meta.IPAddress
	entry.UserAgent = meta.UserAgent

	var err error
	if entry.OldValues, err = marshalSnapshot(oldValues); err != nil {
		return apperr.Storage("marshal old values", err)
	}
	if entry.NewValues, err = marshalSnapshot(newValues); err != nil {
		return apperr.Storage("marshal new values", err)
	}

	return s.repo.Insert(ctx, entry)
}

func marshalSnapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// List returns audit entries newest first.
func (s *Service) List(ctx context.Context, filter Filter, p pagination.Params) ([]Entry, int, error) {
	if filter.Action != "" &&
		filter.Action != ActionCreate && filter.Action != ActionUpdate && filter.Action != ActionDelete {
		return nil, 0, apperr.Validation("unknown action", "action")
	}
	return s.repo.List(ctx, filter, p)
}
