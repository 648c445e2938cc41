package patient

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heartcare/heartcare/internal/domain/audit"
	"github.com/heartcare/heartcare/internal/platform/auth"
	"github.com/heartcare/heartcare/internal/platform/db"
	"github.com/heartcare/heartcare/internal/predict"
	"github.com/heartcare/heartcare/pkg/apperr"
	"github.com/heartcare/heartcare/pkg/pagination"
)

// auditTable is the table name recorded on patient audit entries.
const auditTable = "patients"

// Predictor is the classifier capability the service depends on.
type Predictor interface {
	Features() []string
	Predict(values []float64) (predict.Result, error)
}

// Input carries the fields of a create or update request. Clinical
// measurements arrive either one per field or as a single raw row.
type Input struct {
	FullName      string            `json:"full_name"`
	Age           int               `json:"age"`
	Gender        string            `json:"gender"`
	ContactNumber   string            `json:"contact_number"`
	Email           string            `json:"email"`
	Address         string            `json:"address"`
	PredictionNotes string            `json:"prediction_notes"`
	Fields          map[string]string `json:"fields"`
	Raw             string            `json:"raw"`
}

// Service implements patient record management. Every mutation and its
// audit entry commit in one transaction.
type Service struct {
	repo      Repository
	recorder  audit.Recorder
	predictor Predictor
	tx        db.TxRunner
}

func NewService(repo Repository, recorder audit.Recorder, predictor Predictor, tx db.TxRunner) *Service {
	return &Service{repo: repo, recorder: recorder, predictor: predictor, tx: tx}
}

// ownerFilter returns nil for admins, who see every record, and the
// acting user's id otherwise.
func ownerFilter(ctx context.Context) *uuid.UUID {
	if auth.RoleFromContext(ctx) == "admin" {
		return nil
	}
	uid := auth.UserIDFromContext(ctx)
	return &uid
}

func validateDemographics(in Input) error {
	var bad []string
	if strings.TrimSpace(in.FullName) == "" {
		bad = append(bad, "full_name")
	}
	if in.Age <= 0 || in.Age > 150 {
		bad = append(bad, "age")
	}
	if strings.TrimSpace(in.Gender) == "" {
		bad = append(bad, "gender")
	}
	if len(bad) > 0 {
		return apperr.Validation("missing or invalid fields", bad...)
	}
	return nil
}

// newPatientCode builds a human-facing patient identifier from the
// current timestamp plus a random suffix. Uniqueness is enforced by the
// database; collisions are retried by the caller.
func newPatientCode(now time.Time) string {
	return fmt.Sprintf("HC%s%03d", now.Format("20060102150405"), rand.Intn(1000))
}

// Create registers a new patient, classifies the clinical vector, and
// writes the record together with its CREATE audit entry.
func (s *Service) Create(ctx context.Context, in Input) (*Patient, error) {
	if err := validateDemographics(in); err != nil {
		return nil, err
	}

	values, err := predict.BuildVector(s.predictor.Features(), in.Fields, in.Raw)
	if err != nil {
		return nil, err
	}
	result, err := s.predictor.Predict(values)
	if err != nil {
		return nil, err
	}

	p := &Patient{
		FullName:      strings.TrimSpace(in.FullName),
		Age:           in.Age,
		Gender:        in.Gender,
		ContactNumber: in.ContactNumber,
		Email:         in.Email,
		Address:         in.Address,
		Prediction:      result.Label,
		Probability:     result.Probability,
		PredictionNotes: strings.TrimSpace(in.PredictionNotes),
		CreatedBy:       auth.UserIDFromContext(ctx),
	}
	p.SetVector(values)

	// The code embeds a second-resolution timestamp, so a collision is
	// only possible within the same second. Retry with a fresh suffix.
	for attempt := 0; attempt < 3; attempt++ {
		p.PatientID = newPatientCode(time.Now())
		err = s.tx.InTx(ctx, func(ctx context.Context) error {
			if err := s.repo.Insert(ctx, p); err != nil {
				return err
			}
			return s.recorder.Record(ctx, audit.ActionCreate, auditTable, p.PatientID, nil, p.Snapshot())
		})
		if !apperr.IsConflict(err) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns one patient the caller is allowed to see.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id, ownerFilter(ctx))
}

// Update replaces a patient's demographics and clinical vector, stores
// the reclassified result, and writes the UPDATE audit entry with
// before and after snapshots.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*Patient, error) {
	if err := validateDemographics(in); err != nil {
		return nil, err
	}

	old, err := s.repo.GetByID(ctx, id, ownerFilter(ctx))
	if err != nil {
		return nil, err
	}

	values, err := predict.BuildVector(s.predictor.Features(), in.Fields, in.Raw)
	if err != nil {
		return nil, err
	}
	result, err := s.predictor.Predict(values)
	if err != nil {
		return nil, err
	}

	updated := *old
	updated.FullName = strings.TrimSpace(in.FullName)
	updated.Age = in.Age
	updated.Gender = in.Gender
	updated.ContactNumber = in.ContactNumber
	updated.Email = in.Email
	updated.Address = in.Address
	updated.SetVector(values)
	updated.Prediction = result.Label
	updated.Probability = result.Probability
	updated.PredictionNotes = strings.TrimSpace(in.PredictionNotes)

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, &updated); err != nil {
			return err
		}
		return s.recorder.Record(ctx, audit.ActionUpdate, auditTable, updated.PatientID,
			old.Snapshot(), updated.Snapshot())
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a patient and writes the DELETE audit entry carrying
// the final snapshot.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	owner := ownerFilter(ctx)
	old, err := s.repo.GetByID(ctx, id, owner)
	if err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id, owner); err != nil {
			return err
		}
		return s.recorder.Record(ctx, audit.ActionDelete, auditTable, old.PatientID,
			old.Snapshot(), nil)
	})
}

// List returns the caller's patients newest first, optionally filtered
// by a search term over name, patient code, and contact number.
func (s *Service) List(ctx context.Context, search string, p pagination.Params) ([]Patient, int, error) {
	return s.repo.List(ctx, ownerFilter(ctx), strings.TrimSpace(search), p)
}

// Dashboard summarizes the caller's patients for the landing page.
type Dashboard struct {
	Stats  Stats        `json:"stats"`
	Daily  []DailyCount `json:"daily"`
	Recent []Patient    `json:"recent"`
}

const dashboardDays = 7

// GetDashboard returns risk totals, a week of daily registration
// counts, and the five most recent records.
func (s *Service) GetDashboard(ctx context.Context) (*Dashboard, error) {
	owner := ownerFilter(ctx)

	stats, err := s.repo.Stats(ctx, owner)
	if err != nil {
		return nil, err
	}
	daily, err := s.repo.DailyCounts(ctx, owner, dashboardDays)
	if err != nil {
		return nil, err
	}
	recent, _, err := s.repo.List(ctx, owner, "", pagination.Params{Page: 1, PerPage: 10})
	if err != nil {
		return nil, err
	}

	return &Dashboard{Stats: stats, Daily: daily, Recent: recent}, nil
}
