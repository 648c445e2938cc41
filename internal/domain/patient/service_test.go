package patient

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/heartcare/heartcare/internal/domain/audit"
	"github.com/heartcare/heartcare/internal/platform/auth"
	"github.com/heartcare/heartcare/internal/predict"
	"github.com/heartcare/heartcare/pkg/apperr"
	"github.com/heartcare/heartcare/pkg/pagination"
)

type mockRepo struct {
	patients     map[uuid.UUID]*Patient
	insertErrs   []error
	insertCalled int
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Insert(_ context.Context, p *Patient) error {
	m.insertCalled++
	if len(m.insertErrs) > 0 {
		err := m.insertErrs[0]
		m.insertErrs = m.insertErrs[1:]
		if err != nil {
			return err
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID, owner *uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok || (owner != nil && p.CreatedBy != *owner) {
		return nil, apperr.NotFound("patient not found")
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return apperr.NotFound("patient not found")
	}
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID, owner *uuid.UUID) error {
	p, ok := m.patients[id]
	if !ok || (owner != nil && p.CreatedBy != *owner) {
		return apperr.NotFound("patient not found")
	}
	delete(m.patients, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, owner *uuid.UUID, search string, p pagination.Params) ([]Patient, int, error) {
	var out []Patient
	for _, pt := range m.patients {
		if owner != nil && pt.CreatedBy != *owner {
			continue
		}
		if search != "" && !strings.Contains(pt.FullName, search) &&
			!strings.Contains(pt.PatientID, search) && !strings.Contains(pt.ContactNumber, search) {
			continue
		}
		out = append(out, *pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatientID < out[j].PatientID })
	return out, len(out), nil
}

func (m *mockRepo) Stats(_ context.Context, owner *uuid.UUID) (Stats, error) {
	var s Stats
	for _, pt := range m.patients {
		if owner != nil && pt.CreatedBy != *owner {
			continue
		}
		s.Total++
		if pt.Prediction == 1 {
			s.HighRisk++
		} else {
			s.LowRisk++
		}
	}
	return s, nil
}

func (m *mockRepo) DailyCounts(_ context.Context, _ *uuid.UUID, _ int) ([]DailyCount, error) {
	return nil, nil
}

func (m *mockRepo) CountByOwner(_ context.Context, owner uuid.UUID) (int, error) {
	n := 0
	for _, pt := range m.patients {
		if pt.CreatedBy == owner {
			n++
		}
	}
	return n, nil
}

type recordedAudit struct {
	action   string
	table    string
	recordID string
	old, new any
}

type mockRecorder struct {
	records []recordedAudit
	err     error
}

func (m *mockRecorder) Record(_ context.Context, action, table, recordID string, old, new any) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, recordedAudit{action, table, recordID, old, new})
	return nil
}

type stubPredictor struct{}

func (stubPredictor) Features() []string { return ClinicalFeatures }

// Predict labels high cholesterol as high risk so tests can steer the label.
func (stubPredictor) Predict(values []float64) (predict.Result, error) {
	prob := 0.2
	label := 0
	if values[2] > 240 {
		prob = 0.9
		label = 1
	}
	return predict.Result{Label: label, Probability: &prob}, nil
}

type stubTx struct{}

func (stubTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService(repo *mockRepo, rec *mockRecorder) *Service {
	return NewService(repo, rec, stubPredictor{}, stubTx{})
}

func staffCtx(uid uuid.UUID) context.Context {
	ctx := context.WithValue(context.Background(), auth.UserIDKey, uid)
	return context.WithValue(ctx, auth.UserRoleKey, "staff")
}

func adminCtx(uid uuid.UUID) context.Context {
	ctx := context.WithValue(context.Background(), auth.UserIDKey, uid)
	return context.WithValue(ctx, auth.UserRoleKey, "admin")
}

func validInput() Input {
	return Input{
		FullName:        "Jane Doe",
		Age:             54,
		Gender:          "female",
		PredictionNotes: "elevated cholesterol, recheck in 3 months",
		Fields: map[string]string{
			"cp": "3", "trestbps": "130", "chol": "250", "fbs": "0", "restecg": "1",
			"thalach": "160", "exang": "0", "oldpeak": "1.4", "slope": "2", "ca": "0", "thal": "2",
		},
	}
}

func TestCreatePatient(t *testing.T) {
	repo := newMockRepo()
	rec := &mockRecorder{}
	svc := newTestService(repo, rec)
	uid := uuid.New()

	p, err := svc.Create(staffCtx(uid), validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !strings.HasPrefix(p.PatientID, "HC") || len(p.PatientID) != 19 {
		t.Errorf("PatientID = %q, want HC + 14-digit timestamp + 3-digit suffix", p.PatientID)
	}
	if p.Prediction != 1 {
		t.Errorf("Prediction = %d, want 1 for chol > 240", p.Prediction)
	}
	if p.Probability == nil || *p.Probability != 0.9 {
		t.Errorf("Probability = %v, want 0.9", p.Probability)
	}
	if p.CreatedBy != uid {
		t.Errorf("CreatedBy = %s, want %s", p.CreatedBy, uid)
	}
	if p.Chol != 250 {
		t.Errorf("Chol = %v, want 250", p.Chol)
	}
	if p.PredictionNotes != "elevated cholesterol, recheck in 3 months" {
		t.Errorf("PredictionNotes = %q", p.PredictionNotes)
	}

	if len(rec.records) != 1 {
		t.Fatalf("got %d audit records, want 1", len(rec.records))
	}
	r := rec.records[0]
	if r.action != audit.ActionCreate || r.table != "patients" || r.recordID != p.PatientID {
		t.Errorf("audit record = %+v", r)
	}
	if r.old != nil {
		t.Errorf("audit old snapshot = %v, want nil", r.old)
	}
}

func TestAuditSnapshotReproducesStoredRecord(t *testing.T) {
	repo := newMockRepo()
	rec := &mockRecorder{}
	svc := newTestService(repo, rec)

	p, err := svc.Create(staffCtx(uuid.New()), validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	snap, ok := rec.records[0].new.(map[string]any)
	if !ok {
		t.Fatalf("snapshot type %T", rec.records[0].new)
	}

	prob, ok := snap["probability"].(*float64)
	if !ok || prob == nil {
		t.Fatalf("snapshot probability = %v, want the stored pointer", snap["probability"])
	}
	if *prob != *p.Probability {
		t.Errorf("snapshot probability = %v, stored %v", *prob, *p.Probability)
	}
	if snap["prediction_notes"] != p.PredictionNotes {
		t.Errorf("snapshot notes = %v, stored %q", snap["prediction_notes"], p.PredictionNotes)
	}
	if snap["prediction"] != p.Prediction || snap["chol"] != p.Chol {
		t.Errorf("snapshot = %v, does not reproduce the row", snap)
	}

	in := validInput()
	in.PredictionNotes = "follow-up complete"
	in.Fields["chol"] = "185"
	updated, err := svc.Update(adminCtx(uuid.New()), p.ID, in)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	snap = rec.records[len(rec.records)-1].new.(map[string]any)
	if snap["prediction_notes"] != "follow-up complete" {
		t.Errorf("updated snapshot notes = %v", snap["prediction_notes"])
	}
	if got := snap["probability"].(*float64); *got != *updated.Probability {
		t.Errorf("updated snapshot probability = %v, stored %v", *got, *updated.Probability)
	}
}

func TestCreatePatientRawVector(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockRecorder{})

	in := validInput()
	in.Fields = nil
	in.Raw = "3,130,200,0,1,160,0,1.4,2,0,2"

	p, err := svc.Create(staffCtx(uuid.New()), in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.Prediction != 0 {
		t.Errorf("Prediction = %d, want 0 for chol 200", p.Prediction)
	}
}

func TestCreatePatientInvalidDemographics(t *testing.T) {
	repo := newMockRepo()
	rec := &mockRecorder{}
	svc := newTestService(repo, rec)

	in := validInput()
	in.FullName = " "
	in.Age = 0

	_, err := svc.Create(staffCtx(uuid.New()), in)
	if !apperr.IsValidation(err) {
		t.Fatalf("error = %v, want validation error", err)
	}
	if repo.insertCalled != 0 || len(rec.records) != 0 {
		t.Error("invalid input must not reach the repository or audit log")
	}
}

func TestCreatePatientRetriesOnCodeCollision(t *testing.T) {
	repo := newMockRepo()
	repo.insertErrs = []error{apperr.Conflict("patient id already exists")}
	svc := newTestService(repo, &mockRecorder{})

	p, err := svc.Create(staffCtx(uuid.New()), validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if repo.insertCalled != 2 {
		t.Errorf("insert called %d times, want 2", repo.insertCalled)
	}
	if len(repo.patients) != 1 || p.ID == uuid.Nil {
		t.Error("patient not stored after retry")
	}
}

func TestCreatePatientAuditFailureFailsCreate(t *testing.T) {
	repo := newMockRepo()
	rec := &mockRecorder{err: errors.New("audit insert failed")}
	svc := newTestService(repo, rec)

	if _, err := svc.Create(staffCtx(uuid.New()), validInput()); err == nil {
		t.Fatal("Create() = nil error, want failure when the audit write fails")
	}
}

func TestUpdatePatientOwnership(t *testing.T) {
	repo := newMockRepo()
	rec := &mockRecorder{}
	svc := newTestService(repo, rec)

	owner := uuid.New()
	created, err := svc.Create(staffCtx(owner), validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	in := validInput()
	in.FullName = "Jane Q Doe"
	in.Fields["chol"] = "180"

	// Another staff user sees a not-found, never a permission error.
	if _, err := svc.Update(staffCtx(uuid.New()), created.ID, in); !apperr.IsNotFound(err) {
		t.Fatalf("foreign update error = %v, want not found", err)
	}

	updated, err := svc.Update(staffCtx(owner), created.ID, in)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.FullName != "Jane Q Doe" || updated.Chol != 180 {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Prediction != 0 {
		t.Errorf("Prediction = %d, want reclassified to 0", updated.Prediction)
	}

	last := rec.records[len(rec.records)-1]
	if last.action != audit.ActionUpdate || last.old == nil || last.new == nil {
		t.Errorf("audit record = %+v, want UPDATE with both snapshots", last)
	}
}

func TestAdminBypassesOwnership(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockRecorder{})

	created, err := svc.Create(staffCtx(uuid.New()), validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := svc.Get(adminCtx(uuid.New()), created.ID); err != nil {
		t.Errorf("admin Get() error = %v", err)
	}
	if err := svc.Delete(adminCtx(uuid.New()), created.ID); err != nil {
		t.Errorf("admin Delete() error = %v", err)
	}
}

func TestDeletePatient(t *testing.T) {
	repo := newMockRepo()
	rec := &mockRecorder{}
	svc := newTestService(repo, rec)
	owner := uuid.New()

	created, err := svc.Create(staffCtx(owner), validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(staffCtx(owner), created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(repo.patients) != 0 {
		t.Error("patient still stored after delete")
	}

	last := rec.records[len(rec.records)-1]
	if last.action != audit.ActionDelete || last.old == nil || last.new != nil {
		t.Errorf("audit record = %+v, want DELETE with old snapshot only", last)
	}
}

func TestListScopedToOwner(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockRecorder{})

	mine := uuid.New()
	if _, err := svc.Create(staffCtx(mine), validInput()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(staffCtx(uuid.New()), validInput()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, total, err := svc.List(staffCtx(mine), "", pagination.Params{Page: 1, PerPage: 20})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(got) != 1 {
		t.Errorf("staff list: got %d (total %d), want 1", len(got), total)
	}

	_, total, err = svc.List(adminCtx(uuid.New()), "", pagination.Params{Page: 1, PerPage: 20})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 {
		t.Errorf("admin list total = %d, want 2", total)
	}
}

func TestDashboardStats(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockRecorder{})
	owner := uuid.New()

	high := validInput()
	if _, err := svc.Create(staffCtx(owner), high); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	low := validInput()
	low.Fields["chol"] = "190"
	if _, err := svc.Create(staffCtx(owner), low); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	d, err := svc.GetDashboard(staffCtx(owner))
	if err != nil {
		t.Fatalf("GetDashboard() error = %v", err)
	}
	if d.Stats.Total != 2 || d.Stats.HighRisk != 1 || d.Stats.LowRisk != 1 {
		t.Errorf("stats = %+v, want total 2, high 1, low 1", d.Stats)
	}
	if len(d.Recent) != 2 {
		t.Errorf("recent = %d records, want 2", len(d.Recent))
	}
}
