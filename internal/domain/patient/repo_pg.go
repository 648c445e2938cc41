package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartcare/heartcare/internal/platform/db"
	"github.com/heartcare/heartcare/pkg/apperr"
	"github.com/heartcare/heartcare/pkg/pagination"
)

const patientColumns = `id, patient_id, full_name, age, gender, contact_number, email, address,
	cp, trestbps, chol, fbs, restecg, thalach, exang, oldpeak, slope, ca, thal,
	prediction, probability, prediction_notes, created_by, created_at, updated_at`

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.PatientID, &p.FullName, &p.Age, &p.Gender,
		&p.ContactNumber, &p.Email, &p.Address,
		&p.Cp, &p.Trestbps, &p.Chol, &p.Fbs, &p.Restecg,
		&p.Thalach, &p.Exang, &p.Oldpeak, &p.Slope, &p.Ca, &p.Thal,
		&p.Prediction, &p.Probability, &p.PredictionNotes, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pgRepository) Insert(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, patient_id, full_name, age, gender, contact_number, email, address,
			cp, trestbps, chol, fbs, restecg, thalach, exang, oldpeak, slope, ca, thal,
			prediction, probability, prediction_notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		RETURNING created_at, updated_at`,
		p.ID, p.PatientID, p.FullName, p.Age, p.Gender, p.ContactNumber, p.Email, p.Address,
		p.Cp, p.Trestbps, p.Chol, p.Fbs, p.Restecg, p.Thalach, p.Exang, p.Oldpeak, p.Slope, p.Ca, p.Thal,
		p.Prediction, p.Probability, p.PredictionNotes, p.CreatedBy)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("patient id already exists")
		}
		return apperr.Storage("insert patient", err)
	}
	return nil
}

func (r *pgRepository) GetByID(ctx context.Context, id uuid.UUID, owner *uuid.UUID) (*Patient, error) {
	sql := fmt.Sprintf("SELECT %s FROM patients WHERE id = $1", patientColumns)
	args := []any{id}
	if owner != nil {
		sql += " AND created_by = $2"
		args = append(args, *owner)
	}

	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("patient not found")
		}
		return nil, apperr.Storage("get patient", err)
	}
	return p, nil
}

func (r *pgRepository) Update(ctx context.Context, p *Patient) error {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE patients SET
			full_name = $2, age = $3, gender = $4, contact_number = $5, email = $6, address = $7,
			cp = $8, trestbps = $9, chol = $10, fbs = $11, restecg = $12, thalach = $13,
			exang = $14, oldpeak = $15, slope = $16, ca = $17, thal = $18,
			prediction = $19, probability = $20, prediction_notes = $21, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.FullName, p.Age, p.Gender, p.ContactNumber, p.Email, p.Address,
		p.Cp, p.Trestbps, p.Chol, p.Fbs, p.Restecg, p.Thalach,
		p.Exang, p.Oldpeak, p.Slope, p.Ca, p.Thal,
		p.Prediction, p.Probability, p.PredictionNotes)
	if err := row.Scan(&p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("patient not found")
		}
		return apperr.Storage("update patient", err)
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, id uuid.UUID, owner *uuid.UUID) error {
	sql := "DELETE FROM patients WHERE id = $1"
	args := []any{id}
	if owner != nil {
		sql += " AND created_by = $2"
		args = append(args, *owner)
	}

	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return apperr.Storage("delete patient", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("patient not found")
	}
	return nil
}

func (r *pgRepository) List(ctx context.Context, owner *uuid.UUID, search string, p pagination.Params) ([]Patient, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1

	if owner != nil {
		where = append(where, fmt.Sprintf("created_by = $%d", idx))
		args = append(args, *owner)
		idx++
	}
	if search != "" {
		where = append(where, fmt.Sprintf(
			"(full_name ILIKE $%d OR patient_id ILIKE $%d OR contact_number ILIKE $%d)", idx, idx, idx))
		args = append(args, "%"+search+"%")
		idx++
	}

	cond := strings.Join(where, " AND ")

	var total int
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM patients WHERE %s", cond)
	if err := r.conn(ctx).QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Storage("count patients", err)
	}

	listSQL := fmt.Sprintf(`SELECT %s FROM patients WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		patientColumns, cond, idx, idx+1)
	args = append(args, p.PerPage, p.Offset())

	rows, err := r.conn(ctx).Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, apperr.Storage("list patients", err)
	}
	defer rows.Close()

	patients := make([]Patient, 0, p.PerPage)
	for rows.Next() {
		pt, err := scanPatient(rows)
		if err != nil {
			return nil, 0, apperr.Storage("scan patient", err)
		}
		patients = append(patients, *pt)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Storage("iterate patients", err)
	}
	return patients, total, nil
}

func (r *pgRepository) Stats(ctx context.Context, owner *uuid.UUID) (Stats, error) {
	sql := `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE prediction = 1),
		COUNT(*) FILTER (WHERE prediction = 0)
		FROM patients`
	args := []any{}
	if owner != nil {
		sql += " WHERE created_by = $1"
		args = append(args, *owner)
	}

	var s Stats
	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&s.Total, &s.HighRisk, &s.LowRisk); err != nil {
		return Stats{}, apperr.Storage("patient stats", err)
	}
	return s, nil
}

func (r *pgRepository) DailyCounts(ctx context.Context, owner *uuid.UUID, days int) ([]DailyCount, error) {
	sql := `SELECT TO_CHAR(created_at::date, 'YYYY-MM-DD'), COUNT(*)
		FROM patients
		WHERE created_at >= NOW() - ($1 || ' days')::interval`
	args := []any{fmt.Sprint(days)}
	if owner != nil {
		sql += " AND created_by = $2"
		args = append(args, *owner)
	}
	sql += " GROUP BY created_at::date ORDER BY created_at::date"

	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Storage("daily patient counts", err)
	}
	defer rows.Close()

	counts := make([]DailyCount, 0, days)
	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, apperr.Storage("scan daily count", err)
		}
		counts = append(counts, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate daily counts", err)
	}
	return counts, nil
}

func (r *pgRepository) CountByOwner(ctx context.Context, owner uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		"SELECT COUNT(*) FROM patients WHERE created_by = $1", owner).Scan(&n)
	if err != nil {
		return 0, apperr.Storage("count patients by owner", err)
	}
	return n, nil
}
