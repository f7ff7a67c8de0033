package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tocdoc/tocdoc/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `p.id, p.name, p.dob, p.facility, p.diagnosis, p.admission,
	p.discharge, p.notes, p.physician_id, u.email, p.created_at, p.updated_at`

const patientFrom = ` FROM patient p JOIN app_user u ON u.id = p.physician_id`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, name, dob, facility, diagnosis, admission, discharge, notes, physician_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.DOB, p.Facility, p.Diagnosis, p.Admission, p.Discharge, p.Notes, p.PhysicianID,
	)
	return row.Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) List(ctx context.Context, f Filter) ([]*Patient, error) {
	q := `SELECT ` + patientCols + patientFrom + ` WHERE 1=1`
	args := []interface{}{}
	if f.PhysicianID != nil {
		args = append(args, *f.PhysicianID)
		q += ` AND p.physician_id = $1`
	}
	switch f.Kind {
	case FilterAdmitted:
		q += ` AND p.discharge IS NULL`
	case FilterDischarged:
		q += ` AND p.discharge IS NOT NULL`
	case FilterFollowup:
		q += ` AND p.discharge IS NOT NULL AND p.discharge >= NOW() - INTERVAL '7 days'`
	}
	q += ` ORDER BY p.created_at DESC`

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

func (r *repoPG) ListExpired(ctx context.Context, cutoff time.Time) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+patientFrom+`
		 WHERE p.discharge IS NOT NULL AND p.discharge <= $1
		 ORDER BY p.discharge`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

func (r *repoPG) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM patient WHERE discharge IS NOT NULL AND discharge <= $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) PhysicianSummaries(ctx context.Context) ([]PhysicianSummary, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT u.id, u.email, COUNT(p.id)
		FROM app_user u
		LEFT JOIN patient p ON p.physician_id = u.id
		WHERE u.role = 'DOCTOR'
		GROUP BY u.id, u.email
		ORDER BY u.email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PhysicianSummary
	for rows.Next() {
		var s PhysicianSummary
		if err := rows.Scan(&s.ID, &s.Email, &s.PatientCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func collectPatients(rows pgx.Rows) ([]*Patient, error) {
	var patients []*Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(
			&p.ID, &p.Name, &p.DOB, &p.Facility, &p.Diagnosis, &p.Admission,
			&p.Discharge, &p.Notes, &p.PhysicianID, &p.PhysicianEmail,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		patients = append(patients, &p)
	}
	return patients, rows.Err()
}
