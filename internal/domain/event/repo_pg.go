package event

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tocdoc/tocdoc/internal/platform/apperr"
	"github.com/tocdoc/tocdoc/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type pgTransactor struct {
	pool *pgxpool.Pool
}

// NewTransactor runs functions in a SERIALIZABLE transaction, so the admit
// conflict check and the insert see a consistent snapshot.
func NewTransactor(pool *pgxpool.Pool) Transactor {
	return &pgTransactor{pool: pool}
}

func (t *pgTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.RunSerializable(ctx, t.pool, fn)
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

const eventCols = `id, patient_alias, dob_month_year, diagnosis, hospital_name,
	status, admission_date, discharge_date, reviewed, doctor_id, created_at, updated_at`

// uniqueViolation is the Postgres error code raised by the partial unique
// index on (patient_alias) WHERE status = 'ADMITTED'.
const uniqueViolation = "23505"

func (r *repoPG) Create(ctx context.Context, e *Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO event (id, patient_alias, dob_month_year, diagnosis, hospital_name,
			status, admission_date, discharge_date, reviewed, doctor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		e.ID, e.PatientAlias, e.DOBMonthYear, e.Diagnosis, e.HospitalName,
		e.Status, e.AdmissionDate, e.DischargeDate, e.Reviewed, e.DoctorID,
	)
	if err := row.Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.Conflict("Patient is already admitted. Please discharge before re-admitting.")
		}
		return err
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	e, err := scanEvent(r.conn(ctx).QueryRow(ctx,
		`SELECT `+eventCols+` FROM event WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("event")
	}
	return e, err
}

func (r *repoPG) GetActiveByAlias(ctx context.Context, alias string) (*Event, error) {
	e, err := scanEvent(r.conn(ctx).QueryRow(ctx,
		`SELECT `+eventCols+` FROM event WHERE patient_alias = $1 AND status = $2`,
		alias, StatusAdmitted))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("active admission")
	}
	return e, err
}

func (r *repoPG) Update(ctx context.Context, e *Event) error {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE event
		SET patient_alias = $2, dob_month_year = $3, diagnosis = $4, hospital_name = $5,
			status = $6, admission_date = $7, discharge_date = $8, reviewed = $9,
			doctor_id = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		e.ID, e.PatientAlias, e.DOBMonthYear, e.Diagnosis, e.HospitalName,
		e.Status, e.AdmissionDate, e.DischargeDate, e.Reviewed, e.DoctorID,
	)
	if err := row.Scan(&e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("event")
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.Conflict("Patient is already admitted. Please discharge before re-admitting.")
		}
		return err
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM event WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("event")
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f Filter) ([]*Event, error) {
	q := `SELECT ` + eventCols + ` FROM event WHERE 1=1`
	args := []interface{}{}
	if f.DoctorID != nil {
		args = append(args, *f.DoctorID)
		q += ` AND doctor_id = $1`
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		if len(args) == 1 {
			q += ` AND status = $1`
		} else {
			q += ` AND status = $2`
		}
	}
	q += ` ORDER BY admission_date DESC` + f.Page.SQL()

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (r *repoPG) ListAdmittedByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Event, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+eventCols+` FROM event
		 WHERE doctor_id = $1 AND status = $2
		 ORDER BY admission_date DESC`,
		doctorID, StatusAdmitted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (r *repoPG) DeleteDischargedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM event WHERE status = $1 AND discharge_date < $2`,
		StatusDischarged, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) DeleteAdmittedCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM event WHERE status = $1 AND created_at < $2`,
		StatusAdmitted, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	if err := row.Scan(
		&e.ID, &e.PatientAlias, &e.DOBMonthYear, &e.Diagnosis, &e.HospitalName,
		&e.Status, &e.AdmissionDate, &e.DischargeDate, &e.Reviewed, &e.DoctorID,
		&e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

func collectEvents(rows pgx.Rows) ([]*Event, error) {
	var events []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID, &e.PatientAlias, &e.DOBMonthYear, &e.Diagnosis, &e.HospitalName,
			&e.Status, &e.AdmissionDate, &e.DischargeDate, &e.Reviewed, &e.DoctorID,
			&e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
