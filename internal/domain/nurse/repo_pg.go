package nurse

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/domain/ward"
	"github.com/hms/hms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns a Repository backed by PostgreSQL. The roster lives in a
// uuid[] column; membership adds and removes are single conditional UPDATEs
// so concurrent callers on the same nurse serialize at the row.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const nurseCols = `id, employee_id, first_name, last_name, email, phone, ward, shift, status, assigned_patients, specialization, experience, working_hours, max_patient_load, created_by, updated_by, created_at, updated_at`

func scanNurse(row pgx.Row) (*Nurse, error) {
	var n Nurse
	err := row.Scan(&n.ID, &n.EmployeeID, &n.FirstName, &n.LastName, &n.Email, &n.Phone,
		&n.Ward, &n.Shift, &n.Status, &n.AssignedPatients, &n.Specialization,
		&n.Experience, &n.WorkingHours, &n.MaxPatientLoad,
		&n.CreatedBy, &n.UpdatedBy, &n.CreatedAt, &n.UpdatedAt)
	return &n, err
}

func pgError(err error) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr
	}
	return nil
}

func isUniqueViolation(err error) bool {
	pgErr := pgError(err)
	return pgErr != nil && pgErr.Code == "23505"
}

func duplicateError(err error, n *Nurse) error {
	pgErr := pgError(err)
	if pgErr == nil || pgErr.Code != "23505" {
		return nil
	}
	if pgErr.ConstraintName == "nurse_employee_id_unique" {
		return fmt.Errorf("%w: employee id %s", ErrDuplicate, n.EmployeeID)
	}
	return fmt.Errorf("%w: %s", ErrDuplicate, n.Email)
}

func (r *repoPG) Create(ctx context.Context, n *Nurse) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	got, err := scanNurse(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO nurse (id, employee_id, first_name, last_name, email, phone,
			ward, shift, status, specialization, experience, working_hours,
			max_patient_load, created_by, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$14)
		RETURNING `+nurseCols,
		n.ID, n.EmployeeID, n.FirstName, n.LastName, n.Email, n.Phone,
		n.Ward, n.Shift, n.Status, n.Specialization, n.Experience,
		n.WorkingHours, n.MaxPatientLoad, n.CreatedBy))
	if err != nil {
		if dup := duplicateError(err, n); dup != nil {
			return dup
		}
		return err
	}
	*n = *got
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Nurse, error) {
	n, err := scanNurse(r.conn(ctx).QueryRow(ctx, `SELECT `+nurseCols+` FROM nurse WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return n, err
}

func (r *repoPG) List(ctx context.Context, w ward.Ward, status DutyStatus, limit, offset int) ([]*Nurse, int, error) {
	where := `WHERE ($1 = '' OR ward = $1) AND ($2 = '' OR status = $2)`

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM nurse `+where, string(w), string(status)).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+nurseCols+` FROM nurse `+where+`
		ORDER BY last_name, first_name LIMIT $3 OFFSET $4`,
		string(w), string(status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Nurse
	for rows.Next() {
		n, err := scanNurse(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListOnDuty(ctx context.Context, w ward.Ward) ([]*Nurse, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+nurseCols+` FROM nurse
		WHERE ward = $1 AND status = 'On Duty'
		ORDER BY created_at, id`, string(w))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Nurse
	for rows.Next() {
		n, err := scanNurse(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Nurse, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+nurseCols+` FROM nurse
		WHERE assigned_patients @> ARRAY[$1]::uuid[]
		ORDER BY last_name, first_name`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Nurse
	for rows.Next() {
		n, err := scanNurse(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, n *Nurse) error {
	got, err := scanNurse(r.conn(ctx).QueryRow(ctx, `
		UPDATE nurse
		SET first_name=$2, last_name=$3, email=$4, phone=$5, ward=$6, shift=$7,
			status=$8, specialization=$9, experience=$10, working_hours=$11,
			max_patient_load=$12, updated_by=$13, updated_at=NOW()
		WHERE id = $1
		RETURNING `+nurseCols,
		n.ID, n.FirstName, n.LastName, n.Email, n.Phone, n.Ward, n.Shift,
		n.Status, n.Specialization, n.Experience, n.WorkingHours,
		n.MaxPatientLoad, n.UpdatedBy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, n.Email)
		}
		return err
	}
	*n = *got
	return nil
}

func (r *repoPG) AddPatient(ctx context.Context, nurseID, patientID uuid.UUID) (*Nurse, error) {
	n, err := scanNurse(r.conn(ctx).QueryRow(ctx, `
		UPDATE nurse
		SET assigned_patients = array_append(assigned_patients, $2), updated_at = NOW()
		WHERE id = $1 AND NOT (assigned_patients @> ARRAY[$2]::uuid[])
		RETURNING `+nurseCols,
		nurseID, patientID))
	if err == nil {
		return n, nil
	}
	if pgErr := pgError(err); pgErr != nil && pgErr.Code == "23514" && pgErr.ConstraintName == "nurse_roster_capacity_check" {
		return nil, fmt.Errorf("%w: nurse %s", ErrCapacityExceeded, nurseID)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	// Either the nurse does not exist or the patient is already on the
	// roster; the latter is a no-op.
	return r.GetByID(ctx, nurseID)
}

func (r *repoPG) RemovePatient(ctx context.Context, nurseID, patientID uuid.UUID) (*Nurse, error) {
	n, err := scanNurse(r.conn(ctx).QueryRow(ctx, `
		UPDATE nurse
		SET assigned_patients = array_remove(assigned_patients, $2), updated_at = NOW()
		WHERE id = $1
		RETURNING `+nurseCols,
		nurseID, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return n, err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM nurse WHERE id = $1 AND cardinality(assigned_patients) = 0`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: cannot delete nurse with assigned patients", ErrInvalidState)
}
