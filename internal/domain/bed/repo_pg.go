package bed

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

// NewRepoPG returns a Repository backed by PostgreSQL. Precondition checks
// are folded into the WHERE clause of each transition statement, so
// concurrent callers racing on the same bed cannot both succeed.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const bedCols = `id, bed_number, ward, status, patient_id, assigned_date, discharge_date, notes, created_by, updated_by, created_at, updated_at`

func scanBed(row pgx.Row) (*Bed, error) {
	var b Bed
	err := row.Scan(&b.ID, &b.BedNumber, &b.Ward, &b.Status, &b.PatientID,
		&b.AssignedDate, &b.DischargeDate, &b.Notes, &b.CreatedBy, &b.UpdatedBy,
		&b.CreatedAt, &b.UpdatedAt)
	return &b, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *repoPG) Create(ctx context.Context, b *Bed) error {
	b.ID = uuid.New()
	err := scanInto(b, r.conn(ctx).QueryRow(ctx, `
		INSERT INTO bed (id, bed_number, ward, status, notes, created_by, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6,$6)
		RETURNING `+bedCols,
		b.ID, b.BedNumber, b.Ward, b.Status, b.Notes, b.CreatedBy))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicate, b.BedNumber)
	}
	return err
}

func scanInto(b *Bed, row pgx.Row) error {
	got, err := scanBed(row)
	if err != nil {
		return err
	}
	*b = *got
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bed, error) {
	b, err := scanBed(r.conn(ctx).QueryRow(ctx, `SELECT `+bedCols+` FROM bed WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

func (r *repoPG) GetByOccupant(ctx context.Context, patientID uuid.UUID) (*Bed, error) {
	b, err := scanBed(r.conn(ctx).QueryRow(ctx, `SELECT `+bedCols+` FROM bed WHERE patient_id = $1`, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

func (r *repoPG) List(ctx context.Context, w ward.Ward, status Status, limit, offset int) ([]*Bed, int, error) {
	where := `WHERE ($1 = '' OR ward = $1) AND ($2 = '' OR status = $2)`

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM bed `+where, string(w), string(status)).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+bedCols+` FROM bed `+where+`
		ORDER BY bed_number LIMIT $3 OFFSET $4`,
		string(w), string(status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Bed
	for rows.Next() {
		b, err := scanBed(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Stats(ctx context.Context, w ward.Ward) ([]*WardStats, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT ward,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'Occupied') AS occupied,
			COUNT(*) FILTER (WHERE status = 'Available') AS available,
			COUNT(*) FILTER (WHERE status = 'Maintenance') AS maintenance,
			COUNT(*) FILTER (WHERE status = 'Reserved') AS reserved
		FROM bed
		WHERE ($1 = '' OR ward = $1)
		GROUP BY ward
		ORDER BY ward`, string(w))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*WardStats
	for rows.Next() {
		var s WardStats
		if err := rows.Scan(&s.Ward, &s.Total, &s.Occupied, &s.Available, &s.Maintenance, &s.Reserved); err != nil {
			return nil, err
		}
		stats = append(stats, &s)
	}
	return stats, rows.Err()
}

func (r *repoPG) Assign(ctx context.Context, id, patientID, actorID uuid.UUID) (*Bed, error) {
	b, err := scanBed(r.conn(ctx).QueryRow(ctx, `
		UPDATE bed
		SET status = 'Occupied', patient_id = $2, assigned_date = NOW(),
			discharge_date = NULL, updated_by = $3, updated_at = NOW()
		WHERE id = $1 AND status IN ('Available', 'Reserved')
		RETURNING `+bedCols,
		id, patientID, actorID))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Precondition failed: re-read to report why.
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch cur.Status {
	case StatusMaintenance:
		return nil, ErrUnavailable
	default:
		return nil, ErrConflict
	}
}

func (r *repoPG) Discharge(ctx context.Context, id, actorID uuid.UUID) (*Bed, uuid.UUID, error) {
	var prevPatient uuid.UUID
	var b Bed
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE bed b
		SET status = 'Available', patient_id = NULL, discharge_date = NOW(),
			updated_by = $2, updated_at = NOW()
		FROM (SELECT id, patient_id FROM bed WHERE id = $1 FOR UPDATE) prev
		WHERE b.id = prev.id AND b.status = 'Occupied'
		RETURNING prev.patient_id, `+prefixedBedCols("b"),
		id, actorID).Scan(&prevPatient,
		&b.ID, &b.BedNumber, &b.Ward, &b.Status, &b.PatientID,
		&b.AssignedDate, &b.DischargeDate, &b.Notes, &b.CreatedBy, &b.UpdatedBy,
		&b.CreatedAt, &b.UpdatedAt)
	if err == nil {
		return &b, prevPatient, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, uuid.Nil, err
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, uuid.Nil, err
	}
	return nil, uuid.Nil, fmt.Errorf("%w: bed is not occupied", ErrInvalidState)
}

func prefixedBedCols(alias string) string {
	return alias + ".id, " + alias + ".bed_number, " + alias + ".ward, " + alias + ".status, " +
		alias + ".patient_id, " + alias + ".assigned_date, " + alias + ".discharge_date, " +
		alias + ".notes, " + alias + ".created_by, " + alias + ".updated_by, " +
		alias + ".created_at, " + alias + ".updated_at"
}

func (r *repoPG) Update(ctx context.Context, id uuid.UUID, status Status, notes *string, actorID uuid.UUID) (*Bed, error) {
	b, err := scanBed(r.conn(ctx).QueryRow(ctx, `
		UPDATE bed
		SET status = CASE WHEN $2 = '' THEN status ELSE $2 END,
			notes = COALESCE($3, notes),
			updated_by = $4, updated_at = NOW()
		WHERE id = $1 AND status <> 'Occupied'
		RETURNING `+bedCols,
		id, string(status), notes, actorID))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: bed is occupied", ErrInvalidState)
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM bed WHERE id = $1 AND status <> 'Occupied'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: cannot delete occupied bed", ErrInvalidState)
}
