package nurse

import (
	"context"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/ward"
)

// Repository is the persistence contract for nurses. AddPatient and
// RemovePatient are idempotent set operations applied atomically per nurse;
// they deliberately do not check capacity — that is the allocation
// coordinator's job when orchestrating new assignments.
type Repository interface {
	Create(ctx context.Context, n *Nurse) error
	GetByID(ctx context.Context, id uuid.UUID) (*Nurse, error)
	// List returns nurses filtered by ward and duty status (zero values
	// mean no filter), ordered by surname ascending.
	List(ctx context.Context, w ward.Ward, status DutyStatus, limit, offset int) ([]*Nurse, int, error)
	// ListOnDuty returns every On Duty nurse in the ward in stable
	// first-created order, for assignment ranking.
	ListOnDuty(ctx context.Context, w ward.Ward) ([]*Nurse, error)
	// ListByPatient returns every nurse whose roster contains the patient.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Nurse, error)
	// Update writes profile fields; it never touches the roster.
	Update(ctx context.Context, n *Nurse) error
	// AddPatient adds the patient to the roster; adding a patient already
	// present is a no-op, not an error.
	AddPatient(ctx context.Context, nurseID, patientID uuid.UUID) (*Nurse, error)
	// RemovePatient removes the patient from the roster; removing an
	// absent patient is a no-op.
	RemovePatient(ctx context.Context, nurseID, patientID uuid.UUID) (*Nurse, error)
	// Delete removes a nurse with an empty roster.
	Delete(ctx context.Context, id uuid.UUID) error
}
