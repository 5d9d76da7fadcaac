package bed

import (
	"context"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/ward"
)

// Repository is the persistence contract for beds. Every state-changing
// method checks its precondition and applies the transition atomically with
// respect to concurrent callers on the same bed.
type Repository interface {
	Create(ctx context.Context, b *Bed) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bed, error)
	// GetByOccupant returns the bed currently occupied by the given patient.
	GetByOccupant(ctx context.Context, patientID uuid.UUID) (*Bed, error)
	// List returns beds filtered by ward and status (zero values mean no
	// filter), ordered by bed number ascending.
	List(ctx context.Context, w ward.Ward, status Status, limit, offset int) ([]*Bed, int, error)
	// Stats aggregates occupancy counts grouped by ward. A zero ward means
	// all wards.
	Stats(ctx context.Context, w ward.Ward) ([]*WardStats, error)
	// Assign transitions an Available or Reserved bed to Occupied.
	Assign(ctx context.Context, id, patientID, actorID uuid.UUID) (*Bed, error)
	// Discharge transitions an Occupied bed back to Available and returns
	// the outgoing patient id alongside the updated bed.
	Discharge(ctx context.Context, id, actorID uuid.UUID) (*Bed, uuid.UUID, error)
	// Update changes status and/or notes of a non-Occupied bed. A zero
	// status keeps the current one; a nil notes pointer keeps the notes.
	Update(ctx context.Context, id uuid.UUID, status Status, notes *string, actorID uuid.UUID) (*Bed, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
