package bed

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/ward"
)

// Service is the bed registry: ward-filtered queries, occupancy aggregation
// and the atomic assign/discharge transitions.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, b *Bed, actorID uuid.UUID) error {
	if b.BedNumber == "" {
		return fmt.Errorf("%w: bed_number is required", ErrValidation)
	}
	if !b.Ward.Valid() {
		return fmt.Errorf("%w: invalid ward: %s", ErrValidation, b.Ward)
	}
	if b.Status == "" {
		b.Status = StatusAvailable
	}
	if !b.Status.Valid() {
		return fmt.Errorf("%w: invalid bed status: %s", ErrValidation, b.Status)
	}
	// A bed cannot be born Occupied; occupancy is only reachable through
	// Assign, which keeps status and occupant in lockstep.
	if b.Status == StatusOccupied {
		return fmt.Errorf("%w: new beds cannot be created as Occupied", ErrInvalidState)
	}
	b.PatientID = nil
	if actorID != uuid.Nil {
		b.CreatedBy = &actorID
		b.UpdatedBy = &actorID
	}
	return s.repo.Create(ctx, b)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns beds filtered by ward and status, ordered by bed number.
// Empty filter strings (or ward "All") mean no filtering.
func (s *Service) List(ctx context.Context, wardFilter, statusFilter string, limit, offset int) ([]*Bed, int, error) {
	w, err := ward.Parse(wardFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	st, err := ParseStatus(statusFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.repo.List(ctx, w, st, limit, offset)
}

// Stats aggregates occupancy per ward. The counts are computed by grouping
// the bed set in a single statement, so they reconcile exactly with the
// individual bed statuses at the instant of the query.
func (s *Service) Stats(ctx context.Context, wardFilter string) ([]*WardStats, error) {
	w, err := ward.Parse(wardFilter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.repo.Stats(ctx, w)
}

// Assign puts a patient into an Available (or Reserved) bed. It is the only
// path by which a bed becomes Occupied. Fails with ErrConflict when the bed
// is already Occupied and ErrUnavailable when it is under Maintenance;
// neither is retried here, the caller must pick a different bed.
func (s *Service) Assign(ctx context.Context, id, patientID, actorID uuid.UUID) (*Bed, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	return s.repo.Assign(ctx, id, patientID, actorID)
}

// Discharge frees an Occupied bed and returns the outgoing patient id so
// the caller can cascade cleanup.
func (s *Service) Discharge(ctx context.Context, id, actorID uuid.UUID) (*Bed, uuid.UUID, error) {
	return s.repo.Discharge(ctx, id, actorID)
}

// Update changes status and/or notes of a bed under maintenance-style
// administration. Transitions into Occupied are rejected: occupancy changes
// only via Assign/Discharge.
func (s *Service) Update(ctx context.Context, id uuid.UUID, status Status, notes *string, actorID uuid.UUID) (*Bed, error) {
	if status != "" {
		if !status.Valid() {
			return nil, fmt.Errorf("%w: invalid bed status: %s", ErrValidation, status)
		}
		if status == StatusOccupied {
			return nil, fmt.Errorf("%w: use assign to occupy a bed", ErrInvalidState)
		}
	}
	return s.repo.Update(ctx, id, status, notes, actorID)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// FindByOccupant returns the bed a patient currently occupies, if any.
func (s *Service) FindByOccupant(ctx context.Context, patientID uuid.UUID) (*Bed, error) {
	return s.repo.GetByOccupant(ctx, patientID)
}
