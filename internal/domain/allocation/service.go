// Package allocation is the orchestration layer over the bed and nurse
// registries. It is the only place that reasons about cross-entity
// consistency: a patient may only join a nurse's roster while occupying a
// bed in that nurse's ward, and roster rewrites are capacity-gated here.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/domain/bed"
	"github.com/hms/hms/internal/domain/nurse"
	"github.com/hms/hms/internal/domain/ward"
	"github.com/hms/hms/internal/platform/db"
)

// Errors returned by the coordinator on top of the registry kinds.
var (
	// ErrNoBedAssigned rejects a roster addition for a patient who does
	// not currently occupy any bed.
	ErrNoBedAssigned = errors.New("patient does not occupy a bed")
	// ErrWardMismatch rejects a roster addition when the patient's bed is
	// in a different ward than the nurse.
	ErrWardMismatch = errors.New("patient's bed ward does not match nurse ward")
	// ErrValidation marks malformed coordinator input.
	ErrValidation = errors.New("validation failed")
)

// keyedMutex provides per-nurse mutual exclusion for roster rewrites, so the
// capacity check and the subsequent set operations are indivisible with
// respect to other rewrites of the same nurse.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*entityLock
}

type entityLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*entityLock)}
}

func (k *keyedMutex) lock(id uuid.UUID) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &entityLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

// Service composes the two registries. Registries never call back into the
// coordinator.
type Service struct {
	beds   *bed.Service
	nurses *nurse.Service
	txdb   db.TxBeginner
	roster *keyedMutex
	logger zerolog.Logger
}

// NewService builds the coordinator. txdb scopes multi-statement roster
// rewrites to one transaction; it may be nil when the registries are not
// database-backed.
func NewService(beds *bed.Service, nurses *nurse.Service, txdb db.TxBeginner, logger zerolog.Logger) *Service {
	return &Service{
		beds:   beds,
		nurses: nurses,
		txdb:   txdb,
		roster: newKeyedMutex(),
		logger: logger,
	}
}

// AssignPatientToBed delegates to the bed registry. Conflict and
// unavailability are surfaced to the caller unchanged; bed assignment is
// never retried automatically — the caller must pick a different bed.
func (s *Service) AssignPatientToBed(ctx context.Context, bedID, patientID, actorID uuid.UUID) (*bed.Bed, error) {
	return s.beds.Assign(ctx, bedID, patientID, actorID)
}

// DischargePatient frees the bed, then removes the outgoing patient from
// every nurse roster still holding them. The cleanup is idempotent and
// tolerant of partial completion: the discharge itself is irreversible once
// committed, so a failed removal is logged and left for a retry or the next
// roster rewrite rather than failing the discharge.
func (s *Service) DischargePatient(ctx context.Context, bedID, actorID uuid.UUID) (*bed.Bed, uuid.UUID, error) {
	b, patientID, err := s.beds.Discharge(ctx, bedID, actorID)
	if err != nil {
		return nil, uuid.Nil, err
	}

	holders, err := s.nurses.FindByPatient(ctx, patientID)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("patient_id", patientID.String()).
			Msg("discharge committed but roster lookup failed; rosters may be stale")
		return b, patientID, nil
	}
	for _, n := range holders {
		if _, err := s.nurses.RemovePatient(ctx, n.ID, patientID); err != nil {
			s.logger.Warn().Err(err).
				Str("nurse_id", n.ID.String()).
				Str("patient_id", patientID.String()).
				Msg("discharge committed but roster cleanup failed for nurse")
		}
	}
	return b, patientID, nil
}

// SelectBestNurse returns the most suitable On Duty nurse for the ward, or
// nil when none can accept a patient. Selection does not commit anything:
// the caller reviews the proposal and commits via SetNurseRoster.
func (s *Service) SelectBestNurse(ctx context.Context, wardName string) (*nurse.Nurse, error) {
	w, err := ward.Parse(wardName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if w == "" {
		return nil, fmt.Errorf("%w: ward is required", ErrValidation)
	}
	return s.nurses.FindBestForWard(ctx, w)
}

// SetNurseRoster replaces the nurse's roster with the desired patient set,
// all-or-nothing. The batch fails with ErrCapacityExceeded when the
// resulting size would exceed max_patient_load, and with ErrNoBedAssigned /
// ErrWardMismatch when an added patient does not occupy a bed in the
// nurse's ward. Nothing is applied on failure.
func (s *Service) SetNurseRoster(ctx context.Context, nurseID uuid.UUID, patientIDs []uuid.UUID) (*nurse.Nurse, error) {
	unlock := s.roster.lock(nurseID)
	defer unlock()

	n, err := s.nurses.Get(ctx, nurseID)
	if err != nil {
		return nil, err
	}

	desired := make([]uuid.UUID, 0, len(patientIDs))
	seen := make(map[uuid.UUID]bool, len(patientIDs))
	for _, p := range patientIDs {
		if p == uuid.Nil {
			return nil, fmt.Errorf("%w: patient_id cannot be empty", ErrValidation)
		}
		if !seen[p] {
			seen[p] = true
			desired = append(desired, p)
		}
	}

	// Capacity is checked against the resulting size, not the current one.
	if len(desired) > n.MaxPatientLoad {
		return nil, fmt.Errorf("%w: %d patients requested, max is %d",
			nurse.ErrCapacityExceeded, len(desired), n.MaxPatientLoad)
	}

	var adds, removes []uuid.UUID
	for _, p := range desired {
		if !n.HasPatient(p) {
			adds = append(adds, p)
		}
	}
	for _, p := range n.AssignedPatients {
		if !seen[p] {
			removes = append(removes, p)
		}
	}

	// Validate every addition before mutating anything.
	for _, p := range adds {
		b, err := s.beds.FindByOccupant(ctx, p)
		if err != nil {
			if errors.Is(err, bed.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrNoBedAssigned, p)
			}
			return nil, err
		}
		if b.Ward != n.Ward {
			return nil, fmt.Errorf("%w: bed %s is in %s, nurse covers %s",
				ErrWardMismatch, b.BedNumber, b.Ward, n.Ward)
		}
	}

	// Removals and additions commit or roll back together; a failure
	// midway must not leave the roster partially rewritten.
	err = db.RunInTx(ctx, s.txdb, func(ctx context.Context) error {
		for _, p := range removes {
			var txErr error
			if n, txErr = s.nurses.RemovePatient(ctx, nurseID, p); txErr != nil {
				return txErr
			}
		}
		for _, p := range adds {
			var txErr error
			if n, txErr = s.nurses.AddPatient(ctx, nurseID, p); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}
