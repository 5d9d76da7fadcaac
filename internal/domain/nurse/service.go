package nurse

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/ward"
)

// Service is the nurse registry: ward-filtered queries, workload scoring and
// the idempotent roster primitives. Capacity-gated roster rewrites live in
// the allocation coordinator, not here.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// newEmployeeID derives the badge code from the nurse's row id, so two
// nurses created in the same instant still get distinct codes. The column
// carries a unique constraint as a backstop.
func newEmployeeID(id uuid.UUID) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return "N" + strings.ToUpper(hex[:8])
}

func validateLimits(workingHours, maxPatientLoad, experience int) error {
	if workingHours < 1 || workingHours > 24 {
		return fmt.Errorf("%w: working_hours must be between 1 and 24", ErrValidation)
	}
	if maxPatientLoad < 1 || maxPatientLoad > 20 {
		return fmt.Errorf("%w: max_patient_load must be between 1 and 20", ErrValidation)
	}
	if experience < 0 {
		return fmt.Errorf("%w: experience cannot be negative", ErrValidation)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, n *Nurse, actorID uuid.UUID) error {
	if n.FirstName == "" || n.LastName == "" {
		return fmt.Errorf("%w: first_name and last_name are required", ErrValidation)
	}
	if n.Email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !n.Ward.Valid() {
		return fmt.Errorf("%w: invalid ward: %s", ErrValidation, n.Ward)
	}
	if n.Shift == "" {
		n.Shift = ShiftMorning
	}
	if !n.Shift.Valid() {
		return fmt.Errorf("%w: invalid shift: %s", ErrValidation, n.Shift)
	}
	if n.Status == "" {
		n.Status = OffDuty
	}
	if !n.Status.Valid() {
		return fmt.Errorf("%w: invalid duty status: %s", ErrValidation, n.Status)
	}
	if n.WorkingHours == 0 {
		n.WorkingHours = 8
	}
	if n.MaxPatientLoad == 0 {
		n.MaxPatientLoad = 5
	}
	if err := validateLimits(n.WorkingHours, n.MaxPatientLoad, n.Experience); err != nil {
		return err
	}
	n.ID = uuid.New()
	n.EmployeeID = newEmployeeID(n.ID)
	n.AssignedPatients = nil
	if actorID != uuid.Nil {
		n.CreatedBy = &actorID
		n.UpdatedBy = &actorID
	}
	return s.repo.Create(ctx, n)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Nurse, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns nurses filtered by ward and duty status, ordered by surname.
func (s *Service) List(ctx context.Context, wardFilter, statusFilter string, limit, offset int) ([]*Nurse, int, error) {
	w, err := ward.Parse(wardFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	d, err := ParseDutyStatus(statusFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.repo.List(ctx, w, d, limit, offset)
}

// UpdateParams carries the updatable profile fields; nil pointers keep the
// current value.
type UpdateParams struct {
	FirstName      *string     `json:"first_name"`
	LastName       *string     `json:"last_name"`
	Email          *string     `json:"email"`
	Phone          *string     `json:"phone"`
	Ward           *ward.Ward  `json:"ward"`
	Shift          *Shift      `json:"shift"`
	Status         *DutyStatus `json:"status"`
	Specialization *string     `json:"specialization"`
	Experience     *int        `json:"experience"`
	WorkingHours   *int        `json:"working_hours"`
	MaxPatientLoad *int        `json:"max_patient_load"`
}

// Update applies a profile change. Lowering max_patient_load below the
// current roster size fails with ErrCapacityExceeded rather than silently
// breaking the load invariant.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p UpdateParams, actorID uuid.UUID) (*Nurse, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.FirstName != nil {
		n.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		n.LastName = *p.LastName
	}
	if p.Email != nil {
		n.Email = *p.Email
	}
	if p.Phone != nil {
		n.Phone = *p.Phone
	}
	if p.Ward != nil {
		n.Ward = *p.Ward
	}
	if p.Shift != nil {
		n.Shift = *p.Shift
	}
	if p.Status != nil {
		n.Status = *p.Status
	}
	if p.Specialization != nil {
		n.Specialization = p.Specialization
	}
	if p.Experience != nil {
		n.Experience = *p.Experience
	}
	if p.WorkingHours != nil {
		n.WorkingHours = *p.WorkingHours
	}
	if p.MaxPatientLoad != nil {
		n.MaxPatientLoad = *p.MaxPatientLoad
	}

	if n.FirstName == "" || n.LastName == "" {
		return nil, fmt.Errorf("%w: first_name and last_name are required", ErrValidation)
	}
	if !n.Ward.Valid() {
		return nil, fmt.Errorf("%w: invalid ward: %s", ErrValidation, n.Ward)
	}
	if !n.Shift.Valid() {
		return nil, fmt.Errorf("%w: invalid shift: %s", ErrValidation, n.Shift)
	}
	if !n.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid duty status: %s", ErrValidation, n.Status)
	}
	if err := validateLimits(n.WorkingHours, n.MaxPatientLoad, n.Experience); err != nil {
		return nil, err
	}
	if n.CurrentLoad() > n.MaxPatientLoad {
		return nil, fmt.Errorf("%w: %d patients assigned, new max is %d",
			ErrCapacityExceeded, n.CurrentLoad(), n.MaxPatientLoad)
	}

	if actorID != uuid.Nil {
		n.UpdatedBy = &actorID
	}
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// FindBestForWard ranks On Duty nurses in the ward that can accept a new
// patient by AvailabilityScore and returns the best one. Ties keep the
// first-encountered nurse. A nil result with nil error means no nurse is
// available — a normal outcome the caller must handle, not a fault.
func (s *Service) FindBestForWard(ctx context.Context, w ward.Ward) (*Nurse, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("%w: invalid ward: %s", ErrValidation, w)
	}
	nurses, err := s.repo.ListOnDuty(ctx, w)
	if err != nil {
		return nil, err
	}

	var best *Nurse
	var bestScore float64
	for _, n := range nurses {
		if !n.CanAcceptPatient() {
			continue
		}
		if score := n.AvailabilityScore(); best == nil || score > bestScore {
			best = n
			bestScore = score
		}
	}
	return best, nil
}

// AddPatient is the low-level idempotent roster add. It does not check
// capacity; callers performing new assignments must go through the
// allocation coordinator.
func (s *Service) AddPatient(ctx context.Context, nurseID, patientID uuid.UUID) (*Nurse, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	return s.repo.AddPatient(ctx, nurseID, patientID)
}

// RemovePatient is the low-level idempotent roster remove.
func (s *Service) RemovePatient(ctx context.Context, nurseID, patientID uuid.UUID) (*Nurse, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	return s.repo.RemovePatient(ctx, nurseID, patientID)
}

// FindByPatient returns every nurse whose roster contains the patient.
func (s *Service) FindByPatient(ctx context.Context, patientID uuid.UUID) ([]*Nurse, error) {
	return s.repo.ListByPatient(ctx, patientID)
}
