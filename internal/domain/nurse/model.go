package nurse

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/ward"
)

// Errors returned by the nurse registry.
var (
	ErrNotFound         = errors.New("nurse not found")
	ErrDuplicate        = errors.New("nurse with this email already exists")
	ErrInvalidState     = errors.New("nurse is not in a valid state for this operation")
	ErrCapacityExceeded = errors.New("roster would exceed max patient load")
	ErrValidation       = errors.New("validation failed")
)

// Shift is the working shift of a nurse.
type Shift string

const (
	ShiftMorning Shift = "Morning"
	ShiftEvening Shift = "Evening"
	ShiftNight   Shift = "Night"
)

func (s Shift) Valid() bool {
	switch s {
	case ShiftMorning, ShiftEvening, ShiftNight:
		return true
	}
	return false
}

// DutyStatus is the current duty state of a nurse. Only On Duty nurses are
// eligible for new patient assignments.
type DutyStatus string

const (
	OnDuty  DutyStatus = "On Duty"
	OnBreak DutyStatus = "On Break"
	OffDuty DutyStatus = "Off Duty"
)

func (d DutyStatus) Valid() bool {
	switch d {
	case OnDuty, OnBreak, OffDuty:
		return true
	}
	return false
}

// ParseDutyStatus converts s into a DutyStatus. The empty string means "no
// status filter" and returns the zero DutyStatus with no error.
func ParseDutyStatus(s string) (DutyStatus, error) {
	if s == "" {
		return "", nil
	}
	d := DutyStatus(s)
	if !d.Valid() {
		return "", fmt.Errorf("invalid duty status: %s", s)
	}
	return d, nil
}

// Nurse maps to the nurse table. AssignedPatients is a membership set of
// patient ids; order carries no meaning. The invariant
// len(AssignedPatients) <= MaxPatientLoad holds after every mutation driven
// through the allocation coordinator.
type Nurse struct {
	ID               uuid.UUID   `db:"id" json:"id"`
	EmployeeID       string      `db:"employee_id" json:"employee_id"`
	FirstName        string      `db:"first_name" json:"first_name"`
	LastName         string      `db:"last_name" json:"last_name"`
	Email            string      `db:"email" json:"email"`
	Phone            string      `db:"phone" json:"phone"`
	Ward             ward.Ward   `db:"ward" json:"ward"`
	Shift            Shift       `db:"shift" json:"shift"`
	Status           DutyStatus  `db:"status" json:"status"`
	AssignedPatients []uuid.UUID `db:"assigned_patients" json:"assigned_patients"`
	Specialization   *string     `db:"specialization" json:"specialization,omitempty"`
	Experience       int         `db:"experience" json:"experience"`
	WorkingHours     int         `db:"working_hours" json:"working_hours"`
	MaxPatientLoad   int         `db:"max_patient_load" json:"max_patient_load"`
	CreatedBy        *uuid.UUID  `db:"created_by" json:"created_by,omitempty"`
	UpdatedBy        *uuid.UUID  `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
}

// FullName returns "First Last".
func (n *Nurse) FullName() string {
	return n.FirstName + " " + n.LastName
}

// CurrentLoad is the number of patients currently on the roster.
func (n *Nurse) CurrentLoad() int {
	return len(n.AssignedPatients)
}

// HasPatient reports whether the patient is already on the roster.
func (n *Nurse) HasPatient(patientID uuid.UUID) bool {
	for _, p := range n.AssignedPatients {
		if p == patientID {
			return true
		}
	}
	return false
}

// CanAcceptPatient reports whether the nurse is On Duty with remaining
// roster capacity.
func (n *Nurse) CanAcceptPatient() bool {
	return n.CurrentLoad() < n.MaxPatientLoad && n.Status == OnDuty
}

// AvailabilityScore ranks the nurse for a new assignment; higher is better.
// The weights (50% remaining capacity, 30% shift length against a 12-hour
// reference, 20% experience capped at 20 years) are part of the observable
// contract and must not drift.
func (n *Nurse) AvailabilityScore() float64 {
	loadPct := float64(n.CurrentLoad()) / float64(n.MaxPatientLoad) * 100
	capacityScore := 0.5 * math.Max(0, 100-loadPct)
	hoursScore := 0.3 * (math.Min(float64(n.WorkingHours), 12) / 12 * 100)
	experienceScore := 0.2 * math.Min(float64(n.Experience)*5, 100)
	return capacityScore + hoursScore + experienceScore
}
