package bed

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/ward"
)

// Errors returned by the bed registry.
var (
	ErrNotFound     = errors.New("bed not found")
	ErrDuplicate    = errors.New("bed number already exists")
	ErrConflict     = errors.New("bed is already occupied")
	ErrUnavailable  = errors.New("bed is under maintenance")
	ErrInvalidState = errors.New("bed is not in a valid state for this operation")
	ErrValidation   = errors.New("validation failed")
)

// Status is the occupancy state of a bed. A bed is Occupied if and only if
// it holds a patient reference; the transition into Occupied happens only
// through Assign and the transition out only through Discharge.
type Status string

const (
	StatusAvailable   Status = "Available"
	StatusOccupied    Status = "Occupied"
	StatusMaintenance Status = "Maintenance"
	StatusReserved    Status = "Reserved"
)

// Valid reports whether s is a known bed status.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusOccupied, StatusMaintenance, StatusReserved:
		return true
	}
	return false
}

// ParseStatus converts s into a Status. The empty string means "no status
// filter" and returns the zero Status with no error.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return "", nil
	}
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid bed status: %s", s)
	}
	return st, nil
}

// Bed maps to the bed table.
type Bed struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	BedNumber     string     `db:"bed_number" json:"bed_number"`
	Ward          ward.Ward  `db:"ward" json:"ward"`
	Status        Status     `db:"status" json:"status"`
	PatientID     *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	AssignedDate  *time.Time `db:"assigned_date" json:"assigned_date,omitempty"`
	DischargeDate *time.Time `db:"discharge_date" json:"discharge_date,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	CreatedBy     *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
	UpdatedBy     *uuid.UUID `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Occupied reports whether the bed currently holds a patient.
func (b *Bed) Occupied() bool {
	return b.Status == StatusOccupied
}

// WardStats is one occupancy aggregation row. Total counts every bed in the
// ward, so Total == Occupied + Available + Maintenance + Reserved.
type WardStats struct {
	Ward        ward.Ward `db:"ward" json:"ward"`
	Total       int       `db:"total" json:"total"`
	Occupied    int       `db:"occupied" json:"occupied"`
	Available   int       `db:"available" json:"available"`
	Maintenance int       `db:"maintenance" json:"maintenance"`
	Reserved    int       `db:"reserved" json:"reserved"`
}
