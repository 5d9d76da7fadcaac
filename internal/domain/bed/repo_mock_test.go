package bed

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/ward"
)

// mockRepo is an in-memory Repository with the same transition semantics as
// the PostgreSQL implementation.
type mockRepo struct {
	mu   sync.Mutex
	beds map[uuid.UUID]*Bed
}

func newMockRepo() *mockRepo {
	return &mockRepo{beds: make(map[uuid.UUID]*Bed)}
}

func (m *mockRepo) clone(b *Bed) *Bed {
	c := *b
	return &c
}

func (m *mockRepo) Create(_ context.Context, b *Bed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.beds {
		if existing.BedNumber == b.BedNumber {
			return fmt.Errorf("%w: %s", ErrDuplicate, b.BedNumber)
		}
	}
	b.ID = uuid.New()
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	m.beds[b.ID] = m.clone(b)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Bed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.beds[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.clone(b), nil
}

func (m *mockRepo) GetByOccupant(_ context.Context, patientID uuid.UUID) (*Bed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.beds {
		if b.PatientID != nil && *b.PatientID == patientID {
			return m.clone(b), nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) List(_ context.Context, w ward.Ward, status Status, limit, offset int) ([]*Bed, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*Bed
	for _, b := range m.beds {
		if w != "" && b.Ward != w {
			continue
		}
		if status != "" && b.Status != status {
			continue
		}
		all = append(all, m.clone(b))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].BedNumber < all[j].BedNumber })
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *mockRepo) Stats(_ context.Context, w ward.Ward) ([]*WardStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byWard := make(map[ward.Ward]*WardStats)
	for _, b := range m.beds {
		if w != "" && b.Ward != w {
			continue
		}
		s, ok := byWard[b.Ward]
		if !ok {
			s = &WardStats{Ward: b.Ward}
			byWard[b.Ward] = s
		}
		s.Total++
		switch b.Status {
		case StatusOccupied:
			s.Occupied++
		case StatusAvailable:
			s.Available++
		case StatusMaintenance:
			s.Maintenance++
		case StatusReserved:
			s.Reserved++
		}
	}
	var stats []*WardStats
	for _, s := range byWard {
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Ward < stats[j].Ward })
	return stats, nil
}

func (m *mockRepo) Assign(_ context.Context, id, patientID, actorID uuid.UUID) (*Bed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.beds[id]
	if !ok {
		return nil, ErrNotFound
	}
	switch b.Status {
	case StatusAvailable, StatusReserved:
	case StatusMaintenance:
		return nil, ErrUnavailable
	default:
		return nil, ErrConflict
	}
	now := time.Now()
	b.Status = StatusOccupied
	b.PatientID = &patientID
	b.AssignedDate = &now
	b.DischargeDate = nil
	if actorID != uuid.Nil {
		b.UpdatedBy = &actorID
	}
	b.UpdatedAt = now
	return m.clone(b), nil
}

func (m *mockRepo) Discharge(_ context.Context, id, actorID uuid.UUID) (*Bed, uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.beds[id]
	if !ok {
		return nil, uuid.Nil, ErrNotFound
	}
	if b.Status != StatusOccupied {
		return nil, uuid.Nil, fmt.Errorf("%w: bed is not occupied", ErrInvalidState)
	}
	prev := *b.PatientID
	now := time.Now()
	b.Status = StatusAvailable
	b.PatientID = nil
	b.DischargeDate = &now
	if actorID != uuid.Nil {
		b.UpdatedBy = &actorID
	}
	b.UpdatedAt = now
	return m.clone(b), prev, nil
}

func (m *mockRepo) Update(_ context.Context, id uuid.UUID, status Status, notes *string, actorID uuid.UUID) (*Bed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.beds[id]
	if !ok {
		return nil, ErrNotFound
	}
	if b.Status == StatusOccupied {
		return nil, fmt.Errorf("%w: bed is occupied", ErrInvalidState)
	}
	if status != "" {
		b.Status = status
	}
	if notes != nil {
		b.Notes = notes
	}
	if actorID != uuid.Nil {
		b.UpdatedBy = &actorID
	}
	b.UpdatedAt = time.Now()
	return m.clone(b), nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.beds[id]
	if !ok {
		return ErrNotFound
	}
	if b.Status == StatusOccupied {
		return fmt.Errorf("%w: cannot delete occupied bed", ErrInvalidState)
	}
	delete(m.beds, id)
	return nil
}
