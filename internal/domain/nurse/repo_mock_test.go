package nurse

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/ward"
)

// mockRepo is an in-memory Repository mirroring the PostgreSQL semantics:
// unique email and employee id, idempotent roster set operations bounded by
// max_patient_load, delete refused while the roster is non-empty.
type mockRepo struct {
	mu     sync.Mutex
	nurses map[uuid.UUID]*Nurse
	order  []uuid.UUID
}

func newMockRepo() *mockRepo {
	return &mockRepo{nurses: make(map[uuid.UUID]*Nurse)}
}

func (m *mockRepo) clone(n *Nurse) *Nurse {
	c := *n
	c.AssignedPatients = append([]uuid.UUID(nil), n.AssignedPatients...)
	return &c
}

func (m *mockRepo) Create(_ context.Context, n *Nurse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.nurses {
		if existing.Email == n.Email {
			return fmt.Errorf("%w: %s", ErrDuplicate, n.Email)
		}
		if existing.EmployeeID == n.EmployeeID {
			return fmt.Errorf("%w: employee id %s", ErrDuplicate, n.EmployeeID)
		}
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	m.nurses[n.ID] = m.clone(n)
	m.order = append(m.order, n.ID)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Nurse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nurses[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.clone(n), nil
}

func (m *mockRepo) List(_ context.Context, w ward.Ward, status DutyStatus, limit, offset int) ([]*Nurse, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*Nurse
	for _, n := range m.nurses {
		if w != "" && n.Ward != w {
			continue
		}
		if status != "" && n.Status != status {
			continue
		}
		all = append(all, m.clone(n))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].LastName < all[j].LastName })
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

func (m *mockRepo) ListOnDuty(_ context.Context, w ward.Ward) ([]*Nurse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Nurse
	for _, id := range m.order {
		n := m.nurses[id]
		if n.Ward == w && n.Status == OnDuty {
			out = append(out, m.clone(n))
		}
	}
	return out, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Nurse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Nurse
	for _, id := range m.order {
		n := m.nurses[id]
		if n.HasPatient(patientID) {
			out = append(out, m.clone(n))
		}
	}
	return out, nil
}

func (m *mockRepo) Update(_ context.Context, n *Nurse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.nurses[n.ID]
	if !ok {
		return ErrNotFound
	}
	for _, other := range m.nurses {
		if other.ID != n.ID && other.Email == n.Email {
			return fmt.Errorf("%w: %s", ErrDuplicate, n.Email)
		}
	}
	c := m.clone(n)
	c.AssignedPatients = append([]uuid.UUID(nil), cur.AssignedPatients...)
	c.UpdatedAt = time.Now()
	m.nurses[n.ID] = c
	return nil
}

func (m *mockRepo) AddPatient(_ context.Context, nurseID, patientID uuid.UUID) (*Nurse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nurses[nurseID]
	if !ok {
		return nil, ErrNotFound
	}
	if !n.HasPatient(patientID) {
		if n.CurrentLoad() >= n.MaxPatientLoad {
			return nil, fmt.Errorf("%w: nurse %s", ErrCapacityExceeded, nurseID)
		}
		n.AssignedPatients = append(n.AssignedPatients, patientID)
		n.UpdatedAt = time.Now()
	}
	return m.clone(n), nil
}

func (m *mockRepo) RemovePatient(_ context.Context, nurseID, patientID uuid.UUID) (*Nurse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nurses[nurseID]
	if !ok {
		return nil, ErrNotFound
	}
	for i, p := range n.AssignedPatients {
		if p == patientID {
			n.AssignedPatients = append(n.AssignedPatients[:i], n.AssignedPatients[i+1:]...)
			n.UpdatedAt = time.Now()
			break
		}
	}
	return m.clone(n), nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nurses[id]
	if !ok {
		return ErrNotFound
	}
	if len(n.AssignedPatients) > 0 {
		return fmt.Errorf("%w: nurse still has assigned patients", ErrInvalidState)
	}
	delete(m.nurses, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}
