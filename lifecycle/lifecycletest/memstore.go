// Package lifecycletest provides in-memory collaborators for lifecycle tests.
package lifecycletest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"Gin_postgres_redis_borrow_return/lifecycle"
	"Gin_postgres_redis_borrow_return/models"
	"Gin_postgres_redis_borrow_return/notify"
)

// MemStore implements lifecycle.Store with the same version and stock rules as the gorm store.
type MemStore struct {
	mu          sync.Mutex
	txns        map[string]models.BorrowTransaction
	logs        []models.TransitionLog
	stock       map[string]int
	equipment   map[string]models.Equipment
	seq         int
	BeforeWrite func(id string) // runs under no lock right before a conditional update
}

var _ lifecycle.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		txns:      map[string]models.BorrowTransaction{},
		stock:     map[string]int{},
		equipment: map[string]models.Equipment{},
	}
}

func (m *MemStore) PutEquipment(id, name, category string, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[id] = qty
	m.equipment[id] = models.Equipment{ID: id, Name: name, Category: category, Quantity: qty}
}

func (m *MemStore) LookupEquipment(_ context.Context, ids []string) (map[string]models.Equipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.Equipment, len(ids))
	for _, id := range ids {
		if e, ok := m.equipment[id]; ok {
			e.Quantity = m.stock[id]
			out[id] = e
		}
	}
	return out, nil
}

func (m *MemStore) Quantity(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[id]
}

// Bump advances the stored version of id, simulating a concurrent writer.
func (m *MemStore) Bump(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.txns[id]
	t.Version++
	m.txns[id] = t
}

func (m *MemStore) CreateTransaction(_ context.Context, t *models.BorrowTransaction, log *models.TransitionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txns[t.ID]; ok {
		return fmt.Errorf("duplicate id %s", t.ID)
	}
	m.txns[t.ID] = clone(*t)
	if log != nil {
		m.appendLog(*log)
	}
	return nil
}

func (m *MemStore) FindTransaction(_ context.Context, id string) (*models.BorrowTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	c := clone(t)
	return &c, nil
}

func (m *MemStore) UpdateTransaction(_ context.Context, t *models.BorrowTransaction, expectedVersion int64, ch lifecycle.Change) error {
	if m.BeforeWrite != nil {
		m.BeforeWrite(t.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.txns[t.ID]
	if !ok {
		return lifecycle.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return lifecycle.ErrConcurrencyConflict
	}
	for _, d := range ch.Stock {
		if m.stock[d.EquipmentID]+d.Delta < 0 {
			return fmt.Errorf("%w: %s", lifecycle.ErrInsufficientStock, d.EquipmentID)
		}
	}
	for _, d := range ch.Stock {
		m.stock[d.EquipmentID] += d.Delta
	}
	m.txns[t.ID] = clone(*t)
	if ch.Log != nil {
		m.appendLog(*ch.Log)
	}
	return nil
}

func (m *MemStore) ListTransactions(_ context.Context, q lifecycle.ListQuery) ([]models.BorrowTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.BorrowTransaction, 0, len(m.txns))
	for _, t := range m.txns {
		if q.UserID != "" && t.UserID != q.UserID {
			continue
		}
		if q.Status != "" && t.Status != string(q.Status) {
			continue
		}
		out = append(out, clone(t))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemStore) ListTransitions(_ context.Context, id string) ([]models.TransitionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TransitionLog
	for _, l := range m.logs {
		if l.TransactionID == id {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *MemStore) appendLog(l models.TransitionLog) {
	m.seq++
	l.ID = fmt.Sprintf("log-%d", m.seq)
	m.logs = append(m.logs, l)
}

func clone(t models.BorrowTransaction) models.BorrowTransaction {
	t.EquipmentItems = append([]models.BorrowItem(nil), t.EquipmentItems...)
	return t
}

// Recorder is a notify.Notifier that keeps every event. Err, when set, is returned from Send.
type Recorder struct {
	mu     sync.Mutex
	events []notify.Event
	Err    error
}

func (r *Recorder) Send(_ context.Context, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.Err
}

func (r *Recorder) Events() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...)
}

func (r *Recorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}
