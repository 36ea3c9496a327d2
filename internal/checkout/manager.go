package checkout

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var ErrSessionNotFound = errors.New("checkout session not found")

// Manager owns the live checkout sessions of this process. A session exists
// only between creation and commit or abandonment; it is never written to
// the database. All mutations go through Update so that a session's changes
// apply in the order the cashier issued them; Create, Get and Update hand
// out copies, never the live session, so callers can read them unlocked.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	taxRate  decimal.Decimal
	currency string
}

func NewManager(taxRate decimal.Decimal, currency string) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		taxRate:  taxRate,
		currency: currency,
	}
}

func (m *Manager) Create(cashierID int64, customerID *int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := NewSession(cashierID, m.taxRate, m.currency)
	s.CustomerID = customerID
	m.sessions[s.ID] = s
	return s.snapshot()
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.snapshot(), nil
}

// Update runs fn against the live session under the manager lock and returns
// a copy of the result. The live session is only ever touched inside fn.
func (m *Manager) Update(id string, fn func(*Session) error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	return s.snapshot(), nil
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Sweep drops sessions idle for longer than maxAge and reports how many were
// removed. Called opportunistically from the HTTP layer, not from a timer.
func (m *Manager) Sweep(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
