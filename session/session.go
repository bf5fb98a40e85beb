package session

import (
	"errors"
	"sync"
)

var (
	ErrSessionNotFound   = errors.New("session: session not found")
	ErrInsufficientFunds = errors.New("session: insufficient funds")
	ErrInvalidAmount     = errors.New("session: invalid amount")
)

type Session struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
	TableID string `json:"table_id"` // 空字串表示不在任何桌次
}

// Directory owns one Session per connected identity. Balance is only changed through it.
type Directory struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewDirectory() *Directory {
	return &Directory{
		sessions: make(map[string]*Session),
	}
}

// Open returns the existing session for id or creates one with the given balance.
func (d *Directory) Open(id, name string, balance int64) Session {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.sessions[id]; ok {
		return *s
	}

	s := &Session{
		ID:      id,
		Name:    name,
		Balance: balance,
	}
	d.sessions[id] = s
	return *s
}

func (d *Directory) Get(id string) (Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return *s, nil
}

func (d *Directory) Close(id string) (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}

	delete(d.sessions, id)
	return *s, nil
}

func (d *Directory) SetTable(id, tableID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}

	s.TableID = tableID
	return nil
}

// ClearTable detaches the session from tableID. A session that has since moved elsewhere is left alone.
func (d *Directory) ClearTable(id, tableID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}

	if s.TableID == tableID {
		s.TableID = ""
	}
	return nil
}

func (d *Directory) Balance(id string) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.sessions[id]
	if !ok {
		return 0, ErrSessionNotFound
	}
	return s.Balance, nil
}

func (d *Directory) Debit(id string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[id]
	if !ok {
		return 0, ErrSessionNotFound
	}

	if s.Balance < amount {
		return s.Balance, ErrInsufficientFunds
	}

	s.Balance -= amount
	return s.Balance, nil
}

func (d *Directory) Credit(id string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[id]
	if !ok {
		return 0, ErrSessionNotFound
	}

	s.Balance += amount
	return s.Balance, nil
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.sessions)
}
