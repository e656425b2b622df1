package session

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State of a withdrawal session. A session is created directly in
// AwaitingDestination (the Idle state of the protocol is simply the
// absence of a session) and ends in Completed or Failed.
type State int

const (
	AwaitingDestination State = iota + 1
	Submitting
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case AwaitingDestination:
		return "awaiting_destination"
	case Submitting:
		return "submitting"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrSessionActive rejects a second withdraw intent while a
	// non-terminal session exists for the user.
	ErrSessionActive = errors.New("withdrawal already in progress")

	ErrBadTransition = errors.New("invalid session transition")
)

// Session tracks one user's progress through the withdrawal protocol.
// SnapshotBalance is the balance captured when the session was opened; it
// is shown to the user but never used as the submitted amount.
type Session struct {
	ID              uuid.UUID
	UserID          int64
	State           State
	SnapshotBalance *big.Int
	Destination     string
	CreatedAt       time.Time
}

// AttachDestination moves AwaitingDestination -> Submitting.
func (s *Session) AttachDestination(address string) error {
	if s.State != AwaitingDestination {
		return fmt.Errorf("%w: attach destination in %s", ErrBadTransition, s.State)
	}
	s.Destination = address
	s.State = Submitting
	return nil
}

// Complete moves Submitting -> Completed.
func (s *Session) Complete() error {
	if s.State != Submitting {
		return fmt.Errorf("%w: complete in %s", ErrBadTransition, s.State)
	}
	s.State = Completed
	return nil
}

// Fail marks any non-terminal session as Failed.
func (s *Session) Fail() {
	if !s.Terminal() {
		s.State = Failed
	}
}

func (s *Session) Terminal() bool {
	return s.State == Completed || s.State == Failed
}

// Registry holds the active session per user. Sessions live in memory
// only and do not survive restarts.
type Registry struct {
	mu     sync.Mutex
	active map[int64]*Session
}

func NewRegistry() *Registry {
	return &Registry{active: make(map[int64]*Session)}
}

// Begin opens a session for userID, rejecting with ErrSessionActive if a
// non-terminal one already exists.
func (r *Registry) Begin(userID int64, snapshot *big.Int) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.active[userID]; ok && !existing.Terminal() {
		return nil, ErrSessionActive
	}
	s := &Session{
		ID:              uuid.New(),
		UserID:          userID,
		State:           AwaitingDestination,
		SnapshotBalance: new(big.Int).Set(snapshot),
		CreatedAt:       time.Now(),
	}
	r.active[userID] = s
	return s, nil
}

// Active returns the user's non-terminal session, if any.
func (r *Registry) Active(userID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.active[userID]
	if !ok || s.Terminal() {
		return nil, false
	}
	return s, true
}

// End removes the user's session from the registry.
func (r *Registry) End(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, userID)
}
