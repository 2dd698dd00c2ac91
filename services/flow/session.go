// File: services/flow/session.go
package flow

import (
	"sync"
	"time"

	"agendabot/models"
)

// Conversation states.
const (
	StateMainMenu          = "main_menu"
	StateAwaitName         = "await_name"
	StatePickWeek          = "pick_week"
	StatePickDay           = "pick_day"
	StatePickTime          = "pick_time"
	StateConfirmBook       = "confirm_book"
	StateListForReschedule = "list_for_reschedule"
	StateListForCancel     = "list_for_cancel"
	StateConfirmCancel     = "confirm_cancel"
)

// sessionIdleTimeout resets abandoned conversations back to the main menu.
const sessionIdleTimeout = 30 * time.Minute

// Session is one contact's conversation position plus the choices gathered so
// far. Days, Times and Bookings cache the options last shown, so a numeric
// reply maps back to the option it pointed at even if availability shifts
// meanwhile.
type Session struct {
	State        string
	Name         string
	Week         int
	Date         string
	Time         string
	Rescheduling bool
	OldDate      string
	OldTime      string
	Days         []string
	Times        []string
	Bookings     []models.Slot
	UpdatedAt    time.Time
}

func (s *Session) resetChoices() {
	s.Week = 0
	s.Date = ""
	s.Time = ""
	s.Rescheduling = false
	s.OldDate = ""
	s.OldTime = ""
	s.Days = nil
	s.Times = nil
	s.Bookings = nil
}

type sessionEntry struct {
	mu   sync.Mutex
	sess Session
}

// SessionStore holds per-contact sessions in memory. Each contact's messages
// are serialized on the entry mutex, so rapid double taps cannot interleave
// inside the state machine.
type SessionStore struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
}

func NewSessionStore() *SessionStore {
	return &SessionStore{entries: make(map[string]*sessionEntry)}
}

func (st *SessionStore) entry(contactID string) *sessionEntry {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.entries[contactID]
	if !ok {
		e = &sessionEntry{sess: Session{State: StateMainMenu}}
		st.entries[contactID] = e
	}
	return e
}

// With runs fn while holding the contact's session lock. Idle sessions are
// reset to the main menu before fn sees them.
func (st *SessionStore) With(contactID string, now time.Time, fn func(sess *Session)) {
	e := st.entry(contactID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.sess.UpdatedAt.IsZero() && now.Sub(e.sess.UpdatedAt) > sessionIdleTimeout {
		name := e.sess.Name
		e.sess = Session{State: StateMainMenu, Name: name}
	}
	fn(&e.sess)
	e.sess.UpdatedAt = now
}
