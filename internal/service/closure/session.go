package closure

import (
	"sync"
	"time"

	"github.com/dvbernardes/pastelbot/internal/domain/models"
)

// pendingClosure holds the report computed when the carryover question was
// asked, so the eventual decision commits exactly what the operator saw.
type pendingClosure struct {
	report    models.DailyReport
	createdAt time.Time
}

// SessionManager keeps per-session pending closures in process memory.
// Entries expire after the TTL; losing them on restart is acceptable, the
// operator just re-runs the closure.
type SessionManager struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]pendingClosure
}

// NewSessionManager creates a session manager with the given entry TTL.
func NewSessionManager(ttl time.Duration) *SessionManager {
	return &SessionManager{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]pendingClosure),
	}
}

// Get returns the pending closure for a session, evicting it first when
// expired.
func (sm *SessionManager) Get(sessionID string) (models.DailyReport, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	pending, ok := sm.sessions[sessionID]
	if !ok {
		return models.DailyReport{}, false
	}
	if sm.now().Sub(pending.createdAt) > sm.ttl {
		delete(sm.sessions, sessionID)
		return models.DailyReport{}, false
	}
	return pending.report, true
}

// Put stores (or replaces) the pending closure for a session.
func (sm *SessionManager) Put(sessionID string, report models.DailyReport) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[sessionID] = pendingClosure{report: report, createdAt: sm.now()}
}

// Clear removes a session's pending closure.
func (sm *SessionManager) Clear(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, sessionID)
}
