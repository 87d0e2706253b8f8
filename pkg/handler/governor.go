package handler

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// TransferState describes the lifecycle of a transfer session. Sessions move
// from StateAdmitted to StateStreaming and end in exactly one of
// StateCompleted or StateAborted. Rejected requests never become sessions.
type TransferState int32

const (
	StateAdmitted TransferState = iota
	StateStreaming
	StateCompleted
	StateAborted
)

func (s TransferState) String() string {
	switch s {
	case StateAdmitted:
		return "admitted"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// TransferSession represents one in-flight transfer. It is owned exclusively
// by the request flow that was admitted; the governor only keeps a reference
// for admission accounting and diagnostics.
type TransferSession struct {
	// ID is the client-supplied session token if one was given, else a
	// server-generated UUID. It has no bearing on admission or range
	// semantics and exists for log correlation only.
	ID string
	// ResourceID names the resource being transferred.
	ResourceID string
	// Range is the validated byte interval, or nil for a full-body transfer.
	Range *RangeSpec
	// StartedAt is the admission time.
	StartedAt time.Time

	bytesSent    atomic.Int64
	lastProgress atomic.Int64
	state        atomic.Int32
}

// BytesSent returns the number of bytes written to the client so far.
func (s *TransferSession) BytesSent() int64 {
	return s.bytesSent.Load()
}

// State returns the session's current lifecycle state.
func (s *TransferSession) State() TransferState {
	return TransferState(s.state.Load())
}

func (s *TransferSession) markStreaming() {
	s.state.CompareAndSwap(int32(StateAdmitted), int32(StateStreaming))
}

func (s *TransferSession) progress(n int) {
	s.bytesSent.Add(int64(n))
	s.lastProgress.Store(time.Now().UnixNano())
}

// SessionSnapshot is a point-in-time copy of a live session for diagnostics.
type SessionSnapshot struct {
	ID         string
	ResourceID string
	Range      *RangeSpec
	StartedAt  time.Time
	BytesSent  int64
	State      TransferState
}

// Governor bounds the number of simultaneously open transfers. Admission is
// an atomic check-and-increment on a weighted semaphore: two concurrent
// admissions can never both observe spare capacity and exceed the ceiling.
// The governor is the only piece of shared mutable state in the handler and
// all mutation goes through TryAdmit and Ticket.Release.
type Governor struct {
	sem *semaphore.Weighted
	max int64

	mu   sync.Mutex
	live map[*Ticket]struct{}
}

func newGovernor(maxConcurrent int64) *Governor {
	return &Governor{
		sem:  semaphore.NewWeighted(maxConcurrent),
		max:  maxConcurrent,
		live: make(map[*Ticket]struct{}),
	}
}

// TryAdmit attempts to claim one transfer slot. It never blocks; when the
// ceiling is reached it fails with ErrTooManyTransfers and the caller must
// reject the request rather than fall back to unbounded delivery. On success
// the returned ticket must be released exactly once via Release, which is
// safe to call from multiple cleanup paths.
func (g *Governor) TryAdmit(resourceID string, sessionID string, spec *RangeSpec) (*Ticket, error) {
	if !g.sem.TryAcquire(1) {
		return nil, ErrTooManyTransfers
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	session := &TransferSession{
		ID:         sessionID,
		ResourceID: resourceID,
		Range:      spec,
		StartedAt:  time.Now(),
	}
	session.lastProgress.Store(session.StartedAt.UnixNano())

	ticket := &Ticket{governor: g, session: session}

	g.mu.Lock()
	g.live[ticket] = struct{}{}
	g.mu.Unlock()

	return ticket, nil
}

// Active returns the number of live transfer sessions.
func (g *Governor) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.live)
}

// MaxConcurrent returns the configured admission ceiling.
func (g *Governor) MaxConcurrent() int64 {
	return g.max
}

// Snapshot returns a copy of all live sessions for diagnostics.
func (g *Governor) Snapshot() []SessionSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snapshots := make([]SessionSnapshot, 0, len(g.live))
	for ticket := range g.live {
		s := ticket.session
		snapshots = append(snapshots, SessionSnapshot{
			ID:         s.ID,
			ResourceID: s.ResourceID,
			Range:      s.Range,
			StartedAt:  s.StartedAt,
			BytesSent:  s.BytesSent(),
			State:      s.State(),
		})
	}
	return snapshots
}

// sweepIdle force-releases sessions that made no forward progress within the
// cutoff. Release-on-terminal-transition is the primary cleanup mechanism;
// the sweep is a backstop for sessions whose terminal transition was missed.
func (g *Governor) sweepIdle(cutoff time.Duration) int {
	deadline := time.Now().Add(-cutoff).UnixNano()

	g.mu.Lock()
	var stale []*Ticket
	for ticket := range g.live {
		if ticket.session.lastProgress.Load() < deadline {
			stale = append(stale, ticket)
		}
	}
	g.mu.Unlock()

	for _, ticket := range stale {
		ticket.Release(StateAborted)
	}
	return len(stale)
}

func (g *Governor) sweepLoop(done <-chan struct{}, interval time.Duration, cutoff time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if swept := g.sweepIdle(cutoff); swept > 0 {
				logger.Warn("IdleTransfersSwept", "count", swept, "cutoff", cutoff)
			}
		}
	}
}

// Ticket is the proof of admission for one transfer session.
type Ticket struct {
	governor *Governor
	session  *TransferSession
	once     sync.Once
}

// Session returns the transfer session this ticket admitted.
func (t *Ticket) Session() *TransferSession {
	return t.session
}

// Release moves the session to a terminal state and returns its slot to the
// budget. Releasing an already-released ticket is a no-op, so the error
// path, the disconnect path and the idle sweep may all call it without
// double-decrementing the budget.
func (t *Ticket) Release(state TransferState) {
	t.once.Do(func() {
		if state != StateCompleted {
			state = StateAborted
		}
		t.session.state.Store(int32(state))

		g := t.governor
		g.mu.Lock()
		delete(g.live, t)
		g.mu.Unlock()

		g.sem.Release(1)
	})
}
