package poller

import (
	"sync"
	"time"
)

// serviceState is the per-service scheduling record: it is what makes the
// skip-on-overlap rule explicit and testable. Cycles for one service are
// serialized by the running flag; a tick that loses tryBegin is skipped,
// never queued.
type serviceState struct {
	mu            sync.Mutex
	running       bool
	lastStarted   time.Time
	lastCompleted time.Time
	lastErr       error
	failures      int
}

func (st *serviceState) tryBegin(now time.Time) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.running {
		return false
	}
	st.running = true
	st.lastStarted = now
	return true
}

func (st *serviceState) end(now time.Time, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.running = false
	st.lastCompleted = now
	st.lastErr = err
	if err != nil {
		st.failures++
	} else {
		st.failures = 0
	}
}

func (st *serviceState) isRunning() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.running
}

func (st *serviceState) consecutiveFailures() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.failures
}
