package permission

import (
	"context"
	"sync"

	"github.com/docguardhq/docguard/logging"
)

// Auditor accumulates denial detail across the authorization checks of a
// single request and emits it as one debug flush. Checks running concurrently
// within the request each check the accumulator out before starting and back
// in when done; whichever caller checks in last performs the flush, so N
// parallel checks produce exactly one emission rather than N.
//
// Entries are deduplicated, so retried or repeated checks against the same
// document do not inflate the flush.
type Auditor struct {
	logger logging.Logger

	mu        sync.Mutex
	checkouts int
	seen      map[string]struct{}
	entries   []string
}

// NewAuditor returns an accumulator flushing to the given logger.
func NewAuditor(logger logging.Logger) *Auditor {
	return &Auditor{
		logger: logger,
		seen:   map[string]struct{}{},
	}
}

// Checkout registers a caller that will later Checkin. Must be paired.
func (a *Auditor) Checkout() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkouts++
}

// Add records a denial line. Duplicate lines are dropped.
func (a *Auditor) Add(line string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.seen[line]; ok {
		return
	}
	a.seen[line] = struct{}{}
	a.entries = append(a.entries, line)
}

// Checkin releases a checkout. The last caller out flushes any accumulated
// entries in a single debug emission and resets the accumulator.
func (a *Auditor) Checkin() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkouts--
	if a.checkouts > 0 || len(a.entries) == 0 {
		return
	}
	a.logger.Debugw("authorization denied", "denials", a.entries)
	a.seen = map[string]struct{}{}
	a.entries = nil
}

type auditorKey struct{}

// WithAuditor attaches a request-scoped accumulator to the context.
func WithAuditor(ctx context.Context, a *Auditor) context.Context {
	return context.WithValue(ctx, auditorKey{}, a)
}

// AuditorFromContext returns the attached accumulator, or nil. Callers must
// handle nil by logging directly; an accumulator is an optimization, not a
// requirement.
func AuditorFromContext(ctx context.Context) *Auditor {
	a, _ := ctx.Value(auditorKey{}).(*Auditor)
	return a
}
