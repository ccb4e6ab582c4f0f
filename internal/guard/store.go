// Package guard detects scripted login attempts by their timing and hands
// offenders to a jail.
//
// A client address becomes suspicious the first time two of its attempts
// arrive closer together than a human could manage. From then on it is
// "under investigation": the store keeps a marker for when that started and
// the timestamps of every further scripted attempt. A background sweeper
// discards investigations once they outlive the configured lifespan.
package guard

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/accelerated-industries/loginguard/internal/clock"
	"github.com/accelerated-industries/loginguard/internal/metrics"
)

// InvestigationStore holds all per-address detection state behind one lock.
// The maps never leave this type; callers only get the atomic operations
// below and copies for reporting.
type InvestigationStore struct {
	mu          sync.Mutex
	lastAttempt map[string]time.Time
	markers     map[string]time.Time
	history     map[string][]time.Time
}

// Investigation is a read-only copy of one address's investigation
type Investigation struct {
	Address  string      `json:"address"`
	Since    time.Time   `json:"since"`
	Attempts []time.Time `json:"attempts"`
}

// NewInvestigationStore creates an empty store
func NewInvestigationStore() *InvestigationStore {
	return &InvestigationStore{
		lastAttempt: make(map[string]time.Time),
		markers:     make(map[string]time.Time),
		history:     make(map[string][]time.Time),
	}
}

// observe records one attempt from address and reports whether it came too
// soon after the previous one. The clock is read under the lock so that
// attempt histories stay in arrival order.
func (s *InvestigationStore) observe(address string, clk clock.Clock, threshold time.Duration) (scripted bool, now time.Time, investigations int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now = clk.Now()
	last, seen := s.lastAttempt[address]
	s.lastAttempt[address] = now

	if !seen || now.Sub(last) >= threshold {
		return false, now, len(s.markers)
	}

	if _, marked := s.markers[address]; !marked {
		s.markers[address] = now
		metrics.ActiveInvestigations.Set(float64(len(s.markers)))
	}
	s.history[address] = append(s.history[address], now)

	return true, now, len(s.markers)
}

// Evict ends every investigation older than lifespan and returns the
// addresses it removed. Attempt times at least threshold old are forgotten
// as well: an address whose last attempt is that old would be judged human
// on its next attempt whether or not we remember it.
func (s *InvestigationStore) Evict(now time.Time, lifespan, threshold time.Duration) (evicted []string, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted = Sweep(s.markers, lifespan, s.history, now)
	metrics.ActiveInvestigations.Set(float64(len(s.markers)))

	for address, last := range s.lastAttempt {
		if now.Sub(last) >= threshold {
			delete(s.lastAttempt, address)
		}
	}

	return evicted, len(s.markers)
}

// Count returns the number of addresses under investigation
func (s *InvestigationStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markers)
}

// History returns a copy of the attempt times recorded for address
func (s *InvestigationStore) History(address string) []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history[address])
}

// Marker returns when address came under investigation
func (s *InvestigationStore) Marker(address string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.markers[address]
	return t, ok
}

// Investigations returns every open investigation, oldest first
func (s *InvestigationStore) Investigations() []Investigation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Investigation, 0, len(s.markers))
	for address, since := range s.markers {
		out = append(out, Investigation{
			Address:  address,
			Since:    since,
			Attempts: slices.Clone(s.history[address]),
		})
	}

	slices.SortFunc(out, func(a, b Investigation) int {
		if c := a.Since.Compare(b.Since); c != 0 {
			return c
		}
		return cmp.Compare(a.Address, b.Address)
	})
	return out
}
