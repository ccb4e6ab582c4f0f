package jail

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/accelerated-industries/loginguard/internal/clock"
	"github.com/accelerated-industries/loginguard/internal/logging"
	"github.com/accelerated-industries/loginguard/internal/metrics"
)

// Inmate is one jailed identifier and when it goes free
type Inmate struct {
	Identifier string    `json:"identifier"`
	ReleaseAt  time.Time `json:"release_at"`
}

// Jail holds temporary bans in memory. Safe for concurrent use.
type Jail struct {
	inmates map[string]time.Time
	mu      sync.RWMutex
	clock   clock.Clock
	logger  *logging.Logger
}

// New creates an empty jail
func New(clk clock.Clock, logger *logging.Logger) *Jail {
	return &Jail{
		inmates: make(map[string]time.Time),
		clock:   clk,
		logger:  logger,
	}
}

// SendToJail bans identifier for sentence. An existing sentence that ends
// later is kept rather than shortened.
func (j *Jail) SendToJail(identifier string, sentence time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()

	releaseAt := j.clock.Now().Add(sentence)
	if current, jailed := j.inmates[identifier]; jailed && current.After(releaseAt) {
		return
	}
	j.inmates[identifier] = releaseAt
	metrics.Inmates.Set(float64(len(j.inmates)))

	j.logger.Debug("jail", "sentenced", map[string]interface{}{
		"identifier": identifier,
		"release_at": releaseAt,
	})
}

// IsInJail reports whether identifier is still serving a sentence
func (j *Jail) IsInJail(identifier string) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()

	releaseAt, jailed := j.inmates[identifier]
	return jailed && releaseAt.After(j.clock.Now())
}

// Release frees identifier early. It returns false if identifier was not
// in jail.
func (j *Jail) Release(identifier string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	releaseAt, jailed := j.inmates[identifier]
	if !jailed || !releaseAt.After(j.clock.Now()) {
		return false
	}
	delete(j.inmates, identifier)
	metrics.Inmates.Set(float64(len(j.inmates)))

	j.logger.Info("jail", "released_early", map[string]interface{}{
		"identifier": identifier,
	})
	return true
}

// Inmates returns everyone still serving, latest release first
func (j *Jail) Inmates() []Inmate {
	j.mu.RLock()
	defer j.mu.RUnlock()

	now := j.clock.Now()
	inmates := make([]Inmate, 0, len(j.inmates))
	for identifier, releaseAt := range j.inmates {
		if releaseAt.After(now) {
			inmates = append(inmates, Inmate{Identifier: identifier, ReleaseAt: releaseAt})
		}
	}

	slices.SortFunc(inmates, func(a, b Inmate) int {
		if c := b.ReleaseAt.Compare(a.ReleaseAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Identifier, b.Identifier)
	})
	return inmates
}

// ReleaseExpired removes every inmate whose sentence is over and returns
// how many were removed
func (j *Jail) ReleaseExpired() int {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.clock.Now()
	count := 0
	for identifier, releaseAt := range j.inmates {
		if !releaseAt.After(now) {
			delete(j.inmates, identifier)
			count++
		}
	}

	metrics.Inmates.Set(float64(len(j.inmates)))
	if count > 0 {
		metrics.InmatesReleased.Add(float64(count))
	}
	return count
}

// Reaper periodically clears out inmates who have served their time. It
// implements suture.Service.
type Reaper struct {
	jail     *Jail
	interval time.Duration
}

// NewReaper creates a reaper for j running every interval
func NewReaper(j *Jail, interval time.Duration) *Reaper {
	return &Reaper{jail: j, interval: interval}
}

// Serve runs until ctx is canceled
func (r *Reaper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := r.jail.ReleaseExpired(); n > 0 {
				r.jail.logger.Debug("jail", "sentences_served", map[string]interface{}{
					"released": n,
				})
			}
		}
	}
}

func (r *Reaper) String() string {
	return "jail-reaper"
}
