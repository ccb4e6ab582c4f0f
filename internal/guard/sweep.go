package guard

import (
	"slices"
	"time"
)

// Sweep removes every investigation whose marker is more than lifespan older
// than now, dropping the address from both markers and history. Everything
// else is left exactly as it was. Addresses found in only one of the maps
// are ignored. The evicted addresses are returned sorted.
//
// Sweep does no locking of its own; InvestigationStore.Evict calls it with
// the store lock held.
func Sweep(markers map[string]time.Time, lifespan time.Duration, history map[string][]time.Time, now time.Time) []string {
	var evicted []string

	for address, markedAt := range markers {
		if now.Sub(markedAt) > lifespan {
			delete(markers, address)
			delete(history, address)
			evicted = append(evicted, address)
		}
	}

	slices.Sort(evicted)
	return evicted
}
