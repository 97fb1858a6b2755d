// Package smartstop decides when a site's pagination can be safely halted.
package smartstop

// DefaultThreshold is the number of consecutive pages without novelty after
// which a crawl stops.
const DefaultThreshold = 5

// Scope holds the Smart-Stop state for one site's crawl. Novelty is judged
// against the snapshot of keys known before the run started, never against
// keys upserted earlier in the same run, so a posting first seen on an
// earlier page of this run still counts as novel when it re-appears.
//
// A Scope belongs to exactly one site goroutine and is not safe for
// concurrent use.
type Scope struct {
	snapshot         map[string]struct{}
	threshold        int
	consecutiveEmpty int
}

// NewScope captures the pre-run snapshot once at scope creation. A
// non-positive threshold falls back to DefaultThreshold.
func NewScope(snapshotKeys []string, threshold int) *Scope {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	snapshot := make(map[string]struct{}, len(snapshotKeys))
	for _, key := range snapshotKeys {
		snapshot[key] = struct{}{}
	}
	return &Scope{snapshot: snapshot, threshold: threshold}
}

// ObservePage records one fetched page's keys and reports the novel count
// plus whether the crawl should stop. The page just counted is the last one
// fetched.
func (s *Scope) ObservePage(pageKeys []string) (novel int, stop bool) {
	for _, key := range pageKeys {
		if _, known := s.snapshot[key]; !known {
			novel++
		}
	}
	if novel == 0 {
		s.consecutiveEmpty++
	} else {
		s.consecutiveEmpty = 0
	}
	return novel, s.consecutiveEmpty >= s.threshold
}

// ObserveUnavailable records a page that failed to fetch. Unavailability
// counts toward stopping rather than being retried indefinitely.
func (s *Scope) ObserveUnavailable() (stop bool) {
	s.consecutiveEmpty++
	return s.consecutiveEmpty >= s.threshold
}

// ShouldStop reports whether the terminal condition has been reached.
func (s *Scope) ShouldStop() bool {
	return s.consecutiveEmpty >= s.threshold
}
