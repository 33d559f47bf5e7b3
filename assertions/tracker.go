package assertions

// Tracker accumulates the best Scope seen so far for each assertion
// message, reproducing AssertionFeedback's is_interesting rule from
// original_source/fuzzamoto-libafl/src/feedbacks/assertions.rs: a run
// is interesting if it newly fires an assertion that previously didn't
// (or hadn't been seen), or strictly decreases an assertion's distance
// to firing.
type Tracker struct {
	best map[string]Scope

	// OnlyAlways restricts tracking to Always-scoped assertions, for a
	// crash-focused run that should ignore Sometimes coverage hints.
	OnlyAlways bool

	lastUpdated []string
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{best: make(map[string]Scope)}
}

// Evaluate folds the assertions parsed from one execution's stdout
// into the tracker and reports whether the execution was interesting.
func (t *Tracker) Evaluate(parsed map[string]Scope) bool {
	t.lastUpdated = t.lastUpdated[:0]
	interesting := false
	for _, scope := range parsed {
		if t.update(scope) {
			interesting = true
		}
	}
	return interesting
}

func (t *Tracker) update(next Scope) bool {
	if t.OnlyAlways && next.Kind == ScopeSometimes {
		return false
	}

	prev, hasPrev := t.best[next.Message]

	var result bool
	if !hasPrev {
		result = next.Fires() || !t.OnlyAlways
	} else {
		result = (!prev.Fires() && next.Fires()) || prev.Distance() > next.Distance()
	}

	if result {
		t.lastUpdated = append(t.lastUpdated, next.Message)
		t.best[next.Message] = next
	}
	return result
}

// LastUpdated returns the assertion messages updated by the most
// recent Evaluate call, for attaching as per-testcase metadata.
func (t *Tracker) LastUpdated() []string {
	return append([]string(nil), t.lastUpdated...)
}

// Violations returns every tracked Always-scoped assertion currently
// in violation (distance 0, i.e. Fires() true), the set that should be
// written out as crashes.
func (t *Tracker) Violations() []Scope {
	var out []Scope
	for _, scope := range t.best {
		if scope.Kind == ScopeAlways && scope.Fires() {
			out = append(out, scope)
		}
	}
	return out
}

// Snapshot returns every tracked scope, for reporting/export.
func (t *Tracker) Snapshot() map[string]Scope {
	out := make(map[string]Scope, len(t.best))
	for k, v := range t.best {
		out[k] = v
	}
	return out
}
