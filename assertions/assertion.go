// Package assertions implements the branch-distance assertion protocol
// a target process reports over stdout, ported from
// original_source/fuzzamoto/src/assertions.rs.
package assertions

import "fmt"

// Kind is the closed set of assertion shapes a target can report.
type Kind int

const (
	KindCondition Kind = iota
	KindLessThan
	KindLessThanOrEqual
	KindGreaterThan
	KindGreaterThanOrEqual
)

// Assertion is a single branch-distance fact: either a boolean
// condition or a comparison between two observed u64 values.
type Assertion struct {
	Kind Kind
	Cond bool
	A, B uint64
}

func Condition(v bool) Assertion            { return Assertion{Kind: KindCondition, Cond: v} }
func LessThan(a, b uint64) Assertion        { return Assertion{Kind: KindLessThan, A: a, B: b} }
func LessThanOrEqual(a, b uint64) Assertion { return Assertion{Kind: KindLessThanOrEqual, A: a, B: b} }
func GreaterThan(a, b uint64) Assertion     { return Assertion{Kind: KindGreaterThan, A: a, B: b} }
func GreaterThanOrEqual(a, b uint64) Assertion {
	return Assertion{Kind: KindGreaterThanOrEqual, A: a, B: b}
}

// Distance returns how far the assertion is from firing. inverted
// asks for the distance to the assertion's negation instead (used by
// AssertionScope's Always variant, which fires on violation).
func (a Assertion) Distance(inverted bool) uint64 {
	switch a.Kind {
	case KindCondition:
		if a.Cond == inverted {
			return 1
		}
		return 0
	case KindLessThan:
		if inverted {
			if a.A >= a.B {
				return 0
			}
			return a.B - a.A
		}
		if a.A < a.B {
			return 0
		}
		return a.A - a.B + 1
	case KindLessThanOrEqual:
		if inverted {
			if a.A > a.B {
				return 0
			}
			return a.B - a.A + 1
		}
		if a.A <= a.B {
			return 0
		}
		return a.A - a.B
	case KindGreaterThan:
		if inverted {
			if a.A <= a.B {
				return 0
			}
			return a.A - a.B
		}
		if a.A > a.B {
			return 0
		}
		return a.B - a.A + 1
	case KindGreaterThanOrEqual:
		if inverted {
			if a.A < a.B {
				return 0
			}
			return a.A - a.B + 1
		}
		if a.A >= a.B {
			return 0
		}
		return a.B - a.A
	default:
		panic("assertions: unhandled assertion kind in Distance")
	}
}

// Evaluate returns the raw, non-inverted truth value of the
// comparison the assertion embeds (e.g. LessThan(a,b) reports a<b).
// It is independent of whether the assertion sits under a Sometimes or
// an Always scope; use Scope.Fires to ask the scope-aware "does this
// count as an interesting/violating signal" question instead.
func (a Assertion) Evaluate() bool {
	switch a.Kind {
	case KindCondition:
		return a.Cond
	case KindLessThan:
		return a.A < a.B
	case KindLessThanOrEqual:
		return a.A <= a.B
	case KindGreaterThan:
		return a.A > a.B
	case KindGreaterThanOrEqual:
		return a.A >= a.B
	default:
		panic("assertions: unhandled assertion kind in Evaluate")
	}
}

func (a Assertion) detail() string {
	switch a.Kind {
	case KindCondition:
		return fmt.Sprintf("cond(%t)", a.Cond)
	case KindLessThan:
		return fmt.Sprintf("lt(%d, %d)", a.A, a.B)
	case KindLessThanOrEqual:
		return fmt.Sprintf("lte(%d, %d)", a.A, a.B)
	case KindGreaterThan:
		return fmt.Sprintf("gt(%d, %d)", a.A, a.B)
	case KindGreaterThanOrEqual:
		return fmt.Sprintf("gte(%d, %d)", a.A, a.B)
	default:
		panic("assertions: unhandled assertion kind in detail")
	}
}

// ScopeKind distinguishes assertions that merely record an interesting
// condition from ones whose violation is a bug.
type ScopeKind int

const (
	ScopeSometimes ScopeKind = iota
	ScopeAlways
)

// Scope pairs an Assertion with the scope it was logged under and the
// message identifying it, mirroring AssertionScope.
type Scope struct {
	Kind      ScopeKind
	Assertion Assertion
	Message   string
}

// Evaluate returns the scope's underlying assertion condition,
// unaffected by which scope kind it is tagged with. For an Always
// scope a false result means the invariant is currently violated.
func (s Scope) Evaluate() bool {
	return s.Assertion.Evaluate()
}

// Fires reports whether the scope counts as firing in the
// distance-to-interestingness sense (spec §6): a Sometimes scope fires
// when its condition holds, an Always scope fires when its condition
// is violated. Equivalent to Distance() == 0.
func (s Scope) Fires() bool {
	return s.Distance() == 0
}

// Distance is the branch distance to firing.
func (s Scope) Distance() uint64 {
	switch s.Kind {
	case ScopeSometimes:
		return s.Assertion.Distance(false)
	case ScopeAlways:
		return s.Assertion.Distance(true)
	default:
		panic("assertions: unhandled scope kind in Distance")
	}
}

func (s Scope) String() string {
	label := "Sometimes"
	if s.Kind == ScopeAlways {
		label = "Always"
	}
	return fmt.Sprintf("%s %s: %s", label, s.Assertion.detail(), s.Message)
}
