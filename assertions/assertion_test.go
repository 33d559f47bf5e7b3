package assertions

import "testing"

// TestLessThanDistance reproduces scenario S3 exactly: distance(10,3)
// to firing is 8, distance to the negation is 0, and an Always scope
// wrapping it evaluates to false (a violation).
func TestLessThanDistance(t *testing.T) {
	a := LessThan(10, 3)
	if got := a.Distance(false); got != 8 {
		t.Fatalf("LessThan(10, 3).Distance(false) = %d, want 8", got)
	}
	if got := a.Distance(true); got != 0 {
		t.Fatalf("LessThan(10, 3).Distance(true) = %d, want 0", got)
	}

	scope := Scope{Kind: ScopeAlways, Assertion: a, Message: "x"}
	if scope.Evaluate() {
		t.Fatal("Always(LessThan(10, 3), \"x\").Evaluate() = true, want false (violation)")
	}
	if !scope.Fires() {
		t.Fatal("expected the Always scope to fire (distance 0) given the violated condition")
	}
}

// TestDistanceZeroIffEvaluateMatches checks that every comparison kind reports
// distance 0 (both inverted and not, exclusively) when its raw
// Evaluate() is satisfied vs not, i.e. Distance(inverted) == 0 iff
// Evaluate() == !inverted.
func TestDistanceZeroIffEvaluateMatches(t *testing.T) {
	cases := []Assertion{
		LessThan(3, 10), LessThan(10, 3), LessThan(5, 5),
		LessThanOrEqual(3, 10), LessThanOrEqual(10, 3), LessThanOrEqual(5, 5),
		GreaterThan(10, 3), GreaterThan(3, 10), GreaterThan(5, 5),
		GreaterThanOrEqual(10, 3), GreaterThanOrEqual(3, 10), GreaterThanOrEqual(5, 5),
		Condition(true), Condition(false),
	}
	for _, a := range cases {
		truth := a.Evaluate()
		if (a.Distance(false) == 0) != truth {
			t.Fatalf("%+v: Distance(false)==0 (%v) disagrees with Evaluate() (%v)", a, a.Distance(false) == 0, truth)
		}
		if (a.Distance(true) == 0) != !truth {
			t.Fatalf("%+v: Distance(true)==0 (%v) disagrees with !Evaluate() (%v)", a, a.Distance(true) == 0, !truth)
		}
	}
}

// TestDistanceMonotonicity covers property 7: for LessThan(a,b), the
// distance to firing is 0 once a<b, and strictly increases (moving
// away from 0) as a-b grows once a>=b. The inverted form is the mirror
// image. GreaterThan/GreaterThanOrEqual and their inversions follow
// symmetrically.
func TestDistanceMonotonicity(t *testing.T) {
	t.Run("LessThan not-inverted increases with a-b once a>=b", func(t *testing.T) {
		var prev uint64
		for _, a := range []uint64{3, 4, 5, 10, 20} {
			d := LessThan(a, 3).Distance(false)
			if a < 3 {
				continue
			}
			if d == 0 {
				t.Fatalf("LessThan(%d, 3).Distance(false) = 0, want > 0 since a>=b", a)
			}
			if a > 3 && d <= prev {
				t.Fatalf("distance did not strictly increase: a=%d gave %d, previous was %d", a, d, prev)
			}
			prev = d
		}
	})

	t.Run("LessThan inverted increases with b-a once a<b", func(t *testing.T) {
		var prev uint64
		first := true
		for _, b := range []uint64{4, 5, 10, 20} {
			d := LessThan(3, b).Distance(true)
			if !first && d <= prev {
				t.Fatalf("inverted distance did not strictly increase: b=%d gave %d, previous was %d", b, d, prev)
			}
			prev, first = d, false
		}
	})

	t.Run("GreaterThan mirrors LessThan", func(t *testing.T) {
		for _, tc := range []struct{ a, b uint64 }{{10, 3}, {3, 10}, {5, 5}} {
			if LessThan(tc.a, tc.b).Distance(false) != GreaterThan(tc.b, tc.a).Distance(false) {
				t.Fatalf("LessThan(%d,%d) and GreaterThan(%d,%d) should have equal forward distance", tc.a, tc.b, tc.b, tc.a)
			}
		}
	})

	t.Run("LessThanOrEqual and GreaterThanOrEqual mirror each other", func(t *testing.T) {
		for _, tc := range []struct{ a, b uint64 }{{10, 3}, {3, 10}, {5, 5}} {
			if LessThanOrEqual(tc.a, tc.b).Distance(false) != GreaterThanOrEqual(tc.b, tc.a).Distance(false) {
				t.Fatalf("LessThanOrEqual(%d,%d) and GreaterThanOrEqual(%d,%d) should have equal forward distance", tc.a, tc.b, tc.b, tc.a)
			}
		}
	})
}

// TestScopeFiresMatchesKind verifies Scope.Fires against the two scope
// kinds directly: Sometimes fires when its condition holds, Always
// fires when its condition is violated.
func TestScopeFiresMatchesKind(t *testing.T) {
	holds := Condition(true)
	violated := Condition(false)

	if !(Scope{Kind: ScopeSometimes, Assertion: holds}).Fires() {
		t.Fatal("Sometimes(true) should fire")
	}
	if (Scope{Kind: ScopeSometimes, Assertion: violated}).Fires() {
		t.Fatal("Sometimes(false) should not fire")
	}
	if (Scope{Kind: ScopeAlways, Assertion: holds}).Fires() {
		t.Fatal("Always(true) should not fire (nothing violated)")
	}
	if !(Scope{Kind: ScopeAlways, Assertion: violated}).Fires() {
		t.Fatal("Always(false) should fire (violation)")
	}
}
