package assertions

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
)

// wireAssertion is the JSON shape of a single Assertion, tagged by
// kind so that ParseAssertionsFromStdout can recover the exact variant
// a target process logged.
type wireAssertion struct {
	Kind string `json:"kind"`
	Cond bool   `json:"cond,omitempty"`
	A    uint64 `json:"a,omitempty"`
	B    uint64 `json:"b,omitempty"`
}

var kindNames = map[Kind]string{
	KindCondition:          "condition",
	KindLessThan:           "less_than",
	KindLessThanOrEqual:    "less_than_or_equal",
	KindGreaterThan:        "greater_than",
	KindGreaterThanOrEqual: "greater_than_or_equal",
}

var namesToKind = func() map[string]Kind {
	out := make(map[string]Kind, len(kindNames))
	for k, v := range kindNames {
		out[v] = k
	}
	return out
}()

func (a Assertion) toWire() wireAssertion {
	name, ok := kindNames[a.Kind]
	if !ok {
		panic("assertions: unhandled assertion kind in toWire")
	}
	return wireAssertion{Kind: name, Cond: a.Cond, A: a.A, B: a.B}
}

func (w wireAssertion) fromWire() (Assertion, bool) {
	kind, ok := namesToKind[w.Kind]
	if !ok {
		return Assertion{}, false
	}
	return Assertion{Kind: kind, Cond: w.Cond, A: w.A, B: w.B}, true
}

// wireScope is the JSON shape of a Scope, mirroring AssertionScope's
// externally tagged (Sometimes/Always) serde representation.
type wireScope struct {
	ScopeKind string        `json:"scope"`
	Assertion wireAssertion `json:"assertion"`
	Message   string        `json:"message"`
}

func (s Scope) MarshalJSON() ([]byte, error) {
	label := "sometimes"
	if s.Kind == ScopeAlways {
		label = "always"
	}
	return json.Marshal(wireScope{ScopeKind: label, Assertion: s.Assertion.toWire(), Message: s.Message})
}

func (s *Scope) UnmarshalJSON(b []byte) error {
	var w wireScope
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	assertion, ok := w.Assertion.fromWire()
	if !ok {
		return errUnknownAssertionKind(w.Assertion.Kind)
	}
	kind := ScopeSometimes
	switch w.ScopeKind {
	case "sometimes":
		kind = ScopeSometimes
	case "always":
		kind = ScopeAlways
	default:
		return errUnknownScopeKind(w.ScopeKind)
	}
	*s = Scope{Kind: kind, Assertion: assertion, Message: w.Message}
	return nil
}

type errUnknownAssertionKind string

func (e errUnknownAssertionKind) Error() string { return "assertions: unknown assertion kind " + string(e) }

type errUnknownScopeKind string

func (e errUnknownScopeKind) Error() string { return "assertions: unknown scope kind " + string(e) }

// stdoutMessage is the envelope every line a target writes for
// assertion/probe reporting is wrapped in, mirroring
// original_source/fuzzamoto/src/lib.rs's StdoutMessage.
type stdoutMessage struct {
	Probe     *string `json:"probe,omitempty"`
	Assertion *string `json:"assertion,omitempty"`
}

// EncodeAssertion renders scope as the base64-wrapped JSON envelope a
// target process writes to stdout.
func EncodeAssertion(scope Scope) (string, error) {
	raw, err := json.Marshal(scope)
	if err != nil {
		return "", err
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	env, err := json.Marshal(stdoutMessage{Assertion: &encoded})
	if err != nil {
		return "", err
	}
	return string(env), nil
}

// ParseAssertionsFromStdout scans buffer line by line, decoding every
// well-formed assertion envelope it finds and keying the result by
// message so the latest report for a given assertion wins. Lines that
// are not valid envelopes, or whose payload does not decode, are
// silently skipped: a target may freely interleave ordinary log output
// with assertion lines.
func ParseAssertionsFromStdout(buffer []byte) map[string]Scope {
	out := make(map[string]Scope)
	for _, line := range bytes.Split(buffer, []byte("\n")) {
		trimmed := strings.Trim(strings.TrimSpace(string(line)), "\x00")
		if trimmed == "" {
			continue
		}
		var env stdoutMessage
		if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
			continue
		}
		if env.Assertion == nil {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(*env.Assertion)
		if err != nil {
			continue
		}
		var scope Scope
		if err := json.Unmarshal(raw, &scope); err != nil {
			continue
		}
		out[scope.Message] = scope
	}
	return out
}
