// Package pattern compiles a catalog assistant definition into a set of
// regexes the supervisor matches PTY output against, in the fixed
// classification order the supervisor's event loop requires.
package pattern

import (
	"fmt"
	"regexp"

	"github.com/agent-yes/agent-yes/internal/catalog"
)

// Set holds the compiled regexes for one assistant.
type Set struct {
	Ready                  []*regexp.Regexp
	Working                []*regexp.Regexp
	Enter                  []*regexp.Regexp
	Fatal                  []*regexp.Regexp
	RestartWithoutContinue []*regexp.Regexp
	TypingRespond          []TypingRespond
}

// TypingRespond pairs a set of trigger patterns with the literal response
// text to type when any of them match.
type TypingRespond struct {
	Response string
	Triggers []*regexp.Regexp
}

// Compile builds a Set from a catalog.Patterns definition.
func Compile(p catalog.Patterns) (*Set, error) {
	var err error

	s := &Set{}

	if s.Ready, err = compileAll(p.Ready); err != nil {
		return nil, fmt.Errorf("ready: %w", err)
	}

	if s.Working, err = compileAll(p.Working); err != nil {
		return nil, fmt.Errorf("working: %w", err)
	}

	if s.Enter, err = compileAll(p.Enter); err != nil {
		return nil, fmt.Errorf("enter: %w", err)
	}

	if s.Fatal, err = compileAll(p.Fatal); err != nil {
		return nil, fmt.Errorf("fatal: %w", err)
	}

	if s.RestartWithoutContinue, err = compileAll(p.RestartWithoutContinue); err != nil {
		return nil, fmt.Errorf("restartWithoutContinue: %w", err)
	}

	for response, triggers := range p.TypingRespond {
		compiled, compileErr := compileAll(triggers)
		if compileErr != nil {
			return nil, fmt.Errorf("typingRespond %q: %w", response, compileErr)
		}

		s.TypingRespond = append(s.TypingRespond, TypingRespond{
			Response: response,
			Triggers: compiled,
		})
	}

	return s, nil
}

// MustCompile is Compile but panics on error, for use with the built-in
// catalog whose patterns are known-good at compile time.
func MustCompile(p catalog.Patterns) *Set {
	s, err := Compile(p)
	if err != nil {
		panic(err)
	}

	return s
}

func compileAll(pats []string) ([]*regexp.Regexp, error) {
	if len(pats) == 0 {
		return nil, nil
	}

	out := make([]*regexp.Regexp, 0, len(pats))

	for _, pat := range pats {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", pat, err)
		}

		out = append(out, re)
	}

	return out, nil
}

// MatchAny reports whether any regex in res matches s.
func MatchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}

	return false
}

// CheckResult reports which pattern categories matched a single rendered
// buffer snapshot. Unlike a single-verdict classification, Fatal,
// RestartWithoutContinue, and Ready can all be true on the same check —
// only TypingRespond and Enter are mutually exclusive terminal actions.
type CheckResult struct {
	Fatal                  bool
	RestartWithoutContinue bool
	Ready                  bool
	TypingRespond          string // non-empty iff a typing-respond pattern matched
	Enter                  bool
}

// Check inspects the rendered buffer against every category in the exact
// order the supervisor's check_patterns step requires: fatal first (and
// terminal — nothing else is evaluated once it's set), then
// restart-without-continue and ready (both non-exclusive), then, only when
// autoYesEnabled, typing-respond and finally enter (whichever matches
// first wins and short-circuits the rest).
func (s *Set) Check(rendered string, autoYesEnabled bool) CheckResult {
	var r CheckResult

	if MatchAny(s.Fatal, rendered) {
		r.Fatal = true
		return r
	}

	if MatchAny(s.RestartWithoutContinue, rendered) {
		r.RestartWithoutContinue = true
	}

	if MatchAny(s.Ready, rendered) {
		r.Ready = true
	}

	if !autoYesEnabled {
		return r
	}

	for _, tr := range s.TypingRespond {
		if MatchAny(tr.Triggers, rendered) {
			r.TypingRespond = tr.Response
			return r
		}
	}

	if MatchAny(s.Enter, rendered) {
		r.Enter = true
		return r
	}

	return r
}
