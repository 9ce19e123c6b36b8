// Package doctor provides diagnostic checks for agent-yes's environment.
//
// Unlike a network-backed CLI, agent-yes has nothing to validate but the
// local machine: whether each catalog assistant's binary is reachable on
// PATH, and whether any cascading config file on disk fails to parse.
package doctor

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/agent-yes/agent-yes/internal/catalog"
	"github.com/agent-yes/agent-yes/internal/cliconfig"
)

// Status represents the result of a diagnostic check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical failure.
	StatusFail
)

// Result holds the outcome of a single check.
type Result struct {
	Name    string
	Status  Status
	Message string
	Detail  string // Optional additional detail
}

// Check is a diagnostic check function.
type Check func(ctx context.Context) Result

// Runner executes diagnostic checks.
type Runner struct {
	checks []namedCheck
}

type namedCheck struct {
	name  string
	check Check
}

// New creates a diagnostic runner pre-registered with one check per
// built-in assistant plus a cascading-config-file sanity check.
func New() *Runner {
	r := &Runner{}

	for _, name := range catalog.Names() {
		r.AddCheck(name, checkAssistantBinary(name))
	}

	r.AddCheck("Config files", checkConfigFiles)

	return r
}

// AddCheck registers a diagnostic check.
func (r *Runner) AddCheck(name string, check Check) {
	r.checks = append(r.checks, namedCheck{name: name, check: check})
}

// Run executes all registered checks and returns the results.
func (r *Runner) Run(ctx context.Context) []Result {
	results := make([]Result, 0, len(r.checks))

	for _, nc := range r.checks {
		result := nc.check(ctx)
		result.Name = nc.name
		results = append(results, result)
	}

	return results
}

// Summary returns counts of passed, failed, and warning checks.
func Summary(results []Result) (passed, failed, warnings int) {
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			passed++
		case StatusFail:
			failed++
		case StatusWarn:
			warnings++
		}
	}

	return passed, failed, warnings
}

// checkAssistantBinary looks up the assistant's binary on PATH, reporting
// an install hint when it's missing (npm when set, else bash, else
// PowerShell; the host platform is not consulted).
func checkAssistantBinary(name string) Check {
	return func(_ context.Context) Result {
		spec, ok := catalog.Get(name)
		if !ok {
			return Result{Status: StatusFail, Message: "not registered in catalog"}
		}

		path, err := exec.LookPath(spec.BinaryName())
		if err != nil {
			return Result{
				Status:  StatusFail,
				Message: fmt.Sprintf("%s not found on PATH", spec.BinaryName()),
				Detail:  installHint(spec.Install),
			}
		}

		return Result{Status: StatusPass, Message: fmt.Sprintf("found at %s", path)}
	}
}

func installHint(install catalog.Install) string {
	switch {
	case install.NPM != "":
		return install.NPM
	case install.Bash != "":
		return install.Bash
	case install.PowerShell != "":
		return install.PowerShell
	default:
		return ""
	}
}

// checkConfigFiles reports any cascading config file that failed to parse.
// Parse errors are otherwise swallowed with a warning at load time (see
// cliconfig.LoadCascading); doctor surfaces them explicitly.
func checkConfigFiles(_ context.Context) Result {
	_, loadErrs := cliconfig.LoadCascading()
	if len(loadErrs) == 0 {
		return Result{Status: StatusPass, Message: "no cascading config files, or all parsed cleanly"}
	}

	detail := ""
	for i, err := range loadErrs {
		if i > 0 {
			detail += "; "
		}

		detail += err.Error()
	}

	return Result{Status: StatusWarn, Message: fmt.Sprintf("%d config file(s) failed to parse", len(loadErrs)), Detail: detail}
}

// RenderResults formats diagnostic results to the given output writer.
func RenderResults(results []Result, printFn, successFn, warningFn, failureFn, mutedFn func(format string, args ...any)) {
	maxNameLen := 0
	for _, r := range results {
		if len(r.Name) > maxNameLen {
			maxNameLen = len(r.Name)
		}
	}

	for _, r := range results {
		symbol := r.Status.Symbol()
		padding := maxNameLen - len(r.Name) + 4

		switch r.Status {
		case StatusPass:
			successFn("%-*s%s", len(r.Name)+padding, r.Name, r.Message)
		case StatusWarn:
			warningFn("%-*s%s", len(r.Name)+padding, r.Name, r.Message)
		case StatusFail:
			failureFn("%-*s%s", len(r.Name)+padding, r.Name, r.Message)
		default:
			printFn("%s %-*s%s\n", symbol, len(r.Name)+padding, r.Name, r.Message)
		}

		if r.Detail != "" {
			mutedFn("    %s", r.Detail)
		}
	}
}

// Symbol returns the status symbol for display.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return checkMark
	case StatusWarn:
		return warningMark
	case StatusFail:
		return xMark
	default:
		return "?"
	}
}

const (
	checkMark   = "✓" // ✓
	xMark       = "✗" // ✗
	warningMark = "⚠" // ⚠
)
