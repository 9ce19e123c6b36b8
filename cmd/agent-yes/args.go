package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/agent-yes/agent-yes/internal/catalog"
	clierrors "github.com/agent-yes/agent-yes/internal/errors"
)

// resolveAssistant picks the assistant selector per spec §6: an explicit
// --cli flag wins, then a positional first argument that names a known
// catalog assistant, then the invoking binary's own name (stripped of a
// "-yes" suffix, for assistant-named shims like claude-yes), and finally
// the "claude" default.
func resolveAssistant(explicit string, trailing []string, argv0 string) (name string, remaining []string) {
	if explicit != "" {
		return explicit, trailing
	}

	if len(trailing) > 0 {
		if _, ok := catalog.Get(trailing[0]); ok {
			return trailing[0], trailing[1:]
		}
	}

	if shim := shimAssistantName(argv0); shim != "" {
		return shim, trailing
	}

	return "claude", trailing
}

// shimAssistantName extracts an assistant name from a binary invoked as
// e.g. "claude-yes" -> "claude". Returns "" for the wrapper's own name or
// anything not ending in "-yes".
func shimAssistantName(argv0 string) string {
	base := strings.TrimSuffix(filepath.Base(argv0), ".exe")

	if base == "" || base == "agent-yes" || !strings.HasSuffix(base, "-yes") {
		return ""
	}

	return strings.TrimSuffix(base, "-yes")
}

// parseTimeout parses a bare integer (seconds) or a Go duration string
// ("60s", "1m", "5m") per spec §6. An empty string disables the idle
// timeout.
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds < 0 {
			return 0, clierrors.InvalidTimeout(raw)
		}

		return time.Duration(seconds) * time.Second, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, clierrors.InvalidTimeout(raw)
	}

	return d, nil
}

// parseAutoMode parses the --auto flag's "yes"/"no" value, defaulting to
// enabled when empty.
func parseAutoMode(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, clierrors.InvalidAutoMode(raw)
	}
}

// buildArgs assembles the final argument vector: forwarded args, then the
// prompt inserted at the position prompt_arg specifies (before the
// forwarded args for first-arg placement, after them otherwise), then the
// assistant's default args, then restore args when continuing a session.
func buildArgs(spec catalog.Spec, forwarded []string, prompt string, continueSession bool) ([]string, error) {
	args := append([]string{}, forwarded...)

	if prompt != "" {
		switch spec.PromptArg {
		case catalog.PromptFirstArg:
			args = append([]string{prompt}, args...)
		case catalog.PromptLastArg:
			args = append(args, prompt)
		case catalog.PromptFlag:
			args = append(args, spec.PromptFlag, prompt)
		default:
			return nil, fmt.Errorf("unknown prompt placement %q", spec.PromptArg)
		}
	}

	args = append(args, spec.DefaultArgs...)

	if continueSession {
		args = append(args, spec.RestoreArgs...)
	}

	return args, nil
}
