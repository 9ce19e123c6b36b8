package catalog

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamesIncludesAllBuiltinAssistants(t *testing.T) {
	want := []string{
		"amp", "auggie", "claude", "codex", "copilot",
		"cursor", "gemini", "grok", "opencode", "qwen",
	}

	assert.ElementsMatch(t, want, Names())
}

func TestGetUnknownAssistant(t *testing.T) {
	_, ok := Get("not-a-real-assistant")
	assert.False(t, ok)
}

func TestClaudePatterns(t *testing.T) {
	spec, ok := Get("claude")
	require.True(t, ok)

	require.NotEmpty(t, spec.Patterns.Ready)
	readyRe := regexp.MustCompile(spec.Patterns.Ready[0])
	assert.True(t, readyRe.MatchString("? for shortcuts"))

	require.Len(t, spec.Patterns.Enter, 6)
	enterRe := regexp.MustCompile(spec.Patterns.Enter[2])
	assert.True(t, enterRe.MatchString("❯ 1. Yes"))

	assert.Equal(t, []string{"--continue"}, spec.RestoreArgs)
	assert.Equal(t, PromptLastArg, spec.PromptArg)
}

func TestCodexUsesFirstArgAndNoEOL(t *testing.T) {
	spec, ok := Get("codex")
	require.True(t, ok)

	assert.Equal(t, PromptFirstArg, spec.PromptArg)
	assert.True(t, spec.NoEOL)
	assert.Equal(t, []string{"--search"}, spec.DefaultArgs)
}

func TestCopilotUsesFlagPlacement(t *testing.T) {
	spec, ok := Get("copilot")
	require.True(t, ok)

	assert.Equal(t, PromptFlag, spec.PromptArg)
	assert.Equal(t, "-i", spec.PromptFlag)
}

func TestCursorHasBinaryOverride(t *testing.T) {
	spec, ok := Get("cursor")
	require.True(t, ok)

	assert.Equal(t, "cursor-agent", spec.BinaryName())
}

func TestQwenAndOpencodeHaveNoPatterns(t *testing.T) {
	for _, name := range []string{"qwen", "opencode"} {
		spec, ok := Get(name)
		require.True(t, ok)

		assert.Empty(t, spec.Patterns.Ready)
		assert.Empty(t, spec.Patterns.Enter)
		assert.Empty(t, spec.Patterns.Fatal)
	}
}

func TestAllPatternsCompile(t *testing.T) {
	for _, name := range Names() {
		spec, ok := Get(name)
		require.True(t, ok)

		all := append(append(append(append([]string{}, spec.Patterns.Ready...), spec.Patterns.Working...), spec.Patterns.Enter...), spec.Patterns.Fatal...)
		all = append(all, spec.Patterns.RestartWithoutContinue...)

		for _, pats := range spec.Patterns.TypingRespond {
			all = append(all, pats...)
		}

		for _, pat := range all {
			_, err := regexp.Compile(pat)
			assert.NoError(t, err, "assistant %s pattern %q", name, pat)
		}
	}
}
