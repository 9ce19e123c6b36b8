package cliconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agent-yes/agent-yes/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func strPtr(s string) *string { return &s }

func TestParseJSONConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, configFilename+".json", `{
		"configDir": "/tmp/cfg",
		"clis": {
			"claude": {
				"binary": "my-claude",
				"defaultArgs": ["--foo"]
			}
		}
	}`)

	f := loadFromDir(dir, func(string, error) { t.Fatal("unexpected parse warning") })

	require.NotNil(t, f.ConfigDir)
	assert.Equal(t, "/tmp/cfg", *f.ConfigDir)
	require.Contains(t, f.Assistants, "claude")
	assert.Equal(t, "my-claude", *f.Assistants["claude"].Binary)
}

func TestParseYAMLConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, configFilename+".yaml", "clis:\n  codex:\n    noEol: true\n")

	f := loadFromDir(dir, func(string, error) { t.Fatal("unexpected parse warning") })

	require.Contains(t, f.Assistants, "codex")
	require.NotNil(t, f.Assistants["codex"].NoEOL)
	assert.True(t, *f.Assistants["codex"].NoEOL)
}

func TestLoadFromDirWarnsAndDefaultsOnParseError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, configFilename+".json", "{ not valid json")

	var warned bool
	f := loadFromDir(dir, func(string, error) { warned = true })

	assert.True(t, warned)
	assert.Empty(t, f.Assistants)
}

func TestMergeConfigs(t *testing.T) {
	base := &File{
		ConfigDir: strPtr("/base/cfg"),
		LogsDir:   strPtr("/base/logs"),
		Assistants: map[string]*AssistantOverride{
			"claude": {
				Binary:      strPtr("claude"),
				DefaultArgs: &[]string{"--a"},
			},
		},
	}

	override := &File{
		ConfigDir: strPtr("/override/cfg"),
		Assistants: map[string]*AssistantOverride{
			"claude": {
				DefaultArgs: &[]string{"--b"},
			},
		},
	}

	base.Merge(override)

	assert.Equal(t, "/override/cfg", *base.ConfigDir)
	assert.Equal(t, "/base/logs", *base.LogsDir, "logsDir not set by override must survive")
	assert.Equal(t, "claude", *base.Assistants["claude"].Binary, "binary not set by override must survive")
	assert.Equal(t, []string{"--b"}, *base.Assistants["claude"].DefaultArgs, "defaultArgs must be overridden")
}

func TestMergeInsertsNewAssistantWholesale(t *testing.T) {
	base := &File{Assistants: map[string]*AssistantOverride{}}
	override := &File{
		Assistants: map[string]*AssistantOverride{
			"grok": {Binary: strPtr("grok-cli")},
		},
	}

	base.Merge(override)

	require.Contains(t, base.Assistants, "grok")
	assert.Equal(t, "grok-cli", *base.Assistants["grok"].Binary)
}

func TestApplyPatchesOnlyOverriddenFields(t *testing.T) {
	spec := catalog.Spec{
		Name:        "claude",
		Binary:      "",
		PromptArg:   catalog.PromptLastArg,
		DefaultArgs: []string{"original"},
	}

	f := &File{
		Assistants: map[string]*AssistantOverride{
			"claude": {
				DefaultArgs: &[]string{"patched"},
			},
		},
	}

	patched := f.Apply("claude", spec)

	assert.Equal(t, []string{"patched"}, patched.DefaultArgs)
	assert.Equal(t, catalog.PromptLastArg, patched.PromptArg, "unoverridden field must survive")
}

func TestApplyReturnsSpecUnchangedWhenNoOverride(t *testing.T) {
	spec := catalog.Spec{Name: "qwen", PromptArg: catalog.PromptLastArg}
	f := &File{Assistants: map[string]*AssistantOverride{}}

	assert.Equal(t, spec, f.Apply("qwen", spec))
}

func TestAcquireQueueLockSecondCallerBlocked(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	lock, ok, err := AcquireQueueLock("claude", "/workspace/project")
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = lock.Release() }()

	_, ok2, err2 := AcquireQueueLock("claude", "/workspace/project")
	require.NoError(t, err2)
	assert.False(t, ok2, "a second --queue invocation for the same assistant+cwd must not acquire the lock")
}

func TestAcquireQueueLockReleaseAllowsReacquire(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	lock, ok, err := AcquireQueueLock("claude", "/workspace/project")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, lock.Release())

	_, ok2, err2 := AcquireQueueLock("claude", "/workspace/project")
	require.NoError(t, err2)
	assert.True(t, ok2)
}

func TestAcquireQueueLockDifferentAssistantsDoNotConflict(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	lock1, ok1, err1 := AcquireQueueLock("claude", "/workspace/project")
	require.NoError(t, err1)
	require.True(t, ok1)
	defer func() { _ = lock1.Release() }()

	lock2, ok2, err2 := AcquireQueueLock("gemini", "/workspace/project")
	require.NoError(t, err2)
	require.True(t, ok2)
	defer func() { _ = lock2.Release() }()
}
