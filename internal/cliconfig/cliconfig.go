// Package cliconfig loads the user-facing ".agent-yes.config.{json,yml,yaml}"
// override file, cascading three locations (executable directory lowest,
// home directory, current working directory highest) and merging them
// field by field so a higher-priority file only overrides the keys it
// actually sets.
package cliconfig

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic: just a short, stable lock-file name
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agent-yes/agent-yes/internal/catalog"
	"github.com/spf13/viper"
)

const configFilename = ".agent-yes.config"

var configExtensions = []string{"json", "yml", "yaml"}

// InstallOverride overrides an assistant's install-hint commands.
type InstallOverride struct {
	NPM        *string `mapstructure:"npm"`
	Bash       *string `mapstructure:"bash"`
	PowerShell *string `mapstructure:"powershell"`
}

// AssistantOverride patches a subset of a catalog.Spec's fields. Every
// field is a pointer so "absent" and "explicitly empty" are distinguishable
// during merge.
type AssistantOverride struct {
	Install       *InstallOverride     `mapstructure:"install"`
	Binary        *string              `mapstructure:"binary"`
	DefaultArgs   *[]string            `mapstructure:"defaultArgs"`
	Ready         *[]string            `mapstructure:"ready"`
	Fatal         *[]string            `mapstructure:"fatal"`
	Working       *[]string            `mapstructure:"working"`
	Enter         *[]string            `mapstructure:"enter"`
	PromptArg     *string              `mapstructure:"promptArg"`
	RestoreArgs   *[]string            `mapstructure:"restoreArgs"`
	ExitCommand   *[]string            `mapstructure:"exitCommand"`
	TypingRespond *map[string][]string `mapstructure:"typingRespond"`
	NoEOL         *bool                `mapstructure:"noEol"`
}

// File is the root shape of one ".agent-yes.config.*" file.
type File struct {
	ConfigDir  *string                       `mapstructure:"configDir"`
	LogsDir    *string                       `mapstructure:"logsDir"`
	Assistants map[string]*AssistantOverride `mapstructure:"clis"`
}

// Merge folds other on top of f: any field other sets wins, any field it
// leaves nil keeps f's existing value. Per-assistant overrides merge field
// by field too; an assistant name only present in other is inserted
// wholesale.
func (f *File) Merge(other *File) {
	if other == nil {
		return
	}

	if other.ConfigDir != nil {
		f.ConfigDir = other.ConfigDir
	}

	if other.LogsDir != nil {
		f.LogsDir = other.LogsDir
	}

	if f.Assistants == nil {
		f.Assistants = make(map[string]*AssistantOverride)
	}

	for name, override := range other.Assistants {
		existing, ok := f.Assistants[name]
		if !ok {
			f.Assistants[name] = override
			continue
		}

		existing.mergeFrom(override)
	}
}

func (a *AssistantOverride) mergeFrom(other *AssistantOverride) {
	if other == nil {
		return
	}

	if other.Install != nil {
		a.Install = other.Install
	}

	if other.Binary != nil {
		a.Binary = other.Binary
	}

	if other.DefaultArgs != nil {
		a.DefaultArgs = other.DefaultArgs
	}

	if other.Ready != nil {
		a.Ready = other.Ready
	}

	if other.Fatal != nil {
		a.Fatal = other.Fatal
	}

	if other.Working != nil {
		a.Working = other.Working
	}

	if other.Enter != nil {
		a.Enter = other.Enter
	}

	if other.PromptArg != nil {
		a.PromptArg = other.PromptArg
	}

	if other.RestoreArgs != nil {
		a.RestoreArgs = other.RestoreArgs
	}

	if other.ExitCommand != nil {
		a.ExitCommand = other.ExitCommand
	}

	if other.TypingRespond != nil {
		a.TypingRespond = other.TypingRespond
	}

	if other.NoEOL != nil {
		a.NoEOL = other.NoEOL
	}
}

// findInDir returns the first matching config file path in dir, checking
// extensions in the order json, yml, yaml.
func findInDir(dir string) (string, bool) {
	for _, ext := range configExtensions {
		candidate := filepath.Join(dir, configFilename+"."+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}

	return "", false
}

// loadFromDir reads and parses dir's config file if present. A parse
// failure is non-fatal: it is reported through warn and an empty File is
// returned so the cascade continues.
func loadFromDir(dir string, warn func(string, error)) *File {
	path, ok := findInDir(dir)
	if !ok {
		return &File{}
	}

	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		warn(path, err)
		return &File{}
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		warn(path, fmt.Errorf("decode: %w", err))
		return &File{}
	}

	return &f
}

// LoadCascading loads and merges the three config locations in priority
// order: executable directory (lowest), home directory, current working
// directory (highest). Parse errors at any level are collected rather than
// returned, matching the cascade's non-fatal warn-and-continue contract.
func LoadCascading() (*File, []error) {
	merged := &File{Assistants: make(map[string]*AssistantOverride)}

	var warnings []error

	warn := func(path string, err error) {
		warnings = append(warnings, fmt.Errorf("%s: %w", path, err))
	}

	for _, dir := range cascadeDirs() {
		merged.Merge(loadFromDir(dir, warn))
	}

	return merged, warnings
}

// cascadeDirs returns the directories to check, lowest priority first.
// Any directory this process cannot resolve (e.g. no home dir available)
// is silently skipped rather than failing the cascade.
func cascadeDirs() []string {
	var dirs []string

	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}

	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}

	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}

	return dirs
}

// Apply patches the built-in catalog.Spec for name with any override this
// file defines for it, returning a new Spec rather than mutating the
// catalog's package-level copy.
func (f *File) Apply(name string, spec catalog.Spec) catalog.Spec {
	override, ok := f.Assistants[name]
	if !ok || override == nil {
		return spec
	}

	if override.Binary != nil {
		spec.Binary = *override.Binary
	}

	if override.DefaultArgs != nil {
		spec.DefaultArgs = *override.DefaultArgs
	}

	if override.PromptArg != nil {
		spec.PromptArg = catalog.PromptPlacement(*override.PromptArg)
	}

	if override.RestoreArgs != nil {
		spec.RestoreArgs = *override.RestoreArgs
	}

	if override.ExitCommand != nil {
		spec.ExitCommand = *override.ExitCommand
	}

	if override.NoEOL != nil {
		spec.NoEOL = *override.NoEOL
	}

	if override.Install != nil {
		if override.Install.NPM != nil {
			spec.Install.NPM = *override.Install.NPM
		}

		if override.Install.Bash != nil {
			spec.Install.Bash = *override.Install.Bash
		}

		if override.Install.PowerShell != nil {
			spec.Install.PowerShell = *override.Install.PowerShell
		}
	}

	if override.Ready != nil {
		spec.Patterns.Ready = *override.Ready
	}

	if override.Fatal != nil {
		spec.Patterns.Fatal = *override.Fatal
	}

	if override.Working != nil {
		spec.Patterns.Working = *override.Working
	}

	if override.Enter != nil {
		spec.Patterns.Enter = *override.Enter
	}

	if override.TypingRespond != nil {
		spec.Patterns.TypingRespond = *override.TypingRespond
	}

	return spec
}

// QueueLock is a held exclusive lock acquired by AcquireQueueLock. Release
// removes the lock file.
type QueueLock struct {
	path string
}

// Release removes the lock file, allowing the next --queue invocation to
// acquire it.
func (l *QueueLock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release queue lock: %w", err)
	}

	return nil
}

// Path reports the lock file's location, for error messages.
func (l *QueueLock) Path() string {
	return l.path
}

// AcquireQueueLock serializes concurrent `--queue` invocations of the same
// assistant against the same working directory: it creates a lock file with
// O_EXCL so a second invocation fails fast instead of racing the first one
// for the terminal. Returns ok=false (no error) if the lock is already held.
func AcquireQueueLock(assistant, workDir string) (lock *QueueLock, ok bool, err error) {
	dir, dirErr := os.UserCacheDir()
	if dirErr != nil {
		dir = os.TempDir()
	}

	lockPath := filepath.Join(dir, "agent-yes", queueLockName(assistant, workDir)+".lock")

	if mkErr := os.MkdirAll(filepath.Dir(lockPath), 0o700); mkErr != nil {
		return nil, false, fmt.Errorf("create queue lock directory: %w", mkErr)
	}

	f, openErr := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if openErr != nil {
		if os.IsExist(openErr) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("acquire queue lock: %w", openErr)
	}

	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	_ = f.Close()

	return &QueueLock{path: lockPath}, true, nil
}

// QueueLockPath reports the lock file path AcquireQueueLock would use for
// assistant+workDir, without creating or checking it. Used to build a
// helpful error message when the lock is already held.
func QueueLockPath(assistant, workDir string) string {
	dir, dirErr := os.UserCacheDir()
	if dirErr != nil {
		dir = os.TempDir()
	}

	return filepath.Join(dir, "agent-yes", queueLockName(assistant, workDir)+".lock")
}

func queueLockName(assistant, workDir string) string {
	h := sha1.New() //nolint:gosec // non-cryptographic
	h.Write([]byte(assistant))
	h.Write([]byte{0})
	h.Write([]byte(workDir))

	return assistant + "-" + hex.EncodeToString(h.Sum(nil))[:12]
}

// Paths returns every config path the cascade would check, in priority
// order, for diagnostic commands.
func Paths() []string {
	var paths []string

	for _, dir := range cascadeDirs() {
		for _, ext := range configExtensions {
			paths = append(paths, filepath.Join(dir, configFilename+"."+ext))
		}
	}

	return paths
}
