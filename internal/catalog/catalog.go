// Package catalog loads the built-in per-assistant definitions: binary
// name, prompt placement, default/restore arguments, exit command, and the
// regex patterns the supervisor's pattern matcher classifies PTY output
// against. Each assistant is one embedded YAML file under assistants/.
package catalog

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed assistants/*.yaml
var assistantsFS embed.FS

// PromptPlacement says where the user's prompt text is inserted into the
// assistant's argument list.
type PromptPlacement string

const (
	PromptFirstArg  PromptPlacement = "first-arg"
	PromptLastArg   PromptPlacement = "last-arg"
	PromptFlag      PromptPlacement = "flag"
)

// Patterns holds the raw regex strings the supervisor compiles into an
// internal/pattern.Set. Kept as strings here (rather than *regexp.Regexp)
// so the catalog stays a plain data layer a config-file override can patch
// field by field without forcing a recompile step into this package.
type Patterns struct {
	Ready                   []string            `yaml:"ready"`
	Working                 []string            `yaml:"working"`
	Enter                   []string            `yaml:"enter"`
	Fatal                   []string            `yaml:"fatal"`
	RestartWithoutContinue  []string            `yaml:"restartWithoutContinue"`
	TypingRespond           map[string][]string `yaml:"typingRespond"`
}

// Install describes the shell command(s) used to install an assistant's
// CLI, surfaced to the user when the root command or doctor finds the
// binary missing from PATH.
type Install struct {
	NPM        string `yaml:"npm,omitempty"`
	Bash       string `yaml:"bash,omitempty"`
	PowerShell string `yaml:"powershell,omitempty"`
}

// Spec is one assistant's complete definition.
type Spec struct {
	Name           string          `yaml:"name"`
	Binary         string          `yaml:"binary,omitempty"` // defaults to Name if empty
	PromptArg      PromptPlacement `yaml:"promptArg"`
	PromptFlag     string          `yaml:"promptFlag,omitempty"` // required when PromptArg == PromptFlag
	DefaultArgs    []string        `yaml:"defaultArgs,omitempty"`
	RestoreArgs    []string        `yaml:"restoreArgs,omitempty"`
	ExitCommand    []string        `yaml:"exitCommand,omitempty"`
	NoEOL          bool            `yaml:"noEOL,omitempty"`
	Install        Install         `yaml:"install,omitempty"`
	Patterns       Patterns        `yaml:"patterns"`
}

// BinaryName returns the executable to invoke, falling back to the
// assistant's catalog name when no explicit override is set.
func (s *Spec) BinaryName() string {
	if s.Binary != "" {
		return s.Binary
	}

	return s.Name
}

var specs = mustLoad(assistantsFS)

func mustLoad(fsys embed.FS) map[string]*Spec {
	entries, err := fsys.ReadDir("assistants")
	if err != nil {
		panic(fmt.Sprintf("catalog: read assistants dir: %v", err))
	}

	out := make(map[string]*Spec, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		data, readErr := fsys.ReadFile("assistants/" + entry.Name())
		if readErr != nil {
			panic(fmt.Sprintf("catalog: read %s: %v", entry.Name(), readErr))
		}

		var spec Spec
		if unmarshalErr := yaml.Unmarshal(data, &spec); unmarshalErr != nil {
			panic(fmt.Sprintf("catalog: unmarshal %s: %v", entry.Name(), unmarshalErr))
		}

		validate(&spec, entry.Name())

		if _, dup := out[spec.Name]; dup {
			panic(fmt.Sprintf("catalog: duplicate assistant name %q in %s", spec.Name, entry.Name()))
		}

		out[spec.Name] = &spec
	}

	return out
}

func validate(spec *Spec, filename string) {
	if spec.Name == "" {
		panic(fmt.Sprintf("catalog: %s: name is required", filename))
	}

	switch spec.PromptArg {
	case PromptFirstArg, PromptLastArg:
	case PromptFlag:
		if spec.PromptFlag == "" {
			panic(fmt.Sprintf("catalog: %s: promptArg %q requires promptFlag", filename, spec.PromptArg))
		}
	case "":
		panic(fmt.Sprintf("catalog: %s: promptArg is required", filename))
	default:
		panic(fmt.Sprintf("catalog: %s: invalid promptArg %q", filename, spec.PromptArg))
	}
}

// Get returns the named assistant's Spec.
func Get(name string) (*Spec, bool) {
	spec, ok := specs[name]
	return spec, ok
}

// Names returns all catalog assistant names, sorted.
func Names() []string {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
