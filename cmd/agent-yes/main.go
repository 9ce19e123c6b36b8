// Package main is the entry point for agent-yes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/agent-yes/agent-yes/internal/buildinfo"
	"github.com/agent-yes/agent-yes/internal/catalog"
	"github.com/agent-yes/agent-yes/internal/cliconfig"
	clierrors "github.com/agent-yes/agent-yes/internal/errors"
	"github.com/agent-yes/agent-yes/internal/observability"
	"github.com/agent-yes/agent-yes/internal/output"
	"github.com/agent-yes/agent-yes/internal/pattern"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() (exitCode int) {
	buildinfo.Version = version

	out := output.Default()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	assistantExitCode := 0

	rootCmd := newRootCmd(out, &assistantExitCode)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return handleError(out, err)
	}

	return assistantExitCode
}

// handleError formats and displays a CLI error, returning the appropriate
// exit code. Mirrors the teacher CLI's CLIError/Cobra-error split.
func handleError(out *output.Writer, err error) int {
	var cliErr *clierrors.CLIError
	if clierrors.As(err, &cliErr) {
		out.Failure("%s", cliErr.Message)

		if cliErr.Hint != "" {
			out.Info("%s", cliErr.Hint)
		}

		return cliErr.Code
	}

	errStr := err.Error()

	if strings.HasPrefix(errStr, "unknown command") {
		out.Failure("%s", errStr)

		if !strings.Contains(errStr, "--help") {
			out.Info("Run 'agent-yes --help' for usage")
		}

		return clierrors.ExitUsage
	}

	if strings.HasPrefix(errStr, "unknown flag") ||
		strings.HasPrefix(errStr, "unknown shorthand flag") ||
		strings.Contains(errStr, "required flag") {
		out.Failure("%s", errStr)
		out.Info("Run 'agent-yes --help' for usage")

		return clierrors.ExitUsage
	}

	out.Failure("%s", errStr)

	return clierrors.ExitGeneral
}

func newRootCmd(out *output.Writer, exitCodeOut *int) *cobra.Command {
	var (
		cliFlag      string
		promptFlag   string
		timeoutFlag  string
		robustFlag   bool
		continueFlag bool
		autoFlag     string
		queueFlag    bool
		logLevel     string
		logFormat    string
	)

	rootCmd := &cobra.Command{
		Use:   "agent-yes [--cli assistant] [flags] [assistant] [forwarded-args...] [-- prompt words...]",
		Short: "Drive interactive AI-assistant CLIs through their own PTY, answering prompts automatically",
		Long: `agent-yes wraps an interactive AI-assistant CLI (claude, gemini, codex, copilot,
cursor, grok, qwen, auggie, amp, opencode) inside a pseudo-terminal. It
watches the assistant's own output for confirmation prompts and answers
them automatically, so a long-running session doesn't stall waiting on a
keypress.

Invoke it directly with --cli, via a positional assistant name, or through
one of its assistant-named shims (claude-yes, gemini-yes, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRootCmd(cmd, args, out, exitCodeOut, rootFlags{
				cli:          cliFlag,
				prompt:       promptFlag,
				timeout:      timeoutFlag,
				robust:       robustFlag,
				continueSess: continueFlag,
				auto:         autoFlag,
				queue:        queueFlag,
				logLevel:     logLevel,
				logFormat:    logFormat,
			})
		},
	}

	rootCmd.Flags().StringVar(&cliFlag, "cli", "", fmt.Sprintf("Assistant to run (%s)", strings.Join(catalog.Names(), ", ")))
	rootCmd.Flags().StringVarP(&promptFlag, "prompt", "p", "", "Initial prompt text")
	rootCmd.Flags().StringVarP(&timeoutFlag, "timeout", "t", "", `Exit after this much idle time (e.g. "60s", "1m", "5m", or bare seconds)`)
	rootCmd.Flags().BoolVarP(&robustFlag, "robust", "r", true, "Automatically restart the assistant on a non-fatal crash")
	rootCmd.Flags().BoolVarP(&continueFlag, "continue", "c", false, "Resume the assistant's previous session")
	rootCmd.Flags().StringVar(&autoFlag, "auto", "yes", `Auto-confirm prompts: "yes" or "no"`)
	rootCmd.Flags().BoolVar(&queueFlag, "queue", false, "Serialize concurrent agent-yes invocations for the same assistant and working directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: error, warn, info, debug")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: json, text")

	rootCmd.SuggestionsMinimumDistance = 2

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &clierrors.CLIError{
			Message: err.Error(),
			Hint:    fmt.Sprintf("Run '%s --help' for available flags", cmd.CommandPath()),
			Code:    clierrors.ExitUsage,
		}
	})

	rootCmd.AddCommand(newDoctorCmd(out))
	rootCmd.AddCommand(newVersionCmd(out))

	return rootCmd
}

// installHint picks the install command shown for a missing assistant
// binary: npm (cross-platform) when set, else bash, else PowerShell. The
// host platform is not consulted.
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

type rootFlags struct {
	cli          string
	prompt       string
	timeout      string
	robust       bool
	continueSess bool
	auto         string
	queue        bool
	logLevel     string
	logFormat    string
}

func runRootCmd(cmd *cobra.Command, args []string, out *output.Writer, exitCodeOut *int, flags rootFlags) error {
	logLevel := flags.logLevel
	if logLevel == "" && os.Getenv("VERBOSE") == "1" {
		logLevel = "debug"
	}

	logger, err := observability.NewLogger(&observability.Config{
		Level:       logLevel,
		Format:      flags.logFormat,
		SessionID:   uuid.NewString(),
		CommandPath: cmd.CommandPath(),
		Version:     version,
		Commit:      commit,
	})
	if err != nil {
		return &clierrors.CLIError{
			Message: fmt.Sprintf("Invalid logging configuration: %v", err),
			Hint:    "Use --log-level (error|warn|info|debug) and/or --log-format (json|text)",
			Code:    clierrors.ExitUsage,
		}
	}

	// cobra strips the "--" separator itself and reports where it was via
	// ArgsLenAtDash: everything before it is forwarded CLI args (plus a
	// possible leading positional assistant name), everything after it is
	// prompt text, per spec's "-- separator splits into (forwarded args,
	// prompt parts)".
	beforeDash, afterDash := args, []string(nil)
	if dashIdx := cmd.Flags().ArgsLenAtDash(); dashIdx >= 0 {
		beforeDash, afterDash = args[:dashIdx], args[dashIdx:]
	}

	assistantName, forwarded := resolveAssistant(flags.cli, beforeDash, os.Args[0])
	promptFromArgs := strings.Join(afterDash, " ")

	baseSpec, ok := catalog.Get(assistantName)
	if !ok {
		return clierrors.UnknownAssistant(assistantName, catalog.Names())
	}

	overrides, loadErrs := cliconfig.LoadCascading()
	for _, loadErr := range loadErrs {
		logger.Warn("config file failed to parse", "error", loadErr.Error())
	}

	spec := overrides.Apply(assistantName, *baseSpec)

	if _, lookErr := exec.LookPath(spec.BinaryName()); lookErr != nil {
		return clierrors.BinaryNotFound(spec.BinaryName(), installHint(spec.Install))
	}

	patterns, compileErr := pattern.Compile(spec.Patterns)
	if compileErr != nil {
		return clierrors.Wrap(clierrors.ExitConfig, "invalid pattern configuration", compileErr)
	}

	timeout, timeoutErr := parseTimeout(flags.timeout)
	if timeoutErr != nil {
		return timeoutErr
	}

	autoYesEnabled, autoErr := parseAutoMode(flags.auto)
	if autoErr != nil {
		return autoErr
	}

	prompt := flags.prompt
	if prompt == "" {
		prompt = promptFromArgs
	}

	finalArgs, buildErr := buildArgs(spec, forwarded, prompt, flags.continueSess)
	if buildErr != nil {
		return clierrors.Wrap(clierrors.ExitConfig, "failed to build assistant arguments", buildErr)
	}

	if flags.queue {
		workDir, wdErr := os.Getwd()
		if wdErr != nil {
			return clierrors.Wrap(clierrors.ExitGeneral, "failed to resolve working directory", wdErr)
		}

		lock, acquired, lockErr := cliconfig.AcquireQueueLock(assistantName, workDir)
		if lockErr != nil {
			return clierrors.Wrap(clierrors.ExitGeneral, "failed to acquire queue lock", lockErr)
		}

		if !acquired {
			return clierrors.QueueLockHeld(cliconfig.QueueLockPath(assistantName, workDir))
		}

		defer func() { _ = lock.Release() }()
	}

	exitCode, runErr := runAssistant(cmd.Context(), runConfig{
		spec:           spec,
		patterns:       patterns,
		args:           finalArgs,
		robust:         flags.robust,
		autoYesEnabled: autoYesEnabled,
		idleTimeout:    timeout,
		logger:         logger,
	})
	if runErr != nil {
		var cliErr *clierrors.CLIError
		if clierrors.As(runErr, &cliErr) {
			return cliErr
		}

		return runErr
	}

	*exitCodeOut = exitCode

	return nil
}
