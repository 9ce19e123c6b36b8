package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/agent-yes/agent-yes/internal/catalog"
	clierrors "github.com/agent-yes/agent-yes/internal/errors"
	"github.com/agent-yes/agent-yes/internal/pattern"
	"github.com/agent-yes/agent-yes/internal/ptychannel"
	"github.com/agent-yes/agent-yes/internal/supervisor"
	"github.com/agent-yes/agent-yes/internal/terminal"
)

// runConfig holds everything runAssistant needs to drive one (possibly
// restarted, in robust mode) assistant session end to end.
type runConfig struct {
	spec           catalog.Spec
	patterns       *pattern.Set
	args           []string
	robust         bool
	autoYesEnabled bool
	idleTimeout    time.Duration
	logger         *slog.Logger
}

// runAssistant spawns the assistant under a PTY and drives the supervisor
// event loop, restarting per internal/supervisor.DecideRestart until the
// policy says to stop. It owns host-terminal raw mode and resize
// propagation for the lifetime of the call.
func runAssistant(ctx context.Context, cfg runConfig) (int, error) {
	raw, err := terminal.EnterRawMode()
	if err != nil {
		return clierrors.ExitGeneral, err
	}
	defer raw.Restore()

	args := cfg.args
	restartWithoutContinue := false

	for {
		pty, spawnErr := ptychannel.Spawn(ctx, cfg.spec.BinaryName(), args, ptychannel.DefaultRows, ptychannel.DefaultCols)
		if spawnErr != nil {
			return clierrors.ExitExecution, clierrors.SpawnFailed(cfg.spec.BinaryName(), spawnErr)
		}

		resizeCtx, stopResize := context.WithCancel(ctx)
		go terminal.WatchResize(resizeCtx, pty)

		sup := supervisor.New(supervisor.Options{
			Patterns:       cfg.patterns,
			NoEOL:          cfg.spec.NoEOL,
			ExitCommand:    cfg.spec.ExitCommand,
			AutoYesEnabled: cfg.autoYesEnabled,
			IdleTimeout:    cfg.idleTimeout,
			Stdin:          os.Stdin,
			Stdout:         os.Stdout,
			Logger:         cfg.logger,
		})

		res := sup.Run(ctx, pty)
		stopResize()

		action := supervisor.DecideRestart(res.ExitCode, res.Fatal, res.UserAbort, cfg.robust)
		if action == supervisor.Stop {
			return res.ExitCode, nil
		}

		cfg.logger.Info("restarting assistant after non-fatal exit",
			slog.Int("exit_code", res.ExitCode),
			slog.Bool("restart_without_continue", res.RestartWithoutContinue),
		)

		restartWithoutContinue = restartWithoutContinue || res.RestartWithoutContinue
		args = supervisor.ApplyRestoreArgs(args, cfg.spec.RestoreArgs, restartWithoutContinue)
	}
}
