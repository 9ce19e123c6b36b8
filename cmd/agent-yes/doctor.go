package main

import (
	"github.com/spf13/cobra"

	"github.com/agent-yes/agent-yes/internal/doctor"
	clierrors "github.com/agent-yes/agent-yes/internal/errors"
	"github.com/agent-yes/agent-yes/internal/output"
)

func newDoctorCmd(out *output.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check whether each catalog assistant's binary is on PATH",
		Long: `doctor runs one check per built-in assistant (claude, gemini, codex, ...),
looking it up on PATH and printing an install hint when it's missing, plus
a check for any cascading .agent-yes.config file that fails to parse.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := doctor.New()
			results := runner.Run(cmd.Context())

			doctor.RenderResults(results, out.Print, out.Success, out.Warning, out.Failure, out.Muted)

			passed, failed, warnings := doctor.Summary(results)
			out.Print("\n%d passed, %d warning(s), %d failed\n", passed, warnings, failed)

			if failed > 0 {
				return clierrors.New(clierrors.ExitGeneral, "one or more assistant binaries are missing")
			}

			return nil
		},
	}
}
