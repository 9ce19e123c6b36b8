package main

import (
	"github.com/spf13/cobra"

	"github.com/agent-yes/agent-yes/internal/output"
)

func newVersionCmd(out *output.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out.JSON {
				return out.PrintJSON(struct {
					Version string `json:"version"`
					Commit  string `json:"commit"`
				}{Version: version, Commit: commit})
			}

			out.Print("agent-yes %s\n", version)
			out.Print("  commit: %s\n", commit)

			return nil
		},
	}
}
