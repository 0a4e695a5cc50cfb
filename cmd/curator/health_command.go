package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"curator/internal/config"
	"curator/internal/daemon"
	"curator/internal/logging"
	"curator/internal/store"
)

type healthCheckRow struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check journal, directories, and disk headroom",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(cfg *config.Config, journal *store.Store) error {
				d, err := daemon.New(cfg, journal, logging.NewNop())
				if err != nil {
					return err
				}
				checks := d.Health(cmd.Context())

				if ctx.JSONMode() {
					rows := make([]healthCheckRow, 0, len(checks))
					for _, check := range checks {
						rows = append(rows, healthCheckRow{Name: check.Name, Ready: check.Ready, Detail: check.Detail})
					}
					return writeJSON(cmd, rows)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Health Checks", colorize) {
					fmt.Fprintln(out, line)
				}
				failures := 0
				for _, check := range checks {
					kind := statusOK
					message := check.Detail
					if !check.Ready {
						kind = statusError
						failures++
					} else if message == "" {
						message = "Ready"
					}
					fmt.Fprintln(out, renderStatusLine(check.Name, kind, message, colorize))
				}
				if failures > 0 {
					return fmt.Errorf("%d of %d health checks failed", failures, len(checks))
				}
				return nil
			})
		},
	}
}
