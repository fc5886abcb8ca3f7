package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/hostbridge/bridge"
	"github.com/deepnoodle-ai/hostbridge/settings"
)

type settingsOutput struct {
	settings.Snapshot
	DeprecationMode string `json:"deprecation_mode"`
}

func newSettingsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Print the resolved settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.snapshot()
			if err != nil {
				return err
			}
			out := settingsOutput{
				Snapshot:        snap,
				DeprecationMode: bridge.ParseDeprecationMode(snap.DeprecatedHandling).String(),
			}
			w := cmd.OutOrStdout()
			if asJSON {
				data, err := marshalJSON(out, useColor(w))
				if err != nil {
					return err
				}
				fmt.Fprintln(w, string(data))
				return nil
			}
			fmt.Fprintf(w, "%s = %s\n", settings.KeyDeprecatedHandling, snap.DeprecatedHandling)
			fmt.Fprintf(w, "%s = %d\n", settings.KeyMemoryLimitMB, snap.MemoryLimitMB)
			fmt.Fprintf(w, "%s = %d\n", settings.KeyStackLimit, snap.StackLimit)
			fmt.Fprintf(w, "%s = %s\n", settings.KeyLogLevel, snap.LogLevel)
			fmt.Fprintf(w, "deprecation mode: %s\n", out.DeprecationMode)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
