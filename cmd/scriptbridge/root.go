package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/hostbridge/settings"
)

// app carries state shared by the subcommands.
type app struct {
	settings *settings.Settings
	noColor  bool
}

func newRootCmd() *cobra.Command {
	a := &app{settings: settings.New()}

	root := &cobra.Command{
		Use:           "scriptbridge",
		Short:         "Inspect and exercise the script bridge",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.processGlobalFlags(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "settings file (default ~/.config/hostbridge/settings.toml)")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.String("deprecated-handling", "log", "deprecated API handling (ignore, log, error)")
	flags.Int64("memory-limit-mb", 0, "script heap limit in megabytes, 0 for none")

	v := a.settings.Viper()
	for key, flag := range map[string]string{
		settings.KeyLogLevel:           "log-level",
		settings.KeyDeprecatedHandling: "deprecated-handling",
		settings.KeyMemoryLimitMB:      "memory-limit-mb",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(newSettingsCmd(a), newSimulateCmd(a))
	return root
}

// processGlobalFlags loads the settings file and applies --no-color.
func (a *app) processGlobalFlags(cmd *cobra.Command) error {
	if a.noColor || os.Getenv("NO_COLOR") != "" {
		a.noColor = true
		color.NoColor = true
	}

	path, _ := cmd.Flags().GetString("config")
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = settings.DefaultPath(); err != nil {
			return nil
		}
	}
	if err := a.settings.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// snapshot returns the validated settings.
func (a *app) snapshot() (settings.Snapshot, error) {
	snap := a.settings.Snapshot()
	if err := snap.Validate(); err != nil {
		return snap, fmt.Errorf("invalid settings: %w", err)
	}
	return snap, nil
}
