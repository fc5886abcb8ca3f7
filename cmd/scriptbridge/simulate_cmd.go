package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/hostbridge/bridge"
	"github.com/deepnoodle-ai/hostbridge/corelib"
	"github.com/deepnoodle-ai/hostbridge/object"
	"github.com/deepnoodle-ai/hostbridge/settings"
	"github.com/deepnoodle-ai/hostbridge/vm"
)

// maxSimulatedDepth keeps simulated nesting below vm.MaxFrameDepth.
const maxSimulatedDepth = vm.MaxFrameDepth - 10

type simulation struct {
	Callbacks  int
	FailAt     int
	Depth      int
	Mode       corelib.Mode
	Mod        string
	Hook       string
	Deprecated bool
}

func (sim simulation) validate() error {
	switch {
	case sim.Callbacks < 0:
		return errors.New("--callbacks must not be negative")
	case sim.FailAt < 0 || sim.FailAt > sim.Callbacks:
		return fmt.Errorf("--fail-at must be between 0 and %d", sim.Callbacks)
	case sim.Depth < 1 || sim.Depth > maxSimulatedDepth:
		return fmt.Errorf("--depth must be between 1 and %d", maxSimulatedDepth)
	}
	return nil
}

func newSimulateCmd(a *app) *cobra.Command {
	var (
		sim  simulation
		mode string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Dispatch a simulated callback list through the bridge",
		Long: `Registers a number of script callbacks on behalf of a mod, dispatches
them with core.run_callbacks and prints the aggregated result. One callback
can be made to fail after descending a number of nested calls, which shows
how failures and tracebacks are reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if sim.Mode, err = corelib.ParseMode(mode); err != nil {
				return err
			}
			if err := sim.validate(); err != nil {
				return err
			}
			snap, err := a.snapshot()
			if err != nil {
				return err
			}
			level, _ := snap.Level()
			logger := newLogger(cmd.ErrOrStderr(), level)

			result, err := runSimulation(sim, snap, logger)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), result)
		},
	}
	flags := cmd.Flags()
	flags.IntVarP(&sim.Callbacks, "callbacks", "n", 3, "number of callbacks to register")
	flags.IntVar(&sim.FailAt, "fail-at", 0, "callback number that raises an error, 0 for none")
	flags.IntVar(&sim.Depth, "depth", 1, "nested calls the failing callback makes before raising")
	flags.StringVarP(&mode, "mode", "m", "and", "aggregation mode (first, last, and, and_sc, or, or_sc)")
	flags.StringVar(&sim.Mod, "mod", "default", "mod that registers the callbacks")
	flags.StringVar(&sim.Hook, "hook", "on_step", "callback hook name")
	flags.BoolVar(&sim.Deprecated, "deprecated", false, "have each callback call a deprecated API")
	return cmd
}

// runSimulation builds a State, registers the simulated callbacks and
// dispatches them. Callback i returns i, so the result shows which callback
// the mode selected.
func runSimulation(sim simulation, snap settings.Snapshot, logger zerolog.Logger) (object.Object, error) {
	s := vm.New(
		vm.WithMemoryLimit(snap.MemoryLimitBytes()),
		vm.WithStackLimit(snap.StackLimit),
	)
	corelib.Open(s)
	b := bridge.New(s,
		bridge.WithSettings(snap),
		bridge.WithLogger(logger),
		bridge.WithName("simulate"))

	b.Register("get_node", b.Deprecated("get_node is deprecated, use get_node_or_nil",
		func(s *vm.State) (int, error) {
			s.PushNil()
			return 1, nil
		}))

	source := fmt.Sprintf("@mods/%s/init.lua", sim.Mod)
	var list *object.Table
	for i := 1; i <= sim.Callbacks; i++ {
		cb := vm.NewScriptFunction(source, i*10, callbackBody(sim, i))
		var err error
		if list, err = corelib.RegisterCallback(s, sim.Hook, sim.Mod, cb); err != nil {
			return nil, err
		}
	}
	if list == nil {
		list = object.NewTable()
	}

	logger.Debug().Int("callbacks", sim.Callbacks).Stringer("mode", sim.Mode).Msg("dispatching")
	s.Push(list)
	s.PushString(sim.Hook)
	if err := b.RunCallbacks(1, sim.Mode, sim.Hook); err != nil {
		return nil, err
	}
	result := s.Get(-1)
	s.Pop(1)
	return result, nil
}

func callbackBody(sim simulation, i int) vm.Function {
	line := i * 10
	return func(s *vm.State) (int, error) {
		s.SetLine(line + 1)
		if sim.Deprecated {
			s.GetGlobal("get_node")
			if err := s.Call(0, 0); err != nil {
				return 0, err
			}
		}
		if i == sim.FailAt {
			s.SetLine(line + 2)
			s.Push(nested(sim.Mod, sim.Depth))
			if err := s.Call(0, 0); err != nil {
				return 0, err
			}
		}
		s.SetLine(line + 3)
		s.PushInt(int64(i))
		return 1, nil
	}
}

// nested returns a function that descends depth script calls and then
// raises.
func nested(mod string, depth int) *vm.ScriptFunction {
	source := fmt.Sprintf("@mods/%s/util.lua", mod)
	return vm.NewScriptFunction(source, depth, func(s *vm.State) (int, error) {
		s.SetLine(depth + 1)
		if depth <= 1 {
			return 0, s.Errorf("attempt to index a nil value (local 'node')")
		}
		s.Push(nested(mod, depth-1))
		return 0, s.Call(0, 0)
	})
}

func printResult(w io.Writer, result object.Object) error {
	_, err := fmt.Fprintf(w, "result: %s\n", result.Inspect())
	return err
}
