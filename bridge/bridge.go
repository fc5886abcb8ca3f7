// Package bridge connects native Go code to a script State: it normalizes
// stack indices, builds tracebacks, turns failed script calls into
// *errz.ScriptError values, converts native failures into script errors,
// dispatches callback lists, and reports uses of deprecated APIs.
package bridge

import (
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/hostbridge/settings"
	"github.com/deepnoodle-ai/hostbridge/vm"
)

// Bridge binds the helpers in this package to one State. Like the State it
// wraps, a Bridge is not safe for concurrent use.
type Bridge struct {
	state           *vm.State
	id              uuid.UUID
	name            string
	logger          zerolog.Logger
	source          settings.Getter
	deprecationMode DeprecationMode
}

// Option is a configuration function for a Bridge.
type Option func(*Bridge)

// WithSettings sets the settings the Bridge reads at construction. Without
// it the Bridge uses settings.New(), i.e. defaults plus environment
// overrides.
func WithSettings(source settings.Getter) Option {
	return func(b *Bridge) {
		b.source = source
	}
}

// WithLogger sets the logger for warnings and informational output.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithName sets a display name used in log output.
func WithName(name string) Option {
	return func(b *Bridge) {
		b.name = name
	}
}

// New creates a Bridge for s and installs the registry functions it relies
// on. The deprecation handling mode is read from settings once, here, and
// does not change for the Bridge's lifetime.
func New(s *vm.State, options ...Option) *Bridge {
	if s == nil {
		panic("bridge: nil state")
	}
	b := &Bridge{
		state:  s,
		id:     uuid.Must(uuid.NewV4()),
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(b)
	}
	if b.source == nil {
		b.source = settings.New()
	}
	b.deprecationMode = ParseDeprecationMode(b.source.GetString(settings.KeyDeprecatedHandling))

	ctx := b.logger.With().
		Str("component", "bridge").
		Str("bridge", b.id.String())
	if b.name != "" {
		ctx = ctx.Str("name", b.name)
	}
	b.logger = ctx.Logger()

	Install(s)
	return b
}

// State returns the wrapped State.
func (b *Bridge) State() *vm.State {
	return b.state
}

// ID returns the unique id of this Bridge.
func (b *Bridge) ID() uuid.UUID {
	return b.id
}

// Name returns the display name given with WithName.
func (b *Bridge) Name() string {
	return b.name
}

// DeprecationMode returns the mode captured at construction.
func (b *Bridge) DeprecationMode() DeprecationMode {
	return b.deprecationMode
}
