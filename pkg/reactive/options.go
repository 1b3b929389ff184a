package reactive

// Kind tags the variant of a reactive entity.
type Kind string

const (
	KindAtom    Kind = "atom"
	KindDerived Kind = "derived"
	KindEffect  Kind = "effect"
)

// Option configures an atom, derived value or effect.
type Option func(*options)

type options struct {
	name         string
	equals       func(a, b any) bool
	devtools     bool
	retrackEvery int
}

// Name sets a human-readable name used in errors, logs and devtools.
func Name(name string) Option {
	return func(o *options) { o.name = name }
}

// Equals sets an extra equality check. When it reports the old and new
// values equal, the write is dropped and nobody is notified. Values are
// compared after freezing. Without it only structurally identical values
// are dropped.
func Equals(fn func(a, b any) bool) Option {
	return func(o *options) { o.equals = fn }
}

// Devtools exposes the atom to a devtools server observing the universe.
func Devtools() Option {
	return func(o *options) { o.devtools = true }
}

// RetrackEvery makes a derived value re-discover its dependencies only on
// every nth recompute and trust the previous set in between. A dependency
// introduced by a branch taken between re-tracks is missed until the next
// one. Ignored by atoms and effects.
func RetrackEvery(n int) Option {
	return func(o *options) { o.retrackEvery = n }
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
