// Package reactive is a reactive state container.
//
// An Atom holds one immutable value. Reading it inside a tracked
// computation records a dependency; writing it computes the changed paths
// and notifies only the subscribers whose interest overlaps them.
//
// # Core Types
//
// Atom is the mutable root:
//
//	u := reactive.New()
//	user := u.CreateAtom(map[string]any{"name": "J", "age": 30})
//	user.At("name").Set("K")      // only "name" subscribers fire
//	user.Get()                    // *value.Map, frozen
//
// Derived is a read-only value computed from other states. It discovers
// its dependencies while computing and recomputes only when one of the
// paths it read changes:
//
//	label, _ := u.CreateDerived(func() any {
//	    name, _ := user.At("name").Get()
//	    return "Hello " + name.(string)
//	})
//
// Effect runs side effects and re-runs when what it read changes:
//
//	eff, _ := u.CreateEffect(func() reactive.Cleanup {
//	    fmt.Println(label.Get())
//	    return nil
//	})
//	defer eff.Dispose()
//
// # Transactions
//
// Writes inside a transaction apply immediately but their notifications
// are delivered once, deduplicated, when the outermost transaction exits:
//
//	u.Transaction(func() error {
//	    counter.Set(1)
//	    counter.Set(2)
//	    return nil
//	}) // subscribers run once and see 2
//
// # Universes and Threading
//
// A Universe owns the dependency graph, registry and scheduler. Universes
// are independent of each other. A universe is confined to one goroutine;
// WithGoroutineCheck turns cross-goroutine use into an error. The
// package-level helpers use Default().
package reactive
