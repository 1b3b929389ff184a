package reactive

import "sync/atomic"

// ID identifies an atom, derived value or effect. IDs are unique across
// every universe in the process and never reused.
type ID = uint64

var idCounter uint64

func nextID() ID {
	return atomic.AddUint64(&idCounter, 1)
}
