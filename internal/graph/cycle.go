package graph

// findCycle runs a depth-first search over dependency edges starting at
// source. When a node already on the current path is revisited, the cycle is
// the path suffix from that node followed by the revisit. Neighbors are
// visited in ascending id order so the reported cycle is deterministic.
func (g *Graph) findCycle(source ID) []ID {
	var (
		stack   []ID
		onStack = make(map[ID]int)
		done    = make(map[ID]bool)
	)

	var visit func(id ID) []ID
	visit = func(id ID) []ID {
		onStack[id] = len(stack)
		stack = append(stack, id)

		for _, next := range sortedIDs(g.dependencies[id]) {
			if at, ok := onStack[next]; ok {
				cycle := make([]ID, 0, len(stack)-at+1)
				cycle = append(cycle, stack[at:]...)
				return append(cycle, next)
			}
			if done[next] {
				continue
			}
			if cycle := visit(next); cycle != nil {
				return cycle
			}
		}

		stack = stack[:len(stack)-1]
		delete(onStack, id)
		done[id] = true
		return nil
	}
	return visit(source)
}
