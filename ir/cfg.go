package ir

// CanReach reports whether dst is reachable from src in the body's
// control-flow graph, following terminator successors with a BFS. src
// does not reach itself unless the graph contains a cycle through it.
func (b *Body) CanReach(src, dst BlockID) bool {
	if b.Block(src) == nil || b.Block(dst) == nil {
		return false
	}

	visited := make(map[BlockID]bool)
	queue := []BlockID{src}
	visited[src] = true

	for len(queue) > 0 {
		block := queue[0]
		queue = queue[1:]

		for _, succ := range b.Blocks[block].Terminator.Successors() {
			if succ == dst {
				return true
			}
			if !visited[succ] && b.Block(succ) != nil {
				visited[succ] = true
				queue = append(queue, succ)
			}
		}
	}
	return false
}

// FirstReachable walks the CFG from src in BFS order and returns the
// first block for which found returns true.
func (b *Body) FirstReachable(src BlockID, found func(BlockID) bool) (BlockID, bool) {
	if b.Block(src) == nil {
		return NoBlock, false
	}

	visited := map[BlockID]bool{src: true}
	queue := []BlockID{src}

	for len(queue) > 0 {
		block := queue[0]
		queue = queue[1:]

		for _, succ := range b.Blocks[block].Terminator.Successors() {
			if visited[succ] || b.Block(succ) == nil {
				continue
			}
			if found(succ) {
				return succ, true
			}
			visited[succ] = true
			queue = append(queue, succ)
		}
	}
	return NoBlock, false
}
