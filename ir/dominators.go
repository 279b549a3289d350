package ir

// Dominators is the dominator relation over a body's basic blocks,
// computed once per function with the standard iterative algorithm over a
// reverse postorder.
type Dominators struct {
	idom []BlockID
	// rpoNum is each block's reverse-postorder number; -1 when the block
	// is unreachable from entry.
	rpoNum []int
}

// ComputeDominators builds the dominator tree for the body. The entry
// block is block 0; unreachable blocks dominate nothing and are dominated
// by nothing.
func ComputeDominators(b *Body) *Dominators {
	n := len(b.Blocks)
	d := &Dominators{
		idom:   make([]BlockID, n),
		rpoNum: make([]int, n),
	}
	for i := range d.idom {
		d.idom[i] = NoBlock
		d.rpoNum[i] = -1
	}
	if n == 0 {
		return d
	}

	// Postorder DFS from entry.
	post := make([]BlockID, 0, n)
	visited := make([]bool, n)
	var dfs func(BlockID)
	dfs = func(id BlockID) {
		visited[id] = true
		for _, succ := range b.Blocks[id].Terminator.Successors() {
			if succ >= 0 && int(succ) < n && !visited[succ] {
				dfs(succ)
			}
		}
		post = append(post, id)
	}
	dfs(0)

	// Reverse postorder numbering and order.
	rpo := make([]BlockID, 0, len(post))
	for i := len(post) - 1; i >= 0; i-- {
		id := post[i]
		d.rpoNum[id] = len(rpo)
		rpo = append(rpo, id)
	}

	// Predecessors, restricted to reachable blocks.
	preds := make([][]BlockID, n)
	for _, id := range rpo {
		for _, succ := range b.Blocks[id].Terminator.Successors() {
			if succ >= 0 && int(succ) < n && d.rpoNum[succ] >= 0 {
				preds[succ] = append(preds[succ], id)
			}
		}
	}

	d.idom[0] = 0
	for changed := true; changed; {
		changed = false
		for _, id := range rpo[1:] {
			var newIdom BlockID = NoBlock
			for _, p := range preds[id] {
				if d.idom[p] == NoBlock {
					continue
				}
				if newIdom == NoBlock {
					newIdom = p
				} else {
					newIdom = d.intersect(p, newIdom)
				}
			}
			if newIdom != NoBlock && d.idom[id] != newIdom {
				d.idom[id] = newIdom
				changed = true
			}
		}
	}
	return d
}

func (d *Dominators) intersect(a, b BlockID) BlockID {
	for a != b {
		for d.rpoNum[a] > d.rpoNum[b] {
			a = d.idom[a]
		}
		for d.rpoNum[b] > d.rpoNum[a] {
			b = d.idom[b]
		}
	}
	return a
}

// ImmediateDominator returns the immediate dominator of a block; the entry
// block's immediate dominator is itself, and unreachable blocks have none.
func (d *Dominators) ImmediateDominator(b BlockID) (BlockID, bool) {
	if int(b) >= len(d.idom) || b < 0 || d.idom[b] == NoBlock {
		return NoBlock, false
	}
	return d.idom[b], true
}

// Dominates reports whether block a lies on every path from entry to
// block b. A block dominates itself.
func (d *Dominators) Dominates(a, b BlockID) bool {
	if a < 0 || b < 0 || int(a) >= len(d.idom) || int(b) >= len(d.idom) {
		return false
	}
	if d.idom[a] == NoBlock || d.idom[b] == NoBlock {
		return false
	}
	for {
		if a == b {
			return true
		}
		if b == 0 {
			return false
		}
		b = d.idom[b]
	}
}

// IsReachable reports whether the block is reachable from entry.
func (d *Dominators) IsReachable(b BlockID) bool {
	return b >= 0 && int(b) < len(d.idom) && d.idom[b] != NoBlock
}
