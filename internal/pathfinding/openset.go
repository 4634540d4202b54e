package pathfinding

import "container/heap"

// openSet is a min-heap of nodes that supports removal of arbitrary members.
type openSet struct {
	h nodeHeap
}

func (s *openSet) Len() int { return len(s.h) }

func (s *openSet) push(n *Node) {
	if n.index >= 0 {
		heap.Fix(&s.h, n.index)
		return
	}
	heap.Push(&s.h, n)
}

func (s *openSet) pop() *Node {
	if len(s.h) == 0 {
		return nil
	}
	return heap.Pop(&s.h).(*Node)
}

// remove takes n out of the set; false if n was not queued.
func (s *openSet) remove(n *Node) bool {
	if n.index < 0 || n.index >= len(s.h) || s.h[n.index] != n {
		return false
	}
	heap.Remove(&s.h, n.index)
	return true
}

func (s *openSet) contains(n *Node) bool {
	return n.index >= 0 && n.index < len(s.h) && s.h[n.index] == n
}

func (s *openSet) nodes() []*Node {
	out := make([]*Node, len(s.h))
	copy(out, s.h)
	return out
}

type nodeHeap []*Node

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i].before(h[j]) }
func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*Node)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	last := len(old) - 1
	n := old[last]
	old[last] = nil // avoid memory leak
	n.index = -1
	*h = old[:last]
	return n
}
