// Package graph walks lazily discovered graphs without revisiting nodes.
//
// Both searches are pull-based: nothing is visited until the consumer asks for
// the next node, and breaking out of the range loop stops all further work.
// The visited set belongs to a single invocation.
package graph

import (
	"fmt"
	"iter"
)

// VisitFunc materializes the node behind a reference.
type VisitFunc[R comparable, N any] func(ref R) (N, error)

// AdjacentFunc lists the references reachable from a node.
type AdjacentFunc[R comparable, N any] func(node N) iter.Seq2[R, error]

// Search is the shared signature of DepthFirst and BreadthFirst.
type Search[R comparable, N any] func(root R, visit VisitFunc[R, N], adjacent AdjacentFunc[R, N]) iter.Seq2[N, error]

// DepthFirst yields nodes in depth-first preorder. Siblings are explored in the
// order adjacent produces them.
func DepthFirst[R comparable, N any](root R, visit VisitFunc[R, N], adjacent AdjacentFunc[R, N]) iter.Seq2[N, error] {
	return func(yield func(N, error) bool) {
		var zero N
		visited := map[R]struct{}{}
		stack := []R{root}
		for len(stack) > 0 {
			ref := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, seen := visited[ref]; seen {
				continue
			}
			visited[ref] = struct{}{}

			node, err := visit(ref)
			if err != nil {
				yield(zero, fmt.Errorf("visit %v: %w", ref, err))
				return
			}
			if !yield(node, nil) {
				return
			}

			var next []R
			for child, err := range adjacent(node) {
				if err != nil {
					yield(zero, fmt.Errorf("adjacent of %v: %w", ref, err))
					return
				}
				if _, seen := visited[child]; !seen {
					next = append(next, child)
				}
			}
			for i := len(next) - 1; i >= 0; i-- {
				stack = append(stack, next[i])
			}
		}
	}
}

// BreadthFirst yields nodes level by level. A node's children are visited as
// its adjacency is enumerated, so all direct children precede any grandchild.
func BreadthFirst[R comparable, N any](root R, visit VisitFunc[R, N], adjacent AdjacentFunc[R, N]) iter.Seq2[N, error] {
	return func(yield func(N, error) bool) {
		var zero N
		visited := map[R]struct{}{root: {}}
		node, err := visit(root)
		if err != nil {
			yield(zero, fmt.Errorf("visit %v: %w", root, err))
			return
		}
		if !yield(node, nil) {
			return
		}

		queue := []N{node}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			for ref, err := range adjacent(current) {
				if err != nil {
					yield(zero, fmt.Errorf("adjacency: %w", err))
					return
				}
				if _, seen := visited[ref]; seen {
					continue
				}
				visited[ref] = struct{}{}
				child, err := visit(ref)
				if err != nil {
					yield(zero, fmt.Errorf("visit %v: %w", ref, err))
					return
				}
				if !yield(child, nil) {
					return
				}
				queue = append(queue, child)
			}
		}
	}
}
