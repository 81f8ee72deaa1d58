package graph

import "fmt"

// detectCycles runs a depth-first search over the directed edges, treating
// every edge from -> to as an arc. Revisiting a node still on the current
// recursion stack is a cycle.
func (g *Graph) detectCycles() error {
	adjacency := make(map[string][]string)
	for _, e := range g.edges {
		adjacency[e.From] = append(adjacency[e.From], e.To)
	}

	// Classic three-set DFS:
	// permanent: fully visited and known cycle-free.
	// temporary: on the current recursion stack.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(id string) error
	visit = func(id string) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			return fmt.Errorf("%w: cycle involves node %q", ErrCycle, id)
		}

		temporary[id] = true
		for _, next := range adjacency[id] {
			if err := visit(next); err != nil {
				return err
			}
		}
		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	for _, id := range g.order {
		if !permanent[id] {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}
