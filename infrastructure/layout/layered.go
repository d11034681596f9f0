// Package layout provides the automatic-arrangement function the editor
// applies on demand. The algorithm is a pure function of the graph it is
// handed; it keeps no state between calls.
package layout

import (
	"flowcanvas/application/ports"
	"flowcanvas/domain/core/valueobjects"
)

// Separation between ranks along the main axis and between nodes within
// a rank, in canvas units.
const (
	rankSeparation = 260
	nodeSeparation = 140
)

// Layered returns a layout that arranges the graph into ranks: source
// nodes on the first rank and every edge pointing to a strictly later
// rank. Nodes caught in a cycle share one trailing rank. Output is
// deterministic: within a rank, nodes keep their input order.
func Layered() ports.LayoutFunc {
	return func(nodes []ports.LayoutNode, edges []ports.LayoutEdge, direction ports.LayoutDirection) (map[valueobjects.NodeID]valueobjects.Position, error) {
		ranks := rankNodes(nodes, edges)

		byRank := make(map[int][]int)
		maxRank := 0
		for i := range nodes {
			r := ranks[nodes[i].ID]
			byRank[r] = append(byRank[r], i)
			if r > maxRank {
				maxRank = r
			}
		}

		positions := make(map[valueobjects.NodeID]valueobjects.Position, len(nodes))
		for r := 0; r <= maxRank; r++ {
			for j, idx := range byRank[r] {
				var x, y float64
				if direction == ports.LayoutTopToBottom {
					x = float64(j) * nodeSeparation
					y = float64(r) * rankSeparation
				} else {
					x = float64(r) * rankSeparation
					y = float64(j) * nodeSeparation
				}
				pos, err := valueobjects.NewPosition(x, y)
				if err != nil {
					return nil, err
				}
				positions[nodes[idx].ID] = pos
			}
		}
		return positions, nil
	}
}

// rankNodes assigns each node its longest-path depth from a source.
// Edges referencing unknown nodes or a node itself are ignored rather
// than failed: layout arranges whatever graph it is given.
func rankNodes(nodes []ports.LayoutNode, edges []ports.LayoutEdge) map[valueobjects.NodeID]int {
	known := make(map[valueobjects.NodeID]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}

	indegree := make(map[valueobjects.NodeID]int, len(nodes))
	successors := make(map[valueobjects.NodeID][]valueobjects.NodeID)
	for _, e := range edges {
		if !known[e.Source] || !known[e.Target] || e.Source == e.Target {
			continue
		}
		successors[e.Source] = append(successors[e.Source], e.Target)
		indegree[e.Target]++
	}

	ranks := make(map[valueobjects.NodeID]int, len(nodes))
	processed := make(map[valueobjects.NodeID]bool, len(nodes))

	var queue []valueobjects.NodeID
	for _, n := range nodes {
		if indegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	maxRank := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed[id] = true
		if ranks[id] > maxRank {
			maxRank = ranks[id]
		}
		for _, next := range successors[id] {
			if ranks[id]+1 > ranks[next] {
				ranks[next] = ranks[id] + 1
			}
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	// Cycle members never drain to zero indegree; park them together
	// after the acyclic part.
	for _, n := range nodes {
		if !processed[n.ID] {
			ranks[n.ID] = maxRank + 1
		}
	}
	return ranks
}
