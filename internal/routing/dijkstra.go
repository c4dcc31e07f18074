package routing

import (
	"container/heap"
	"math"

	"github.com/nasrdanavi/nasrdanavi/internal/graph"
)

// pqItem is a priority-queue entry for Dijkstra's algorithm.
type pqItem struct {
	node int
	dist float64
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(*pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}

// shortestPath runs Dijkstra from start to end over the directed graph.
// Returns the node-index path and its total weight, or ErrNoPath when the
// destination is unreachable. Equal-cost alternatives resolve by heap order;
// only the total distance is a stable output.
func shortestPath(g *graph.Graph, start, end int) ([]int, []graph.Edge, float64, error) {
	n := g.NodeCount()

	dist := make([]float64, n)
	prevNode := make([]int, n)
	prevEdge := make([]graph.Edge, n)
	settled := make([]bool, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		prevNode[i] = -1
	}
	dist[start] = 0

	pq := &priorityQueue{{node: start, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*pqItem)
		u := item.node
		if settled[u] {
			continue
		}
		settled[u] = true
		if u == end {
			break
		}

		for _, e := range g.Neighbors(u) {
			if settled[e.To] {
				continue
			}
			alt := dist[u] + e.Weight
			if alt < dist[e.To] {
				dist[e.To] = alt
				prevNode[e.To] = u
				prevEdge[e.To] = e
				heap.Push(pq, &pqItem{node: e.To, dist: alt})
			}
		}
	}

	if math.IsInf(dist[end], 1) {
		return nil, nil, 0, ErrNoPath
	}

	// Reconstruct the node path and the edges taken along it.
	var nodes []int
	var edges []graph.Edge
	for at := end; at != -1; at = prevNode[at] {
		nodes = append(nodes, at)
		if prevNode[at] != -1 {
			edges = append(edges, prevEdge[at])
		}
	}
	reverseInts(nodes)
	reverseEdges(edges)

	return nodes, edges, dist[end], nil
}

func reverseInts(a []int) {
	for i, j := 0, len(a)-1; i < j; i, j = i+1, j-1 {
		a[i], a[j] = a[j], a[i]
	}
}

func reverseEdges(a []graph.Edge) {
	for i, j := 0, len(a)-1; i < j; i, j = i+1, j-1 {
		a[i], a[j] = a[j], a[i]
	}
}
