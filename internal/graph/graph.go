// Package graph maintains an in-memory adjacency index over the committed
// prerequisite edges. The index answers cycle and readiness questions
// without touching storage: cycle checks run before an edge insert is
// committed, readiness checks run on every unlock decision.
//
// Concurrency: the index is guarded by a RWMutex. Readers (readiness,
// prerequisite listings) take the read lock; mutations happen only after
// the corresponding database commit, under the write lock, so readers never
// observe an in-flight structural change.
package graph

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hutchutchutch/learntrac/internal/domain"
)

// Index is the adjacency view of the prerequisite graph.
//
// outgoing maps a concept to the edges it depends on (concept -> its
// prerequisites). Cycle detection walks required edges only, from the
// proposed prerequisite towards its own prerequisites, looking for the
// dependent concept.
type Index struct {
	mu       sync.RWMutex
	outgoing map[uuid.UUID][]domain.PrerequisiteEdge
}

// NewIndex creates an empty adjacency index.
func NewIndex() *Index {
	return &Index{
		outgoing: make(map[uuid.UUID][]domain.PrerequisiteEdge),
	}
}

// Replace rebuilds the whole index from a committed edge set. Used at
// startup and whenever the index needs to be resynchronized with storage.
func (idx *Index) Replace(edges []domain.PrerequisiteEdge) {
	outgoing := make(map[uuid.UUID][]domain.PrerequisiteEdge, len(edges))
	for _, e := range edges {
		outgoing[e.ConceptID] = append(outgoing[e.ConceptID], e)
	}

	idx.mu.Lock()
	idx.outgoing = outgoing
	idx.mu.Unlock()
}

// Add records a committed edge in the index.
func (idx *Index) Add(edge domain.PrerequisiteEdge) {
	idx.mu.Lock()
	idx.outgoing[edge.ConceptID] = append(idx.outgoing[edge.ConceptID], edge)
	idx.mu.Unlock()
}

// Remove deletes the edge (conceptID, prerequisiteID) from the index.
// Removing an edge can never introduce a cycle, so no check is needed.
func (idx *Index) Remove(conceptID, prerequisiteID uuid.UUID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	edges := idx.outgoing[conceptID]
	for i, e := range edges {
		if e.PrerequisiteID == prerequisiteID {
			idx.outgoing[conceptID] = append(edges[:i], edges[i+1:]...)
			break
		}
	}
	if len(idx.outgoing[conceptID]) == 0 {
		delete(idx.outgoing, conceptID)
	}
}

// WouldCreateCycle reports whether adding the required edge
// (conceptID requires prerequisiteID) would close a directed cycle in the
// required-edge subgraph. It runs a breadth-first search from the proposed
// prerequisite over existing required edges: if conceptID is already
// reachable, the new edge would complete a cycle.
//
// The search is O(V+E) bounded by the required subgraph and takes only the
// read lock; the caller holds the structural mutation lock, so the graph
// cannot change between this check and the insert.
func (idx *Index) WouldCreateCycle(conceptID, prerequisiteID uuid.UUID) bool {
	if conceptID == prerequisiteID {
		return true
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	visited := map[uuid.UUID]struct{}{prerequisiteID: {}}
	queue := []uuid.UUID{prerequisiteID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, e := range idx.outgoing[current] {
			if !e.Blocking() {
				continue
			}
			if e.PrerequisiteID == conceptID {
				return true
			}
			if _, seen := visited[e.PrerequisiteID]; seen {
				continue
			}
			visited[e.PrerequisiteID] = struct{}{}
			queue = append(queue, e.PrerequisiteID)
		}
	}

	return false
}

// DirectPrerequisites returns the edges the given concept directly depends
// on, across all requirement types. The returned slice is a copy.
func (idx *Index) DirectPrerequisites(conceptID uuid.UUID) []domain.PrerequisiteEdge {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	edges := idx.outgoing[conceptID]
	out := make([]domain.PrerequisiteEdge, len(edges))
	copy(out, edges)
	return out
}

// TransitivePrerequisites returns every concept reachable from the given
// concept over prerequisite edges of any type, breadth-first, excluding the
// concept itself.
func (idx *Index) TransitivePrerequisites(conceptID uuid.UUID) []uuid.UUID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	visited := map[uuid.UUID]struct{}{conceptID: {}}
	queue := []uuid.UUID{conceptID}
	var out []uuid.UUID

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, e := range idx.outgoing[current] {
			if _, seen := visited[e.PrerequisiteID]; seen {
				continue
			}
			visited[e.PrerequisiteID] = struct{}{}
			queue = append(queue, e.PrerequisiteID)
			out = append(out, e.PrerequisiteID)
		}
	}

	return out
}

// IsReady reports whether a user satisfies every required prerequisite of
// the given concept. masteryByConcept holds the user's current mastery
// levels; concepts without a progress record are simply absent (implicit
// zero mastery). Recommended and optional edges never block readiness.
//
// The check is O(direct prerequisites) of the concept, not O(graph).
func (idx *Index) IsReady(conceptID uuid.UUID, masteryByConcept map[uuid.UUID]float64) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for _, e := range idx.outgoing[conceptID] {
		if !e.Blocking() {
			continue
		}
		if masteryByConcept[e.PrerequisiteID] < e.MinMastery {
			return false
		}
	}

	return true
}

// EdgeCount returns the number of edges currently indexed.
func (idx *Index) EdgeCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var n int
	for _, edges := range idx.outgoing {
		n += len(edges)
	}
	return n
}
