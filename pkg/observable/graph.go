package observable

import "sync"

// subscriberGraph maps property identities to the ordered set of
// reactions interested in them. Entries are created lazily and never
// removed, even when they become empty.
type subscriberGraph struct {
	mu    sync.RWMutex
	edges map[PropertyID][]*Reaction
}

func newSubscriberGraph() *subscriberGraph {
	return &subscriberGraph{edges: make(map[PropertyID][]*Reaction)}
}

// subscribe appends r to the entry for id unless it is already there.
// Reports whether an edge was added.
func (g *subscriberGraph) subscribe(id PropertyID, r *Reaction) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	subs := g.edges[id]
	for _, existing := range subs {
		if existing == r {
			return false
		}
	}
	g.edges[id] = append(subs, r)
	return true
}

// unsubscribe removes r from the entry for id, keeping the order of the
// remaining subscribers. Reports whether an edge was removed.
func (g *subscriberGraph) unsubscribe(id PropertyID, r *Reaction) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	subs, ok := g.edges[id]
	if !ok {
		return false
	}
	for i, existing := range subs {
		if existing == r {
			g.edges[id] = append(subs[:i:i], subs[i+1:]...)
			return true
		}
	}
	return false
}

// subscribers returns a copy of the entry for id so callers can notify
// without holding the lock.
func (g *subscriberGraph) subscribers(id PropertyID) []*Reaction {
	g.mu.RLock()
	defer g.mu.RUnlock()

	subs := g.edges[id]
	if len(subs) == 0 {
		return nil
	}
	out := make([]*Reaction, len(subs))
	copy(out, subs)
	return out
}

// dump returns the graph as property id to ordered reaction ids.
func (g *subscriberGraph) dump() map[PropertyID][]uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[PropertyID][]uint64, len(g.edges))
	for id, subs := range g.edges {
		ids := make([]uint64, len(subs))
		for i, r := range subs {
			ids[i] = r.id
		}
		out[id] = ids
	}
	return out
}
