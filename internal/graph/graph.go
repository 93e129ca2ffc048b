package graph

import (
	"sort"
	"sync"
)

// InstanceGraph is an in-memory store of Reactome records.
//
// Instances are keyed by DB_ID. Secondary indexes on class, stable id and
// incoming references keep lookups O(result) rather than O(graph).
type InstanceGraph struct {
	mu        sync.RWMutex
	instances map[int64]*Instance

	// Secondary indexes, kept in sync by Add/Remove.
	byClass  map[Class]map[int64]*Instance
	byStID   map[string]*Instance
	incoming map[int64]map[int64]struct{} // target -> referrers
}

// NewInstanceGraph creates a new empty graph.
func NewInstanceGraph() *InstanceGraph {
	return &InstanceGraph{
		instances: make(map[int64]*Instance),
		byClass:   make(map[Class]map[int64]*Instance),
		byStID:    make(map[string]*Instance),
		incoming:  make(map[int64]map[int64]struct{}),
	}
}

// Count returns the number of instances.
func (g *InstanceGraph) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.instances)
}

// CountByClass returns the number of instances whose most specific class is c.
func (g *InstanceGraph) CountByClass(c Class) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.byClass[c])
}

// Add inserts an instance, replacing any existing instance with the same DB_ID.
func (g *InstanceGraph) Add(inst *Instance) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if old, ok := g.instances[inst.DBID]; ok {
		g.unindex(old)
	}

	g.instances[inst.DBID] = inst

	if g.byClass[inst.Class] == nil {
		g.byClass[inst.Class] = make(map[int64]*Instance)
	}
	g.byClass[inst.Class][inst.DBID] = inst

	if inst.StID != "" {
		g.byStID[inst.StID] = inst
	}

	for _, values := range inst.Attributes {
		for _, v := range values {
			if !v.IsRef() {
				continue
			}
			if g.incoming[v.Ref] == nil {
				g.incoming[v.Ref] = make(map[int64]struct{})
			}
			g.incoming[v.Ref][inst.DBID] = struct{}{}
		}
	}
}

// Remove deletes an instance. Returns false if it did not exist.
func (g *InstanceGraph) Remove(dbID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	inst, ok := g.instances[dbID]
	if !ok {
		return false
	}
	g.unindex(inst)
	delete(g.instances, dbID)
	return true
}

// unindex drops inst from the secondary indexes. Caller holds the write lock.
func (g *InstanceGraph) unindex(inst *Instance) {
	delete(g.byClass[inst.Class], inst.DBID)
	if inst.StID != "" && g.byStID[inst.StID] == inst {
		delete(g.byStID, inst.StID)
	}
	for _, values := range inst.Attributes {
		for _, v := range values {
			if v.IsRef() {
				delete(g.incoming[v.Ref], inst.DBID)
			}
		}
	}
}

// Get returns the instance with the given DB_ID, or nil.
func (g *InstanceGraph) Get(dbID int64) *Instance {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.instances[dbID]
}

// GetByStID returns the instance with the given stable identifier, or nil.
func (g *InstanceGraph) GetByStID(stID string) *Instance {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.byStID[stID]
}

// GetByClass returns all instances that are a c, including subclasses,
// ordered by DB_ID.
func (g *InstanceGraph) GetByClass(c Class) []*Instance {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []*Instance
	for cls, insts := range g.byClass {
		if !cls.IsA(c) {
			continue
		}
		for _, inst := range insts {
			out = append(out, inst)
		}
	}
	sortByDBID(out)
	return out
}

// Referrers returns the instances whose attr references dbID, ordered by DB_ID.
func (g *InstanceGraph) Referrers(dbID int64, attr string) []*Instance {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []*Instance
	for src := range g.incoming[dbID] {
		inst := g.instances[src]
		if inst == nil {
			continue
		}
		for _, ref := range inst.Refs(attr) {
			if ref == dbID {
				out = append(out, inst)
				break
			}
		}
	}
	sortByDBID(out)
	return out
}

// All returns every instance ordered by DB_ID.
func (g *InstanceGraph) All() []*Instance {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Instance, 0, len(g.instances))
	for _, inst := range g.instances {
		out = append(out, inst)
	}
	sortByDBID(out)
	return out
}

// Stats returns a summary of graph size.
func (g *InstanceGraph) Stats() map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return map[string]int{
		"instances": len(g.instances),
		"classes":   len(g.byClass),
	}
}

func sortByDBID(insts []*Instance) {
	sort.Slice(insts, func(i, j int) bool { return insts[i].DBID < insts[j].DBID })
}
