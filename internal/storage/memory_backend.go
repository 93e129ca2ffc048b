package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Benny93/reactome-sbml/internal/graph"
)

// MemoryBackend is an in-memory Source backed by an InstanceGraph.
// It serves tests and JSON record dumps.
type MemoryBackend struct {
	graph *graph.InstanceGraph
	info  DBInfo
}

// NewMemoryBackend creates an empty in-memory source.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{graph: graph.NewInstanceGraph()}
}

// NewMemoryBackendFrom wraps an existing graph.
func NewMemoryBackendFrom(g *graph.InstanceGraph, info DBInfo) *MemoryBackend {
	return &MemoryBackend{graph: g, info: info}
}

// Add inserts instances.
func (m *MemoryBackend) Add(insts ...*graph.Instance) *MemoryBackend {
	for _, inst := range insts {
		m.graph.Add(inst)
	}
	return m
}

// SetInfo sets the reported database name and release.
func (m *MemoryBackend) SetInfo(info DBInfo) {
	m.info = info
}

// Graph returns the underlying graph.
func (m *MemoryBackend) Graph() *graph.InstanceGraph {
	return m.graph
}

// Count returns the number of stored instances.
func (m *MemoryBackend) Count() int {
	return m.graph.Count()
}

// FetchByID implements Source.
func (m *MemoryBackend) FetchByID(ctx context.Context, dbID int64) (*graph.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.graph.Get(dbID), nil
}

// FetchByAttribute implements Source.
func (m *MemoryBackend) FetchByAttribute(ctx context.Context, class graph.Class, attr string, value any) ([]*graph.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch attr {
	case graph.AttrStID:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("stId lookup needs a string, got %T", value)
		}
		inst := m.graph.GetByStID(s)
		if inst == nil || !inst.IsA(class) {
			return nil, nil
		}
		return []*graph.Instance{inst}, nil
	case graph.AttrDisplayName:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("displayName lookup needs a string, got %T", value)
		}
		var out []*graph.Instance
		for _, inst := range m.graph.GetByClass(class) {
			if inst.DisplayName == s {
				out = append(out, inst)
			}
		}
		return out, nil
	}

	if ref, ok := refValue(value); ok {
		var out []*graph.Instance
		for _, inst := range m.graph.Referrers(ref, attr) {
			if inst.IsA(class) {
				out = append(out, inst)
			}
		}
		return out, nil
	}

	want := fmt.Sprint(value)
	var out []*graph.Instance
	for _, inst := range m.graph.GetByClass(class) {
		for _, s := range inst.Strings(attr) {
			if s == want {
				out = append(out, inst)
				break
			}
		}
	}
	return out, nil
}

// FetchByClass implements ClassLister.
func (m *MemoryBackend) FetchByClass(ctx context.Context, class graph.Class) ([]*graph.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.graph.GetByClass(class), nil
}

// Info implements Source.
func (m *MemoryBackend) Info(ctx context.Context) (DBInfo, error) {
	return m.info, nil
}

// Close implements Source.
func (m *MemoryBackend) Close() error {
	return nil
}

// String identifies the backend in log lines.
func (m *MemoryBackend) String() string {
	return "memory(" + strconv.Itoa(m.graph.Count()) + " instances)"
}
