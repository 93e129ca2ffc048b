// Package storage provides the record sources the exporter reads from.
//
// It defines the Source interface that every backend satisfies (graph
// database, relational database, offline snapshot, in-memory) along with the
// types shared across backends.
package storage

import (
	"context"
	"errors"

	"github.com/Benny93/reactome-sbml/internal/graph"
)

// ErrUnsupportedAttribute is returned when a backend cannot filter on an attribute.
var ErrUnsupportedAttribute = errors.New("unsupported attribute")

// DBInfo describes the database a source is connected to.
type DBInfo struct {
	// Name is the database name.
	Name string

	// Version is the Reactome release number, 0 if unknown.
	Version int
}

// Source defines the lookups the exporter needs from a backing store.
//
// All entities are read-only snapshots; no write paths exist.
type Source interface {
	// FetchByID returns the instance with the given DB_ID, or nil if none exists.
	FetchByID(ctx context.Context, dbID int64) (*graph.Instance, error)

	// FetchByAttribute returns the instances of class (including subclasses)
	// whose attr holds value. Value is a string for scalars and stId, or an
	// int64 DB_ID for references.
	FetchByAttribute(ctx context.Context, class graph.Class, attr string, value any) ([]*graph.Instance, error)

	// Info returns the database name and release.
	Info(ctx context.Context) (DBInfo, error)

	// Close releases all resources held by the source.
	Close() error
}

// ClassLister is implemented by sources that can enumerate a class.
type ClassLister interface {
	FetchByClass(ctx context.Context, class graph.Class) ([]*graph.Instance, error)
}

// SearchResult is a name search hit.
type SearchResult struct {
	// DBID is the matching instance.
	DBID int64

	// StID is its stable identifier.
	StID string

	// Name is the display name.
	Name string

	// Class is the schema class.
	Class graph.Class

	// Score is the relevance score (higher is better).
	Score float64
}

// refValue normalises a lookup value into a DB_ID reference.
func refValue(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case *graph.Instance:
		if v == nil {
			return 0, false
		}
		return v.DBID, true
	default:
		return 0, false
	}
}
