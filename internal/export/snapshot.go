package export

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Benny93/reactome-sbml/internal/collect"
	"github.com/Benny93/reactome-sbml/internal/graph"
	"github.com/Benny93/reactome-sbml/internal/storage"
)

// SnapshotResult summarizes a snapshot run.
type SnapshotResult struct {
	Records int
	Info    storage.DBInfo
}

// Record collects id from src and returns every record the export touched.
// Replaying an export against the returned graph yields the same document.
func Record(ctx context.Context, src storage.Source, id string, logger *zap.Logger) (*graph.InstanceGraph, storage.DBInfo, error) {
	info, err := src.Info(ctx)
	if err != nil {
		return nil, storage.DBInfo{}, fmt.Errorf("reading database info: %w", err)
	}

	rec := storage.NewRecorder(src)
	if _, err := collect.NewCollector(rec, logger).Collect(ctx, id); err != nil {
		return nil, info, err
	}
	return rec.Recorded(), info, nil
}

// SnapshotBadger stores the records for id in a badger database at dir.
func SnapshotBadger(ctx context.Context, src storage.Source, id, dir string, logger *zap.Logger) (*SnapshotResult, error) {
	g, info, err := Record(ctx, src, id, logger)
	if err != nil {
		return nil, err
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(dir, false); err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	if err := store.BulkLoad(ctx, g, info); err != nil {
		return nil, fmt.Errorf("storing snapshot: %w", err)
	}
	return &SnapshotResult{Records: g.Count(), Info: info}, nil
}

// SnapshotJSON writes the records for id as a JSON dump at path.
func SnapshotJSON(ctx context.Context, src storage.Source, id, path string, logger *zap.Logger) (*SnapshotResult, error) {
	g, info, err := Record(ctx, src, id, logger)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	if err := storage.WriteJSON(f, info, g.All()); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return &SnapshotResult{Records: g.Count(), Info: info}, nil
}
