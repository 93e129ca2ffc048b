package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/Benny93/reactome-sbml/internal/graph"
)

// Key prefixes for different data types
const (
	prefixRecord = "rec:"  // rec:dbID -> instance JSON
	prefixStID   = "stid:" // stid:R-HSA-1 -> dbID
	prefixClass  = "cls:"  // cls:Class:dbID -> ""
	prefixRef    = "ref:"  // ref:attr:target:source -> ""
	keyInfo      = "meta:info"
)

// BadgerBackend is a BadgerDB-backed offline snapshot of Reactome records.
type BadgerBackend struct {
	db          *badger.DB
	initialized bool
	mu          sync.RWMutex
	count       int
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(5).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.initialized = true
	b.count = b.countRecords()

	return nil
}

// countRecords counts stored instances. Caller holds the lock.
func (b *BadgerBackend) countRecords() int {
	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixRecord)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n
}

// Close implements Source.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

// Count returns the number of stored instances.
func (b *BadgerBackend) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// BulkLoad replaces the store contents with g and records info.
func (b *BadgerBackend) BulkLoad(ctx context.Context, g *graph.InstanceGraph, info DBInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return fmt.Errorf("backend not initialized")
	}

	if err := b.db.DropAll(); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	b.count = 0

	for _, inst := range g.All() {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := json.Marshal(inst)
		if err != nil {
			return fmt.Errorf("marshaling instance: %w", err)
		}
		if err := wb.Set(recordKey(inst.DBID), data); err != nil {
			return fmt.Errorf("setting instance: %w", err)
		}
		b.count++

		if err := b.indexInstanceWB(wb, inst); err != nil {
			return err
		}
	}

	infoJSON, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshaling info: %w", err)
	}
	if err := wb.Set([]byte(keyInfo), infoJSON); err != nil {
		return fmt.Errorf("setting info: %w", err)
	}

	return wb.Flush()
}

// indexInstanceWB writes the secondary indexes for an instance.
func (b *BadgerBackend) indexInstanceWB(wb *badger.WriteBatch, inst *graph.Instance) error {
	id := strconv.FormatInt(inst.DBID, 10)

	if inst.StID != "" {
		if err := wb.Set([]byte(prefixStID+inst.StID), []byte(id)); err != nil {
			return fmt.Errorf("setting stable id index: %w", err)
		}
	}

	classKey := fmt.Sprintf("%s%s:%s", prefixClass, inst.Class, id)
	if err := wb.Set([]byte(classKey), nil); err != nil {
		return fmt.Errorf("setting class index: %w", err)
	}

	for attr, values := range inst.Attributes {
		for _, v := range values {
			if !v.IsRef() {
				continue
			}
			refKey := fmt.Sprintf("%s%s:%d:%s", prefixRef, attr, v.Ref, id)
			if err := wb.Set([]byte(refKey), nil); err != nil {
				return fmt.Errorf("setting reference index: %w", err)
			}
		}
	}

	return indexInstanceName(wb, inst)
}

// FetchByID implements Source.
func (b *BadgerBackend) FetchByID(ctx context.Context, dbID int64) (*graph.Instance, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	return getRecord(txn, dbID)
}

func getRecord(txn *badger.Txn, dbID int64) (*graph.Instance, error) {
	item, err := txn.Get(recordKey(dbID))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting instance: %w", err)
	}

	var inst graph.Instance
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &inst)
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling instance: %w", err)
	}
	return &inst, nil
}

// FetchByAttribute implements Source. Supports stId, displayName, scalar
// attributes and references.
func (b *BadgerBackend) FetchByAttribute(ctx context.Context, class graph.Class, attr string, value any) ([]*graph.Instance, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	if attr == graph.AttrStID {
		stID, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("stId lookup needs a string, got %T", value)
		}
		item, err := txn.Get([]byte(prefixStID + stID))
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("getting stable id: %w", err)
		}
		var dbID int64
		if err := item.Value(func(val []byte) error {
			dbID, err = strconv.ParseInt(string(val), 10, 64)
			return err
		}); err != nil {
			return nil, fmt.Errorf("parsing stable id index: %w", err)
		}
		inst, err := getRecord(txn, dbID)
		if err != nil || inst == nil || !inst.IsA(class) {
			return nil, err
		}
		return []*graph.Instance{inst}, nil
	}

	if ref, ok := refValue(value); ok {
		prefix := fmt.Sprintf("%s%s:%d:", prefixRef, attr, ref)
		ids := scanIDs(txn, prefix)
		return b.loadMatching(txn, ids, func(inst *graph.Instance) bool { return inst.IsA(class) })
	}

	want := fmt.Sprint(value)
	insts, err := b.fetchByClass(txn, class)
	if err != nil {
		return nil, err
	}
	var out []*graph.Instance
	for _, inst := range insts {
		if attr == graph.AttrDisplayName {
			if inst.DisplayName == want {
				out = append(out, inst)
			}
			continue
		}
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
func (b *BadgerBackend) FetchByClass(ctx context.Context, class graph.Class) ([]*graph.Instance, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	return b.fetchByClass(txn, class)
}

func (b *BadgerBackend) fetchByClass(txn *badger.Txn, class graph.Class) ([]*graph.Instance, error) {
	var ids []int64
	for _, c := range graph.Classes() {
		if c.IsA(class) {
			ids = append(ids, scanIDs(txn, fmt.Sprintf("%s%s:", prefixClass, c))...)
		}
	}
	// Records of classes outside the known schema are still listed under themselves.
	if !class.Known() {
		ids = append(ids, scanIDs(txn, fmt.Sprintf("%s%s:", prefixClass, class))...)
	}
	insts, err := b.loadMatching(txn, ids, nil)
	if err != nil {
		return nil, err
	}
	sortByDBID(insts)
	return insts, nil
}

func (b *BadgerBackend) loadMatching(txn *badger.Txn, ids []int64, keep func(*graph.Instance) bool) ([]*graph.Instance, error) {
	var out []*graph.Instance
	for _, id := range ids {
		inst, err := getRecord(txn, id)
		if err != nil {
			return nil, err
		}
		if inst == nil || (keep != nil && !keep(inst)) {
			continue
		}
		out = append(out, inst)
	}
	return out, nil
}

// scanIDs returns the trailing DB_IDs of every key under prefix.
func scanIDs(txn *badger.Txn, prefix string) []int64 {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []int64
	for it.Rewind(); it.Valid(); it.Next() {
		id, err := strconv.ParseInt(strings.TrimPrefix(string(it.Item().Key()), prefix), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Info implements Source.
func (b *BadgerBackend) Info(ctx context.Context) (DBInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	var info DBInfo
	item, err := txn.Get([]byte(keyInfo))
	if err == badger.ErrKeyNotFound {
		return info, nil
	}
	if err != nil {
		return info, fmt.Errorf("getting info: %w", err)
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &info)
	})
	return info, err
}

// Search finds instances by display name or stable id tokens.
func (b *BadgerBackend) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	scores, err := searchNames(txn, query)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(scores))
	for dbID, score := range scores {
		inst, err := getRecord(txn, dbID)
		if err != nil {
			return nil, err
		}
		if inst == nil {
			continue
		}
		results = append(results, SearchResult{
			DBID:  inst.DBID,
			StID:  inst.StID,
			Name:  inst.DisplayName,
			Class: inst.Class,
			Score: score,
		})
	}

	return rankResults(results, limit), nil
}

func recordKey(dbID int64) []byte {
	return []byte(prefixRecord + strconv.FormatInt(dbID, 10))
}

func sortByDBID(insts []*graph.Instance) {
	sort.Slice(insts, func(i, j int) bool { return insts[i].DBID < insts[j].DBID })
}
