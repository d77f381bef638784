package treesync

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/jward/treesync/internal/snapshot"
	"github.com/jward/treesync/internal/store"
)

// Tracker persists the latest metadata of every derived instance and answers
// which instances a filesystem change invalidates.
type Tracker struct {
	store  *store.Store
	logger *zap.Logger

	// useParallel enables the worker pool in RecordAll.
	useParallel bool
	// workers caps the pool size; 0 means runtime.NumCPU().
	workers int
}

// Entry pairs an instance ref with its freshly derived metadata.
type Entry struct {
	Ref      string           `json:"ref"`
	Metadata InstanceMetadata `json:"metadata"`
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithParallel controls whether RecordAll encodes entries on a worker pool
// (default true) or serially.
func WithParallel(parallel bool) Option {
	return func(t *Tracker) {
		t.useParallel = parallel
	}
}

// WithWorkers caps the number of RecordAll workers.
func WithWorkers(n int) Option {
	return func(t *Tracker) {
		t.workers = n
	}
}

// New creates a Tracker backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Tracker, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("treesync: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("treesync: migrate: %w", err)
	}

	t := &Tracker{
		store:       s,
		logger:      zap.NewNop(),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Close releases the Tracker's database resources.
func (t *Tracker) Close() error {
	return t.store.Close()
}

// Store returns the underlying Store for direct access.
func (t *Tracker) Store() *Store {
	return t.store
}

// normalizePath is the form paths are stored and looked up in: absolute,
// clean and slash-separated. Relative paths resolve against the working
// directory.
func normalizePath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(filepath.Clean(p))
}

// encodeEntry builds the store row for ref. The JSON encoding of metadata
// is deterministic, so equal metadata always produces the same hash.
func encodeEntry(ref string, md InstanceMetadata) (store.Instance, error) {
	data, err := json.Marshal(md)
	if err != nil {
		return store.Instance{}, fmt.Errorf("encode metadata: %w", err)
	}

	kind, sourcePath := store.SourceKindNone, ""
	if src := md.InstigatingSource(); src != nil {
		kind, sourcePath = snapshot.MatchSource(src,
			func(s snapshot.PathSource) (string, string) {
				return store.SourceKindPath, normalizePath(s.Path)
			},
			func(snapshot.ProjectNodeSource) (string, string) {
				return store.SourceKindProjectNode, ""
			},
		)
	}

	relevant := md.RelevantPaths()
	for i, p := range relevant {
		relevant[i] = normalizePath(p)
	}

	return store.Instance{
		Ref:           ref,
		SourceKind:    kind,
		SourcePath:    sourcePath,
		Metadata:      string(data),
		Hash:          store.ComputeMetadataHash(data),
		LastDerived:   time.Now(),
		RelevantPaths: relevant,
	}, nil
}

// Record stores md as the current metadata of ref. It reports false, and
// writes nothing, when md is structurally equal to what is already stored.
func (t *Tracker) Record(ctx context.Context, ref string, md InstanceMetadata) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	inst, err := encodeEntry(ref, md)
	if err != nil {
		return false, fmt.Errorf("record %s: %w", ref, err)
	}

	existing, err := t.store.InstanceHash(ref)
	if err != nil {
		return false, fmt.Errorf("record %s: %w", ref, err)
	}
	if existing == inst.Hash {
		t.logger.Debug("metadata unchanged", zap.String("ref", ref))
		return false, nil
	}

	if _, err := t.store.ReplaceInstance(&inst); err != nil {
		return false, fmt.Errorf("record %s: %w", ref, err)
	}
	t.logger.Debug("metadata recorded",
		zap.String("ref", ref),
		zap.String("source", sourceLabel(md)),
		zap.Int("relevant_paths", len(inst.RelevantPaths)),
		zap.Int("ignore_rules", md.Context().Len()),
	)
	return true, nil
}

// RecordAll records every entry and returns the refs whose metadata changed,
// in input order. Errors on individual entries are collected; the remaining
// entries are still recorded.
func (t *Tracker) RecordAll(ctx context.Context, entries []Entry) ([]string, error) {
	if t.useParallel {
		return t.recordAllParallel(ctx, entries)
	}
	return t.recordAllSerial(ctx, entries)
}

func (t *Tracker) recordAllSerial(ctx context.Context, entries []Entry) ([]string, error) {
	var (
		changed []string
		errs    []error
	)
	for _, e := range entries {
		ok, err := t.Record(ctx, e.Ref, e.Metadata)
		if err != nil {
			if ctx.Err() != nil {
				return changed, err
			}
			errs = append(errs, err)
			continue
		}
		if ok {
			changed = append(changed, e.Ref)
		}
	}
	if len(errs) > 0 {
		return changed, fmt.Errorf("recording had %d error(s): %w", len(errs), errs[0])
	}
	return changed, nil
}

// Metadata returns the stored metadata for ref. The boolean is false when
// ref is unknown.
func (t *Tracker) Metadata(ref string) (InstanceMetadata, bool, error) {
	inst, err := t.store.InstanceByRef(ref)
	if err != nil {
		return InstanceMetadata{}, false, err
	}
	if inst == nil {
		return InstanceMetadata{}, false, nil
	}
	var md InstanceMetadata
	if err := json.Unmarshal([]byte(inst.Metadata), &md); err != nil {
		return InstanceMetadata{}, false, fmt.Errorf("decode metadata for %s: %w", ref, err)
	}
	return md, true, nil
}

// Forget removes ref from the index, typically after its instance has been
// removed from the live tree.
func (t *Tracker) Forget(ref string) error {
	if err := t.store.DeleteInstance(ref); err != nil {
		return fmt.Errorf("forget %s: %w", ref, err)
	}
	t.logger.Debug("instance forgotten", zap.String("ref", ref))
	return nil
}

// Affected returns the refs of instances that must be re-derived because one
// of paths was created, modified or deleted. The result is sorted and has no
// duplicates.
func (t *Tracker) Affected(paths ...string) ([]string, error) {
	normalized := make([]string, len(paths))
	for i, p := range paths {
		normalized[i] = normalizePath(p)
	}
	refs, err := t.store.RefsForPaths(normalized)
	if err != nil {
		return nil, fmt.Errorf("affected: %w", err)
	}
	return refs, nil
}

// DerivedFrom returns the refs of instances whose instigating source is the
// filesystem path p, sorted.
func (t *Tracker) DerivedFrom(p string) ([]string, error) {
	refs, err := t.store.RefsBySourcePath(normalizePath(p))
	if err != nil {
		return nil, fmt.Errorf("derived from %s: %w", p, err)
	}
	return refs, nil
}

// Prune forgets every tracked ref not in live, in one transaction, and
// returns the removed refs sorted.
func (t *Tracker) Prune(ctx context.Context, live []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tracked, err := t.store.AllRefs()
	if err != nil {
		return nil, fmt.Errorf("prune: %w", err)
	}
	keep := make(map[string]struct{}, len(live))
	for _, ref := range live {
		keep[ref] = struct{}{}
	}

	var removed []string
	batch := store.NewBatch()
	for _, ref := range tracked {
		if _, ok := keep[ref]; ok {
			continue
		}
		batch.Delete(ref)
		removed = append(removed, ref)
	}
	if batch.Len() == 0 {
		return nil, nil
	}
	if err := t.store.CommitBatch(batch); err != nil {
		return nil, fmt.Errorf("prune: %w", err)
	}
	t.logger.Debug("instances pruned", zap.Int("removed", len(removed)))
	return removed, nil
}

// Instances returns every tracked ref, sorted.
func (t *Tracker) Instances() ([]string, error) {
	return t.store.AllRefs()
}

func sourceLabel(md InstanceMetadata) string {
	if src := md.InstigatingSource(); src != nil {
		return src.String()
	}
	return "none"
}
