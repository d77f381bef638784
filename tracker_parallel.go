package treesync

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/jward/treesync/internal/store"
)

// recordAllParallel records entries with a two-phase pipeline:
//
//	Phase A (parallel): Encode and hash each entry on a worker pool.
//	Phase B (serial):   Compare against stored hashes and commit all changed
//	                    rows in one SQLite transaction.
func (t *Tracker) recordAllParallel(ctx context.Context, entries []Entry) ([]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	// ---- Phase A: Parallel encoding ----
	numWorkers := t.workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = max(min(numWorkers, len(entries)), 1)

	type encoded struct {
		inst store.Instance
		err  error
	}
	results := make([]encoded, len(entries))

	workCh := make(chan int, len(entries))
	for i := range entries {
		workCh <- i
	}
	close(workCh)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workCh {
				if err := ctx.Err(); err != nil {
					results[i] = encoded{err: err}
					continue
				}
				inst, err := encodeEntry(entries[i].Ref, entries[i].Metadata)
				results[i] = encoded{inst: inst, err: err}
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ---- Phase B: Serial commit ----
	var (
		changed []string
		errs    []error
	)
	batch := store.NewBatch()
	for i, res := range results {
		ref := entries[i].Ref
		if res.err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", ref, res.err))
			continue
		}
		existing, err := t.store.InstanceHash(ref)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", ref, err))
			continue
		}
		if existing == res.inst.Hash {
			continue
		}
		batch.Put(res.inst)
		changed = append(changed, ref)
	}

	if batch.Len() > 0 {
		if err := t.store.CommitBatch(batch); err != nil {
			return nil, fmt.Errorf("record batch: %w", err)
		}
	}
	t.logger.Debug("batch recorded",
		zap.Int("entries", len(entries)),
		zap.Int("changed", len(changed)),
		zap.Int("workers", numWorkers),
	)

	if len(errs) > 0 {
		return changed, fmt.Errorf("parallel recording had %d error(s): %w", len(errs), errs[0])
	}
	return changed, nil
}
