package store

import "sync"

// Batch buffers instance writes in memory so several workers can prepare
// records concurrently while a single writer commits them with CommitBatch.
//
// Thread safety: the mutex protects the pending slice. A Batch must not be
// used after it has been committed.
type Batch struct {
	mu      sync.Mutex
	pending []Instance
	deletes []string
}

// NewBatch returns an empty Batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Put queues inst to replace any stored instance with the same ref.
func (b *Batch) Put(inst Instance) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, inst)
}

// Delete queues removal of ref.
func (b *Batch) Delete(ref string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletes = append(b.deletes, ref)
}

// Len returns the number of queued writes and deletes.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending) + len(b.deletes)
}
