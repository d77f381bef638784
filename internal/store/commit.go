package store

import "fmt"

// CommitBatch applies every queued write of batch within a single
// transaction. Deletes run first, then puts in the order they were queued,
// so a later Put for the same ref wins.
func (s *Store) CommitBatch(batch *Batch) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	for _, ref := range batch.deletes {
		if err := deleteInstanceTx(tx, ref); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}
	for i := range batch.pending {
		inst := &batch.pending[i]
		id, err := replaceInstanceTx(tx, inst)
		if err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		inst.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}
