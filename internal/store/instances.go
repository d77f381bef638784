package store

import (
	"database/sql"
	"fmt"
)

// ReplaceInstance writes inst and its relevant paths, replacing any row with
// the same ref, in one transaction. inst.ID is set to the new row ID.
func (s *Store) ReplaceInstance(inst *Instance) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := replaceInstanceTx(tx, inst)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	inst.ID = id
	return id, nil
}

func replaceInstanceTx(tx *sql.Tx, inst *Instance) (int64, error) {
	if err := deleteInstanceTx(tx, inst.Ref); err != nil {
		return 0, err
	}
	res, err := tx.Exec(
		`INSERT INTO instances (ref, source_kind, source_path, metadata, hash, last_derived)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		inst.Ref, inst.SourceKind, inst.SourcePath, inst.Metadata, inst.Hash, inst.LastDerived,
	)
	if err != nil {
		return 0, fmt.Errorf("insert instance %s: %w", inst.Ref, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	for i, p := range inst.RelevantPaths {
		if _, err := tx.Exec(
			"INSERT INTO relevant_paths (instance_id, ordinal, path) VALUES (?, ?, ?)",
			id, i, p,
		); err != nil {
			return 0, fmt.Errorf("insert relevant path for %s: %w", inst.Ref, err)
		}
	}
	return id, nil
}

// InstanceByRef returns the instance with the given ref and its relevant
// paths, or nil if none is stored.
func (s *Store) InstanceByRef(ref string) (*Instance, error) {
	inst := &Instance{}
	err := s.db.QueryRow(
		`SELECT id, ref, source_kind, source_path, metadata, hash, last_derived
		 FROM instances WHERE ref = ?`, ref,
	).Scan(&inst.ID, &inst.Ref, &inst.SourceKind, &inst.SourcePath, &inst.Metadata, &inst.Hash, &inst.LastDerived)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("instance by ref: %w", err)
	}
	paths, err := s.RelevantPaths(inst.ID)
	if err != nil {
		return nil, err
	}
	inst.RelevantPaths = paths
	return inst, nil
}

// InstanceHash returns the stored metadata hash for ref, or "" when the ref
// is unknown.
func (s *Store) InstanceHash(ref string) (string, error) {
	var hash string
	err := s.db.QueryRow("SELECT hash FROM instances WHERE ref = ?", ref).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("instance hash: %w", err)
	}
	return hash, nil
}

// RelevantPaths returns an instance's relevant paths in insertion order.
func (s *Store) RelevantPaths(instanceID int64) ([]string, error) {
	rows, err := s.db.Query(
		"SELECT path FROM relevant_paths WHERE instance_id = ? ORDER BY ordinal", instanceID,
	)
	if err != nil {
		return nil, fmt.Errorf("relevant paths: %w", err)
	}
	paths, err := scanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("scan relevant paths: %w", err)
	}
	return paths, nil
}

// AllRefs returns every stored ref in sorted order.
func (s *Store) AllRefs() ([]string, error) {
	rows, err := s.db.Query("SELECT ref FROM instances ORDER BY ref")
	if err != nil {
		return nil, fmt.Errorf("all refs: %w", err)
	}
	refs, err := scanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("scan refs: %w", err)
	}
	return refs, nil
}
