package store

import (
	"fmt"
	"maps"
	"slices"
)

// maxQueryParams bounds the placeholders bound in one statement, well under
// SQLite's default variable limit.
const maxQueryParams = 500

// RefsForPaths returns the refs of instances that list any of paths among
// their relevant paths, sorted and without duplicates. Long path lists are
// queried in chunks of maxQueryParams.
func (s *Store) RefsForPaths(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	found := make(map[string]struct{})
	for chunk := range slices.Chunk(paths, maxQueryParams) {
		query := `SELECT DISTINCT i.ref
			FROM relevant_paths rp
			JOIN instances i ON i.id = rp.instance_id
			WHERE rp.path IN (` + placeholderList(len(chunk)) + `)`
		rows, err := s.db.Query(query, stringsToArgs(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("refs for paths: %w", err)
		}
		refs, err := scanStrings(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ref: %w", err)
		}
		for _, ref := range refs {
			found[ref] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(found)), nil
}

// RefsBySourcePath returns the refs of instances whose instigating source is
// the filesystem path p.
func (s *Store) RefsBySourcePath(p string) ([]string, error) {
	rows, err := s.db.Query(
		"SELECT ref FROM instances WHERE source_kind = ? AND source_path = ? ORDER BY ref",
		SourceKindPath, p,
	)
	if err != nil {
		return nil, fmt.Errorf("refs by source path: %w", err)
	}
	refs, err := scanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("scan ref: %w", err)
	}
	return refs, nil
}
