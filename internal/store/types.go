package store

import "time"

// Source kinds stored in instances.source_kind.
const (
	SourceKindNone        = ""
	SourceKindPath        = "path"
	SourceKindProjectNode = "project_node"
)

// Instance is one row of the instances table. Metadata holds the encoded
// instance metadata; Hash is ComputeMetadataHash over that encoding.
type Instance struct {
	ID          int64
	Ref         string
	SourceKind  string
	SourcePath  string
	Metadata    string
	Hash        string
	LastDerived time.Time

	// RelevantPaths is written alongside the row by ReplaceInstance and
	// filled by InstanceByRef.
	RelevantPaths []string
}
