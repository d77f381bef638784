package snapshot

import "slices"

// InstanceMetadata records where an instance came from, which paths would
// change its derivation, and the ignore rules it inherited.
//
// Values are immutable. The With* methods return a new value and leave the
// receiver untouched, so a re-derived instance always carries a fresh
// metadata value that can be compared against the previous one with Equal.
// The zero value is the default: no source, no relevant paths, default
// context, unknown instances not ignored.
type InstanceMetadata struct {
	ignoreUnknownInstances bool
	instigatingSource      InstigatingSource
	relevantPaths          []string
	context                InstanceContext
}

// NewInstanceMetadata returns the default metadata value.
func NewInstanceMetadata() InstanceMetadata {
	return InstanceMetadata{}
}

// WithIgnoreUnknownInstances sets whether children found in the live tree
// without a source entry are left alone instead of removed.
func (m InstanceMetadata) WithIgnoreUnknownInstances(ignore bool) InstanceMetadata {
	m.ignoreUnknownInstances = ignore
	return m
}

// WithInstigatingSource sets the source the instance is regenerated from.
// A nil src clears it.
func (m InstanceMetadata) WithInstigatingSource(src InstigatingSource) InstanceMetadata {
	m.instigatingSource = src
	return m
}

// WithRelevantPaths replaces the relevant paths. Order and duplicates are
// kept as given; paths that do not exist yet are allowed.
func (m InstanceMetadata) WithRelevantPaths(paths ...string) InstanceMetadata {
	m.relevantPaths = slices.Clone(paths)
	return m
}

// AddRelevantPaths appends to the relevant paths.
func (m InstanceMetadata) AddRelevantPaths(paths ...string) InstanceMetadata {
	merged := make([]string, 0, len(m.relevantPaths)+len(paths))
	merged = append(merged, m.relevantPaths...)
	m.relevantPaths = append(merged, paths...)
	return m
}

// WithContext sets the inherited context.
func (m InstanceMetadata) WithContext(ctx InstanceContext) InstanceMetadata {
	m.context = ctx
	return m
}

func (m InstanceMetadata) IgnoreUnknownInstances() bool {
	return m.ignoreUnknownInstances
}

// InstigatingSource returns the source, or nil for instances with no single
// regenerable source such as synthetic roots.
func (m InstanceMetadata) InstigatingSource() InstigatingSource {
	return m.instigatingSource
}

// RelevantPaths returns a copy of the relevant paths in insertion order.
func (m InstanceMetadata) RelevantPaths() []string {
	return slices.Clone(m.relevantPaths)
}

func (m InstanceMetadata) Context() InstanceContext {
	return m.context
}

// IsRelevant reports whether a change at path should trigger re-derivation.
func (m InstanceMetadata) IsRelevant(path string) bool {
	return slices.Contains(m.relevantPaths, path)
}

// Equal reports whether every field of m and other is structurally equal.
func (m InstanceMetadata) Equal(other InstanceMetadata) bool {
	return m.ignoreUnknownInstances == other.ignoreUnknownInstances &&
		SourcesEqual(m.instigatingSource, other.instigatingSource) &&
		slices.Equal(m.relevantPaths, other.relevantPaths) &&
		m.context.Equal(other.context)
}
