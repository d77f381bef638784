package snapshot

import (
	"fmt"

	"github.com/jward/treesync/internal/project"
)

// InstigatingSource identifies what produced an instance. It is a closed set:
// the only implementations are PathSource and ProjectNodeSource. Consumers
// that must handle every variant should go through MatchSource.
type InstigatingSource interface {
	fmt.Stringer
	isInstigatingSource()
}

// PathSource means the instance's content came from the filesystem entry at
// Path.
type PathSource struct {
	Path string
}

// ProjectNodeSource means the instance's content came from the node named
// Name inside a project definition.
type ProjectNodeSource struct {
	Name string
	Node *project.Node
}

func (PathSource) isInstigatingSource()        {}
func (ProjectNodeSource) isInstigatingSource() {}

// SourceFromPath wraps path in a PathSource. Project nodes have no implicit
// conversion; build a ProjectNodeSource explicitly.
func SourceFromPath(path string) InstigatingSource {
	return PathSource{Path: path}
}

func (s PathSource) String() string {
	return fmt.Sprintf("Path(%q)", s.Path)
}

func (s ProjectNodeSource) String() string {
	return fmt.Sprintf("ProjectNode(%q, %s)", s.Name, s.Node)
}

// MatchSource dispatches on the variant of src. Adding a variant changes this
// signature, which breaks every caller until it handles the new case.
// src must not be nil.
func MatchSource[T any](
	src InstigatingSource,
	onPath func(PathSource) T,
	onProjectNode func(ProjectNodeSource) T,
) T {
	switch s := src.(type) {
	case PathSource:
		return onPath(s)
	case ProjectNodeSource:
		return onProjectNode(s)
	default:
		panic(fmt.Sprintf("snapshot: unknown instigating source %T", src))
	}
}

// SourcesEqual compares two optional sources structurally. nil equals only
// nil.
func SourcesEqual(a, b InstigatingSource) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case PathSource:
		y, ok := b.(PathSource)
		return ok && x.Path == y.Path
	case ProjectNodeSource:
		y, ok := b.(ProjectNodeSource)
		return ok && x.Name == y.Name && x.Node.Equal(y.Node)
	}
	return false
}
