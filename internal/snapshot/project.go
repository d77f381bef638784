package snapshot

import (
	"fmt"

	"github.com/jward/treesync/internal/project"
)

// ContextForProject derives the context for the subtree rooted at p: the
// parent's rules followed by the project's glob ignore paths, anchored at the
// project file's directory. parent is returned as-is when p declares no
// globs, so the common case keeps sharing the parent's storage.
func ContextForProject(parent InstanceContext, p *project.Project) (InstanceContext, error) {
	if len(p.GlobIgnorePaths) == 0 {
		return parent, nil
	}
	base := p.Dir()
	globs := make([]IgnoreGlob, 0, len(p.GlobIgnorePaths))
	for _, pattern := range p.GlobIgnorePaths {
		g, err := NewIgnoreGlob(base, pattern)
		if err != nil {
			return InstanceContext{}, fmt.Errorf("project %s: %w", p.Name, err)
		}
		globs = append(globs, g)
	}
	return parent.WithIgnorePaths(globs...), nil
}

// ProjectNodeMetadata builds the metadata for an instance declared by the
// node called name in p. A node without $path has no filesystem source to
// reconcile children against, so children it did not create are left alone
// unless the node says otherwise. The project file itself is always
// relevant, as is the node's $path target.
func ProjectNodeMetadata(ctx InstanceContext, p *project.Project, name string, node *project.Node) InstanceMetadata {
	ignoreUnknown := node.Path == ""
	if node.IgnoreUnknownInstances != nil {
		ignoreUnknown = *node.IgnoreUnknownInstances
	}

	paths := []string{p.FilePath}
	if resolved := p.ResolvePath(node); resolved != "" {
		paths = append(paths, resolved)
	}

	return NewInstanceMetadata().
		WithInstigatingSource(ProjectNodeSource{Name: name, Node: node}).
		WithIgnoreUnknownInstances(ignoreUnknown).
		WithRelevantPaths(paths...).
		WithContext(ctx)
}
