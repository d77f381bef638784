package treesync

import (
	"fmt"
	"strings"

	"github.com/jward/treesync/internal/project"
	"github.com/jward/treesync/internal/snapshot"
)

type Project = project.Project
type ProjectNode = project.Node

// ParseProject decodes a project definition file read from filePath.
var ParseProject = project.Parse

// ProjectEntries derives an Entry for every node of p's tree, parents before
// children and siblings in name order. The root's ref is the project name;
// a child's ref is its parent's ref, a dot, and its own name. Every entry
// carries the context of parent extended with the project's ignore globs.
// Names containing a dot are rejected since their refs would be ambiguous.
func ProjectEntries(p *Project, parent InstanceContext) ([]Entry, error) {
	ctx, err := snapshot.ContextForProject(parent, p)
	if err != nil {
		return nil, err
	}
	if strings.Contains(p.Name, ".") {
		return nil, fmt.Errorf("project %q: name contains '.'", p.Name)
	}
	var entries []Entry
	var walk func(ref, name string, n *ProjectNode) error
	walk = func(ref, name string, n *ProjectNode) error {
		entries = append(entries, Entry{
			Ref:      ref,
			Metadata: snapshot.ProjectNodeMetadata(ctx, p, name, n),
		})
		for _, child := range n.ChildNames() {
			if strings.Contains(child, ".") {
				return fmt.Errorf("project %s: child %q of %s contains '.'", p.Name, child, ref)
			}
			if err := walk(ref+"."+child, child, n.Children[child]); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(p.Name, p.Name, p.Tree); err != nil {
		return nil, err
	}
	return entries, nil
}
