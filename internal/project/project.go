// Package project decodes project definition files: the tree of named nodes
// that a live-sync session projects, plus the project-wide ignore globs.
package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// ErrMissingName is returned when a project file has no "name".
	ErrMissingName = errors.New("project has no name")
	// ErrMissingTree is returned when a project file has no "tree".
	ErrMissingTree = errors.New("project has no tree")
)

// Node is one entry of a project tree. Keys starting with "$" in the file
// are node fields; every other key names a child node.
type Node struct {
	ClassName              string
	Path                   string
	Properties             map[string]any
	Children               map[string]*Node
	IgnoreUnknownInstances *bool
}

type nodeFields struct {
	ClassName              string         `json:"$className,omitempty"`
	Path                   string         `json:"$path,omitempty"`
	Properties             map[string]any `json:"$properties,omitempty"`
	IgnoreUnknownInstances *bool          `json:"$ignoreUnknownInstances,omitempty"`
}

// MarshalJSON writes the node in project-file form. Output is deterministic:
// encoding/json sorts map keys.
func (n Node) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(n.Children)+4)
	for name, child := range n.Children {
		obj[name] = child
	}
	if n.ClassName != "" {
		obj["$className"] = n.ClassName
	}
	if n.Path != "" {
		obj["$path"] = filepath.ToSlash(n.Path)
	}
	if len(n.Properties) > 0 {
		obj["$properties"] = n.Properties
	}
	if n.IgnoreUnknownInstances != nil {
		obj["$ignoreUnknownInstances"] = *n.IgnoreUnknownInstances
	}
	return json.Marshal(obj)
}

// UnmarshalJSON reads the project-file form. Unknown "$" keys are rejected.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	fields := make(map[string]json.RawMessage)
	children := make(map[string]*Node)
	for key, value := range raw {
		if strings.HasPrefix(key, "$") {
			fields[key] = value
			continue
		}
		child := &Node{}
		if err := json.Unmarshal(value, child); err != nil {
			return fmt.Errorf("child %q: %w", key, err)
		}
		children[key] = child
	}

	fieldJSON, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	var nf nodeFields
	dec := json.NewDecoder(bytes.NewReader(fieldJSON))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&nf); err != nil {
		return fmt.Errorf("node fields: %w", err)
	}

	*n = Node{
		ClassName:              nf.ClassName,
		Path:                   filepath.FromSlash(nf.Path),
		Properties:             nf.Properties,
		IgnoreUnknownInstances: nf.IgnoreUnknownInstances,
	}
	if len(n.Properties) == 0 {
		n.Properties = nil
	}
	if len(children) > 0 {
		n.Children = children
	}
	return nil
}

// Equal reports whether two nodes have the same encoded form, children and
// property values included. An empty map equals a nil one, and numeric
// properties compare by value regardless of their Go type.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	a, errA := json.Marshal(n)
	b, errB := json.Marshal(other)
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// ChildNames returns the child names in sorted order.
func (n *Node) ChildNames() []string {
	return slices.Sorted(maps.Keys(n.Children))
}

// String renders the node for diagnostics.
func (n *Node) String() string {
	if n == nil {
		return "Node(nil)"
	}
	var b strings.Builder
	b.WriteString("Node{")
	var parts []string
	if n.ClassName != "" {
		parts = append(parts, fmt.Sprintf("class: %s", n.ClassName))
	}
	if n.Path != "" {
		parts = append(parts, fmt.Sprintf("path: %q", n.Path))
	}
	if len(n.Properties) > 0 {
		parts = append(parts, fmt.Sprintf("properties: %v", n.Properties))
	}
	if n.IgnoreUnknownInstances != nil {
		parts = append(parts, fmt.Sprintf("ignore_unknown_instances: %t", *n.IgnoreUnknownInstances))
	}
	if len(n.Children) > 0 {
		parts = append(parts, fmt.Sprintf("children: [%s]", strings.Join(n.ChildNames(), ", ")))
	}
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString("}")
	return b.String()
}

// Project is a decoded project definition file.
type Project struct {
	Name            string   `json:"name"`
	Tree            *Node    `json:"tree"`
	GlobIgnorePaths []string `json:"globIgnorePaths,omitempty"`

	// FilePath is the absolute path the project was read from.
	FilePath string `json:"-"`
}

// Parse decodes a project file. filePath is resolved to an absolute path and
// anchors the project's relative paths and ignore globs.
func Parse(data []byte, filePath string) (*Project, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve project path %q: %w", filePath, err)
	}

	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode project %s: %w", abs, err)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("decode project %s: %w", abs, ErrMissingName)
	}
	if p.Tree == nil {
		return nil, fmt.Errorf("decode project %s: %w", abs, ErrMissingTree)
	}
	p.FilePath = abs
	return &p, nil
}

// Dir returns the directory containing the project file.
func (p *Project) Dir() string {
	return filepath.Dir(p.FilePath)
}

// ResolvePath returns the absolute form of a node's $path, or "" when the
// node has none.
func (p *Project) ResolvePath(n *Node) string {
	if n == nil || n.Path == "" {
		return ""
	}
	if filepath.IsAbs(n.Path) {
		return filepath.Clean(n.Path)
	}
	return filepath.Join(p.Dir(), n.Path)
}
