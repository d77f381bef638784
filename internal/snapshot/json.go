package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/jward/treesync/internal/project"
)

// encodePath returns the absolute, slash-separated form of p, the form every
// path field is written in. Relative paths resolve against the working
// directory.
func encodePath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	} else {
		p = filepath.Clean(p)
	}
	return filepath.ToSlash(p)
}

// MarshalText implements encoding.TextMarshaler.
func (g Glob) MarshalText() ([]byte, error) {
	return []byte(g.pattern), nil
}

// UnmarshalText implements encoding.TextUnmarshaler; the pattern is
// recompiled.
func (g *Glob) UnmarshalText(text []byte) error {
	compiled, err := CompileGlob(string(text))
	if err != nil {
		return err
	}
	*g = compiled
	return nil
}

type ignoreGlobJSON struct {
	BasePath string `json:"base_path"`
	Glob     Glob   `json:"glob"`
}

func (ig IgnoreGlob) MarshalJSON() ([]byte, error) {
	return json.Marshal(ignoreGlobJSON{
		BasePath: encodePath(ig.BasePath),
		Glob:     ig.Glob,
	})
}

func (ig *IgnoreGlob) UnmarshalJSON(data []byte) error {
	var raw ignoreGlobJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*ig = IgnoreGlob{BasePath: filepath.FromSlash(raw.BasePath), Glob: raw.Glob}
	return nil
}

type contextJSON struct {
	IgnorePaths []IgnoreGlob `json:"ignore_paths"`
}

func (c InstanceContext) MarshalJSON() ([]byte, error) {
	paths := c.list()
	if paths == nil {
		paths = []IgnoreGlob{}
	}
	return json.Marshal(contextJSON{IgnorePaths: paths})
}

func (c *InstanceContext) UnmarshalJSON(data []byte) error {
	var raw contextJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = NewInstanceContext(raw.IgnorePaths...)
	return nil
}

type projectNodeJSON struct {
	Name string        `json:"name"`
	Node *project.Node `json:"node"`
}

type sourceJSON struct {
	Path        *string          `json:"path,omitempty"`
	ProjectNode *projectNodeJSON `json:"project_node,omitempty"`
}

var errAmbiguousSource = errors.New("instigating source must set exactly one of path or project_node")

func encodeSource(src InstigatingSource) *sourceJSON {
	if src == nil {
		return nil
	}
	return MatchSource(src,
		func(s PathSource) *sourceJSON {
			p := encodePath(s.Path)
			return &sourceJSON{Path: &p}
		},
		func(s ProjectNodeSource) *sourceJSON {
			return &sourceJSON{ProjectNode: &projectNodeJSON{Name: s.Name, Node: s.Node}}
		},
	)
}

func decodeSource(raw *sourceJSON) (InstigatingSource, error) {
	if raw == nil {
		return nil, nil
	}
	switch {
	case raw.Path != nil && raw.ProjectNode == nil:
		return PathSource{Path: filepath.FromSlash(*raw.Path)}, nil
	case raw.ProjectNode != nil && raw.Path == nil:
		return ProjectNodeSource{Name: raw.ProjectNode.Name, Node: raw.ProjectNode.Node}, nil
	default:
		return nil, errAmbiguousSource
	}
}

type metadataJSON struct {
	IgnoreUnknownInstances bool            `json:"ignore_unknown_instances"`
	InstigatingSource      *sourceJSON     `json:"instigating_source,omitempty"`
	RelevantPaths          []string        `json:"relevant_paths"`
	Context                InstanceContext `json:"context"`
}

// MarshalJSON encodes every field; instigating_source is omitted when
// absent rather than written as null.
func (m InstanceMetadata) MarshalJSON() ([]byte, error) {
	paths := make([]string, len(m.relevantPaths))
	for i, p := range m.relevantPaths {
		paths[i] = encodePath(p)
	}
	return json.Marshal(metadataJSON{
		IgnoreUnknownInstances: m.ignoreUnknownInstances,
		InstigatingSource:      encodeSource(m.instigatingSource),
		RelevantPaths:          paths,
		Context:                m.context,
	})
}

func (m *InstanceMetadata) UnmarshalJSON(data []byte) error {
	var raw metadataJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	src, err := decodeSource(raw.InstigatingSource)
	if err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	var paths []string
	if len(raw.RelevantPaths) > 0 {
		paths = make([]string, len(raw.RelevantPaths))
		for i, p := range raw.RelevantPaths {
			paths[i] = filepath.FromSlash(p)
		}
	}
	*m = InstanceMetadata{
		ignoreUnknownInstances: raw.IgnoreUnknownInstances,
		instigatingSource:      src,
		relevantPaths:          paths,
		context:                raw.Context,
	}
	return nil
}
