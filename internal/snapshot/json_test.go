package snapshot

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/treesync/internal/project"
)

func roundTrip(t *testing.T, m InstanceMetadata) (InstanceMetadata, map[string]any) {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))

	var got InstanceMetadata
	require.NoError(t, json.Unmarshal(data, &got))
	return got, generic
}

func TestMetadataJSON_AbsentSourceIsOmitted(t *testing.T) {
	t.Parallel()
	got, generic := roundTrip(t, NewInstanceMetadata())

	_, present := generic["instigating_source"]
	assert.False(t, present, "absent source must not be encoded as null")
	assert.Contains(t, generic, "ignore_unknown_instances")
	assert.Contains(t, generic, "relevant_paths")
	assert.Contains(t, generic, "context")

	assert.Nil(t, got.InstigatingSource())
	assert.True(t, got.Equal(NewInstanceMetadata()))
}

func TestMetadataJSON_PathSourceRoundTrip(t *testing.T) {
	t.Parallel()
	m := NewInstanceMetadata().WithInstigatingSource(SourceFromPath("/a/b"))
	got, generic := roundTrip(t, m)

	assert.Equal(t, map[string]any{"path": "/a/b"}, generic["instigating_source"])
	assert.Equal(t, PathSource{Path: "/a/b"}, got.InstigatingSource())
	assert.True(t, got.Equal(m))
}

func TestMetadataJSON_FullRoundTrip(t *testing.T) {
	t.Parallel()
	m := buildMetadata(t)
	got, generic := roundTrip(t, m)

	assert.True(t, got.Equal(m))
	assert.Equal(t, true, generic["ignore_unknown_instances"])
	assert.Equal(t, []any{"/proj/foo.lua", "/proj/foo.meta.json"}, generic["relevant_paths"])
	assert.Equal(t, map[string]any{
		"ignore_paths": []any{
			map[string]any{"base_path": "/proj", "glob": "*.spec.lua"},
		},
	}, generic["context"])
}

func TestMetadataJSON_ProjectNodeRoundTrip(t *testing.T) {
	t.Parallel()
	node := &project.Node{
		ClassName:  "Folder",
		Path:       "src",
		Properties: map[string]any{"Archivable": true},
		Children: map[string]*project.Node{
			"Shared": {Path: "shared"},
		},
	}
	m := NewInstanceMetadata().
		WithInstigatingSource(ProjectNodeSource{Name: "ReplicatedStorage", Node: node}).
		WithRelevantPaths("/proj/default.project.json")

	got, generic := roundTrip(t, m)
	assert.True(t, got.Equal(m))

	src := generic["instigating_source"].(map[string]any)
	pn := src["project_node"].(map[string]any)
	assert.Equal(t, "ReplicatedStorage", pn["name"])
	nodeJSON := pn["node"].(map[string]any)
	assert.Equal(t, "Folder", nodeJSON["$className"])
	assert.Equal(t, "src", nodeJSON["$path"])
	assert.Contains(t, nodeJSON, "Shared")
}

func TestMetadataJSON_EmptyPathsEncodeAsArray(t *testing.T) {
	t.Parallel()
	data, err := json.Marshal(NewInstanceMetadata())
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"ignore_unknown_instances":false,"relevant_paths":[],"context":{"ignore_paths":[]}}`,
		string(data))
}

func TestMetadataJSON_RejectsAmbiguousSource(t *testing.T) {
	t.Parallel()
	var m InstanceMetadata

	err := json.Unmarshal([]byte(`{"instigating_source":{}}`), &m)
	require.Error(t, err)

	err = json.Unmarshal([]byte(`{"instigating_source":{"path":"/a","project_node":{"name":"x","node":{}}}}`), &m)
	require.Error(t, err)
}

func TestMetadataJSON_RejectsInvalidGlob(t *testing.T) {
	t.Parallel()
	var m InstanceMetadata
	err := json.Unmarshal([]byte(`{"context":{"ignore_paths":[{"base_path":"/proj","glob":"["}]}}`), &m)
	require.Error(t, err)
}

func TestMetadataJSON_MissingFieldsDecodeToDefaults(t *testing.T) {
	t.Parallel()
	var m InstanceMetadata
	require.NoError(t, json.Unmarshal([]byte(`{}`), &m))
	assert.True(t, m.Equal(NewInstanceMetadata()))
}

func TestMetadataJSON_RelativePathsEncodeAbsolute(t *testing.T) {
	t.Parallel()
	wd, err := filepath.Abs(".")
	require.NoError(t, err)
	abs := func(p string) string { return filepath.ToSlash(filepath.Join(wd, p)) }

	glob, err := NewIgnoreGlob("src", "*.spec.lua")
	require.NoError(t, err)
	m := NewInstanceMetadata().
		WithInstigatingSource(SourceFromPath("src/foo.lua")).
		WithRelevantPaths("src/foo.lua", "src/../src/foo.meta.json").
		WithContext(NewInstanceContext(glob))

	got, generic := roundTrip(t, m)

	assert.Equal(t, map[string]any{"path": abs("src/foo.lua")}, generic["instigating_source"])
	assert.Equal(t, []any{abs("src/foo.lua"), abs("src/foo.meta.json")}, generic["relevant_paths"])
	ctxJSON := generic["context"].(map[string]any)
	rules := ctxJSON["ignore_paths"].([]any)
	require.Len(t, rules, 1)
	assert.Equal(t, abs("src"), rules[0].(map[string]any)["base_path"])

	src, ok := got.InstigatingSource().(PathSource)
	require.True(t, ok)
	assert.True(t, filepath.IsAbs(src.Path))
}

func TestMetadataJSON_ProjectNodeEqualAfterDecode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		node *project.Node
	}{
		{"int property", &project.Node{
			ClassName:  "Part",
			Properties: map[string]any{"Transparency": 1, "Size": []int{4, 1, 2}},
		}},
		{"empty children", &project.Node{
			ClassName: "Folder",
			Children:  map[string]*project.Node{},
		}},
		{"empty properties", &project.Node{
			Path:       "src",
			Properties: map[string]any{},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewInstanceMetadata().
				WithInstigatingSource(ProjectNodeSource{Name: "Workspace", Node: tt.node})

			got, _ := roundTrip(t, m)
			assert.True(t, got.Equal(m))
			assert.True(t, m.Equal(got))
		})
	}
}
