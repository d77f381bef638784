package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/treesync/internal/project"
)

func TestNewInstanceMetadata_Defaults(t *testing.T) {
	t.Parallel()
	m := NewInstanceMetadata()
	assert.False(t, m.IgnoreUnknownInstances())
	assert.Nil(t, m.InstigatingSource())
	assert.Empty(t, m.RelevantPaths())
	assert.True(t, m.Context().Equal(DefaultInstanceContext()))
	assert.True(t, m.Equal(InstanceMetadata{}))
}

func TestInstanceMetadata_BuilderLeavesReceiverUnchanged(t *testing.T) {
	t.Parallel()
	m0 := NewInstanceMetadata()
	m1 := m0.
		WithInstigatingSource(SourceFromPath("/proj/foo.lua")).
		WithRelevantPaths("/proj/foo.lua", "/proj/foo.meta.json")

	assert.Equal(t, PathSource{Path: "/proj/foo.lua"}, m1.InstigatingSource())
	assert.Equal(t, []string{"/proj/foo.lua", "/proj/foo.meta.json"}, m1.RelevantPaths())

	assert.True(t, m0.Equal(NewInstanceMetadata()))
	assert.Nil(t, m0.InstigatingSource())
	assert.Empty(t, m0.RelevantPaths())
}

func TestInstanceMetadata_RelevantPathsKeepOrderAndDuplicates(t *testing.T) {
	t.Parallel()
	m := NewInstanceMetadata().WithRelevantPaths("/b", "/a", "/b")
	assert.Equal(t, []string{"/b", "/a", "/b"}, m.RelevantPaths())
}

func TestInstanceMetadata_WithRelevantPathsCopiesInput(t *testing.T) {
	t.Parallel()
	input := []string{"/proj/foo.lua"}
	m := NewInstanceMetadata().WithRelevantPaths(input...)
	input[0] = "/changed"

	got := m.RelevantPaths()
	assert.Equal(t, []string{"/proj/foo.lua"}, got)

	got[0] = "/changed"
	assert.Equal(t, []string{"/proj/foo.lua"}, m.RelevantPaths())
}

func TestInstanceMetadata_AddRelevantPaths(t *testing.T) {
	t.Parallel()
	base := NewInstanceMetadata().WithRelevantPaths("/proj/foo.lua")
	a := base.AddRelevantPaths("/proj/foo.meta.json")
	b := base.AddRelevantPaths("/proj/init.meta.json")

	assert.Equal(t, []string{"/proj/foo.lua"}, base.RelevantPaths())
	assert.Equal(t, []string{"/proj/foo.lua", "/proj/foo.meta.json"}, a.RelevantPaths())
	assert.Equal(t, []string{"/proj/foo.lua", "/proj/init.meta.json"}, b.RelevantPaths())
}

func TestInstanceMetadata_IsRelevant(t *testing.T) {
	t.Parallel()
	m := NewInstanceMetadata().WithRelevantPaths("/proj/foo.lua", "/proj/foo.meta.json")
	assert.True(t, m.IsRelevant("/proj/foo.meta.json"))
	assert.False(t, m.IsRelevant("/proj/bar.lua"))
}

func TestInstanceMetadata_WithInstigatingSourceNilClears(t *testing.T) {
	t.Parallel()
	m := NewInstanceMetadata().WithInstigatingSource(SourceFromPath("/a")).WithInstigatingSource(nil)
	assert.Nil(t, m.InstigatingSource())
}

func buildMetadata(t *testing.T) InstanceMetadata {
	t.Helper()
	ctx := NewInstanceContext(testGlob(t, "/proj", "*.spec.lua"))
	return NewInstanceMetadata().
		WithIgnoreUnknownInstances(true).
		WithInstigatingSource(SourceFromPath("/proj/foo.lua")).
		WithRelevantPaths("/proj/foo.lua", "/proj/foo.meta.json").
		WithContext(ctx)
}

func TestInstanceMetadata_EqualSameBuilderCalls(t *testing.T) {
	t.Parallel()
	assert.True(t, buildMetadata(t).Equal(buildMetadata(t)))
}

func TestInstanceMetadata_EqualDetectsSingleFieldChange(t *testing.T) {
	t.Parallel()
	base := buildMetadata(t)

	tests := []struct {
		name string
		m    InstanceMetadata
	}{
		{"flag flipped", base.WithIgnoreUnknownInstances(false)},
		{"source path", base.WithInstigatingSource(SourceFromPath("/proj/bar.lua"))},
		{"source removed", base.WithInstigatingSource(nil)},
		{"source variant", base.WithInstigatingSource(ProjectNodeSource{Name: "foo", Node: &project.Node{Path: "foo.lua"}})},
		{"path order", base.WithRelevantPaths("/proj/foo.meta.json", "/proj/foo.lua")},
		{"extra path", base.AddRelevantPaths("/proj/foo.lua")},
		{"context", base.WithContext(DefaultInstanceContext())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.False(t, base.Equal(tt.m))
			assert.False(t, tt.m.Equal(base))
		})
	}
}

func TestInstanceMetadata_ContextIsShared(t *testing.T) {
	t.Parallel()
	parent := buildMetadata(t)
	child := NewInstanceMetadata().WithContext(parent.Context())
	require.Equal(t, 1, child.Context().Len())
	assert.True(t, child.Context().SharesStorage(parent.Context()))
}
