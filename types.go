package treesync

import (
	"github.com/jward/treesync/internal/snapshot"
	"github.com/jward/treesync/internal/store"
)

// Public type aliases for the metadata model and the store. These are Go
// type aliases (=), so values move between packages without conversion.

type Store = store.Store
type Instance = store.Instance

type IgnoreGlob = snapshot.IgnoreGlob
type Glob = snapshot.Glob
type InstanceContext = snapshot.InstanceContext
type InstigatingSource = snapshot.InstigatingSource
type PathSource = snapshot.PathSource
type ProjectNodeSource = snapshot.ProjectNodeSource
type InstanceMetadata = snapshot.InstanceMetadata

// Constructors re-exported from the snapshot package.
var (
	NewIgnoreGlob          = snapshot.NewIgnoreGlob
	NewInstanceContext     = snapshot.NewInstanceContext
	DefaultInstanceContext = snapshot.DefaultInstanceContext
	NewInstanceMetadata    = snapshot.NewInstanceMetadata
	SourceFromPath         = snapshot.SourceFromPath
)
