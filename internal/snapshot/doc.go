// Package snapshot holds the provenance and invalidation model attached to
// every instance a live-sync session derives from the filesystem.
//
// An [InstanceMetadata] says where an instance came from
// ([InstigatingSource]), which paths must trigger re-derivation when they
// change (relevant paths), and which ignore rules it inherited
// ([InstanceContext]). Everything here is an immutable value: builders return
// new values, contexts share their rule storage, and nothing performs I/O.
//
// The typical derivation builds metadata from the parent's context:
//
//	md := snapshot.NewInstanceMetadata().
//		WithInstigatingSource(snapshot.SourceFromPath("/proj/foo.lua")).
//		WithRelevantPaths("/proj/foo.lua", "/proj/foo.meta.json").
//		WithContext(parent.Context())
package snapshot
