// Package treesync tracks where every derived instance in a synced tree came
// from and which filesystem paths, when they change, force that instance to
// be re-derived.
//
// # Model
//
// Each instance carries an [InstanceMetadata] value:
//
//   - an [InstigatingSource], either a filesystem path or a named node of a
//     project file, naming what produced the instance;
//   - the relevant paths, whose creation, modification or deletion makes the
//     instance stale;
//   - an [InstanceContext] of [IgnoreGlob] rules inherited from the instance
//     that created it;
//   - the ignore-unknown-instances flag, which tells a sync pass to leave
//     children it did not create alone.
//
// All of these are immutable values. Builders such as
// [InstanceMetadata.WithRelevantPaths] return modified copies.
//
// # Usage
//
//	t, err := treesync.New(".treesync/state.db")
//	if err != nil { ... }
//	defer t.Close()
//
//	md := treesync.NewInstanceMetadata().
//		WithInstigatingSource(treesync.SourceFromPath("/proj/src/foo.lua")).
//		WithRelevantPaths("/proj/src/foo.lua", "/proj/src/foo.meta.json")
//
//	changed, err := t.Record(ctx, "src.foo", md)
//	refs, err := t.Affected("/proj/src/foo.meta.json") // ["src.foo"]
//
// [Tracker.Record] skips the write when the metadata is structurally equal to
// what is stored. [Tracker.RecordAll] encodes entries on a worker pool and
// commits every change in one transaction.
package treesync
