// Package datahandler implements the Data Handler Layer (spec §4.6): a
// polymorphic persistence strategy chosen from a task's declared return
// type (or an explicit DataClass override). Each variant satisfies
// taskdef.Handler; selection is performed by Select in select.go.
//
// The family mirrors the teacher's internal/cache package almost
// directly: taskdef.Handler (Exists/Load/Save/IsFinished/MarkFinished)
// plays the role of the teacher's Cache interface
// (Fetch/Put/Clean/Shutdown), and the concept of layering a remote
// mirror behind the local handler (internal/remotemirror) mirrors the
// teacher's cacheMultiplexer (local fs cache + remote http cache,
// local-write-after-remote-hit).
package datahandler
