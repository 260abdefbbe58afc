/*
Package session manages animator sessions addressed by ID.

Each session is an animator whose snapshot is persisted to a
ports.SnapshotStore after every update. Access to a session is serialized by
a per-session lock, reference counted so idle sessions leave nothing behind,
and optionally by a ports.DistributedLocker when several replicas share the
store.
*/
package session
