/*
Package ports defines the driven ports (interfaces) of the animation graph.

These interfaces decouple the evaluator from where definitions, clips and
session state live.

# Key Interfaces

  - DefinitionLoader: retrieves controller definitions in the text format (e.g., from Loam, a directory or Redis).
  - AssetSource: resolves and samples clips and provides skeletons.
  - SnapshotStore: persists animator snapshots between requests.
  - DistributedLocker: provides distributed locking for concurrent session access.
*/
package ports
