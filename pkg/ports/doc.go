/*
Package ports defines the driven ports (interfaces) of the arbor editor.

These interfaces decouple the editing core from external implementations, so
sessions can live in memory or in Redis and the analysis service can be
replaced by a fake in tests.

# Key Interfaces

  - TreeStore: Holds the current Tree snapshot of each live editing session.
  - DistributedLocker: Serializes edits on one session across replicas.
  - Analyzer: Submits an encoded tree to the analysis service.
*/
package ports
