// Package update refreshes the extension records of one shard.
//
// # Manager
//
// The Manager coordinates one update run:
//
//  1. Load the registry and the previous per-site catalogs
//  2. Select the shard's slice of the tracked items
//  3. Update every item through the concurrency limiter
//  4. Group the records by site
//  5. Write the shard result file
//
// # Basic Usage
//
//	manager := update.NewManager(settings, store, resolvers, func(event progress.Event) {
//	    fmt.Println(event.Message)
//	})
//
//	report, err := manager.Run(ctx, shard.Spec{Index: 1, Size: 4})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Change Detection
//
// Resolving an item's reference is cheap and always happens. When the
// reference equals the one stored in the previous record, that record is
// reused without downloading anything. Otherwise the package is fetched and
// LastUpdated moves only if the hash or the declared version changed, so a
// rotated download URL alone does not look like a new release.
//
// # Failures
//
// By default one failing item fails the whole shard and nothing is written.
// With settings.KeepGoing the failure is recorded in a sidecar file, the
// item keeps its previous record and the remaining items are still written.
package update
