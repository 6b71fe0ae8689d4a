// Package combine merges shard results into the final per-site catalogs.
//
// A combine run:
//
//  1. Rewrites the registry with every site's items sorted by id
//  2. Reads every shard result file in the shard directory
//  3. Appends each shard's records to a per-site accumulator, in file order
//  4. Drops repeated ids (the last record wins) and sorts each site by id
//  5. Writes <site>.json for every site that has records
//  6. Removes the shard directory
//
// Failure sidecars left by keep-going updates are not merged; their items
// are reported in the Summary and logged as warnings.
//
// A missing shard directory is not an error: the registry is still
// normalized and no catalog is touched, so combine can safely be re-run.
//
// Example:
//
//	c := combine.NewCombiner(settings, store, onProgress)
//	summary, err := c.Run(ctx)
package combine
