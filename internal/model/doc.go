// Package model defines the data structures shared by the catalog
// updater.
//
// # Registry
//
// Registry declares which extensions are tracked, grouped by site:
//
//	reg := model.Registry{"chrome-web-store": {{ID: "abc", PName: "foo"}}}
//	for _, item := range reg.Tracked() {
//	    fmt.Println(item.Site, item.ID)
//	}
//
// # Extension
//
// Extension is one catalog record: identity, declared version, resolved
// download URL, SRI content hash and the time its content last changed.
//
// # Catalog
//
// Catalog maps a site to its records. The combined per-site files are sorted
// by id; shard result files are not.
package model
