package model

import (
	"sort"
	"strings"
)

// Item is one tracked extension as declared in the registry file.
//
// The registry stores items without their site; the site is the key of the
// list the item appears in.
type Item struct {
	// ID is the extension identifier, e.g. the 32 character Chrome Web Store id.
	ID string `json:"id"`

	// PName is the package name used when the catalog is consumed downstream.
	PName string `json:"pname"`
}

// TrackedItem is an Item together with the site it is declared under.
type TrackedItem struct {
	ID    string
	PName string
	Site  string
}

// Registry maps a site to the extensions tracked on it.
//
// Example registry file:
//
//	{
//	  "chrome-web-store": [
//	    {"id": "cjpalhdlnbpafiamejdnhcphjbkeiagm", "pname": "ublock-origin"}
//	  ]
//	}
type Registry map[string][]Item

// Sites returns the registry sites in ascending order.
func (r Registry) Sites() []string {
	sites := make([]string, 0, len(r))
	for site := range r {
		sites = append(sites, site)
	}
	sort.Strings(sites)
	return sites
}

// Tracked flattens the registry into a single list of tracked items.
//
// Sites are visited in ascending order and items keep their order within a
// site, so the result is stable for a given registry file. Shard boundaries
// are computed over this list.
func (r Registry) Tracked() []TrackedItem {
	var items []TrackedItem
	for _, site := range r.Sites() {
		for _, item := range r[site] {
			items = append(items, TrackedItem{ID: item.ID, PName: item.PName, Site: site})
		}
	}
	return items
}

// Sorted returns a copy of the registry with every site's items sorted by id.
func (r Registry) Sorted() Registry {
	out := make(Registry, len(r))
	for site, items := range r {
		sorted := make([]Item, len(items))
		copy(sorted, items)
		sort.SliceStable(sorted, func(i, j int) bool {
			return strings.Compare(sorted[i].ID, sorted[j].ID) < 0
		})
		out[site] = sorted
	}
	return out
}

// Extension is the last known fetched state of one extension on one site.
//
// URL holds the resolved download reference and is the fast-skip key: when a
// fresh resolution returns the same URL the record is reused as is.
// LastUpdated only moves when Hash or Version change.
type Extension struct {
	ID          string `json:"id"`
	PName       string `json:"pname"`
	Version     string `json:"version"`
	URL         string `json:"url"`
	Hash        string `json:"hash"`
	LastUpdated string `json:"lastUpdated"`
}

// Catalog maps a site to its extension records. Shard result files use the
// same shape but only cover the items of one shard.
type Catalog map[string][]Extension

// Find returns the record for id on site, or nil.
func (c Catalog) Find(site, id string) *Extension {
	for i := range c[site] {
		if c[site][i].ID == id {
			return &c[site][i]
		}
	}
	return nil
}

// Sites returns the catalog sites in ascending order.
func (c Catalog) Sites() []string {
	sites := make([]string, 0, len(c))
	for site := range c {
		sites = append(sites, site)
	}
	sort.Strings(sites)
	return sites
}

// SortByID sorts records by id in ascending string order. The sort is stable
// so records with equal ids keep their merge order.
func SortByID(records []Extension) {
	sort.SliceStable(records, func(i, j int) bool {
		return strings.Compare(records[i].ID, records[j].ID) < 0
	})
}

// Failure records an item that could not be updated during a keep-going run.
type Failure struct {
	ID    string `json:"id"`
	Site  string `json:"site"`
	Error string `json:"error"`
}
