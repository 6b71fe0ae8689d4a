// Package ioutils provides file system primitives used by the catalog store
// and the Chrome Web Store fetcher.
//
// # JSON Files
//
// Every data file is JSON with 2-space indentation and a trailing newline:
//
//	var registry model.Registry
//	err := ioutils.ReadJSON(ctx, "data/all.json", &registry)
//
//	err = ioutils.WriteJSON(ctx, "data/chrome-web-store.json", records)
//
// Writes go through WriteFileAtomic, so an interrupted run never leaves a
// truncated file behind.
//
// # Temporary Directories
//
// TempDir returns a cleanup function that removes the directory recursively:
//
//	dir, cleanup, err := ioutils.TempDir("chrome-extensions-")
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
package ioutils
