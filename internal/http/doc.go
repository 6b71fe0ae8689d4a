// Package http provides the HTTP client used to resolve and download
// extension packages.
//
// The Client in this package handles:
//   - User-Agent headers
//   - Redirect inspection (the Location of an update URL is the package reference)
//   - Size-limited file downloads with progress tracking
//   - Timeout handling
//
// # Basic Usage
//
//	client := http.NewClient(http.Options{Timeout: time.Minute})
//
//	// Look at the redirect without following it
//	r, err := client.Resolve(ctx, updateURL)
//
//	// Download file with progress callback
//	n, err := client.DownloadFile(ctx, r.Location, "/tmp/extension.crx", func(written, total int64) {
//	    fmt.Printf("%.1f%%\n", float64(written)/float64(total)*100)
//	})
package http
