// Package chromestore resolves and inspects extensions published on the
// Chrome Web Store.
//
// The package handles two steps:
//
//  1. Resolving an extension id to its current package URL
//  2. Downloading the package and reading its hash and declared version
//
// # Resolution
//
// The Chrome update service is queried with response=redirect. A 302 points
// at the current CRX; a 204 means the extension is no longer available:
//
//	ref, err := resolver.ResolveReference(ctx, id)
//	if errors.Is(err, update.ErrExtensionUnavailable) {
//	    // removed from the store
//	}
//
// # Package Format
//
// A CRX file is a zip archive behind a small header. Version 3 headers are
// "Cr24", the version and a length-prefixed protobuf; version 2 headers carry
// the public key and signature instead. ReadManifest skips either header and
// reads manifest.json from the archive.
//
// # Hashes
//
// HashFile produces SRI hashes ("sha256-<base64>") of the whole CRX file.
package chromestore
