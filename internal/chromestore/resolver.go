package chromestore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	httpclient "github.com/sudosubin/nix-chrome-extensions/internal/http"
	ioutils "github.com/sudosubin/nix-chrome-extensions/internal/io"
	"github.com/sudosubin/nix-chrome-extensions/internal/progress"
	"github.com/sudosubin/nix-chrome-extensions/internal/update"
)

// Site is the registry key for extensions hosted on the Chrome Web Store.
const Site = "chrome-web-store"

// progressStep is how many downloaded bytes pass between progress events.
const progressStep = 1 << 20

// Resolver resolves and inspects Chrome Web Store extensions.
//
// The update service answers a request for an extension id with a redirect
// to the current CRX package. That redirect target is the reference used for
// fast-skip: it changes whenever a new package is published.
//
// Example usage:
//
//	client := http.NewClient(http.Options{Timeout: time.Minute})
//	r := NewResolver(client, config.DefaultUpdateURL, config.DefaultProdVersion, nil)
//
//	ref, err := r.ResolveReference(ctx, "cjpalhdlnbpafiamejdnhcphjbkeiagm")
//	if err != nil {
//	    return err
//	}
//	info, err := r.FetchAndInspect(ctx, ref)
//	fmt.Println(info.Version, info.Hash)
type Resolver struct {
	client      *httpclient.Client
	updateURL   string
	prodVersion string
	onProgress  progress.Func
}

// NewResolver creates a Resolver.
//
// updateURL is a template in which {id} and {prodversion} are replaced; the
// prodversion is the Chrome version the store is asked to serve a package for.
// onProgress, if set, receives verbose download progress events.
func NewResolver(client *httpclient.Client, updateURL, prodVersion string, onProgress progress.Func) *Resolver {
	return &Resolver{
		client:      client,
		updateURL:   updateURL,
		prodVersion: prodVersion,
		onProgress:  onProgress,
	}
}

// UpdateURL returns the update service URL for an extension id.
func (r *Resolver) UpdateURL(id string) string {
	return strings.NewReplacer(
		"{id}", url.QueryEscape(id),
		"{prodversion}", url.QueryEscape(r.prodVersion),
	).Replace(r.updateURL)
}

// ResolveReference returns the package URL the update service redirects to.
//
// Returns:
//   - update.ErrExtensionUnavailable if the service answers 204 No Content
//     (the extension was removed from the store)
//   - update.ErrResolutionFailed if the response carries no Location header
func (r *Resolver) ResolveReference(ctx context.Context, id string) (string, error) {
	redirect, err := r.client.Resolve(ctx, r.UpdateURL(id))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", id, err)
	}

	if redirect.StatusCode == http.StatusNoContent {
		return "", fmt.Errorf("%w: %s (HTTP 204 - extension may be removed from Chrome Web Store)", update.ErrExtensionUnavailable, id)
	}

	if redirect.Location == "" {
		return "", fmt.Errorf("%w: %s (HTTP %d)", update.ErrResolutionFailed, id, redirect.StatusCode)
	}

	return redirect.Location, nil
}

// FetchAndInspect downloads the CRX at ref and returns its SRI hash and the
// version from its manifest.
//
// The package is written to a temporary directory that is removed before
// FetchAndInspect returns, whether it succeeds or not.
func (r *Resolver) FetchAndInspect(ctx context.Context, ref string) (*update.Inspection, error) {
	root, cleanup, err := ioutils.TempDir("chrome-extensions-")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	crx := filepath.Join(root, "extension.crx")

	size, err := r.client.DownloadFile(ctx, ref, crx, r.downloadProgress(ref))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", ref, err)
	}

	hash, err := HashFile(crx)
	if err != nil {
		return nil, err
	}

	manifest, err := ReadManifest(crx)
	if err != nil {
		return nil, err
	}

	return &update.Inspection{
		Hash:    hash,
		Version: manifest.Version,
		Size:    size,
	}, nil
}

// downloadProgress reports a download every progressStep bytes and once it
// completes.
func (r *Resolver) downloadProgress(ref string) func(written, total int64) {
	if r.onProgress == nil {
		return nil
	}

	name := path.Base(ref)
	next := int64(progressStep)
	return func(written, total int64) {
		if written < next && written != total {
			return
		}
		for next <= written {
			next += progressStep
		}

		if total > 0 {
			r.onProgress.Emit(progress.LevelVerbose, "download %s: %s / %s", name, humanize.Bytes(uint64(written)), humanize.Bytes(uint64(total)))
		} else {
			r.onProgress.Emit(progress.LevelVerbose, "download %s: %s", name, humanize.Bytes(uint64(written)))
		}
	}
}
