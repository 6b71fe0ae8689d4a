package update

import (
	"context"
	"errors"
	"fmt"
)

// Errors reported while updating a single item.
var (
	// ErrExtensionUnavailable means the store reports the extension as gone.
	ErrExtensionUnavailable = errors.New("extension is not available")

	// ErrResolutionFailed means no download reference could be determined.
	ErrResolutionFailed = errors.New("no redirect url found")

	// ErrOrphanRecord means a result could not be matched back to a tracked
	// item. It indicates a bug, not a remote failure.
	ErrOrphanRecord = errors.New("invalid extension without site")

	// ErrUnsupportedSite means no resolver is registered for a site.
	ErrUnsupportedSite = errors.New("unsupported site")
)

// Inspection is what a full fetch learns about a package.
type Inspection struct {
	// Hash is the SRI content hash of the package, e.g. "sha256-…".
	Hash string

	// Version is the version declared in the package metadata.
	Version string

	// Size is the package size in bytes.
	Size int64
}

// Resolver talks to one extension store.
//
// ResolveReference is cheap and runs for every item; FetchAndInspect
// downloads and unpacks the package and only runs when the reference changed.
type Resolver interface {
	// ResolveReference returns the current download reference for id.
	// It fails with ErrExtensionUnavailable when the store reports the
	// extension removed and ErrResolutionFailed when no reference is found.
	ResolveReference(ctx context.Context, id string) (string, error)

	// FetchAndInspect downloads the package behind ref and inspects it.
	FetchAndInspect(ctx context.Context, ref string) (*Inspection, error)
}

// ItemError ties a failure to the extension it happened on.
type ItemError struct {
	ID   string
	Site string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s/%s: %v", e.Site, e.ID, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }
