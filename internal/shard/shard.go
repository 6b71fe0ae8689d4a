// Package shard splits the tracked item list into contiguous, non-overlapping
// slices so several update runs can share the work.
//
// A shard is written "index/size": "2/4" is the second of four shards.
// Every shard except possibly the last holds ceil(n/size) items; the last one
// may be short or empty. Running 1/size through size/size covers the whole
// list exactly once, in the original order.
package shard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidShardSpec is returned for a shard spec that is not "index/size"
// with 1 <= index <= size.
var ErrInvalidShardSpec = errors.New("invalid shard")

// Spec identifies one shard. Index is 1-based.
type Spec struct {
	Index int
	Size  int
}

// Default is the whole list as a single shard.
var Default = Spec{Index: 1, Size: 1}

// Parse parses an "index/size" shard spec. An empty string yields Default.
func Parse(s string) (Spec, error) {
	if s == "" {
		return Default, nil
	}

	indexStr, sizeStr, ok := strings.Cut(s, "/")
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrInvalidShardSpec, s)
	}

	index, err := strconv.Atoi(strings.TrimSpace(indexStr))
	if err != nil {
		return Spec{}, fmt.Errorf("%w: %q: index: %w", ErrInvalidShardSpec, s, err)
	}
	size, err := strconv.Atoi(strings.TrimSpace(sizeStr))
	if err != nil {
		return Spec{}, fmt.Errorf("%w: %q: size: %w", ErrInvalidShardSpec, s, err)
	}

	spec := Spec{Index: index, Size: size}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// Validate reports whether the spec describes an existing shard.
func (s Spec) Validate() error {
	if s.Size < 1 || s.Index < 1 || s.Index > s.Size {
		return fmt.Errorf("%w: %q", ErrInvalidShardSpec, s.String())
	}
	return nil
}

// String formats the spec as "index/size".
func (s Spec) String() string {
	return fmt.Sprintf("%d/%d", s.Index, s.Size)
}

// Unit returns the number of items per shard for a list of total items.
func (s Spec) Unit(total int) int {
	if s.Size < 1 {
		return total
	}
	return (total + s.Size - 1) / s.Size
}

// Bounds returns the half-open range [start, end) of the shard within a list
// of total items.
func (s Spec) Bounds(total int) (start, end int) {
	unit := s.Unit(total)
	start = min((s.Index-1)*unit, total)
	end = min(start+unit, total)
	return start, end
}

// Plan returns a copy of the items that belong to the shard.
func Plan[T any](items []T, spec Spec) []T {
	start, end := spec.Bounds(len(items))
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}
