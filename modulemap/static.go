// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package modulemap

import (
	"io"

	"github.com/glebov-andrey/hindsight/frame"
)

// Static is a module map built once from an already-read memory-map
// listing, rather than re-read on every lookup. It backs the Resolver
// constructor that takes ownership of an already-opened descriptor for a
// target's memory-map description file instead of a live PID: there is no
// live process to retry against, so unlike Remote there is nothing to
// retry - the snapshot is final the moment it is parsed.
type Static struct {
	modules []module
}

var _ Lookup = Static{}

// NewFromMapsFile parses a /proc/<pid>/maps-formatted stream once and
// returns an immutable module map over the result.
func NewFromMapsFile(r io.Reader) (Static, error) {
	modules, err := parseMaps(r)
	if err != nil {
		return Static{}, err
	}
	return Static{modules: modules}, nil
}

func (s Static) LookupModule(addr frame.PhysicalAddress) (frame.ModuleInfo, bool) {
	return lookupIn(s.modules, uint64(addr))
}
