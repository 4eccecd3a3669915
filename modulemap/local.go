// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package modulemap

import (
	"github.com/glebov-andrey/hindsight/frame"
)

// Local is the module map for the calling process. It holds no state: each
// lookup re-reads /proc/self/maps, mirroring the platform call that maps an
// in-process address straight to its owning image without needing to track
// load/unload events itself. It is safe for concurrent use by construction.
type Local struct{}

var _ Lookup = Local{}

// NewLocal returns the local module map. There is nothing to construct; the
// returned value is stateless and may be freely copied or shared.
func NewLocal() Local {
	return Local{}
}

// LookupModule finds addr's owning module among the calling process's own
// mappings.
func (Local) LookupModule(addr frame.PhysicalAddress) (frame.ModuleInfo, bool) {
	f, err := openMaps("/proc/self/maps")
	if err != nil {
		return frame.ModuleInfo{}, false
	}
	defer f.Close()

	modules, err := parseMaps(f)
	if err != nil {
		return frame.ModuleInfo{}, false
	}
	return lookupIn(modules, uint64(addr))
}
