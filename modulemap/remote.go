// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package modulemap

import (
	"runtime"
	"time"

	"github.com/glebov-andrey/hindsight/frame"
	"github.com/glebov-andrey/hindsight/libpf"
)

// remoteRetryCount is the number of times a failed enumeration is retried
// before a lookup gives up and reports "not found".
const remoteRetryCount = 10

// remoteBackoff returns the delay before retry attempt i (0-based): an
// immediate yield for the first retry, then 1ms, then 10ms, then a linearly
// growing delay capped at 100ms.
func remoteBackoff(i int) time.Duration {
	switch {
	case i == 0:
		return 0
	case i == 1:
		return time.Millisecond
	case i == 2:
		return 10 * time.Millisecond
	default:
		d := 10 * time.Millisecond * time.Duration(i-2)
		if d > 100*time.Millisecond {
			d = 100 * time.Millisecond
		}
		return d
	}
}

// Remote is the module map for another process, identified by PID. Because
// the target's module list can change concurrently with enumeration, a
// lookup that hits a transient failure restarts the whole enumeration,
// backing off between attempts.
type Remote struct {
	pid libpf.PID
}

var _ Lookup = (*Remote)(nil)

// NewRemote builds a module map for the process identified by pid. Remote
// owns no OS resource beyond the PID itself: there is nothing to release,
// but Close is provided to satisfy the "owns a handle, released on every
// exit path" discipline the design uses for its remote counterparts.
func NewRemote(pid libpf.PID) *Remote {
	return &Remote{pid: pid}
}

// Close releases any resources held by the remote module map. Present for
// symmetry with backends that do hold a real OS handle (e.g. a duplicated
// process handle on Windows); on Linux there is nothing to release.
func (r *Remote) Close() error {
	return nil
}

// LookupModule finds addr's owning module in the remote process, retrying
// the full enumeration up to remoteRetryCount times on transient failure
// before reporting "not found".
func (r *Remote) LookupModule(addr frame.PhysicalAddress) (frame.ModuleInfo, bool) {
	for attempt := 0; attempt <= remoteRetryCount; attempt++ {
		if attempt > 0 {
			d := remoteBackoff(attempt - 1)
			if d == 0 {
				runtime.Gosched()
			} else {
				time.Sleep(d)
			}
		}

		modules, ok := r.enumerate()
		if !ok {
			continue
		}
		if info, found := lookupIn(modules, uint64(addr)); found {
			return info, true
		}
		// A complete, successful enumeration that genuinely does not
		// cover addr is a real "not found", not a transient failure.
		return frame.ModuleInfo{}, false
	}
	return frame.ModuleInfo{}, false
}

// enumerate performs one attempt at listing the target's loaded modules.
// Any failure - the process exited, /proc/<pid>/maps vanished mid-read - is
// reported as a failed attempt so the caller can retry.
func (r *Remote) enumerate() ([]module, bool) {
	f, err := openMaps(mapsPath(int(r.pid)))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	modules, err := parseMaps(f)
	if err != nil {
		return nil, false
	}
	return modules, true
}
