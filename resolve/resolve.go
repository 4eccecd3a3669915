// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package resolve implements the Resolver: it turns a physical address
// into one or more logical frames by locating the owning module, loading
// (and caching) a debug-info session for it, and walking that session's
// DWARF or symbol-table data.
package resolve // import "github.com/glebov-andrey/hindsight/resolve"

import (
	"io"
	"os"

	"golang.org/x/sync/singleflight"

	"github.com/glebov-andrey/hindsight/debug/log"
	"github.com/glebov-andrey/hindsight/frame"
	"github.com/glebov-andrey/hindsight/libpf"
	"github.com/glebov-andrey/hindsight/libpf/xsync"
	"github.com/glebov-andrey/hindsight/modulemap"
)

// Decision is returned by a Resolver sink for every logical frame offered
// to it.
type Decision bool

const (
	Continue Decision = true
	Stop     Decision = false
)

// SinkFunc adapts a plain function to the per-frame callback Resolve
// expects.
type SinkFunc func(frame.LogicalFrame) Decision

// cacheEntry is what the session cache stores per module file name: either
// a live session, or nil marking a previously failed creation - a creation
// failure is cached as absent precisely so a module that can't be opened
// (deleted, permission denied, not an ELF) is not retried on every address
// that falls inside it.
type cacheEntry struct {
	sess *session
}

// Resolver caches per-module debug-info sessions and expands physical
// addresses into logical frames. A zero-value Resolver is not usable; use
// New, NewForProcess or NewForProcMaps.
type Resolver struct {
	modules modulemap.Lookup
	// cache is the "Locked value" session cache: the mutex is held only
	// across lookup and insertion, never across a backend call on an
	// already-cached session, since the DWARF backend this Resolver
	// uses is internally safe for concurrent use.
	cache xsync.RWMutex[map[string]*cacheEntry]

	// creating collapses concurrent first-lookups of the same module
	// path into a single openSession call instead of letting every racing
	// goroutine open and parse the file only to have all but one of them
	// discarded by the double-checked cache insert.
	creating singleflight.Group

	closer io.Closer
}

func newResolver(modules modulemap.Lookup) *Resolver {
	return &Resolver{
		modules: modules,
		cache:   xsync.NewRWMutex(make(map[string]*cacheEntry)),
	}
}

// New builds a Resolver that symbolizes addresses in the calling process.
func New() *Resolver {
	return newResolver(modulemap.NewLocal())
}

// NewForProcess builds a Resolver that symbolizes addresses in another
// process, identified by pid. It owns the remote module map exclusively;
// Close releases it.
func NewForProcess(pid libpf.PID) *Resolver {
	remote := modulemap.NewRemote(pid)
	r := newResolver(remote)
	r.closer = remote
	return r
}

// NewForProcMaps takes ownership of an already-opened descriptor for a
// target's memory-map description file (e.g. a /proc/<pid>/maps snapshot
// received over a pipe from another process) and builds a Resolver over
// it directly, without owning a live handle to the target process.
func NewForProcMaps(f *os.File) (*Resolver, error) {
	static, err := modulemap.NewFromMapsFile(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	_ = f.Close()
	r := newResolver(static)
	return r, nil
}

// Close releases any resource the Resolver owns exclusively (a remote
// process handle). It is a no-op for Resolvers built with New or
// NewForProcMaps.
func (r *Resolver) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Resolve expands addr into one or more logical frames, innermost inlinee
// first and the enclosing physical frame last, invoking sink for each.
// Exactly one frame is produced even for an address that cannot be
// resolved at all (the placeholder frame). If sink returns Stop,
// resolution ends immediately and no further inlinees are produced.
func (r *Resolver) Resolve(addr frame.PhysicalAddress, sink SinkFunc) {
	if addr.IsAbsent() {
		sink(frame.Placeholder(addr))
		return
	}

	mod, ok := r.modules.LookupModule(addr)
	if !ok {
		sink(frame.Placeholder(addr))
		return
	}

	sess, ok := r.sessionFor(mod.FileName)
	if !ok {
		sink(frame.Placeholder(addr))
		return
	}

	fileAddr := uint64(addr) - mod.BaseOffset
	sess.resolve(fileAddr, addr, func(lf frame.LogicalFrame) Decision {
		return sink(lf)
	})
}

// sessionFor returns the cached session for path, creating and caching one
// on first use. A creation failure is cached too (as a nil session) so it
// is never retried.
func (r *Resolver) sessionFor(path string) (*session, bool) {
	cache := r.cache.RLock()
	entry, ok := (*cache)[path]
	r.cache.RUnlock(&cache)
	if ok {
		return entry.sess, entry.sess != nil
	}

	// singleflight collapses every concurrent miss for path onto one
	// openSession call; the cache insert below still double-checks,
	// since a prior call may have already completed and been inserted
	// between our RLock above and reaching the front of the group.
	v, _, _ := r.creating.Do(path, func() (any, error) {
		sess, err := openSession(path)
		if err != nil {
			log.Debugf("resolve: opening debug info for %s: %v", path, err)
			sess = nil
		}
		return sess, nil
	})
	var sess *session
	if v != nil {
		sess = v.(*session)
	}

	w := r.cache.WLock()
	// Another goroutine may have raced us to create the same session
	// (its singleflight call group already finished and inserted by the
	// time we got the write lock); prefer whichever was inserted first
	// and discard the loser.
	if existing, raced := (*w)[path]; raced {
		r.cache.WUnlock(&w)
		if sess != nil {
			_ = sess.Close()
		}
		return existing.sess, existing.sess != nil
	}
	(*w)[path] = &cacheEntry{sess: sess}
	r.cache.WUnlock(&w)

	return sess, sess != nil
}
