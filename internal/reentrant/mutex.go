// Package reentrant implements a mutex that the holding goroutine may
// acquire again without deadlocking. Each registry uses one to serialize
// discovery and mutation while still allowing plugin loaders to call back
// into the registry that is loading them.
//
// Lock/Unlock pairs nest:
//
//	Free     → Held(g)   on Lock by goroutine g
//	Held(g)  → Held(g)   on Lock by g again (depth+1)
//	Held(g)  → Free      on the matching outermost Unlock by g
package reentrant

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// Mutex is a mutual exclusion lock with goroutine-owner tracking.
// The zero value is an unlocked mutex. A Mutex must not be copied after
// first use.
type Mutex struct {
	inner sync.Mutex
	owner atomic.Uint64
	depth int
}

// Lock acquires the mutex. If the calling goroutine already holds it, the
// hold depth increases and Lock returns immediately.
func (m *Mutex) Lock() {
	gid := goroutineID()
	if m.owner.Load() == gid {
		m.depth++
		return
	}
	m.inner.Lock()
	m.owner.Store(gid)
	m.depth = 1
}

// Unlock releases one level of the mutex. The mutex becomes available to
// other goroutines once the outermost Lock is matched. Unlock panics when
// called by a goroutine that does not hold the mutex.
func (m *Mutex) Unlock() {
	gid := goroutineID()
	if m.owner.Load() != gid {
		panic(fmt.Sprintf("reentrant: unlock of mutex held by goroutine %d from goroutine %d", m.owner.Load(), gid))
	}
	m.depth--
	if m.depth == 0 {
		m.owner.Store(0)
		m.inner.Unlock()
	}
}

// Held reports whether the calling goroutine currently holds the mutex.
func (m *Mutex) Held() bool {
	return m.owner.Load() == goroutineID()
}

// goroutineID extracts the current goroutine's ID from the first line of a
// stack trace ("goroutine 123 [running]:"). The runtime offers no public
// accessor for it.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
