package container

import (
	"bytes"
	"runtime"
	"strconv"
)

var goroutinePrefix = []byte("goroutine ")

// goroutineID returns the id of the calling goroutine, read from the header
// line of its stack trace ("goroutine 42 [running]:").
func goroutineID() uint64 {
	var buf [64]byte
	b := bytes.TrimPrefix(buf[:runtime.Stack(buf[:], false)], goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}

// enter records r as the resolution building services on its goroutine, so
// calls back into the container from a constructor join r's chain.
func (c *Container) enter(r *resolution) {
	r.gid = goroutineID()
	c.activeMu.Lock()
	c.active[r.gid] = r
	c.activeMu.Unlock()
	c.building.Add(1)
}

func (c *Container) leave(r *resolution) {
	c.activeMu.Lock()
	if c.active[r.gid] == r {
		delete(c.active, r.gid)
	}
	c.activeMu.Unlock()
	c.building.Add(-1)
}

// current returns the resolution building on the calling goroutine, if any.
func (c *Container) current() *resolution {
	if c.building.Load() == 0 {
		return nil
	}
	gid := goroutineID()
	c.activeMu.Lock()
	defer c.activeMu.Unlock()
	return c.active[gid]
}
