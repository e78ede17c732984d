package scheduler

import (
	"sync"

	"calbot/internal/transport"
)

// Directory maps task names to chat targets. Bindings may exist for tasks
// that have not been added yet. A non-zero ThreadID pins a forum topic.
type Directory struct {
	mu sync.RWMutex
	m  map[string]transport.ChatTarget
}

func NewDirectory() *Directory {
	return &Directory{m: map[string]transport.ChatTarget{}}
}

// Set overwrites the binding for name.
func (d *Directory) Set(name string, to transport.ChatTarget) {
	d.mu.Lock()
	d.m[name] = to
	d.mu.Unlock()
}

func (d *Directory) Get(name string) (transport.ChatTarget, bool) {
	d.mu.RLock()
	to, ok := d.m[name]
	d.mu.RUnlock()
	return to, ok
}

// Snapshot copies every binding, including ones for unknown tasks.
func (d *Directory) Snapshot() map[string]transport.ChatTarget {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]transport.ChatTarget, len(d.m))
	for k, v := range d.m {
		out[k] = v
	}
	return out
}
