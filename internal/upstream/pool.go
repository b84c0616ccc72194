package upstream

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Snapshot is the upstream list as published at one point in time. It must
// not be modified.
type Snapshot struct {
	Upstreams  []Descriptor
	Generation uint64
	LoadedAt   time.Time
}

// Len returns the number of upstreams in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.Upstreams)
}

var emptySnapshot = &Snapshot{}

// Pool publishes the current upstream list. The zero value is an empty pool
// ready for use.
type Pool struct {
	cur atomic.Pointer[Snapshot]
	gen atomic.Uint64
}

// NewPool returns a pool holding list.
func NewPool(list []Descriptor) *Pool {
	p := &Pool{}
	p.Store(list)
	return p
}

// Load returns the current snapshot without blocking. It never returns nil.
func (p *Pool) Load() *Snapshot {
	if s := p.cur.Load(); s != nil {
		return s
	}
	return emptySnapshot
}

// Store publishes list as the new snapshot. The pool takes ownership of list.
func (p *Pool) Store(list []Descriptor) *Snapshot {
	s := &Snapshot{
		Upstreams:  list,
		Generation: p.gen.Add(1),
		LoadedAt:   time.Now(),
	}
	p.cur.Store(s)
	return s
}

// Reload publishes the list returned by load. If load fails the current
// snapshot stays published and the error is returned.
func (p *Pool) Reload(load func() ([]Descriptor, error)) (*Snapshot, error) {
	list, err := load()
	if err != nil {
		return p.Load(), err
	}
	return p.Store(list), nil
}

// ReloadFile reloads the pool from the upstream list at path.
func (p *Pool) ReloadFile(path string, log zerolog.Logger) (*Snapshot, error) {
	return p.Reload(func() ([]Descriptor, error) {
		return LoadFile(path, log)
	})
}
