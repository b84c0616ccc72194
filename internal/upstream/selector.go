package upstream

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync/atomic"
)

// Selector chooses the upstream for a new connection from a snapshot.
type Selector interface {
	// Pick returns false if the snapshot is empty.
	Pick(s *Snapshot) (Descriptor, bool)
}

// Policy names accepted by NewSelector.
const (
	PolicyFirst      = "first"
	PolicyRoundRobin = "round-robin"
	PolicyRandom     = "random"
)

// NewSelector returns the Selector for a policy name.
func NewSelector(policy string) (Selector, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", PolicyFirst:
		return First{}, nil
	case PolicyRoundRobin, "roundrobin", "rr":
		return &RoundRobin{}, nil
	case PolicyRandom:
		return Random{}, nil
	default:
		return nil, fmt.Errorf("unknown selection policy %q (want %s, %s or %s)", policy, PolicyFirst, PolicyRoundRobin, PolicyRandom)
	}
}

// First always picks the first upstream in the list.
type First struct{}

func (First) Pick(s *Snapshot) (Descriptor, bool) {
	if s.Len() == 0 {
		return Descriptor{}, false
	}
	return s.Upstreams[0], true
}

// RoundRobin cycles through the list. The counter is shared across reloads,
// so a shorter list after a reload simply wraps sooner.
type RoundRobin struct {
	next atomic.Uint64
}

func (r *RoundRobin) Pick(s *Snapshot) (Descriptor, bool) {
	n := uint64(s.Len())
	if n == 0 {
		return Descriptor{}, false
	}
	i := (r.next.Add(1) - 1) % n
	return s.Upstreams[i], true
}

// Random picks uniformly at random.
type Random struct{}

func (Random) Pick(s *Snapshot) (Descriptor, bool) {
	n := s.Len()
	if n == 0 {
		return Descriptor{}, false
	}
	return s.Upstreams[rand.IntN(n)], true
}
