// Package generator provides path generators that decide how a machine
// walks a model, and the stop conditions that end the walk.
package generator

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/vgarousi/Fault-tolerance-for-MBT/graph"
	"github.com/vgarousi/Fault-tolerance-for-MBT/machine"
)

// ErrNoCandidates is returned by Next when there is no edge to choose.
var ErrNoCandidates = errors.New("no candidate edges")

// StopCondition reports whether a context has walked far enough.
type StopCondition interface {
	Fulfilled(c *machine.Context) bool
}

// StopFunc adapts a plain function to StopCondition.
type StopFunc func(c *machine.Context) bool

func (f StopFunc) Fulfilled(c *machine.Context) bool { return f(c) }

// Random walks the model by picking a random candidate edge at every vertex
// until its stop condition is fulfilled. Edge weights in (0, 1] are
// probabilities; edges without weight share what the weighted edges leave.
// The walk is deterministic for a given seed and model.
type Random struct {
	mu   sync.Mutex
	stop StopCondition
	rng  *rand.Rand
}

var _ machine.PathGenerator = (*Random)(nil)

// RandomPath creates a Random generator. A nil stop condition never stops.
func RandomPath(stop StopCondition, seed int64) *Random {
	if stop == nil {
		stop = Never()
	}
	return &Random{stop: stop, rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) HasNext(c *machine.Context) bool {
	return !r.stop.Fulfilled(c)
}

func (r *Random) Next(_ *machine.Context, candidates []*graph.RuntimeEdge) (*graph.RuntimeEdge, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var weighted float64
	unweighted := 0
	for _, e := range candidates {
		if e.Weight() > 0 {
			weighted += e.Weight()
		} else {
			unweighted++
		}
	}
	if weighted == 0 {
		return candidates[r.rng.Intn(len(candidates))], nil
	}

	share := 0.0
	if unweighted > 0 && weighted < 1 {
		share = (1 - weighted) / float64(unweighted)
	}
	total := weighted + share*float64(unweighted)
	pick := r.rng.Float64() * total
	for _, e := range candidates {
		w := e.Weight()
		if w <= 0 {
			w = share
		}
		if pick < w {
			return e, nil
		}
		pick -= w
	}
	return candidates[len(candidates)-1], nil
}
