package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// gate serializes message processing per learner and throttles how fast
// any single learner can burn backend calls. Throttled messages wait
// their turn, they are never dropped, so ordering within a conversation
// holds.
type gate struct {
	mu    sync.Mutex
	users map[string]*userGate

	limit rate.Limit
	burst int
}

type userGate struct {
	mu      sync.Mutex
	limiter *rate.Limiter
}

func newGate(interval time.Duration, burst int) *gate {
	return &gate{
		users: make(map[string]*userGate),
		limit: rate.Every(interval),
		burst: burst,
	}
}

func (g *gate) user(id string) *userGate {
	g.mu.Lock()
	defer g.mu.Unlock()
	ug, ok := g.users[id]
	if !ok {
		ug = &userGate{limiter: rate.NewLimiter(g.limit, g.burst)}
		g.users[id] = ug
	}
	return ug
}

// acquire blocks until the learner's previous message is done and the
// rate limiter admits this one. The returned release must be called when
// processing finishes.
func (g *gate) acquire(ctx context.Context, id string) (func(), error) {
	ug := g.user(id)
	ug.mu.Lock()
	if err := ug.limiter.Wait(ctx); err != nil {
		ug.mu.Unlock()
		return nil, err
	}
	return ug.mu.Unlock, nil
}
