package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/naili/storefront/pkg/auth/session"
	"github.com/naili/storefront/pkg/logger"
)

type registryEntry struct {
	rec      *Reconciler
	lastSeen time.Time
}

// Registry keeps one reconciler per active session.
type Registry struct {
	store Store
	logg  *logger.Logger
	opts  []Option
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry
}

func NewRegistry(store Store, logg *logger.Logger, opts ...Option) *Registry {
	if logg == nil {
		logg = logger.Discard()
	}
	return &Registry{
		store:   store,
		logg:    logg,
		opts:    append([]Option{WithLogger(logg)}, opts...),
		now:     time.Now,
		entries: map[string]*registryEntry{},
	}
}

// Get returns the reconciler of the session, creating and mounting it on first use.
// A reconciler whose last mount did not load the remote items is mounted again on
// later calls. The reconciler is always returned; a non-nil error reports a failed
// mount and the reconciler keeps serving local state.
func (g *Registry) Get(ctx context.Context, sess session.Session) (*Reconciler, error) {
	if sess == nil {
		return nil, errors.New("session is required")
	}
	key := sess.Key()

	g.mu.Lock()
	entry, ok := g.entries[key]
	if !ok {
		rec, err := NewReconciler(g.store, sess, g.opts...)
		if err != nil {
			g.mu.Unlock()
			return nil, err
		}
		entry = &registryEntry{rec: rec}
		g.entries[key] = entry
	}
	entry.lastSeen = g.now()
	rec := entry.rec
	g.mu.Unlock()

	if rec.Mounted() {
		return rec, nil
	}
	if err := rec.Mount(ctx); err != nil {
		g.logg.Warn(g.logg.WithField(ctx, "session", key), "cart mount failed; serving local cart")
		return rec, err
	}
	return rec, nil
}

// Lookup returns the reconciler of key without creating one.
func (g *Registry) Lookup(key string) (*Reconciler, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.entries[key]
	if !ok {
		return nil, false
	}
	return entry.rec, true
}

// Drop closes and forgets the reconciler of key, as on sign-out.
func (g *Registry) Drop(key string) {
	g.mu.Lock()
	entry, ok := g.entries[key]
	delete(g.entries, key)
	g.mu.Unlock()
	if ok {
		entry.rec.Close()
	}
}

func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Sweep closes and forgets every reconciler not requested within idle. It returns
// how many were evicted.
func (g *Registry) Sweep(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	cutoff := g.now().Add(-idle)

	g.mu.Lock()
	var evicted []*Reconciler
	for key, entry := range g.entries {
		if entry.lastSeen.Before(cutoff) {
			evicted = append(evicted, entry.rec)
			delete(g.entries, key)
		}
	}
	g.mu.Unlock()

	for _, rec := range evicted {
		rec.Close()
	}
	return len(evicted)
}

// Run sweeps idle reconcilers every interval until ctx is canceled.
func (g *Registry) Run(ctx context.Context, idle, interval time.Duration) error {
	if idle <= 0 || interval <= 0 {
		return errors.New("idle ttl and sweep interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := g.Sweep(idle); n > 0 {
				g.logg.Info(g.logg.WithFields(ctx, map[string]any{
					"evicted":   n,
					"remaining": g.Len(),
				}), "idle carts evicted")
			}
		}
	}
}

// Close closes every reconciler, waiting for their background syncs.
func (g *Registry) Close() {
	g.mu.Lock()
	entries := g.entries
	g.entries = map[string]*registryEntry{}
	g.mu.Unlock()
	for _, entry := range entries {
		entry.rec.Close()
	}
}
