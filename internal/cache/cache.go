package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache defines a generic cache interface.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	DeletePrefix(prefix string) int
	Size() int
}

// DefaultLoadTimeout bounds a shared load when NewLoader gets no timeout.
const DefaultLoadTimeout = 10 * time.Second

// Loader fronts a Cache with a singleflight group, so concurrent misses on
// the same key run the load function once.
//
// Every Invalidate starts a new generation. Loads started in an older
// generation still answer their callers but never write to the cache, and
// callers arriving after an invalidation start a fresh load.
type Loader[T any] struct {
	cache   Cache[T]
	group   singleflight.Group
	timeout time.Duration

	mu         sync.Mutex // orders Set against Invalidate
	generation uint64
}

// NewLoader creates a loader. timeout bounds each shared load, which runs
// detached from the cancellation of whichever caller started it.
func NewLoader[T any](c Cache[T], timeout time.Duration) *Loader[T] {
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	return &Loader[T]{cache: c, timeout: timeout}
}

// Get returns the cached value for key, or calls load, caches a successful
// result and returns it. hit reports whether the value came from the cache.
// A caller whose ctx ends stops waiting without failing the other callers
// of the same load.
func (l *Loader[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (v T, hit bool, err error) {
	if v, ok := l.cache.Get(key); ok {
		return v, true, nil
	}

	gen := l.currentGeneration()
	ch := l.group.DoChan(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()
		v, err := load(loadCtx)
		if err != nil {
			return v, err
		}
		l.store(key, v, gen)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, false, res.Err
		}
		return res.Val.(T), false, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

func (l *Loader[T]) currentGeneration() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}

// store caches v unless an invalidation happened after the load began.
func (l *Loader[T]) store(key string, v T, gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.generation {
		return
	}
	l.cache.Set(key, v)
}

// Invalidate drops every cached entry under prefix and keeps loads already
// in flight from caching their results.
func (l *Loader[T]) Invalidate(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	return l.cache.DeletePrefix(prefix)
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically cleans registered caches.
type Manager struct {
	caches      []Cleaner
	started     bool
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager. Call before StartCleanup.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// StartCleanup begins periodic cleanup of all registered caches.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := 0
			for _, c := range m.caches {
				cleaned += c.CleanExpired()
			}
			if cleaned > 0 {
				slog.Debug("Expired cache entries removed", "count", cleaned)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup loop started by StartCleanup and waits for it.
func (m *Manager) Stop() {
	select {
	case <-m.stopCleanup:
		return
	default:
	}
	close(m.stopCleanup)
	if m.started {
		<-m.cleanupDone
	}
}
