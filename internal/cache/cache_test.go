package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLRUCacheEvictionAndTTL(t *testing.T) {
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](2, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok { // a becomes most recent
		t.Fatal("a should be cached")
	}
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted as least recently used")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %d, %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size = %d, want 0", c.Size())
	}
}

func TestDeletePrefix(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)
	c.Set("totals:1:1403", "x")
	c.Set("totals:1:1403/01", "y")
	c.Set("totals:12:1403", "z")

	if n := c.DeletePrefix("totals:1:"); n != 2 {
		t.Fatalf("DeletePrefix = %d, want 2", n)
	}
	if _, ok := c.Get("totals:12:1403"); !ok {
		t.Error("tenant 12 entry must survive tenant 1 invalidation")
	}
}

func TestLoaderDeduplicatesConcurrentMisses(t *testing.T) {
	l := NewLoader[int](NewLRUCache[int](10, time.Minute), time.Second)
	var calls atomic.Int32
	release := make(chan struct{})

	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := l.Get(context.Background(), "k", load)
			if err != nil {
				t.Errorf("Get: %v", err)
			}
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("load called %d times, want 1", calls.Load())
	}
	for _, v := range results {
		if v != 42 {
			t.Fatalf("results = %v", results)
		}
	}

	v, hit, _ := l.Get(context.Background(), "k", load)
	if !hit || v != 42 {
		t.Errorf("second Get = %d hit=%v, want cached 42", v, hit)
	}
}

func TestLoaderDoesNotCacheErrors(t *testing.T) {
	l := NewLoader[int](NewLRUCache[int](10, time.Minute), time.Second)
	boom := errors.New("boom")
	if _, _, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	v, hit, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || hit || v != 7 {
		t.Errorf("Get after error = %d hit=%v err=%v", v, hit, err)
	}
	if n := l.Invalidate("k"); n != 1 {
		t.Errorf("Invalidate = %d, want 1", n)
	}
}

func TestLoaderInvalidateDuringLoad(t *testing.T) {
	l := NewLoader[int](NewLRUCache[int](10, time.Minute), time.Second)
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var value atomic.Int32
	value.Store(100)

	load := func(context.Context) (int, error) {
		started <- struct{}{}
		<-release
		return int(value.Load()), nil
	}

	done := make(chan int)
	go func() {
		v, _, err := l.Get(context.Background(), "totals:1:1403", load)
		if err != nil {
			t.Errorf("Get: %v", err)
		}
		done <- v
	}()

	<-started
	value.Store(200) // the write commits while the old load runs
	l.Invalidate("totals:1:")
	close(release)
	if v := <-done; v != 200 && v != 100 {
		t.Fatalf("in-flight Get = %d", v)
	}

	v, hit, err := l.Get(context.Background(), "totals:1:1403", func(context.Context) (int, error) {
		return int(value.Load()), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if hit || v != 200 {
		t.Errorf("Get after invalidation = %d hit=%v, want fresh 200", v, hit)
	}
}

func TestLoaderCallersAfterInvalidationStartNewLoad(t *testing.T) {
	l := NewLoader[int](NewLRUCache[int](10, time.Minute), time.Second)
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	slow := func(context.Context) (int, error) {
		started <- struct{}{}
		<-release
		return 1, nil
	}

	go l.Get(context.Background(), "k", slow)
	<-started
	l.Invalidate("k")

	v, hit, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 2, nil })
	close(release)
	if err != nil || hit || v != 2 {
		t.Errorf("Get after invalidation = %d hit=%v err=%v, want 2 from a new load", v, hit, err)
	}
}

func TestLoaderCallerCancellationDoesNotFailOthers(t *testing.T) {
	l := NewLoader[int](NewLRUCache[int](10, time.Minute), time.Second)
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	load := func(ctx context.Context) (int, error) {
		started <- struct{}{}
		<-release
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 42, nil
	}

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := l.Get(firstCtx, "k", load)
		firstErr <- err
	}()
	<-started

	second := make(chan int, 1)
	go func() {
		v, _, err := l.Get(context.Background(), "k", load)
		if err != nil {
			t.Errorf("second caller: %v", err)
		}
		second <- v
	}()

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("first caller err = %v, want context.Canceled", err)
	}
	close(release)
	if v := <-second; v != 42 {
		t.Errorf("second caller got %d, want 42", v)
	}
}

func TestLoaderLoadTimeout(t *testing.T) {
	l := NewLoader[int](NewLRUCache[int](10, time.Minute), 10*time.Millisecond)
	_, _, err := l.Get(context.Background(), "k", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestManagerStop(t *testing.T) {
	m := NewManager()
	m.Register(NewLRUCache[int](1, time.Millisecond))
	m.StartCleanup(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
	m.Stop() // second stop is a no-op

	idle := NewManager()
	idle.Stop() // never started
}
