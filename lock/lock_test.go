package lock

import (
	"sync"
	"testing"
)

func TestGraphLockExcludesConcurrentHolders(t *testing.T) {
	var g GraphLock
	tok := g.Lock()
	if _, ok := g.TryLock(); ok {
		t.Fatal("TryLock should fail while held")
	}
	g.Unlock(tok)
	tok2, ok := g.TryLock()
	if !ok {
		t.Fatal("TryLock should succeed once released")
	}
	g.Unlock(tok2)
}

func TestRenderLockRoundTrip(t *testing.T) {
	var r RenderLock
	tok := r.Lock()
	r.Unlock(tok)
	tok2, ok := r.TryLock()
	if !ok {
		t.Fatal("expected uncontended TryLock to succeed")
	}
	r.Unlock(tok2)
}

func TestQueueDrainsInOrder(t *testing.T) {
	var q Queue
	var order []int
	var mu sync.Mutex
	for i := 0; i < 5; i++ {
		i := i
		q.Push(OpFunc(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}
	if q.Len() != 5 {
		t.Fatalf("want 5 pending, got %d", q.Len())
	}
	q.Drain()
	if q.Len() != 0 {
		t.Fatalf("want 0 pending after drain, got %d", q.Len())
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("ops applied out of order: %v", order)
		}
	}
}

func TestQueueConcurrentPush(t *testing.T) {
	var q Queue
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Push(OpFunc(func() {}))
		}()
	}
	wg.Wait()
	if q.Len() != 100 {
		t.Fatalf("want 100 pending, got %d", q.Len())
	}
}
