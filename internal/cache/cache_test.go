package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWrapDeduplicatesConcurrentProducers(t *testing.T) {
	c, err := New(nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer c.Close()

	var calls int64
	release := make(chan struct{})

	producer := func() (interface{}, error) {
		atomic.AddInt64(&calls, 1)
		<-release
		return "result", nil
	}

	const waiters = 16
	var wg sync.WaitGroup
	results := make([]interface{}, waiters)
	errs := make([]error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Wrap("chain:block:query", time.Minute, producer)
		}(i)
	}

	// let every goroutine reach the cache before the producer finishes
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("expected exactly 1 producer invocation, got %d", got)
	}
	for i := 0; i < waiters; i++ {
		if errs[i] != nil {
			t.Fatalf("waiter %d error: %v", i, errs[i])
		}
		if results[i] != "result" {
			t.Fatalf("waiter %d got %v", i, results[i])
		}
	}
}

func TestWrapReturnsCachedValueWithinTTL(t *testing.T) {
	c, err := New(nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer c.Close()

	var calls int
	producer := func() (interface{}, error) {
		calls++
		return calls, nil
	}

	first, err := c.Wrap("k", time.Minute, producer)
	if err != nil {
		t.Fatalf("first wrap: %v", err)
	}
	second, err := c.Wrap("k", time.Minute, producer)
	if err != nil {
		t.Fatalf("second wrap: %v", err)
	}

	if first != 1 || second != 1 {
		t.Fatalf("expected cached value 1, got %v then %v", first, second)
	}
	if calls != 1 {
		t.Fatalf("expected 1 producer call, got %d", calls)
	}
}

func TestWrapExpiresEntries(t *testing.T) {
	c, err := New(nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer c.Close()

	var calls int
	producer := func() (interface{}, error) {
		calls++
		return calls, nil
	}

	if _, err := c.Wrap("k", 20*time.Millisecond, producer); err != nil {
		t.Fatalf("first wrap: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	value, err := c.Wrap("k", 20*time.Millisecond, producer)
	if err != nil {
		t.Fatalf("second wrap: %v", err)
	}

	if value != 2 {
		t.Fatalf("expected recomputed value 2 after expiry, got %v", value)
	}
}

func TestWrapDoesNotCacheErrors(t *testing.T) {
	c, err := New(nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer c.Close()

	var calls int
	producer := func() (interface{}, error) {
		calls++
		if calls == 1 {
			return nil, errFake
		}
		return "ok", nil
	}

	if _, err := c.Wrap("k", time.Minute, producer); err == nil {
		t.Fatal("expected error from first producer")
	}
	value, err := c.Wrap("k", time.Minute, producer)
	if err != nil {
		t.Fatalf("second wrap: %v", err)
	}
	if value != "ok" {
		t.Fatalf("expected ok, got %v", value)
	}
}

var errFake = &fakeError{}

type fakeError struct{}

func (*fakeError) Error() string { return "fake" }
