package lock

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestKeyedSerializesSameID(t *testing.T) {
	k := NewKeyed()
	id := uuid.New()

	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := k.Acquire(id)
			defer release()

			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()

			mu.Lock()
			inFlight--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxInFlight != 1 {
		t.Fatalf("expected at most one holder per id, saw %d", maxInFlight)
	}
	if k.Len() != 0 {
		t.Fatalf("expected entries to be released, %d remain", k.Len())
	}
}

func TestKeyedIndependentIDsDoNotBlock(t *testing.T) {
	k := NewKeyed()
	a := uuid.New()
	b := uuid.New()

	releaseA := k.Acquire(a)
	defer releaseA()

	done := make(chan struct{})
	go func() {
		releaseB := k.Acquire(b)
		releaseB()
		close(done)
	}()

	<-done
	if k.Len() != 1 {
		t.Fatalf("expected only the held entry, got %d", k.Len())
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	k := NewKeyed()
	id := uuid.New()

	release := k.Acquire(id)
	release()
	release()

	if k.Len() != 0 {
		t.Fatalf("double release corrupted entry refcount: %d entries", k.Len())
	}
}
