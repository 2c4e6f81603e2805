package reentrant

import (
	"sync"
	"testing"
	"time"
)

func TestLockUnlock(t *testing.T) {
	var m Mutex
	m.Lock()
	if !m.Held() {
		t.Fatal("expected Held=true after Lock")
	}
	m.Unlock()
	if m.Held() {
		t.Fatal("expected Held=false after Unlock")
	}
}

func TestReentry(t *testing.T) {
	var m Mutex
	m.Lock()
	m.Lock()
	m.Lock()
	if !m.Held() {
		t.Fatal("expected Held=true while nested")
	}
	m.Unlock()
	m.Unlock()
	if !m.Held() {
		t.Fatal("expected Held=true until outermost Unlock")
	}
	m.Unlock()
	if m.Held() {
		t.Fatal("expected Held=false after outermost Unlock")
	}
}

func TestExcludesOtherGoroutines(t *testing.T) {
	var m Mutex
	m.Lock()

	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
		m.Unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second goroutine acquired a held mutex")
	case <-time.After(20 * time.Millisecond):
	}

	m.Unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second goroutine never acquired the released mutex")
	}
}

func TestHeldIsPerGoroutine(t *testing.T) {
	var m Mutex
	m.Lock()
	defer m.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if m.Held() {
			t.Error("expected Held=false from a non-owning goroutine")
		}
	}()
	wg.Wait()
}

func TestSerializesCounter(t *testing.T) {
	var m Mutex
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Lock()
			// Nested acquisition inside a critical section must not deadlock.
			m.Lock()
			counter++
			m.Unlock()
			m.Unlock()
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Errorf("got counter %d, want 50", counter)
	}
}

func TestGoroutineID(t *testing.T) {
	a := goroutineID()
	if a == 0 {
		t.Fatal("expected non-zero goroutine ID")
	}
	if b := goroutineID(); b != a {
		t.Errorf("got %d then %d, want stable ID within a goroutine", a, b)
	}

	ids := make(chan uint64, 1)
	go func() { ids <- goroutineID() }()
	if other := <-ids; other == a {
		t.Error("expected a different ID on another goroutine")
	}
}
