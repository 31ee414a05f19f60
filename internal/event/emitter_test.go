package event

import (
	"sync"
	"sync/atomic"
	"testing"
)

type testEvent struct {
	Handle string
	Line   string
}

func TestEmitter_Subscribe(t *testing.T) {
	var e Emitter[testEvent]

	var received []testEvent
	e.Subscribe(func(ev testEvent) {
		received = append(received, ev)
	})

	e.Emit(testEvent{Handle: "h1", Line: "hello"})

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Line != "hello" {
		t.Errorf("expected line hello, got %q", received[0].Line)
	}
}

func TestEmitter_Unsubscribe(t *testing.T) {
	var e Emitter[testEvent]

	var first, second int
	unsub := e.Subscribe(func(testEvent) { first++ })
	e.Subscribe(func(testEvent) { second++ })

	e.Emit(testEvent{})
	unsub()
	unsub() // second call is a no-op
	e.Emit(testEvent{})

	if first != 1 {
		t.Errorf("unsubscribed handler called %d times, want 1", first)
	}
	if second != 2 {
		t.Errorf("remaining handler called %d times, want 2", second)
	}
	if e.Len() != 1 {
		t.Errorf("Len() = %d, want 1", e.Len())
	}
}

func TestEmitter_EmitToNoSubscribers(t *testing.T) {
	var e Emitter[testEvent]

	// Should not panic when emitting with no subscribers
	e.Emit(testEvent{Handle: "h1"})
}

func TestEmitter_SubscribeDuringEmit(t *testing.T) {
	var e Emitter[testEvent]

	var calls []int
	e.Subscribe(func(testEvent) {
		calls = append(calls, 1)
		e.Subscribe(func(testEvent) {
			calls = append(calls, 2)
		})
	})

	e.Emit(testEvent{})
	if len(calls) != 1 {
		t.Fatalf("expected 1 call on first emit, got %v", calls)
	}

	calls = nil
	e.Emit(testEvent{})
	if len(calls) != 2 {
		t.Errorf("expected 2 calls on second emit, got %v", calls)
	}
}

func TestEmitter_UnsubscribeDuringEmit(t *testing.T) {
	var e Emitter[testEvent]

	var count int
	var unsub func()
	unsub = e.Subscribe(func(testEvent) {
		count++
		unsub()
	})

	e.Emit(testEvent{})
	e.Emit(testEvent{})

	if count != 1 {
		t.Errorf("self-unsubscribing handler called %d times, want 1", count)
	}
}

func TestEmitter_ConcurrentSubscribeAndEmit(t *testing.T) {
	var e Emitter[testEvent]

	var calls atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unsub := e.Subscribe(func(testEvent) { calls.Add(1) })
			unsub()
		}()
		go func() {
			defer wg.Done()
			e.Emit(testEvent{})
		}()
	}
	wg.Wait()

	if e.Len() != 0 {
		t.Errorf("Len() = %d, want 0", e.Len())
	}
}
