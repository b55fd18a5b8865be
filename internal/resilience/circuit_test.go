package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCircuitBreaker_ClosedState_PassesThrough(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	var calls int
	err := cb.Execute(context.Background(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed state, got %s", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cfg := CircuitBreakerConfig{
		FailureThreshold: 3,
		Cooldown:         1 * time.Minute,
	}
	cb := NewCircuitBreaker(cfg)

	// Fail 3 times to trip the breaker.
	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), func(_ context.Context) error {
			return errors.New("fail")
		})
	}

	if cb.State() != CircuitOpen {
		t.Errorf("expected open state after %d failures, got %s", cfg.FailureThreshold, cb.State())
	}

	// Next call should be rejected immediately without invoking fn.
	err := cb.Execute(context.Background(), func(_ context.Context) error {
		t.Error("should not be called when circuit is open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cfg := CircuitBreakerConfig{
		FailureThreshold: 3,
		Cooldown:         1 * time.Minute,
	}
	cb := NewCircuitBreaker(cfg)

	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), func(_ context.Context) error {
			return errors.New("fail")
		})
	}

	failures, state := cb.Counters()
	if failures != 2 {
		t.Errorf("expected 2 consecutive failures, got %d", failures)
	}
	if state != CircuitClosed {
		t.Errorf("expected closed state, got %s", state)
	}

	_ = cb.Execute(context.Background(), func(_ context.Context) error {
		return nil
	})

	failures, _ = cb.Counters()
	if failures != 0 {
		t.Errorf("expected 0 consecutive failures after success, got %d", failures)
	}
}

func TestCircuitBreaker_NonTrippingErrorResetsFailures(t *testing.T) {
	cfg := CircuitBreakerConfig{
		FailureThreshold: 3,
		Cooldown:         1 * time.Minute,
		ShouldTrip:       IsTransient,
	}
	cb := NewCircuitBreaker(cfg)

	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), func(_ context.Context) error {
			return NewTransientError(errors.New("http 503"), 503)
		})
	}

	// A non-transient error (e.g. a 404) is an application-level outcome
	// and resets the failure count.
	err := cb.Execute(context.Background(), func(_ context.Context) error {
		return errors.New("http 404")
	})
	if err == nil {
		t.Fatal("expected the 404 error to propagate")
	}

	failures, state := cb.Counters()
	if failures != 0 {
		t.Errorf("expected failure count reset, got %d", failures)
	}
	if state != CircuitClosed {
		t.Errorf("expected closed state, got %s", state)
	}
}

func TestCircuitBreaker_HalfOpenAfterCooldown(t *testing.T) {
	now := time.Now()
	cfg := CircuitBreakerConfig{
		FailureThreshold: 2,
		Cooldown:         100 * time.Millisecond,
	}
	cb := NewCircuitBreaker(cfg)
	cb.nowFunc = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), func(_ context.Context) error {
			return errors.New("fail")
		})
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open state, got %s", cb.State())
	}

	// Advance past the cooldown; state reports half-open.
	now = now.Add(150 * time.Millisecond)
	if cb.State() != CircuitHalfOpen {
		t.Errorf("expected half-open state after cooldown, got %s", cb.State())
	}

	// Probe succeeds: circuit closes and failures reset.
	var calls int
	err := cb.Execute(context.Background(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected probe to run once, got %d calls", calls)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed state after successful probe, got %s", cb.State())
	}
	failures, _ := cb.Counters()
	if failures != 0 {
		t.Errorf("expected 0 failures after successful probe, got %d", failures)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	cfg := CircuitBreakerConfig{
		FailureThreshold: 2,
		Cooldown:         100 * time.Millisecond,
	}
	cb := NewCircuitBreaker(cfg)
	cb.nowFunc = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), func(_ context.Context) error {
			return errors.New("fail")
		})
	}

	now = now.Add(150 * time.Millisecond)

	// Failed probe reopens the circuit and restarts the cooldown clock.
	_ = cb.Execute(context.Background(), func(_ context.Context) error {
		return errors.New("still failing")
	})
	if cb.State() != CircuitOpen {
		t.Errorf("expected open state after failed probe, got %s", cb.State())
	}

	// Before the new cooldown elapses, calls are rejected.
	now = now.Add(50 * time.Millisecond)
	err := cb.Execute(context.Background(), func(_ context.Context) error {
		t.Error("should not be called while re-opened")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cfg := CircuitBreakerConfig{FailureThreshold: 1, Cooldown: time.Minute}
	cb := NewCircuitBreaker(cfg)

	_ = cb.Execute(context.Background(), func(_ context.Context) error {
		return errors.New("fail")
	})
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open state, got %s", cb.State())
	}

	cb.Reset()
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed state after reset, got %s", cb.State())
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	cfg := CircuitBreakerConfig{
		FailureThreshold: 1,
		Cooldown:         time.Minute,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	}
	cb := NewCircuitBreaker(cfg)

	_ = cb.Execute(context.Background(), func(_ context.Context) error {
		return errors.New("fail")
	})

	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Errorf("expected [closed->open], got %v", transitions)
	}
}

func TestExecuteVal_ReturnsValue(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	val, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 42 {
		t.Errorf("expected 42, got %d", val)
	}
}

func TestOriginBreakers_IsolatedPerOrigin(t *testing.T) {
	ob := NewOriginBreakers(CircuitBreakerConfig{FailureThreshold: 1, Cooldown: time.Minute})

	// Trip origin a.
	_ = ob.Get("a.example.com").Execute(context.Background(), func(_ context.Context) error {
		return errors.New("fail")
	})

	if ob.Get("a.example.com").State() != CircuitOpen {
		t.Error("expected origin a open")
	}
	if ob.Get("b.example.com").State() != CircuitClosed {
		t.Error("expected origin b unaffected")
	}

	states := ob.States()
	if states["a.example.com"] != CircuitOpen {
		t.Errorf("expected open in snapshot, got %s", states["a.example.com"])
	}
}

func TestOriginBreakers_ConcurrentGet(t *testing.T) {
	ob := NewOriginBreakers(DefaultCircuitBreakerConfig())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ob.Get("shared.example.com").Execute(context.Background(), func(_ context.Context) error {
				return nil
			})
		}()
	}
	wg.Wait()

	if got := len(ob.States()); got != 1 {
		t.Errorf("expected 1 breaker, got %d", got)
	}
}
