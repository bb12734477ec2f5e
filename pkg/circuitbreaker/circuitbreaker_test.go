package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestOpensAfterThreshold(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Unix(0, 0)}
	cb := newWithClock(Config{FailureThreshold: 2, Timeout: time.Minute}, c.now)

	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: got %v, want errBoom", i, err)
		}
	}
	if got := cb.GetState(); got != StateOpen {
		t.Fatalf("state = %s, want open", got)
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitBreakerOpen) || called {
		t.Fatalf("open breaker: err=%v called=%v", err, called)
	}
}

func TestHalfOpenRecovery(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Unix(0, 0)}
	var transitions []string
	cb := newWithClock(Config{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Minute,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	}, c.now)

	_ = cb.Execute(func() error { return errBoom })
	c.t = c.t.Add(time.Minute)

	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("half-open call %d: %v", i, err)
		}
	}
	if got := cb.GetState(); got != StateClosed {
		t.Fatalf("state = %s, want closed", got)
	}

	want := []string{"closed->open", "open->half_open", "half_open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Unix(0, 0)}
	cb := newWithClock(Config{FailureThreshold: 1, Timeout: time.Second}, c.now)

	_ = cb.Execute(func() error { return errBoom })
	c.t = c.t.Add(time.Second)
	_ = cb.Execute(func() error { return errBoom })

	if got := cb.GetState(); got != StateOpen {
		t.Fatalf("state = %s, want open", got)
	}
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Fatalf("got %v, want ErrCircuitBreakerOpen", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(Config{FailureThreshold: 2})
	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errBoom })

	if got := cb.GetState(); got != StateClosed {
		t.Fatalf("state = %s, want closed", got)
	}
}
