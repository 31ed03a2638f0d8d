package retry

import (
	"testing"
	"time"
)

func TestMultiplicative(t *testing.T) {
	b := Multiplicative(time.Second, 2, 0)()

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i, w := range want {
		if got := b.NextBackOff(); got != w {
			t.Errorf("delay %d: expected %v, got %v", i+1, w, got)
		}
	}

	b.Reset()
	if got := b.NextBackOff(); got != time.Second {
		t.Errorf("after reset: expected 1s, got %v", got)
	}
}

func TestMultiplicative_Capped(t *testing.T) {
	b := Multiplicative(time.Second, 10, 5*time.Second)()

	want := []time.Duration{time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := b.NextBackOff(); got != w {
			t.Errorf("delay %d: expected %v, got %v", i+1, w, got)
		}
	}
}

func TestJitter_StaysWithinBounds(t *testing.T) {
	base := 100 * time.Millisecond
	maxDelay := 400 * time.Millisecond

	for run := 0; run < 20; run++ {
		b := Jitter(base, 0.5, maxDelay)()
		b.Reset()

		for i := 0; i < 6; i++ {
			got := b.NextBackOff()
			if got < base {
				t.Fatalf("run %d delay %d: %v below base %v", run, i+1, got, base)
			}
			if got > maxDelay {
				t.Fatalf("run %d delay %d: %v above max %v", run, i+1, got, maxDelay)
			}
		}
	}
}

func TestJitter_NoRandomization(t *testing.T) {
	b := Jitter(100*time.Millisecond, 0, 0)()
	b.Reset()

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	for i, w := range want {
		if got := b.NextBackOff(); got != w {
			t.Errorf("delay %d: expected %v, got %v", i+1, w, got)
		}
	}
}
