package dispatcher

import (
	"testing"
	"time"
)

func TestFlushPolicy_ShouldFlush(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	policy := NewFlushPolicy(10, time.Second)

	tests := []struct {
		name  string
		count int
		now   time.Time
		want  bool
	}{
		{"empty batch never flushes", 0, base.Add(time.Hour), false},
		{"below size and age", 5, base.Add(500 * time.Millisecond), false},
		{"size reached", 10, base, true},
		{"size exceeded", 11, base, true},
		{"age reached", 1, base.Add(time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.ShouldFlush(tt.count, base, tt.now); got != tt.want {
				t.Errorf("ShouldFlush() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlushPolicy_Wait(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	policy := NewFlushPolicy(10, time.Second)

	if got := policy.Wait(0, time.Time{}, base); got != time.Second {
		t.Errorf("Wait() for empty batch = %v, want 1s", got)
	}
	if got := policy.Wait(3, base, base.Add(300*time.Millisecond)); got != 700*time.Millisecond {
		t.Errorf("Wait() = %v, want 700ms", got)
	}
	if got := policy.Wait(3, base, base.Add(2*time.Second)); got != 0 {
		t.Errorf("Wait() past deadline = %v, want 0", got)
	}
}
