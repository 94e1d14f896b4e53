package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_DelaySequence(t *testing.T) {
	p := Policy{Base: 2 * time.Second, Cap: 60 * time.Second}

	want := []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second,
	}
	for i, w := range want {
		assert.Equal(t, w, p.Delay(i+1), "attempt %d", i+1)
	}
}

func TestPolicy_JitterBounded(t *testing.T) {
	p := DefaultPolicy()

	var prevBase time.Duration
	for attempt := 1; attempt <= 6; attempt++ {
		for i := 0; i < 200; i++ {
			d := p.Delay(attempt)
			assert.LessOrEqual(t, d, p.Cap+p.JitterMax)
			assert.GreaterOrEqual(t, d, prevBase)
		}
		prevBase = Policy{Base: p.Base, Cap: p.Cap}.Delay(attempt)
	}
}

func TestPolicy_MaxJitterStaysUnderCap(t *testing.T) {
	p := DefaultPolicy()
	p.Jitter = func(max time.Duration) time.Duration { return max - 1 }

	for attempt := 1; attempt <= 6; attempt++ {
		assert.Less(t, p.Delay(attempt), p.Cap+p.JitterMax)
	}
}

func TestPolicy_LargeAttemptIsCapped(t *testing.T) {
	p := Policy{Base: 2 * time.Second, Cap: 60 * time.Second}

	assert.Equal(t, 60*time.Second, p.Delay(1_000_000))
	assert.Equal(t, 2*time.Second, p.Delay(0))
}

func TestSequence_Reset(t *testing.T) {
	s := &sequence{policy: Policy{Base: time.Millisecond, Cap: time.Second}}

	assert.Equal(t, time.Millisecond, s.NextBackOff())
	assert.Equal(t, 2*time.Millisecond, s.NextBackOff())
	s.Reset()
	assert.Equal(t, time.Millisecond, s.NextBackOff())
}
