package supervisor

import (
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultBaseDelay = 2 * time.Second
	DefaultMaxDelay  = 60 * time.Second
	DefaultJitterMax = time.Second
)

// Policy is a capped exponential backoff with additive jitter:
// min(Base*2^(attempt-1), Cap) + U[0, JitterMax).
type Policy struct {
	Base      time.Duration
	Cap       time.Duration
	JitterMax time.Duration

	// Jitter draws a value in [0, max). Nil means uniform random.
	Jitter func(max time.Duration) time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		Base:      DefaultBaseDelay,
		Cap:       DefaultMaxDelay,
		JitterMax: DefaultJitterMax,
	}
}

// Delay returns the wait before retrying after failed attempt n (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := p.Base
	if d > 0 {
		for i := 1; i < attempt && d < p.Cap; i++ {
			d *= 2
		}
	}
	if d > p.Cap {
		d = p.Cap
	}
	return d + p.jitter()
}

func (p Policy) jitter() time.Duration {
	if p.JitterMax <= 0 {
		return 0
	}
	if p.Jitter != nil {
		return p.Jitter(p.JitterMax)
	}
	return rand.N(p.JitterMax)
}

// sequence adapts Policy to backoff.BackOff. It never returns backoff.Stop,
// so a retry loop driven by it only ends on success or cancellation.
type sequence struct {
	policy  Policy
	attempt int
}

var _ backoff.BackOff = (*sequence)(nil)

func (s *sequence) NextBackOff() time.Duration {
	s.attempt++
	return s.policy.Delay(s.attempt)
}

func (s *sequence) Reset() {
	s.attempt = 0
}
