package game

import (
	"math/rand"
	"time"
)

type options struct {
	policy ScoringPolicy
	now    func() time.Time
	rng    *rand.Rand
}

// Option customises a session.
type Option func(*options)

func WithPolicy(p ScoringPolicy) Option {
	return func(o *options) {
		if p != nil {
			o.policy = p
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rng = r }
}

func buildOptions(opts []Option) options {
	o := options{
		policy: DefaultPolicy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(o.now().UnixNano()))
	}
	return o
}
