package security

import (
	"crypto"
	"time"
)

// DefaultClockSkew is the maximum accepted distance between a response Date
// header and the local clock
const DefaultClockSkew = 5 * time.Minute

// VerifierConfig holds the settings of a Verifier
type VerifierConfig struct {
	Hash      crypto.Hash
	ClockSkew time.Duration
	Now       func() time.Time
}

// Option represents a functional option for VerifierConfig
type Option func(*VerifierConfig)

// NewVerifierConfig creates a verifier configuration with defaults applied
func NewVerifierConfig(opts ...Option) *VerifierConfig {
	cfg := &VerifierConfig{
		Hash:      crypto.SHA256,
		ClockSkew: DefaultClockSkew,
		Now:       time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithClockSkew sets the accepted Date header skew
func WithClockSkew(d time.Duration) Option {
	return func(cfg *VerifierConfig) {
		cfg.ClockSkew = d
	}
}

// WithClock sets the clock used for Date header checks
func WithClock(now func() time.Time) Option {
	return func(cfg *VerifierConfig) {
		cfg.Now = now
	}
}
