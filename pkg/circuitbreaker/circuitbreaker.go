// Package circuitbreaker is a thin typed wrapper around sony/gobreaker used
// by outbound clients.
package circuitbreaker

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

var ErrUnavailable = errors.New("circuit breaker open")

type Config struct {
	Name string
	// ConsecutiveFailures trips the breaker once reached.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests uint32
	// Interval resets closed-state counts; zero keeps them until a trip.
	Interval time.Duration
	// IsSuccessful reports whether an error should count as a success,
	// e.g. a not-found answer from a healthy dependency.
	IsSuccessful func(err error) bool
}

func DefaultConfig(name string) Config {
	return Config{
		Name:                name,
		ConsecutiveFailures: 5,
		OpenTimeout:         10 * time.Second,
		HalfOpenRequests:    1,
	}
}

type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

func New[T any](cfg Config, log *slog.Logger) *Breaker[T] {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if log == nil {
		log = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	if cfg.IsSuccessful != nil {
		settings.IsSuccessful = func(err error) bool {
			return err == nil || cfg.IsSuccessful(err)
		}
	}

	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn through the breaker. Rejections caused by an open or
// saturated breaker are reported as ErrUnavailable.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, errors.Join(ErrUnavailable, err)
	}
	return v, err
}

func (b *Breaker[T]) State() string {
	return b.cb.State().String()
}
