package email

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerSender stops calling a failing provider for a cool-down period so a
// provider outage cannot slow down the requests that trigger notifications.
type BreakerSender struct {
	next Sender
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerSender wraps next. The circuit opens after three consecutive
// failures and half-opens after timeout.
func NewBreakerSender(next Sender, timeout time.Duration) *BreakerSender {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BreakerSender{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "email",
			MaxRequests: 3,
			Interval:    10 * time.Second,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("circuit_breaker", "name", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// Send forwards to the wrapped sender unless the circuit is open, in which
// case it fails fast with gobreaker.ErrOpenState.
func (b *BreakerSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Send(ctx, req)
	})
	if err != nil {
		return SendResult{}, err
	}
	return res.(SendResult), nil
}

// State reports the circuit state for diagnostics.
func (b *BreakerSender) State() gobreaker.State {
	return b.cb.State()
}
