// Package pacing spaces outbound provider calls so batch refreshes stay under
// each upstream API's request quota.
package pacing

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/stockwatch/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Default minimum spacing between consecutive calls per provider
const (
	DefaultGlobalInterval   = 12 * time.Second
	DefaultRegionalInterval = 1 * time.Second
)

// WorkFunc processes one symbol. Its error is the caller's concern; the
// pacer only reacts to context cancellation.
type WorkFunc func(ctx context.Context, symbol string)

type lane struct {
	mu       sync.Mutex
	interval time.Duration
	limiter  *rate.Limiter
}

// Pacer serializes work per provider and separates consecutive starts by at
// least the provider's interval
type Pacer struct {
	lanes map[domain.ProviderKind]*lane
	log   zerolog.Logger
}

// New creates a pacer with one lane per configured provider
func New(intervals map[domain.ProviderKind]time.Duration, log zerolog.Logger) *Pacer {
	p := &Pacer{
		lanes: make(map[domain.ProviderKind]*lane, len(intervals)),
		log:   log.With().Str("component", "pacer").Logger(),
	}
	for kind, interval := range intervals {
		p.lanes[kind] = &lane{interval: interval, limiter: rate.NewLimiter(rate.Every(interval), 1)}
	}
	return p
}

// NewDefault creates a pacer with the default provider intervals
func NewDefault(log zerolog.Logger) *Pacer {
	return New(map[domain.ProviderKind]time.Duration{
		domain.ProviderGlobal:   DefaultGlobalInterval,
		domain.ProviderRegional: DefaultRegionalInterval,
	}, log)
}

// Interval returns the spacing configured for provider, or 0 if unpaced
func (p *Pacer) Interval(provider domain.ProviderKind) time.Duration {
	l, ok := p.lanes[provider]
	if !ok {
		return 0
	}
	return l.interval
}

// Wait blocks until provider's next slot. Work running inside
// ForEachSequential uses it to pace a follow-up call to the same provider,
// so every upstream request is spaced rather than every symbol. Providers
// without a lane never wait.
func (p *Pacer) Wait(ctx context.Context, provider domain.ProviderKind) error {
	l, ok := p.lanes[provider]
	if !ok {
		return nil
	}
	return waitSlot(ctx, l.limiter)
}

// waitSlot reports ctx's error when the limiter gives up, including when the
// next slot lies past the deadline
func waitSlot(ctx context.Context, limiter *rate.Limiter) error {
	if err := limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return context.DeadlineExceeded
	}
	return nil
}

// ForEachSequential invokes work once per symbol, one at a time, waiting on
// the provider's limiter before each start. Concurrent calls for the same
// provider queue behind each other. Providers without a lane run unpaced.
//
// When ctx is cancelled the loop stops and the symbols never started are
// returned as skipped together with ctx.Err().
func (p *Pacer) ForEachSequential(ctx context.Context, provider domain.ProviderKind, symbols []string, work WorkFunc) ([]string, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	l, ok := p.lanes[provider]
	if !ok {
		p.log.Warn().Str("provider", string(provider)).Msg("No pacing configured for provider")
		l = &lane{limiter: rate.NewLimiter(rate.Inf, 1)}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for i, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return append([]string(nil), symbols[i:]...), err
		}

		if err := waitSlot(ctx, l.limiter); err != nil {
			return append([]string(nil), symbols[i:]...), err
		}

		p.log.Debug().
			Str("provider", string(provider)).
			Str("symbol", symbol).
			Int("position", i+1).
			Int("total", len(symbols)).
			Msg("Pacing slot acquired")

		work(ctx, symbol)
	}

	return nil, nil
}
