package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/stockwatch/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	block chan struct{}
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	if j.block != nil {
		<-j.block
	}
	return j.err
}

func TestAddJobInvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a schedule", &countingJob{name: "bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestScheduledJobRuns(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "tick"}
	require.NoError(t, s.AddJob("* * * * * *", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop())

	ok := &countingJob{name: "ok"}
	require.NoError(t, s.RunNow(ok))
	assert.Equal(t, int32(1), ok.runs.Load())

	failing := &countingJob{name: "failing", err: errors.New("boom")}
	assert.EqualError(t, s.RunNow(failing), "boom")
}

func TestRunNowSkipsOverlappingRun(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "slow", block: make(chan struct{})}

	done := make(chan error, 1)
	go func() { done <- s.RunNow(job) }()
	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	err := s.RunNow(job)
	assert.ErrorIs(t, err, ErrJobRunning{Job: "slow"})

	close(job.block)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), job.runs.Load())

	// Released once the first run finished
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int32(2), job.runs.Load())
}

func TestMarketCalendarWeekends(t *testing.T) {
	mc := NewMarketCalendar(zerolog.Nop())

	saturday := time.Date(2026, 10, 17, 15, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)

	assert.False(t, mc.IsTradingDay(domain.ProviderGlobal, saturday))
	assert.False(t, mc.IsTradingDay(domain.ProviderRegional, sunday))
	assert.False(t, mc.AnyTradingDay(sunday))
	assert.True(t, mc.IsTradingDay(domain.ProviderGlobal, monday))
	assert.True(t, mc.AnyTradingDay(monday))
}

func TestMarketCalendarFallbackUsesExchangeTimezone(t *testing.T) {
	mc := &MarketCalendar{exchanges: map[domain.ProviderKind]exchangeCalendar{
		domain.ProviderRegional: {loc: fallbackZones[domain.ProviderRegional]},
	}}

	// Friday evening UTC is already Saturday in India
	fridayUTC := time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC)
	assert.False(t, mc.IsTradingDay(domain.ProviderRegional, fridayUTC))

	fridayMorningUTC := time.Date(2026, 10, 16, 5, 0, 0, 0, time.UTC)
	assert.True(t, mc.IsTradingDay(domain.ProviderRegional, fridayMorningUTC))

	// Unknown providers are never blocked
	assert.True(t, mc.IsTradingDay(domain.ProviderKind("other"), fridayUTC))
}
