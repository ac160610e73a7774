package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct{ t time.Time }

func (m *manualClock) now() time.Time { return m.t }
func (m *manualClock) advance(d time.Duration) { m.t = m.t.Add(d) }

func TestRateLimiterBudgetAndRefill(t *testing.T) {
	clock := &manualClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := newRateLimiter("write", LimitConfig{Requests: 3, Window: 3 * time.Minute})
	l.now = clock.now

	for i := 0; i < 3; i++ {
		ok, _ := l.reserve("10.0.0.1")
		require.True(t, ok, "request %d should pass", i)
	}
	ok, wait := l.reserve("10.0.0.1")
	assert.False(t, ok)
	assert.InDelta(t, time.Minute.Seconds(), wait.Seconds(), 1)

	// another client has its own bucket
	ok, _ = l.reserve("10.0.0.2")
	assert.True(t, ok)

	// a rejected request does not consume the refill
	clock.advance(time.Minute)
	ok, _ = l.reserve("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.reserve("10.0.0.1")
	assert.False(t, ok)
}

func TestRateLimiterSweepDropsIdleClients(t *testing.T) {
	clock := &manualClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := newRateLimiter("general", LimitConfig{Requests: 10, Window: time.Minute})
	l.now = clock.now

	l.reserve("a")
	clock.advance(30 * time.Minute)
	l.reserve("b")

	assert.Equal(t, 1, l.sweep(10*time.Minute))
	assert.Len(t, l.clients, 1)
	assert.Contains(t, l.clients, "b")
}

func TestRateLimitsDisabled(t *testing.T) {
	rl := newRateLimits(RateLimitConfig{Enabled: false})
	assert.Nil(t, rl)
	assert.Nil(t, rl.tier("general"))

	// a nil sweeper returns immediately
	rl.runSweeper(context.Background(), time.Millisecond, nil)
}

func TestRunSweeperStopsWithContext(t *testing.T) {
	rl := newRateLimits(RateLimitConfig{Enabled: true, General: LimitConfig{Requests: 1, Window: time.Second}, Write: LimitConfig{Requests: 1, Window: time.Second}, Clear: LimitConfig{Requests: 1, Window: time.Second}})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	swept := make(chan int, 1)
	go func() {
		rl.runSweeper(ctx, time.Millisecond, func(n int) {
			select {
			case swept <- n:
			default:
			}
		})
		close(done)
	}()
	select {
	case <-swept:
	case <-time.After(time.Second):
		t.Fatal("sweeper never ran")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
