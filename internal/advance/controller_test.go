package advance

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khushi491/interview-buddy-sub000/internal/interview"
)

type fakeTimer struct {
	f       func()
	d       time.Duration
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) schedule(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{f: f, d: d}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) last() *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

type fakeEffects struct {
	sections []interview.Section
	idx      int
	begun    []string
	persists []bool
}

func (e *fakeEffects) Advance() (interview.Section, bool) {
	if e.idx+1 >= len(e.sections) {
		return interview.Section{}, false
	}
	e.idx++
	return e.sections[e.idx], true
}

func (e *fakeEffects) BeginSection(_ context.Context, s interview.Section) error {
	e.begun = append(e.begun, s.ID)
	return nil
}

func (e *fakeEffects) Persist(_ context.Context, final bool) {
	e.persists = append(e.persists, final)
}

func newTestController(opts ...ControllerOption) (*Controller, *fakeEffects, *fakeScheduler) {
	effects := &fakeEffects{sections: []interview.Section{{ID: "intro"}, {ID: "tech"}}}
	sched := &fakeScheduler{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]ControllerOption{WithScheduler(sched.schedule)}, opts...)
	return NewController(effects, logger, opts...), effects, sched
}

func TestControllerAutoAdvance(t *testing.T) {
	c, effects, sched := newTestController()
	ctx := context.Background()

	phase := c.Observe(ctx, MessageObserved{Key: "1", Text: "moving on", ContentOK: true, Signal: true})
	assert.Equal(t, PhaseScheduled, phase)

	timer := sched.last()
	require.NotNil(t, timer)
	assert.Equal(t, DefaultDelay, timer.d)
	assert.Empty(t, effects.begun)

	timer.f()

	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Equal(t, []string{"tech"}, effects.begun)
	assert.Equal(t, []bool{false}, effects.persists)
}

func TestControllerLastSectionEnds(t *testing.T) {
	c, effects, sched := newTestController(WithDelay(10 * time.Millisecond))
	ctx := context.Background()

	require.NoError(t, c.Continue(ctx))
	c.Observe(ctx, MessageObserved{Key: "1", Text: "wrap it up", ContentOK: true, Signal: true})
	assert.Equal(t, 10*time.Millisecond, sched.last().d)
	sched.last().f()

	assert.Equal(t, PhaseEnded, c.Phase())
	assert.Equal(t, []bool{false, true}, effects.persists)
	assert.ErrorIs(t, c.Continue(ctx), ErrEnded)
}

func TestControllerManualContinueCancelsTimer(t *testing.T) {
	c, effects, sched := newTestController()
	ctx := context.Background()

	c.Observe(ctx, MessageObserved{Key: "1", Text: "next please", ContentOK: true, Signal: true})
	timer := sched.last()

	require.NoError(t, c.Continue(ctx))
	assert.True(t, timer.stopped)
	assert.Equal(t, []string{"tech"}, effects.begun)

	// a stale callback must not advance again
	timer.f()
	assert.Equal(t, []string{"tech"}, effects.begun)
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestControllerFinishCancelsTimer(t *testing.T) {
	c, effects, sched := newTestController()
	ctx := context.Background()

	c.Observe(ctx, MessageObserved{Key: "1", Text: "next", ContentOK: true, Signal: true})
	c.Finish(ctx)

	assert.True(t, sched.last().stopped)
	sched.last().f()
	assert.Empty(t, effects.begun)
	assert.Equal(t, []bool{true}, effects.persists)

	c.Finish(ctx)
	assert.Equal(t, []bool{true}, effects.persists)
}

func TestControllerDisabledNeverSchedules(t *testing.T) {
	c, _, sched := newTestController(WithEnabled(false))

	phase := c.Observe(context.Background(), MessageObserved{Key: "1", Text: "next", ContentOK: true, Signal: true})
	assert.Equal(t, PhaseIdle, phase)
	assert.Nil(t, sched.last())
	assert.False(t, c.Enabled())
}

func TestControllerStop(t *testing.T) {
	c, effects, sched := newTestController()
	ctx := context.Background()

	c.Observe(ctx, MessageObserved{Key: "1", Text: "next", ContentOK: true, Signal: true})
	c.Stop()
	sched.last().f()

	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Empty(t, effects.begun)
	assert.Empty(t, effects.persists)
}

func TestGate(t *testing.T) {
	g := NewGate(0, nil)

	assert.False(t, g.Allow("  "))
	assert.False(t, g.Allow("yes"))
	assert.True(t, g.Allow("I designed the payment reconciliation service"))

	short := NewGate(3, nil)
	assert.False(t, short.Allow("I'm ready!"))
	assert.False(t, short.Allow("Hello"))
	assert.True(t, short.Allow("Mostly Go and Postgres"))
}
