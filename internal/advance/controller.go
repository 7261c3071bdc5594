package advance

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/khushi491/interview-buddy-sub000/internal/interview"
)

// DefaultDelay is the pause between a detected transition and the advance.
const DefaultDelay = 3000 * time.Millisecond

var (
	ErrEnded = errors.New("interview has ended")
	ErrBusy  = errors.New("section advance already in progress")
)

// Effects is implemented by the session that owns the interview state.
type Effects interface {
	// Advance calls ProgressToNextSection and returns the new section on success.
	Advance() (interview.Section, bool)
	// BeginSection asks the interviewer for the first question of section.
	BeginSection(ctx context.Context, section interview.Section) error
	// Persist stores the current progress; final marks the interview completed.
	Persist(ctx context.Context, final bool)
}

// Timer is the part of *time.Timer the controller uses.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d.
type Scheduler func(d time.Duration, f func()) Timer

func afterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Controller feeds events through Reduce and runs the resulting effects.
// Effects never run while mu is held.
type Controller struct {
	mu      sync.Mutex
	machine Machine
	timer   Timer
	gen     uint64

	enabled  bool
	delay    time.Duration
	schedule Scheduler
	effects  Effects
	logger   *slog.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithDelay overrides DefaultDelay.
func WithDelay(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d >= 0 {
			c.delay = d
		}
	}
}

// WithScheduler replaces time.AfterFunc.
func WithScheduler(s Scheduler) ControllerOption {
	return func(c *Controller) {
		if s != nil {
			c.schedule = s
		}
	}
}

// WithEnabled switches automatic advancing on or off. Manual continue always works.
func WithEnabled(enabled bool) ControllerOption {
	return func(c *Controller) {
		c.enabled = enabled
	}
}

func NewController(effects Effects, logger *slog.Logger, opts ...ControllerOption) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		machine:  NewMachine(),
		enabled:  true,
		delay:    DefaultDelay,
		schedule: afterFunc,
		effects:  effects,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether automatic advancing is on.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Phase
}

// Trigger says what started the current or last advance.
func (c *Controller) Trigger() Trigger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Trigger
}

// Observe reports an assistant message. The caller fills ContentOK and Signal; Enabled is
// taken from the controller.
func (c *Controller) Observe(ctx context.Context, msg MessageObserved) Phase {
	c.mu.Lock()
	msg.Enabled = c.enabled
	effects := c.reduceLocked(msg)
	phase := c.machine.Phase
	c.mu.Unlock()

	if len(effects) > 0 {
		c.logger.Debug("section transition scheduled", "delay", c.delay, "text_len", len(msg.Text))
	}
	c.run(ctx, effects)
	return phase
}

// Continue advances immediately, cancelling any scheduled auto-advance.
func (c *Controller) Continue(ctx context.Context) error {
	c.mu.Lock()
	switch c.machine.Phase {
	case PhaseEnded:
		c.mu.Unlock()
		return ErrEnded
	case PhaseAdvancing:
		c.mu.Unlock()
		return ErrBusy
	}
	effects := c.reduceLocked(ManualContinue{})
	c.mu.Unlock()

	c.run(ctx, effects)
	return nil
}

// Finish ends the interview. It is a no-op once ended.
func (c *Controller) Finish(ctx context.Context) {
	c.mu.Lock()
	effects := c.reduceLocked(Finish{})
	c.mu.Unlock()

	c.run(ctx, effects)
}

// Stop cancels a pending timer without ending the interview or persisting.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	if c.machine.Phase == PhaseScheduled {
		c.machine.Phase = PhaseIdle
		c.machine.ScheduledText = ""
	}
}

// reduceLocked applies ev and handles timer effects in place; the rest is returned.
func (c *Controller) reduceLocked(ev Event) []Effect {
	next, effects := Reduce(c.machine, ev)
	c.machine = next

	external := effects[:0:0]
	for _, e := range effects {
		switch e {
		case EffectStartTimer:
			c.startTimerLocked()
		case EffectCancelTimer:
			c.stopTimerLocked()
		default:
			external = append(external, e)
		}
	}
	return external
}

func (c *Controller) startTimerLocked() {
	c.stopTimerLocked()
	c.gen++
	gen := c.gen
	c.timer = c.schedule(c.delay, func() { c.fire(gen) })
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	effects := c.reduceLocked(TimerFired{})
	c.mu.Unlock()

	c.run(context.Background(), effects)
}

func (c *Controller) run(ctx context.Context, effects []Effect) {
	var (
		section  interview.Section
		advanced bool
	)
	for i := 0; i < len(effects); i++ {
		switch effects[i] {
		case EffectAdvance:
			section, advanced = c.effects.Advance()
			c.mu.Lock()
			trigger := c.machine.Trigger
			more := c.reduceLocked(Advanced{OK: advanced})
			c.mu.Unlock()
			c.logger.Info("section advance", "trigger", trigger, "ok", advanced, "section_id", section.ID)
			effects = append(effects, more...)
		case EffectBeginSection:
			if !advanced {
				continue
			}
			if err := c.effects.BeginSection(ctx, section); err != nil {
				c.logger.Error("begin section failed", "section_id", section.ID, "error", err)
			}
		case EffectPersist:
			c.effects.Persist(ctx, false)
		case EffectPersistFinal:
			c.effects.Persist(ctx, true)
		}
	}
}
