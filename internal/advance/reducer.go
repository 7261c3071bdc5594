// Package advance turns "the section looks finished" into an actual section change.
//
// Transitions are a pure reducer over Machine; Controller runs the effects it returns.
package advance

// Phase of the auto-advance machine.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseScheduled Phase = "scheduled"
	PhaseAdvancing Phase = "advancing"
	PhaseEnded     Phase = "ended"
)

// Effect is a side effect requested by Reduce.
type Effect string

const (
	EffectStartTimer   Effect = "start_timer"
	EffectCancelTimer  Effect = "cancel_timer"
	EffectAdvance      Effect = "advance"
	EffectBeginSection Effect = "begin_section"
	EffectPersist      Effect = "persist"
	EffectPersistFinal Effect = "persist_final"
)

// Trigger records why an advance happened.
type Trigger string

const (
	TriggerAuto   Trigger = "auto"
	TriggerManual Trigger = "manual"
)

// Machine is the orchestration state. The zero value is not ready; use NewMachine.
type Machine struct {
	Phase         Phase
	Trigger       Trigger
	ScheduledText string
	// processed holds the message keys seen in the current section.
	processed map[string]struct{}
}

// NewMachine returns an idle machine.
func NewMachine() Machine {
	return Machine{Phase: PhaseIdle, processed: make(map[string]struct{})}
}

// Processed reports whether the message key has been seen.
func (m Machine) Processed(key string) bool {
	_, ok := m.processed[key]
	return ok
}

// Event is an input to Reduce.
type Event interface {
	isEvent()
}

// MessageObserved is a new assistant message with the decisions the caller made about it.
type MessageObserved struct {
	Key       string // message id + text
	Text      string
	Enabled   bool // auto-advance switched on
	ContentOK bool // candidate's last reply passed the minimum-content gate
	Signal    bool // detector or section heuristic fired
}

// TimerFired is delivered when the scheduled delay elapses.
type TimerFired struct{}

// Advanced reports the result of ProgressToNextSection.
type Advanced struct {
	OK bool
}

// ManualContinue is the "continue to next section" action.
type ManualContinue struct{}

// Finish ends the interview.
type Finish struct{}

func (MessageObserved) isEvent() {}
func (TimerFired) isEvent()      {}
func (Advanced) isEvent()        {}
func (ManualContinue) isEvent()  {}
func (Finish) isEvent()          {}

// Reduce applies ev to m. It never mutates m's processed set in place.
func Reduce(m Machine, ev Event) (Machine, []Effect) {
	if m.Phase == PhaseEnded {
		return m, nil
	}

	switch e := ev.(type) {
	case MessageObserved:
		if m.Phase != PhaseIdle || m.Processed(e.Key) {
			return m, nil
		}
		m.processed = withKey(m.processed, e.Key)
		if !e.Enabled || !e.ContentOK || !e.Signal {
			return m, nil
		}
		m.Phase = PhaseScheduled
		m.Trigger = TriggerAuto
		m.ScheduledText = e.Text
		return m, []Effect{EffectStartTimer}

	case TimerFired:
		if m.Phase != PhaseScheduled {
			return m, nil
		}
		m.Phase = PhaseAdvancing
		return m, []Effect{EffectAdvance}

	case ManualContinue:
		switch m.Phase {
		case PhaseIdle:
			m.Phase = PhaseAdvancing
			m.Trigger = TriggerManual
			return m, []Effect{EffectAdvance}
		case PhaseScheduled:
			m.Phase = PhaseAdvancing
			m.Trigger = TriggerManual
			return m, []Effect{EffectCancelTimer, EffectAdvance}
		}
		return m, nil

	case Advanced:
		if m.Phase != PhaseAdvancing {
			return m, nil
		}
		if !e.OK {
			m.Phase = PhaseEnded
			return m, []Effect{EffectPersistFinal}
		}
		// a new section starts with a clean slate
		m.ScheduledText = ""
		m.processed = make(map[string]struct{})
		m.Phase = PhaseIdle
		return m, []Effect{EffectBeginSection, EffectPersist}

	case Finish:
		var effects []Effect
		if m.Phase == PhaseScheduled {
			effects = append(effects, EffectCancelTimer)
		}
		m.Phase = PhaseEnded
		m.ScheduledText = ""
		return m, append(effects, EffectPersistFinal)
	}

	return m, nil
}

func withKey(set map[string]struct{}, key string) map[string]struct{} {
	next := make(map[string]struct{}, len(set)+1)
	for k := range set {
		next[k] = struct{}{}
	}
	next[key] = struct{}{}
	return next
}
