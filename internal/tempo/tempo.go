// Package tempo implements the four-mode tempo abstraction shared by
// voices, groups, tempo contexts, and processes.
package tempo

import "fmt"

// Mode identifies which kind of entity owns (advances) a TempoState.
type Mode int

const (
	// TBD marks a TempoState that has not yet been initialized; a voice
	// in this mode has not been given an explicit tempo and will adopt
	// its group's tempo if it is later placed in one.
	TBD Mode = iota
	Voice
	Group
	Context
	Process
)

func (m Mode) String() string {
	switch m {
	case TBD:
		return "tbd"
	case Voice:
		return "voice"
	case Group:
		return "group"
	case Context:
		return "context"
	case Process:
		return "process"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Unit identifies how a tempo interval was expressed before conversion to
// samples.
type Unit int

const (
	Samples Unit = iota
	Millis
	Bpm
)

func (u Unit) String() string {
	switch u {
	case Samples:
		return "samples"
	case Millis:
		return "millis"
	case Bpm:
		return "bpm"
	default:
		return fmt.Sprintf("unit(%d)", int(u))
	}
}

// ToSamples converts interval, expressed in unit, to a sample count at
// the given sample rate.
func ToSamples(sampleRate uint32, unit Unit, interval float64) float64 {
	switch unit {
	case Millis:
		return float64(sampleRate) * interval / 1000.0
	case Bpm:
		return float64(sampleRate) * 60.0 / interval
	default: // Samples
		return interval
	}
}

// State is the fundamental timing primitive. Once Init has run,
// IntervalSamples is always expressed in samples regardless of the unit
// it was supplied in. CurrentSamples is a monotonically advancing sample
// counter (between resets); Current() returns the elapsed number of
// tempo periods as a float.
//
// State is mutated only by the audio thread; the command thread holds
// only value-copies (see internal/command.TempoRepr), never a *State.
type State struct {
	Mode            Mode
	Unit            Unit
	IntervalSamples float64
	Active          bool
	CurrentSamples  uint64
}

// New returns a State in the uninitialized TBD/Samples/0 state.
func New() *State {
	return &State{Mode: TBD, Unit: Samples}
}

// Init makes a State operational, converting interval into samples.
func (s *State) Init(mode Mode, unit Unit, sampleRate uint32, interval float64) {
	s.Mode = mode
	s.Unit = unit
	s.IntervalSamples = ToSamples(sampleRate, unit, interval)
}

// Current returns the elapsed number of tempo periods.
func (s *State) Current() float64 {
	if s.IntervalSamples <= 0 {
		return 0
	}
	return float64(s.CurrentSamples) / s.IntervalSamples
}

// Advance moves the sample counter forward by one sample. Only the
// entity that owns this State (mode matches the owner kind) should call
// Advance; see the engine's per-frame loop.
func (s *State) Advance() {
	s.CurrentSamples++
}

// Reset zeroes the sample counter without touching mode/unit/interval.
func (s *State) Reset() {
	s.CurrentSamples = 0
}

// Start, Pause, Resume, and Stop toggle Active. At the TempoState layer
// Start, Pause and Resume only set Active, so a paused tempo keeps its
// accumulated count; Stop also zeroes the counter via Reset. Resetting
// playback position happens at the voice/group/process layer.
func (s *State) Start() {
	s.Active = true
}

func (s *State) Stop() {
	s.Active = false
	s.Reset()
}

func (s *State) Pause() {
	s.Active = false
}

func (s *State) Resume() {
	s.Active = true
}
