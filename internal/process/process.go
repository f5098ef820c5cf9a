// Package process implements processes that drive voices and groups —
// currently only the step sequencer (Seq). Process is represented as a
// tagged struct rather than an interface so the realtime mixing loop
// never pays for dynamic dispatch.
package process

import (
	"github.com/gitxandert/blastd/internal/prng"
	"github.com/gitxandert/blastd/internal/tempo"
)

// Kind discriminates which process variant is populated.
type Kind int

const (
	KindSeq Kind = iota
)

// Retriggerable is the minimal surface a Process needs from its owner
// (a Voice) to act on a fired step: reset playback position to the
// start of the track (forward) or the end (reverse), per SPEC_FULL.md
// §4.3 step 9 / §4.5.
type Retriggerable interface {
	Retrigger()
}

// Process is owned by exactly one voice or group (see SPEC_FULL.md §3).
// Only the field matching Kind is meaningful.
type Process struct {
	Kind Kind
	Seq  Seq
}

// Step advances this process by one sample and, if it triggers, calls
// target.Retrigger(). It returns true if a retrigger happened this
// sample.
func (p *Process) Step(target Retriggerable) bool {
	switch p.Kind {
	case KindSeq:
		return p.Seq.step(target)
	default:
		return false
	}
}

// Reset returns the process to its initial step.
func (p *Process) Reset() {
	switch p.Kind {
	case KindSeq:
		p.Seq.reset()
	}
}

// OwnsTempo reports whether this process allocated its own TempoState
// (as opposed to referencing its owner's or a shared context's). The
// voice/group that owns this process must advance an owned TempoState
// once per sample; a shared one is advanced by whoever owns it.
func (p *Process) OwnsTempo() bool {
	switch p.Kind {
	case KindSeq:
		return p.Seq.TempoOwned
	default:
		return false
	}
}

// Tempo returns the TempoState this process reads its clock from.
func (p *Process) Tempo() *tempo.State {
	switch p.Kind {
	case KindSeq:
		return p.Seq.Tempo
	default:
		return nil
	}
}

// Seq is a step sequencer: on each sample it checks whether the tempo,
// reduced modulo Period, has newly crossed the next scheduled step, and
// if so draws against Chance to decide whether to retrigger.
//
// SPEC_FULL.md §9 open question: the source compares the period-modulated
// tempo to steps[idx] by exact float equality, which will almost never
// hold at realistic sample rates. This is implemented as a threshold
// crossing instead — idx / lastT track whether the current step
// has already fired this bar so a step fires exactly once as the tempo
// value sweeps past it, not on every sample past the threshold.
type Seq struct {
	Active     bool
	Tempo      *tempo.State
	TempoOwned bool

	Period int
	Steps  []float64
	Chance []float64
	Jit    []float64 // parsed, stored, never consulted — reserved (§9, §12)

	idx   int
	lastT float64

	rng *prng.X128P
}

// NewSeq builds a Seq with a fresh, fast-seeded PRNG.
func NewSeq(tempoState *tempo.State, tempoOwned bool, period int, steps, chance, jit []float64) *Seq {
	return &Seq{
		Tempo:      tempoState,
		TempoOwned: tempoOwned,
		Period:     period,
		Steps:      steps,
		Chance:     chance,
		Jit:        jit,
		rng:        prng.NewFastSeeded(),
	}
}

func (s *Seq) step(target Retriggerable) bool {
	if !s.Active || s.Tempo == nil || !s.Tempo.Active || len(s.Steps) == 0 {
		return false
	}

	periodCount := float64(s.Period)
	if periodCount <= 0 {
		periodCount = 1
	}

	absolute := s.Tempo.Current()
	t := fmod(absolute, periodCount)

	// A decrease in t (other than the step's own small per-sample
	// advance) means the bar wrapped; the next step to check is still
	// s.Steps[s.idx], now awaited in the new bar.
	wrapped := t < s.lastT
	s.lastT = t

	stepPos := s.Steps[s.idx]
	fired := false
	if t >= stepPos && (wrapped || t-stepPos < periodCount/2) {
		draw := s.rng.NextI64Range(0, 100)
		if draw < int64(s.Chance[s.idx]) {
			target.Retrigger()
			fired = true
		}
		s.idx = (s.idx + 1) % len(s.Steps)
	}

	return fired
}

func fmod(x, m float64) float64 {
	if m <= 0 {
		return 0
	}
	q := float64(int64(x / m))
	r := x - q*m
	if r < 0 {
		r += m
	}
	return r
}

func (s *Seq) reset() {
	s.idx = 0
	s.lastT = 0
}
