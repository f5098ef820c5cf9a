// Package engine implements the realtime mixing engine: tracks, voices,
// groups, and the Conductor that drives them one output period at a time.
package engine

import (
	"fmt"

	"github.com/gitxandert/blastd/internal/command"
	"github.com/gitxandert/blastd/internal/process"
	"github.com/gitxandert/blastd/internal/tempo"
	"github.com/gitxandert/blastd/internal/track"
)

// Conductor owns every live engine entity — tracks, voices, groups, and
// free-standing tempo contexts — on the audio thread. It is never
// accessed from any other thread; commands reach it only as already
// validated command.Command values popped off the SPSC queue.
type Conductor struct {
	tracks      []*track.Track
	voices      []*Voice
	groups      []*Group
	tempoCons   []*tempo.State
	outChannels int
	sampleRate  uint32
}

// NewConductor builds a Conductor over the given tracks (index-addressed,
// in the same order commands reference them by TrackIdx).
func NewConductor(sampleRate uint32, outChannels int, tracks []*track.Track) *Conductor {
	return &Conductor{
		tracks:      tracks,
		outChannels: outChannels,
		sampleRate:  sampleRate,
	}
}

// Coordinate mixes frames frames of output into areas, one ChannelArea
// per output channel, implementing SPEC_FULL.md §4.3's per-frame,
// per-channel loop.
func (c *Conductor) Coordinate(areas []ChannelArea, offset, frames int) {
	for f := 0; f < frames; f++ {
		absolute := offset + f
		for ch := 0; ch < c.outChannels; ch++ {
			area := areas[ch]
			area.write(absolute, 0)

			for _, v := range c.voices {
				if v.Active {
					v.process(area, absolute, ch, c.outChannels)
				}
			}
			for _, g := range c.groups {
				if g.Active {
					g.process(area, absolute, ch, c.outChannels)
				}
			}
		}
	}
}

// Apply executes one validated command against the live engine.
// Quit is not handled here; the caller (the device run loop) observes
// the termination flag directly (see internal/device).
func (c *Conductor) Apply(cmd command.Command) error {
	switch cmd.Kind {
	case command.KindLoad:
		return c.load(cmd.Load)
	case command.KindStart:
		return c.toggle(cmd.StartStop, (*Voice).Start, (*Group).Start, (*tempo.State).Start)
	case command.KindPause:
		return c.toggle(cmd.StartStop, (*Voice).Pause, (*Group).Pause, (*tempo.State).Pause)
	case command.KindResume:
		return c.toggle(cmd.StartStop, (*Voice).Resume, (*Group).Resume, (*tempo.State).Resume)
	case command.KindStop:
		return c.toggle(cmd.StartStop, (*Voice).Stop, (*Group).Stop, (*tempo.State).Stop)
	case command.KindUnload:
		return c.unload(cmd.Unload)
	case command.KindVelocity:
		return c.velocity(cmd.Velocity)
	case command.KindGroup:
		return c.group(cmd.Group)
	case command.KindTc:
		return c.tc(cmd.Tc)
	case command.KindSeq:
		return c.seq(cmd.Seq)
	case command.KindQuit:
		return nil
	default:
		return fmt.Errorf("engine: unknown command kind %d", cmd.Kind)
	}
}

func (c *Conductor) load(args command.LoadArgs) error {
	if args.TrackIdx < 0 || args.TrackIdx >= len(c.tracks) {
		return fmt.Errorf("engine: load: track index %d out of range", args.TrackIdx)
	}
	ts := c.tempoFromRepr(args.Tempo)
	c.voices = append(c.voices, NewVoice(c.tracks[args.TrackIdx], ts))
	return nil
}

func (c *Conductor) toggle(args command.StartStopArgs, onVoice func(*Voice), onGroup func(*Group), onTempo func(*tempo.State)) error {
	switch args.Target {
	case command.TargetVoice:
		v, err := c.voiceAt(args.Idx)
		if err != nil {
			return err
		}
		onVoice(v)
	case command.TargetGroup:
		g, err := c.groupAt(args.Idx)
		if err != nil {
			return err
		}
		onGroup(g)
	case command.TargetTempo:
		ts, err := c.tempoContextAt(args.Idx)
		if err != nil {
			return err
		}
		onTempo(ts)
	}
	return nil
}

func (c *Conductor) unload(args command.UnloadArgs) error {
	if args.Idx < 0 || args.Idx >= len(c.voices) {
		return fmt.Errorf("engine: unload: voice index %d out of range", args.Idx)
	}
	c.voices = append(c.voices[:args.Idx], c.voices[args.Idx+1:]...)
	return nil
}

func (c *Conductor) velocity(args command.VelocityArgs) error {
	v, err := c.voiceAt(args.Idx)
	if err != nil {
		return err
	}
	v.Velocity = float32(args.Value)
	return nil
}

// group implements SPEC_FULL.md §4.3's Group command: voices are removed
// in the descending order the parser already sorted VoiceIdxs into, so
// the shift-down of remaining indices caused by each removal never
// invalidates a later index in the same batch.
func (c *Conductor) group(args command.GroupArgs) error {
	ts := c.tempoFromRepr(args.Tempo)

	voices := make([]*Voice, len(args.VoiceIdxs))
	for i, idx := range args.VoiceIdxs {
		if idx < 0 || idx >= len(c.voices) {
			return fmt.Errorf("engine: group: voice index %d out of range", idx)
		}
		v := c.voices[idx]
		c.voices = append(c.voices[:idx], c.voices[idx+1:]...)

		if args.Inherit[i] {
			v.Tempo = ts
			for pi := range v.Processes {
				v.Processes[pi].Seq.Tempo = ts
			}
		}
		voices[i] = v
	}

	// args.VoiceIdxs is highest-first; place voices back in the caller's
	// originally given order, which is the reverse of removal order.
	ordered := make([]*Voice, len(voices))
	for i, v := range voices {
		ordered[len(voices)-1-i] = v
	}

	c.groups = append(c.groups, NewGroup(ordered, ts))
	return nil
}

func (c *Conductor) tc(args command.TcArgs) error {
	ts := tempo.New()
	ts.Init(tempo.Context, args.Unit, c.sampleRate, args.Interval)
	c.tempoCons = append(c.tempoCons, ts)
	return nil
}

func (c *Conductor) seq(args command.SeqArgs) error {
	ts := c.tempoFromRepr(args.Tempo)
	owned := args.Tempo.Owned

	seq := process.NewSeq(ts, owned, args.Period, args.Steps, args.Chance, args.Jit)
	seq.Active = true
	p := process.Process{Kind: process.KindSeq, Seq: *seq}

	switch args.Target {
	case command.TargetVoice:
		v, err := c.voiceAt(args.Idx)
		if err != nil {
			return err
		}
		v.Processes = append(v.Processes, p)
		if args.Tempo.Mode == tempo.Process {
			v.ProcTempi = append(v.ProcTempi, ts)
		}
	case command.TargetGroup:
		g, err := c.groupAt(args.Idx)
		if err != nil {
			return err
		}
		g.Processes = append(g.Processes, p)
	default:
		return fmt.Errorf("engine: seq: invalid target %d", args.Target)
	}
	return nil
}

// tempoFromRepr converts a command.TempoRepr into a live *tempo.State,
// per SPEC_FULL.md §4.3's conversion rule: owned reprs allocate a new
// State; unowned reprs share the referenced voice/group/context's State.
func (c *Conductor) tempoFromRepr(tr command.TempoRepr) *tempo.State {
	if tr.Owned {
		ts := tempo.New()
		ts.Init(tr.Mode, tr.Unit, c.sampleRate, tr.Interval)
		return ts
	}

	switch tr.Mode {
	case tempo.Voice:
		if tr.RefIdx >= 0 && tr.RefIdx < len(c.voices) {
			return c.voices[tr.RefIdx].Tempo
		}
	case tempo.Group:
		if tr.RefIdx >= 0 && tr.RefIdx < len(c.groups) {
			return c.groups[tr.RefIdx].Tempo
		}
	case tempo.Context:
		if tr.RefIdx >= 0 && tr.RefIdx < len(c.tempoCons) {
			return c.tempoCons[tr.RefIdx]
		}
	}
	// Process/TBD never borrow from another process; fall back to a
	// fresh, uninitialized state rather than a nil pointer.
	return tempo.New()
}

func (c *Conductor) voiceAt(idx int) (*Voice, error) {
	if idx < 0 || idx >= len(c.voices) {
		return nil, fmt.Errorf("engine: voice index %d out of range", idx)
	}
	return c.voices[idx], nil
}

func (c *Conductor) groupAt(idx int) (*Group, error) {
	if idx < 0 || idx >= len(c.groups) {
		return nil, fmt.Errorf("engine: group index %d out of range", idx)
	}
	return c.groups[idx], nil
}

func (c *Conductor) tempoContextAt(idx int) (*tempo.State, error) {
	if idx < 0 || idx >= len(c.tempoCons) {
		return nil, fmt.Errorf("engine: tempo context index %d out of range", idx)
	}
	return c.tempoCons[idx], nil
}

// Voices exposes the live voice list for tests and diagnostics.
func (c *Conductor) Voices() []*Voice { return c.voices }

// Groups exposes the live group list for tests and diagnostics.
func (c *Conductor) Groups() []*Group { return c.groups }

// TempoContexts exposes the live tempo-context list for tests and
// diagnostics.
func (c *Conductor) TempoContexts() []*tempo.State { return c.tempoCons }
