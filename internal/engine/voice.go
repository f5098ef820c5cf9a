package engine

import (
	"github.com/gitxandert/blastd/internal/process"
	"github.com/gitxandert/blastd/internal/tempo"
	"github.com/gitxandert/blastd/internal/track"
)

// Voice is a playing instance of a track. It is owned exclusively by the
// Conductor on the audio thread; see SPEC_FULL.md §3.
type Voice struct {
	track *track.Track

	Active   bool
	Position float32 // fractional sample index into the track
	End      int      // exclusive upper bound of valid positions
	Velocity float32
	Gain     float32
	Tempo    *tempo.State

	Processes []process.Process
	ProcTempi []*tempo.State // TempoMode == Process, owned by a process
}

// NewVoice builds a voice over t with tempoState as its tempo reference
// (owned or shared, per the TempoRepr conversion rule in §4.3).
func NewVoice(t *track.Track, tempoState *tempo.State) *Voice {
	return &Voice{
		track:    t,
		Position: 0,
		End:      t.FrameCount,
		Velocity: 1.0,
		Gain:     1.0,
		Tempo:    tempoState,
	}
}

// Retrigger implements process.Retriggerable: reset this voice's
// position to the start of the track (forward playback) or its end
// (reverse playback), per SPEC_FULL.md §4.3 step 9 / §4.5.
func (v *Voice) Retrigger() {
	if v.Velocity >= 0 {
		v.Position = 0
	} else {
		v.Position = float32(v.End)
	}
}

// Start activates the voice, resets every attached process, starts its
// own tempo if it owns one, starts every process-owned tempo, and resets
// position per Retrigger's rule.
func (v *Voice) Start() {
	v.Active = true

	for i := range v.Processes {
		v.Processes[i].Reset()
	}

	if v.Tempo != nil && (v.Tempo.Mode == tempo.Voice || v.Tempo.Mode == tempo.TBD) {
		v.Tempo.Start()
	}

	for _, pt := range v.ProcTempi {
		pt.Start()
	}

	v.Retrigger()
}

// Pause deactivates the voice without resetting anything; Resume
// reverses it. Neither touches tempo or process state, matching the
// source's pause/resume semantics (only Start/Stop reset).
func (v *Voice) Pause() {
	v.Active = false
}

func (v *Voice) Resume() {
	v.Active = true
}

// Stop deactivates the voice, resets every attached process, stops its
// own tempo if it owns one, stops and resets every process-owned tempo,
// and resets position.
func (v *Voice) Stop() {
	v.Active = false

	for i := range v.Processes {
		v.Processes[i].Reset()
	}

	if v.Tempo != nil && (v.Tempo.Mode == tempo.Voice || v.Tempo.Mode == tempo.TBD) {
		v.Tempo.Stop()
	}

	for _, pt := range v.ProcTempi {
		pt.Stop()
	}

	v.Retrigger()
}

// process runs this voice's per-frame, per-channel step (SPEC_FULL.md
// §4.3's "Voice processing step"): advance processes and owned tempos,
// compute (or skip) this sample, and mix it into acc at frame.
func (v *Voice) process(acc ChannelArea, frame int, ch, outChannels int) {
	if !v.Active {
		return
	}

	for i := range v.Processes {
		v.Processes[i].Step(v)
	}

	if v.Tempo != nil && (v.Tempo.Mode == tempo.Voice || v.Tempo.Mode == tempo.TBD) {
		v.Tempo.Advance()
	}
	for _, pt := range v.ProcTempi {
		pt.Advance()
	}

	idx := int(v.Position)
	if v.Position < 0 || idx >= v.End {
		v.advancePosition(ch, outChannels)
		return
	}

	trackCh, ok := v.routeChannel(ch)
	if !ok {
		v.advancePosition(ch, outChannels)
		return
	}

	var sample float32
	s0 := float32(v.track.Sample(idx, trackCh))
	if v.Velocity != 1.0 {
		frac := v.Position - float32(idx)
		s1 := float32(v.track.Sample(idx+1, trackCh))
		sample = s0*(1-frac) + s1*frac
	} else {
		sample = s0
	}

	acc.add(frame, clampI16(sample*v.Gain))
	v.advancePosition(ch, outChannels)
}

// routeChannel implements §4.3 step 6: mono tracks feed output channels
// 0 and 1 identically and nothing past that; stereo tracks feed channel
// ch directly and nothing past their own channel count.
func (v *Voice) routeChannel(ch int) (trackCh uint32, ok bool) {
	if v.track.Channels == 1 {
		if ch < 2 {
			return 0, true
		}
		return 0, false
	}
	if ch >= int(v.track.Channels) {
		return 0, false
	}
	return uint32(ch), true
}

// advancePosition implements §4.3 step 9: position only moves once per
// frame, on the last output channel.
func (v *Voice) advancePosition(ch, outChannels int) {
	if ch == outChannels-1 {
		v.Position += v.Velocity
	}
}

func clampI16(v float32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
