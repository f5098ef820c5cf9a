// Package mirror implements the command thread's name-addressed shadow
// of the engine (EngineState) and the command parser (Parser) that
// validates REPL input against it, producing index-addressed
// command.Command values for the audio thread.
package mirror

import "github.com/gitxandert/blastd/internal/command"

// TrackRepr is the mirror's record of a track: just its index, since a
// track's content is metadata-only for lookup purposes (SPEC_FULL.md §3).
type TrackRepr struct {
	Idx int
}

// ProcRepr is the mirror's record of a process attached to a voice or
// group. Only the fields common to every process kind are tracked here;
// per-kind parameters live only in the Command sent to the audio thread.
type ProcRepr struct {
	Idx      int
	OwnerIdx int // index of the owning voice/group in its ordered list
	Tempo    *command.TempoRepr
}

// VoiceRepr mirrors a live Voice: its index into the engine's ordered
// voice list, its tempo representation, and its attached processes.
type VoiceRepr struct {
	Idx       int
	Tempo     command.TempoRepr
	Processes map[string]*ProcRepr
	ProcTempi map[int]command.TempoRepr
}

func newVoiceRepr(idx int, tempo command.TempoRepr) *VoiceRepr {
	return &VoiceRepr{
		Idx:       idx,
		Tempo:     tempo,
		Processes: make(map[string]*ProcRepr),
		ProcTempi: make(map[int]command.TempoRepr),
	}
}

// GroupRepr mirrors a live Group: its index, tempo, and the VoiceReprs
// it now contains.
type GroupRepr struct {
	Idx    int
	Tempo  command.TempoRepr
	Voices map[string]*VoiceRepr
}

// EngineState is the command thread's shadow of the engine. The
// invariant in SPEC_FULL.md §3 ("index coherence") must hold for every
// Idx field here after every successful parse.
type EngineState struct {
	Tracks      map[string]TrackRepr
	Voices      map[string]*VoiceRepr
	Groups      map[string]*GroupRepr
	TempoCons   map[string]command.TempoRepr
	OutChannels int
}

// NewEngineState builds an EngineState from the startup track set
// (name -> index, in load order).
func NewEngineState(trackNames []string, outChannels int) *EngineState {
	tracks := make(map[string]TrackRepr, len(trackNames))
	for i, name := range trackNames {
		tracks[name] = TrackRepr{Idx: i}
	}
	return &EngineState{
		Tracks:      tracks,
		Voices:      make(map[string]*VoiceRepr),
		Groups:      make(map[string]*GroupRepr),
		TempoCons:   make(map[string]command.TempoRepr),
		OutChannels: outChannels,
	}
}
