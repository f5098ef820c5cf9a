package engine

import (
	"github.com/gitxandert/blastd/internal/process"
	"github.com/gitxandert/blastd/internal/tempo"
)

// Group is a collection of voices that share a TempoState and may host
// their own processes. Owned exclusively by the Conductor.
type Group struct {
	Active bool
	Gain   float32
	Tempo  *tempo.State

	Voices    []*Voice
	Processes []process.Process
}

// NewGroup builds a group from voices already removed from the
// top-level voice list, sharing tempoState.
func NewGroup(voices []*Voice, tempoState *tempo.State) *Group {
	return &Group{
		Gain:   1.0,
		Tempo:  tempoState,
		Voices: voices,
	}
}

func (g *Group) Start() {
	g.Active = true

	if g.Tempo != nil && g.Tempo.Mode == tempo.Group {
		g.Tempo.Active = true
		g.Tempo.Reset()
	}

	for _, v := range g.Voices {
		v.Start()
	}
}

// Pause deactivates the group only; voices remain individually active
// but contribute nothing because the group no longer calls their
// process step.
func (g *Group) Pause() {
	g.Active = false
}

func (g *Group) Resume() {
	g.Active = true
}

func (g *Group) Stop() {
	g.Active = false

	for _, v := range g.Voices {
		v.Active = false
	}

	if g.Tempo != nil && g.Tempo.Mode == tempo.Group {
		g.Tempo.Active = false
		g.Tempo.Reset()
	}
}

func (g *Group) process(acc ChannelArea, frame int, ch, outChannels int) {
	if !g.Active {
		return
	}

	for _, v := range g.Voices {
		v.process(acc, frame, ch, outChannels)
	}

	if g.Tempo != nil && g.Tempo.Mode == tempo.Group {
		g.Tempo.Advance()
	}
}
