package engine

import (
	"testing"

	"github.com/gitxandert/blastd/internal/command"
	"github.com/gitxandert/blastd/internal/tempo"
	"github.com/gitxandert/blastd/internal/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAreas(channels, frames int) []ChannelArea {
	areas := make([]ChannelArea, channels)
	for i := range areas {
		areas[i] = ChannelArea{
			Base:     make([]byte, frames*2),
			FirstBit: 0,
			StepBits: 16,
		}
	}
	return areas
}

func monoKick(n int) *track.Track {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = 1000
	}
	return track.New(track.Decoded{
		Name: "kick", SampleRate: 48000, NumChannels: 1, BitsPerSample: 16, Samples: samples,
	})
}

func stereoSnare(frames int) *track.Track {
	samples := make([]int16, frames*2)
	for i := 0; i < frames; i++ {
		samples[i*2] = 500
		samples[i*2+1] = -500
	}
	return track.New(track.Decoded{
		Name: "snare", SampleRate: 48000, NumChannels: 2, BitsPerSample: 16, Samples: samples,
	})
}

func Test_BasicPlaybackReachesEndAndStopsContributing(t *testing.T) {
	kick := monoKick(120)
	c := NewConductor(48000, 2, []*track.Track{kick})

	require.NoError(t, c.Apply(command.Command{Kind: command.KindLoad, Load: command.LoadArgs{TrackIdx: 0}}))
	require.NoError(t, c.Apply(command.Command{Kind: command.KindStart, StartStop: command.StartStopArgs{Target: command.TargetVoice, Idx: 0}}))

	areas := newAreas(2, 200)
	c.Coordinate(areas, 0, 200)

	// First frame of output should carry the kick's first sample on
	// both output channels (mono -> ch0 and ch1 identically).
	assert.Equal(t, int16(1000), areas[0].read(0))
	assert.Equal(t, int16(1000), areas[1].read(0))

	// Well past the track's end, output is silent.
	assert.Equal(t, int16(0), areas[0].read(199))
	assert.Equal(t, int16(0), areas[1].read(199))
}

func Test_VelocityReversalWalksPositionDownFromEnd(t *testing.T) {
	snare := stereoSnare(100)
	c := NewConductor(48000, 2, []*track.Track{snare})

	require.NoError(t, c.Apply(command.Command{Kind: command.KindLoad, Load: command.LoadArgs{TrackIdx: 0}}))
	require.NoError(t, c.Apply(command.Command{Kind: command.KindVelocity, Velocity: command.VelocityArgs{Idx: 0, Value: -1.0}}))
	require.NoError(t, c.Apply(command.Command{Kind: command.KindStart, StartStop: command.StartStopArgs{Target: command.TargetVoice, Idx: 0}}))

	v := c.Voices()[0]
	assert.Equal(t, float32(v.End), v.Position)

	areas := newAreas(2, 10)
	c.Coordinate(areas, 0, 10)

	assert.Less(t, v.Position, float32(v.End))
}

func Test_TempoContextCurrentAfterExactAdvances(t *testing.T) {
	c := NewConductor(48000, 2, nil)
	require.NoError(t, c.Apply(command.Command{Kind: command.KindTc, Tc: command.TcArgs{Name: "clock", Unit: tempo.Bpm, Interval: 120}}))
	require.NoError(t, c.Apply(command.Command{Kind: command.KindStart, StartStop: command.StartStopArgs{Target: command.TargetTempo, Idx: 0}}))

	ts := c.TempoContexts()[0]
	assert.Equal(t, float64(24000), ts.IntervalSamples)

	for i := 0; i < 24000; i++ {
		ts.Advance()
	}
	assert.InDelta(t, 1.0, ts.Current(), 1e-9)
}

func Test_GroupReparentingMovesVoicesAndSharesTempo(t *testing.T) {
	kick := monoKick(10)
	snare := stereoSnare(10)
	c := NewConductor(48000, 2, []*track.Track{kick, snare})

	require.NoError(t, c.Apply(command.Command{Kind: command.KindLoad, Load: command.LoadArgs{TrackIdx: 0}}))
	require.NoError(t, c.Apply(command.Command{Kind: command.KindLoad, Load: command.LoadArgs{TrackIdx: 1}}))

	require.NoError(t, c.Apply(command.Command{
		Kind: command.KindGroup,
		Group: command.GroupArgs{
			Name:      "band",
			Tempo:     command.TempoRepr{Owned: true, Mode: tempo.Group, Unit: tempo.Bpm, Interval: 60},
			VoiceIdxs: []int{1, 0}, // highest-first
			Inherit:   []bool{true, true},
		},
	}))

	assert.Empty(t, c.Voices())
	require.Len(t, c.Groups(), 1)
	band := c.Groups()[0]
	require.Len(t, band.Voices, 2)

	for _, v := range band.Voices {
		assert.Same(t, band.Tempo, v.Tempo)
	}
}
