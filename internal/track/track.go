// Package track holds the engine's immutable decoded-audio representation.
// Decoding itself (WAV/AIFF/MPEG parsing) is an external collaborator;
// this package only models the contract the engine receives at startup.
package track

// Decoded is the shape a file decoder hands the engine at startup: one
// finished, interleaved 16-bit PCM buffer plus the metadata needed to
// mix it. Modeled on original_source's decode_helpers.rs AudioFile, kept
// close to that shape so a real decoder can populate it without the
// engine's ingestion path changing.
type Decoded struct {
	Name          string
	Format        string // container/codec tag, informational only
	SampleRate    uint32
	NumChannels   uint32 // 1 (mono) or 2 (stereo)
	BitsPerSample uint32 // always 16 for this engine
	Samples       []int16
}

// Track is the engine's immutable, program-lifetime view of a decoded
// audio buffer. Created once at startup from a Decoded buffer and never
// mutated afterward.
type Track struct {
	Name        string
	Channels    uint32
	SampleRate  uint32
	Samples     []int16 // interleaved if Channels == 2
	FrameCount  int     // len(Samples) / Channels
}

// New builds a Track from a decoded buffer, taking ownership of its
// sample slice.
func New(d Decoded) *Track {
	frames := 0
	if d.NumChannels > 0 {
		frames = len(d.Samples) / int(d.NumChannels)
	}
	return &Track{
		Name:       d.Name,
		Channels:   d.NumChannels,
		SampleRate: d.SampleRate,
		Samples:    d.Samples,
		FrameCount: frames,
	}
}

// Sample returns the sample at the given frame and source channel (0 for
// mono, 0 or 1 for stereo), or 0 if frame is out of range. The mixer is
// responsible for the channel-routing rule (SPEC_FULL.md §4.3 step 6)
// before calling this; Sample itself only guards the array bound.
func (t *Track) Sample(frame int, ch uint32) int16 {
	if frame < 0 || frame >= t.FrameCount {
		return 0
	}
	idx := frame*int(t.Channels) + int(ch)
	if idx < 0 || idx >= len(t.Samples) {
		return 0
	}
	return t.Samples[idx]
}
