package track

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DecodeWAV parses a canonical PCM WAV file into a Decoded buffer. Only
// 16-bit PCM, mono or stereo, is supported; anything else is an error.
// Kept to a minimal encoding/binary chunk walk rather than a decoding
// library, since audio format decoding is outside this repo's scope
// (see DESIGN.md).
func DecodeWAV(path string) (Decoded, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Decoded{}, fmt.Errorf("track: read %s: %w", path, err)
	}
	if len(raw) < 12 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return Decoded{}, fmt.Errorf("track: %s is not a RIFF/WAVE file", path)
	}

	var (
		numChannels   uint16
		sampleRate    uint32
		bitsPerSample uint16
		data          []byte
		haveFmt       bool
	)

	off := 12
	for off+8 <= len(raw) {
		id := string(raw[off : off+4])
		size := int(binary.LittleEndian.Uint32(raw[off+4 : off+8]))
		body := off + 8

		if body+size > len(raw) {
			break
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Decoded{}, fmt.Errorf("track: %s: fmt chunk too small", path)
			}
			chunk := raw[body : body+size]
			numChannels = binary.LittleEndian.Uint16(chunk[2:4])
			sampleRate = binary.LittleEndian.Uint32(chunk[4:8])
			bitsPerSample = binary.LittleEndian.Uint16(chunk[14:16])
			haveFmt = true
		case "data":
			data = raw[body : body+size]
		}

		// Chunks are word-aligned; odd sizes carry a padding byte.
		off = body + size + size%2
	}

	if !haveFmt {
		return Decoded{}, fmt.Errorf("track: %s: missing fmt chunk", path)
	}
	if data == nil {
		return Decoded{}, fmt.Errorf("track: %s: missing data chunk", path)
	}
	if bitsPerSample != 16 {
		return Decoded{}, fmt.Errorf("track: %s: unsupported bit depth %d (only 16 supported)", path, bitsPerSample)
	}
	if numChannels != 1 && numChannels != 2 {
		return Decoded{}, fmt.Errorf("track: %s: unsupported channel count %d (only 1 or 2 supported)", path, numChannels)
	}

	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	return Decoded{
		Name:          name,
		Format:        "wav/pcm" + strconv.Itoa(int(bitsPerSample)),
		SampleRate:    sampleRate,
		NumChannels:   uint32(numChannels),
		BitsPerSample: uint32(bitsPerSample),
		Samples:       samples,
	}, nil
}

// LoadDir decodes every .wav file directly under dir into Decoded
// buffers, keyed by file name without extension.
func LoadDir(dir string) (map[string]Decoded, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("track: read dir %s: %w", dir, err)
	}

	out := make(map[string]Decoded)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			continue
		}
		d, err := DecodeWAV(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out[d.Name] = d
	}
	return out, nil
}
