package track

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestWAV(t *testing.T, path string, channels, sampleRate uint16, samples []int16) {
	t.Helper()

	dataBytes := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(dataBytes[i*2:], uint16(s))
	}

	byteRate := uint32(sampleRate) * uint32(channels) * 2
	blockAlign := channels * 2

	buf := make([]byte, 0, 44+len(dataBytes))
	buf = append(buf, "RIFF"...)
	buf = appendU32(buf, uint32(36+len(dataBytes)))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = appendU32(buf, 16)
	buf = appendU16(buf, 1) // PCM
	buf = appendU16(buf, channels)
	buf = appendU32(buf, uint32(sampleRate))
	buf = appendU32(buf, byteRate)
	buf = appendU16(buf, blockAlign)
	buf = appendU16(buf, 16)
	buf = append(buf, "data"...)
	buf = appendU32(buf, uint32(len(dataBytes)))
	buf = append(buf, dataBytes...)

	require.NoError(t, os.WriteFile(path, buf, 0o644))
}

func appendU32(b []byte, v uint32) []byte {
	tmp := make([]byte, 4)
	binary.LittleEndian.PutUint32(tmp, v)
	return append(b, tmp...)
}

func appendU16(b []byte, v uint16) []byte {
	tmp := make([]byte, 2)
	binary.LittleEndian.PutUint16(tmp, v)
	return append(b, tmp...)
}

func Test_DecodeWAVRoundTripsMonoSamples(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kick.wav")
	writeTestWAV(t, path, 1, 48000, []int16{100, -200, 300})

	d, err := DecodeWAV(path)
	require.NoError(t, err)

	assert.Equal(t, "kick", d.Name)
	assert.Equal(t, uint32(48000), d.SampleRate)
	assert.Equal(t, uint32(1), d.NumChannels)
	assert.Equal(t, uint32(16), d.BitsPerSample)
	assert.Equal(t, []int16{100, -200, 300}, d.Samples)
}

func Test_DecodeWAVRejectsNonPCM16(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.wav")

	buf := make([]byte, 0, 44)
	buf = append(buf, "RIFF"...)
	buf = appendU32(buf, 36)
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = appendU32(buf, 16)
	buf = appendU16(buf, 3) // IEEE float, not supported
	buf = appendU16(buf, 1)
	buf = appendU32(buf, 48000)
	buf = appendU32(buf, 48000*4)
	buf = appendU16(buf, 4)
	buf = appendU16(buf, 32)
	buf = append(buf, "data"...)
	buf = appendU32(buf, 0)
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	_, err := DecodeWAV(path)
	assert.Error(t, err)
}

func Test_LoadDirDecodesAllWAVFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestWAV(t, filepath.Join(dir, "kick.wav"), 1, 48000, []int16{1, 2})
	writeTestWAV(t, filepath.Join(dir, "snare.wav"), 2, 48000, []int16{1, -1, 2, -2})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("not audio"), 0o644))

	tracks, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Len(t, tracks, 2)
	assert.Contains(t, tracks, "kick")
	assert.Contains(t, tracks, "snare")
}
