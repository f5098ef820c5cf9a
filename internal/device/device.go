// Package device adapts the Conductor's mixing loop to a real output
// device and drives the realtime run loop: pop queued commands, apply
// them, mix one period of audio, write it out.
package device

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"

	"github.com/gitxandert/blastd/internal/engine"
	"github.com/gitxandert/blastd/internal/queue"
)

// Device is the output-side contract the run loop drives: write one
// interleaved 16-bit PCM period of FramesPerBuffer frames, reporting
// only whether the write failed.
type Device interface {
	FramesPerBuffer() int
	Write(buf []byte) error
	Close() error
}

// ErrNoSuchDevice is returned by Open when the named device isn't among
// PortAudio's enumerated output devices.
var ErrNoSuchDevice = errors.New("device: no such output device")

// PortAudioDevice writes interleaved 16-bit PCM frames through a
// blocking PortAudio output stream, grounded on the OpenStream/Write
// blocking pattern (not the callback style) for drop-in realtime use.
type PortAudioDevice struct {
	stream          *portaudio.Stream
	framesPerBuffer int
	channels        int
	out             []int16
}

// Open starts PortAudio and opens a blocking output stream on the named
// device (or the system default if name is empty).
func Open(name string, sampleRate float64, channels, framesPerBuffer int) (*PortAudioDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("device: portaudio init: %w", err)
	}

	outDev, err := resolveOutputDevice(name)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	out := make([]int16, framesPerBuffer*channels)
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   outDev,
			Channels: channels,
			Latency:  outDev.DefaultLowOutputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: framesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, out)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("device: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("device: start stream: %w", err)
	}

	return &PortAudioDevice{
		stream:          stream,
		framesPerBuffer: framesPerBuffer,
		channels:        channels,
		out:             out,
	}, nil
}

func resolveOutputDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		return portaudio.DefaultOutputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("device: enumerate: %w", err)
	}
	for _, d := range devices {
		if d.Name == name && d.MaxOutputChannels > 0 {
			return d, nil
		}
	}
	return nil, ErrNoSuchDevice
}

func (d *PortAudioDevice) FramesPerBuffer() int { return d.framesPerBuffer }

// Write expects buf to already be interleaved little-endian 16-bit PCM,
// framesPerBuffer*channels*2 bytes long.
func (d *PortAudioDevice) Write(buf []byte) error {
	for i := range d.out {
		d.out[i] = int16(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
	}
	return d.stream.Write()
}

func (d *PortAudioDevice) Close() error {
	err := d.stream.Close()
	portaudio.Terminate()
	return err
}

// Run drives the realtime loop: apply every queued command, mix one
// period into an interleaved scratch buffer via the Conductor, then
// write it to dev. If dump is non-nil, every period's bytes are also
// teed to it (the diagnostic capture path opened by device.OpenDump).
// It returns only on a write error or when quit is closed; a command
// that fails to apply is logged and skipped.
func Run(dev Device, conductor *engine.Conductor, q *queue.SPSC, channels int, quit <-chan struct{}, logger *log.Logger, dump io.Writer) error {
	frames := dev.FramesPerBuffer()
	buf := make([]byte, frames*channels*2)
	areas := make([]engine.ChannelArea, channels)
	for ch := range areas {
		areas[ch] = engine.ChannelArea{
			Base:     buf,
			FirstBit: ch * 16,
			StepBits: channels * 16,
		}
	}

	for {
		select {
		case <-quit:
			return nil
		default:
		}

		for {
			cmd, ok := q.TryPop()
			if !ok {
				break
			}
			if err := conductor.Apply(cmd); err != nil {
				logger.Warn("command rejected", "err", err)
			}
		}

		for i := range buf {
			buf[i] = 0
		}
		conductor.Coordinate(areas, 0, frames)

		if err := dev.Write(buf); err != nil {
			return fmt.Errorf("device: write: %w", err)
		}
		if dump != nil {
			if _, err := dump.Write(buf); err != nil {
				logger.Warn("diagnostic dump write failed", "err", err)
			}
		}
	}
}
