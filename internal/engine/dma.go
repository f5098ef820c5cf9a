package engine

import "encoding/binary"

// ChannelArea describes one output channel's region within a period's
// memory-mapped DMA buffer, mirroring the descriptor shape real
// mmap-capable audio devices hand back per period (SPEC_FULL.md §4.3/§6):
// a base buffer, a first-sample bit offset, and a per-frame stride in
// bits. Addressing works identically whether the buffer is a real device
// mmap region (see internal/device) or, in tests, a plain byte slice.
type ChannelArea struct {
	Base     []byte
	FirstBit int
	StepBits int
}

func (a ChannelArea) byteOffset(frame int) int {
	return (a.FirstBit + frame*a.StepBits) / 8
}

func (a ChannelArea) read(frame int) int16 {
	off := a.byteOffset(frame)
	return int16(binary.LittleEndian.Uint16(a.Base[off : off+2]))
}

func (a ChannelArea) write(frame int, v int16) {
	off := a.byteOffset(frame)
	binary.LittleEndian.PutUint16(a.Base[off:off+2], uint16(v))
}

func (a ChannelArea) add(frame int, v int16) {
	a.write(frame, clampI16(float32(a.read(frame))+float32(v)))
}
