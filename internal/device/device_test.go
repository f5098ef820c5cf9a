package device

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitxandert/blastd/internal/command"
	"github.com/gitxandert/blastd/internal/engine"
	"github.com/gitxandert/blastd/internal/queue"
)

type fakeDevice struct {
	frames int
	writes [][]byte
	quit   chan struct{}
	stopAt int
}

func (f *fakeDevice) FramesPerBuffer() int { return f.frames }

func (f *fakeDevice) Write(buf []byte) error {
	cp := append([]byte(nil), buf...)
	f.writes = append(f.writes, cp)
	if len(f.writes) >= f.stopAt {
		close(f.quit)
	}
	return nil
}

func (f *fakeDevice) Close() error { return nil }

func Test_RunDrainsQueueBeforeEachPeriod(t *testing.T) {
	dev := &fakeDevice{frames: 32, quit: make(chan struct{}), stopAt: 3}

	c := engine.NewConductor(48000, 1, nil)
	q := queue.New(8)
	require.NoError(t, q.TryPush(command.Command{Kind: command.KindTc, Tc: command.TcArgs{}}))

	logger := log.New(io.Discard)

	done := make(chan error, 1)
	go func() { done <- Run(dev, c, q, 1, dev.quit, logger, nil) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after quit was closed")
	}

	assert.GreaterOrEqual(t, len(dev.writes), 3)
	assert.Len(t, c.TempoContexts(), 1)
}

func Test_RunTeesEachPeriodToDump(t *testing.T) {
	dev := &fakeDevice{frames: 16, quit: make(chan struct{}), stopAt: 2}

	c := engine.NewConductor(48000, 1, nil)
	q := queue.New(8)

	logger := log.New(io.Discard)
	var dump bytes.Buffer

	done := make(chan error, 1)
	go func() { done <- Run(dev, c, q, 1, dev.quit, logger, &dump) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after quit was closed")
	}

	periodBytes := dev.frames * 1 * 2
	assert.Equal(t, len(dev.writes)*periodBytes, dump.Len())
}
