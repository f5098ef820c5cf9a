package repl

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitxandert/blastd/internal/mirror"
	"github.com/gitxandert/blastd/internal/queue"
)

func newREPL(input string) (*REPL, *bytes.Buffer, *queue.SPSC) {
	state := mirror.NewEngineState([]string{"kick"}, 2)
	parser := mirror.NewParser(state)
	q := queue.New(8)
	var out bytes.Buffer
	return New(strings.NewReader(input), &out, parser, q), &out, q
}

func Test_ValidLineIsEnqueued(t *testing.T) {
	r, _, q := newREPL("load kick\n")
	err := r.Run()
	assert.ErrorIs(t, err, io.EOF)

	_, ok := q.TryPop()
	assert.True(t, ok)
}

func Test_InvalidLinePrintsErrorAndDoesNotEnqueue(t *testing.T) {
	r, out, q := newREPL("load ghost\n")
	_ = r.Run()

	assert.Contains(t, out.String(), "Err:")
	_, ok := q.TryPop()
	assert.False(t, ok)
}

func Test_BackspaceRemovesLastRune(t *testing.T) {
	r, _, q := newREPL("load kicz\x7f\x7fck\n")
	err := r.Run()
	require.Error(t, err)

	cmd, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, 0, cmd.Load.TrackIdx)
}

func Test_QuitReturnsErrQuit(t *testing.T) {
	r, _, _ := newREPL("q\n")
	err := r.Run()
	assert.ErrorIs(t, err, ErrQuit)
}

func Test_CtrlCReturnsErrInterrupted(t *testing.T) {
	r, _, _ := newREPL("load\x03")
	err := r.Run()
	assert.ErrorIs(t, err, ErrInterrupted)
}
