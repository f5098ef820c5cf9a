package repl_test

import (
	"bufio"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitxandert/blastd/internal/mirror"
	"github.com/gitxandert/blastd/internal/queue"
	"github.com/gitxandert/blastd/internal/repl"
)

// Test_REPLOverRealPseudoTerminal exercises the REPL against an actual
// pseudo terminal (rather than an in-memory reader), matching how
// cmd/blastd drives it against /dev/tty in production.
func Test_REPLOverRealPseudoTerminal(t *testing.T) {
	ptmx, pts, err := pty.Open()
	require.NoError(t, err)
	defer ptmx.Close()
	defer pts.Close()

	state := mirror.NewEngineState([]string{"kick"}, 2)
	parser := mirror.NewParser(state)
	q := queue.New(8)

	console := repl.New(pts, pts, parser, q)

	done := make(chan error, 1)
	go func() { done <- console.Run() }()

	// Drain the echoed output concurrently so the pty never blocks on a
	// full buffer while the REPL is still writing prompts back.
	go func() {
		r := bufio.NewReader(ptmx)
		for {
			if _, err := r.ReadByte(); err != nil {
				return
			}
		}
	}()

	_, err = ptmx.Write([]byte("load kick\nq\n"))
	require.NoError(t, err)

	select {
	case runErr := <-done:
		assert.ErrorIs(t, runErr, repl.ErrQuit)
	case <-time.After(3 * time.Second):
		t.Fatal("repl did not observe quit over the pty")
	}

	cmd, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, 0, cmd.Load.TrackIdx)
}
