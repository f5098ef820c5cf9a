// Package repl implements the interactive command line: a byte-at-a-time
// raw-mode reader with line editing, history, and the Enter/Backspace/
// Ctrl-C/arrow-key handling of the original REPL thread (SPEC_FULL.md
// §5), validating each line through a mirror.Parser and pushing the
// result onto the command queue.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/gitxandert/blastd/internal/command"
	"github.com/gitxandert/blastd/internal/mirror"
	"github.com/gitxandert/blastd/internal/queue"
)

// ErrInterrupted is returned by Run when the user pressed Ctrl-C. The
// caller is expected to restore the terminal and exit with status 130.
var ErrInterrupted = errors.New("repl: interrupted")

// ErrQuit is returned by Run when the user issued `q`/`quit`.
var ErrQuit = errors.New("repl: quit")

const (
	keyEnter1    = '\n'
	keyEnter2    = '\r'
	keyBackspace = 127
	keyCtrlC     = 3
	keyEsc       = 27
)

// REPL reads raw bytes from in, echoes to out, and pushes validated
// commands onto q.
type REPL struct {
	in  *bufio.Reader
	out io.Writer

	parser *mirror.Parser
	queue  *queue.SPSC

	buf     []rune
	cursor  int
	history []string
	histIdx int
}

// New builds a REPL. in is expected to already be in raw mode (see
// cmd/blastd, which opens /dev/tty via pkg/term before constructing one
// of these) so bytes arrive unbuffered by the line discipline.
func New(in io.Reader, out io.Writer, parser *mirror.Parser, q *queue.SPSC) *REPL {
	return &REPL{
		in:     bufio.NewReader(in),
		out:    out,
		parser: parser,
		queue:  q,
	}
}

// Run reads and handles one character at a time until EOF, Ctrl-C, or a
// quit command. It never blocks the audio thread: command.Command
// values are handed to the SPSC queue and applied elsewhere.
func (r *REPL) Run() error {
	for {
		c, err := r.readByte()
		if err != nil {
			return err
		}

		switch c {
		case keyEnter1, keyEnter2:
			line := string(r.buf)
			fmt.Fprint(r.out, "\n")
			r.buf = r.buf[:0]
			r.cursor = 0

			if line != "" {
				r.history = append(r.history, line)
				r.histIdx = len(r.history)
			}

			cmd, perr := r.parser.Parse(line)
			if perr != nil {
				fmt.Fprintf(r.out, "Err: %s\n", perr)
				continue
			}
			if cmd.Kind == command.KindQuit {
				return ErrQuit
			}
			if qerr := r.queue.TryPush(cmd); qerr != nil {
				if errors.Is(qerr, queue.ErrFull) {
					qerr = command.ErrQueueFull
				}
				fmt.Fprintf(r.out, "Err: %s\n", qerr)
			}

		case keyBackspace:
			if r.cursor > 0 {
				r.buf = append(r.buf[:r.cursor-1], r.buf[r.cursor:]...)
				r.cursor--
			}

		case keyCtrlC:
			return ErrInterrupted

		case keyEsc:
			if err := r.handleEscape(); err != nil {
				return err
			}

		default:
			r.buf = append(r.buf[:r.cursor], append([]rune{rune(c)}, r.buf[r.cursor:]...)...)
			r.cursor++
		}

		r.redraw()
	}
}

// handleEscape consumes the rest of a `ESC [ X` arrow-key sequence.
func (r *REPL) handleEscape() error {
	c2, err := r.readByte()
	if err != nil {
		return err
	}
	if c2 != '[' {
		return nil
	}
	c3, err := r.readByte()
	if err != nil {
		return err
	}

	switch c3 {
	case 'D': // left
		if r.cursor > 0 {
			r.cursor--
		}
	case 'C': // right
		if r.cursor < len(r.buf) {
			r.cursor++
		}
	case 'A': // up: older history
		if r.histIdx > 0 {
			r.histIdx--
			r.setLine(r.history[r.histIdx])
		}
	case 'B': // down: newer history
		if r.histIdx < len(r.history) {
			r.histIdx++
			if r.histIdx < len(r.history) {
				r.setLine(r.history[r.histIdx])
			} else {
				r.setLine("")
			}
		}
	}
	return nil
}

func (r *REPL) setLine(s string) {
	r.buf = []rune(s)
	r.cursor = len(r.buf)
}

func (r *REPL) readByte() (byte, error) {
	return r.in.ReadByte()
}

func (r *REPL) redraw() {
	fmt.Fprintf(r.out, "\r> %s", string(r.buf))
}
