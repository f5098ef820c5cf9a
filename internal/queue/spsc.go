// Package queue implements the bounded single-producer/single-consumer
// command queue shared between the command thread and the audio thread.
package queue

import (
	"errors"
	"sync/atomic"

	"github.com/gitxandert/blastd/internal/command"
)

// ErrFull is returned by TryPush when the queue has no free slot. The
// command-plane layer surfaces this to the user as command.ErrQueueFull.
var ErrFull = errors.New("queue: full")

// SPSC is a bounded ring buffer of commands safe to share between exactly
// one producer and one consumer with no additional locking. Capacity is
// cap-1 live commands; one slot is kept empty so full and empty states
// are distinguishable by head==tail alone.
type SPSC struct {
	buf  []command.Command
	cap  int
	head atomic.Uint64
	tail atomic.Uint64
}

// New builds a queue holding up to cap-1 commands. Panics if cap < 2.
func New(cap int) *SPSC {
	if cap < 2 {
		panic("queue: capacity must be at least 2")
	}
	return &SPSC{
		buf: make([]command.Command, cap),
		cap: cap,
	}
}

// Cap returns the number of commands that can be held at once.
func (q *SPSC) Cap() int {
	return q.cap - 1
}

// TryPush attempts to enqueue cmd. Called only from the producer
// (command) thread. Returns ErrFull without blocking if the queue has no
// free slot.
func (q *SPSC) TryPush(cmd command.Command) error {
	head := q.head.Load()
	tail := q.tail.Load()

	next := (head + 1) % uint64(q.cap)
	if next == tail {
		return ErrFull
	}

	q.buf[head] = cmd
	q.head.Store(next)
	return nil
}

// TryPop attempts to dequeue the next command. Called only from the
// consumer (audio) thread. Returns (zero, false) without blocking if the
// queue is empty.
func (q *SPSC) TryPop() (command.Command, bool) {
	tail := q.tail.Load()
	head := q.head.Load()

	if head == tail {
		return command.Command{}, false
	}

	cmd := q.buf[tail]
	q.buf[tail] = command.Command{}
	q.tail.Store((tail + 1) % uint64(q.cap))
	return cmd, true
}
