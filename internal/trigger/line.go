package trigger

import (
	"bufio"
	"context"
	"io"
)

// Line fires when a line is read from r, typically os.Stdin. Reading starts in
// NewLine; lines that arrive while nobody is blocked in Wait are discarded, so
// a stray Enter typed between pauses does not release the next one.
type Line struct {
	lines  chan struct{}
	closed chan struct{}
	err    error
}

// NewLine creates a trigger reading lines from r.
func NewLine(r io.Reader) *Line {
	l := &Line{
		lines:  make(chan struct{}),
		closed: make(chan struct{}),
	}
	go l.scan(r)
	return l
}

// Name returns "line".
func (l *Line) Name() string {
	return "line"
}

func (l *Line) scan(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case l.lines <- struct{}{}:
		default:
		}
	}
	l.err = scanner.Err()
	close(l.closed)
}

// Wait blocks until a line is read. It returns ErrClosed, or the read error,
// once the reader is exhausted.
func (l *Line) Wait(ctx context.Context) error {
	select {
	case <-l.lines:
		return nil
	case <-l.closed:
		if l.err != nil {
			return l.err
		}
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
