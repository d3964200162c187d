// services/console/console.go
//
// The console service pumps newline-delimited text between a byte stream
// (UART, USB-CDC or stdio) and the bus. It owns the stream exclusively;
// the engine never touches I/O directly. Inbound lines are published on
// {"console","in"} and anything on {"console","out"} is written back with
// a trailing newline, flushed per message so replies are never buffered
// across a poll. A completion channel on {"console","flush"} is closed
// once everything published before it has been written; the engine uses
// that to get the reboot acknowledgement on the wire before restarting.
package console

import (
	"bufio"
	"context"
	"io"

	"mycobrain-go/bus"
)

const maxLineBytes = 4096

// Start blocks until ctx is cancelled or the stream fails.
func Start(ctx context.Context, conn *bus.Connection, rw io.ReadWriter) error {
	s := &service{conn: conn, rw: rw}
	return s.run(ctx)
}

type service struct {
	conn *bus.Connection
	rw   io.ReadWriter
}

func (s *service) run(ctx context.Context) error {
	outSub := s.conn.Subscribe(bus.T("console", "out"))
	defer outSub.Unsubscribe()
	flushSub := s.conn.Subscribe(bus.T("console", "flush"))
	defer flushSub.Unsubscribe()

	s.publishState("up", "console_attached")

	// The reader goroutine is the only place that blocks on the stream.
	lines := make(chan string, 8)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(s.rw)
		sc.Buffer(make([]byte, 0, 512), maxLineBytes)
		for sc.Scan() {
			lines <- sc.Text()
		}
		readErr <- sc.Err()
	}()

	w := bufio.NewWriter(s.rw)
	for {
		select {
		case <-ctx.Done():
			s.publishState("stopped", "context_cancelled")
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				err := <-readErr
				s.publishState("error", "stream_closed")
				return err
			}
			s.conn.Publish(s.conn.NewMessage(bus.T("console", "in"), line, false))
		case msg, ok := <-outSub.Channel():
			if !ok {
				return nil
			}
			writeLine(w, msg)
			if err := w.Flush(); err != nil {
				s.publishState("error", "write_failed")
				return err
			}
		case msg, ok := <-flushSub.Channel():
			if !ok {
				return nil
			}
			// Anything published before the flush request is already
			// queued on the out subscription; write it through before
			// acknowledging. The engine blocks on this during reboot.
			drainOut(w, outSub)
			if err := w.Flush(); err != nil {
				s.publishState("error", "write_failed")
				return err
			}
			if done, ok := msg.Payload.(chan struct{}); ok {
				close(done)
			}
		}
	}
}

func writeLine(w *bufio.Writer, msg *bus.Message) {
	if msg == nil {
		return
	}
	text, ok := msg.Payload.(string)
	if !ok {
		return
	}
	_, _ = w.WriteString(text)
	_ = w.WriteByte('\n')
}

func drainOut(w *bufio.Writer, outSub *bus.Subscription) {
	for {
		select {
		case msg := <-outSub.Channel():
			writeLine(w, msg)
		default:
			return
		}
	}
}

func (s *service) publishState(level, status string) {
	s.conn.Publish(s.conn.NewMessage(
		bus.T("console", "state"),
		map[string]any{"level": level, "status": status},
		true,
	))
}
