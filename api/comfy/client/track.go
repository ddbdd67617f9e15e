package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"

	"pixelforge/generation-engine/pkg/types"
)

// eventConn is one duplex event channel. next returns the payload of the
// next text frame; (nil, nil) means an ignorable frame (binary previews,
// malformed JSON is handled by the tracker). errPoll re-arms the read.
type eventConn interface {
	next() ([]byte, error)
	Close() error
}

// errPoll signals an expired single-read deadline; the tracker loops and
// re-checks the run deadline instead of failing.
var errPoll = errors.New("event poll timeout")

// wsConn adapts a gorilla WebSocket connection to eventConn.
type wsConn struct {
	conn        *websocket.Conn
	pollTimeout time.Duration
}

func (w *wsConn) next() ([]byte, error) {
	if err := w.conn.SetReadDeadline(time.Now().Add(w.pollTimeout)); err != nil {
		return nil, err
	}
	msgType, data, err := w.conn.ReadMessage()
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, errPoll
		}
		return nil, err
	}
	if msgType != websocket.TextMessage {
		// Binary frames carry preview data and never alter tracking state.
		return nil, nil
	}
	return data, nil
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

// marks are the observed execution timestamps. execStart stays zero when
// the graph completed without a visible node-start event.
type marks struct {
	execStart time.Time
	execDone  time.Time
}

// tracker is the await state machine for one submitted prompt: it consumes
// events until completion, error or deadline. It is plain data over an
// injected source and clock, so tests drive it with synthetic events.
type tracker struct {
	promptID string
	src      eventConn
	now      func() time.Time
	deadline time.Time
}

func (t *tracker) run(ctx context.Context) (marks, error) {
	var m marks
	for {
		if ctx.Err() != nil {
			return m, ctx.Err()
		}
		if t.now().After(t.deadline) {
			return m, ErrTimeout
		}

		raw, err := t.src.next()
		if errors.Is(err, errPoll) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return m, ctx.Err()
			}
			return m, fmt.Errorf("event channel read: %w", err)
		}
		if raw == nil {
			continue
		}

		var frame types.EventFrame
		if json.Unmarshal(raw, &frame) != nil {
			continue
		}

		switch frame.Type {
		case types.EventExecuting:
			var data types.ExecutingData
			if json.Unmarshal(frame.Data, &data) != nil {
				continue
			}
			if data.PromptID != t.promptID {
				continue
			}
			if data.Node != nil {
				if m.execStart.IsZero() {
					m.execStart = t.now()
				}
				continue
			}
			m.execDone = t.now()
			return m, nil

		case types.EventExecutionError:
			var data types.ExecutionErrorData
			if json.Unmarshal(frame.Data, &data) != nil {
				continue
			}
			if data.PromptID != t.promptID {
				continue
			}
			msg := data.ExceptionMessage
			if msg == "" {
				msg = "remote execution error"
			}
			return m, &ProtocolError{Message: msg}
		}
	}
}
