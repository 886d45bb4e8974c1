package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatrelay/pkg/registry"
)

// transport wraps one websocket connection behind the registry.Transport
// contract. All writes funnel through a single writer goroutine draining a
// bounded queue, so TrySend never blocks and never races another write.
type transport struct {
	conn         *websocket.Conn
	out          chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
}

func newTransport(conn *websocket.Conn, queueSize int, writeTimeout time.Duration) *transport {
	return &transport{
		conn:         conn,
		out:          make(chan []byte, queueSize),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

// TrySend marshals frame and enqueues it for the writer. It fails fast with
// ErrQueueFull when the peer is not draining and ErrClosed after Close.
func (t *transport) TrySend(frame any) error {
	b, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return t.trySendRaw(b)
}

func (t *transport) trySendRaw(b []byte) error {
	select {
	case <-t.done:
		return registry.ErrClosed
	default:
	}
	select {
	case t.out <- b:
		return nil
	case <-t.done:
		return registry.ErrClosed
	default:
		return registry.ErrQueueFull
	}
}

// Close is idempotent. It stops intake immediately; the writer flushes frames
// already queued, sends a close frame and then closes the socket, so a frame
// enqueued right before Close still reaches the peer.
func (t *transport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return nil
}

// writeLoop is the sole writer on the underlying connection.
func (t *transport) writeLoop() {
	for {
		select {
		case <-t.done:
			t.flushAndClose()
			return
		case b := <-t.out:
			_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
			if err := t.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				t.closeOnce.Do(func() { close(t.done) })
				_ = t.conn.Close()
				return
			}
		}
	}
}

// flushAndClose drains frames queued before Close, then completes the
// websocket close handshake. One shared deadline bounds the whole flush so a
// stalled peer cannot pin the writer.
func (t *transport) flushAndClose() {
	deadline := time.Now().Add(t.writeTimeout)
	for {
		select {
		case b := <-t.out:
			_ = t.conn.SetWriteDeadline(deadline)
			if err := t.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				_ = t.conn.Close()
				return
			}
		default:
			_ = t.conn.SetWriteDeadline(deadline)
			_ = t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = t.conn.Close()
			return
		}
	}
}
