package hub

import (
	"time"

	"github.com/gofiber/contrib/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	readLimit    = 4 << 10
)

// Conn is the part of a websocket connection a Subscriber uses.
// *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

// Subscriber is one websocket connection receiving events.
type Subscriber struct {
	hub  *Hub
	conn Conn
	out  chan []byte

	// written is closed when the writer has stopped touching conn.
	written chan struct{}
}

// Serve subscribes conn to h and blocks until the connection ends or the
// hub stops. Inbound frames are read only to notice the peer leaving.
// conn is not used once Serve returns, so the caller may recycle it.
func (h *Hub) Serve(conn Conn) {
	s := &Subscriber{
		hub:     h,
		conn:    conn,
		out:     make(chan []byte, subscriberSize),
		written: make(chan struct{}),
	}
	select {
	case h.join <- s:
	case <-h.done:
		conn.Close()
		return
	}

	go s.write()
	s.read()
	// read always leads to out being closed, which stops the writer.
	<-s.written
}

func (s *Subscriber) read() {
	defer func() {
		select {
		case s.hub.leave <- s:
		case <-s.hub.done:
		}
		s.conn.Close()
	}()

	s.conn.SetReadLimit(readLimit)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// write is the connection's only writer. It ends when the hub closes out.
func (s *Subscriber) write() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		s.conn.Close()
		close(s.written)
	}()

	for {
		select {
		case data, ok := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
