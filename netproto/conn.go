package netproto

import (
	"net/http"
	"sync"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

// Conn wraps a gorilla/websocket connection with the envelope framing and
// sequencing this protocol requires. It is safe for one concurrent writer
// and one concurrent reader (the underlying gorilla/websocket contract).
type Conn struct {
	ws       *websocket.Conn
	identity string

	writeMu sync.Mutex
	seq     uint64
}

// NewConn wraps an already-established websocket connection.
func NewConn(ws *websocket.Conn, identity string) *Conn {
	return &Conn{ws: ws, identity: identity}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Accept upgrades an inbound HTTP request to a Conn.
func Accept(w http.ResponseWriter, r *http.Request, identity string) (*Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return NewConn(ws, identity), nil
}

// Dial connects to a server's websocket endpoint.
func Dial(url, identity string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return NewConn(ws, identity), nil
}

// Send assigns the next monotonic sequence number and writes env as JSON.
func (c *Conn) Send(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.seq++
	env.Seq = c.seq
	env.Identity = c.identity
	return c.ws.WriteJSON(env)
}

// Recv blocks for the next envelope and logs each one it receives at
// glog.V(2). A read or decode error, including a malformed frame, is
// returned to the caller.
func (c *Conn) Recv() (Envelope, error) {
	var env Envelope
	err := c.ws.ReadJSON(&env)
	if err != nil {
		return Envelope{}, err
	}
	glog.V(2).Infof("netproto: recv %s seq=%d from=%s", env.Type, env.Seq, env.Identity)
	return env, nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}
