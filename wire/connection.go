package wire

import (
	"fmt"
	"net"
	"time"
)

// Connection is a thin loopback-TCP wrapper around the P2P framing
// functions, grounded on the teacher's node/p2p/peer.go Peer type but
// trimmed down: the executor does not keep a persistent ban score or
// dispatch table, it only needs to write framed messages the target
// node will accept and read back whatever the target sends.
type Connection struct {
	Conn        net.Conn
	Magic       uint32
	IdleTimeout time.Duration
}

// Dial opens a loopback TCP connection to addr for the given network
// magic. The process executor uses this to attach to a target node it
// just spawned over its configured P2P listen port.
func Dial(addr string, magic uint32, timeout time.Duration) (*Connection, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("wire: dial %s: %w", addr, err)
	}
	return &Connection{Conn: conn, Magic: magic}, nil
}

// Send frames and writes a single message.
func (c *Connection) Send(command string, payload []byte) error {
	return WriteMessage(c.Conn, c.Magic, command, payload)
}

// Receive reads a single framed message, applying IdleTimeout as a
// read deadline when set.
func (c *Connection) Receive() (*Message, *ReadError) {
	if c.IdleTimeout > 0 {
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.IdleTimeout))
	}
	return ReadMessage(c.Conn, c.Magic)
}

// Close closes the underlying connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
