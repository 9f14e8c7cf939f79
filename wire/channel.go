//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package wire

import (
	"fmt"
	"time"

	"github.com/markkurossi/beaver/p2p"
)

// Channel is a blocking, in-order, reliable point-to-point message
// channel between peers identified by their rank.
type Channel interface {
	// Send sends data to the peer.
	Send(peer int, data []byte) error

	// Recv receives the next message from the peer.
	Recv(peer int) ([]byte, error)
}

// Conn implements Channel over a p2p connection to exactly one peer.
type Conn struct {
	conn *p2p.Conn
	self int
	peer int
}

// NewConn creates a channel endpoint for the party self talking to
// the party peer over conn.
func NewConn(conn *p2p.Conn, self, peer int) *Conn {
	return &Conn{
		conn: conn,
		self: self,
		peer: peer,
	}
}

// Pipe creates an in-memory channel pair for the initiator and the
// responder.
func Pipe() (*Conn, *Conn) {
	c0, c1 := p2p.Pipe()
	return NewConn(c0, RankInitiator, RankResponder),
		NewConn(c1, RankResponder, RankInitiator)
}

// Self returns the local party's rank.
func (c *Conn) Self() int {
	return c.self
}

// Peer returns the peer's rank.
func (c *Conn) Peer() int {
	return c.peer
}

// SetTimeout bounds the time each Recv may block.
func (c *Conn) SetTimeout(timeout time.Duration) {
	c.conn.SetTimeout(timeout)
}

// Stats returns the I/O statistics of the underlying connection.
func (c *Conn) Stats() p2p.IOStats {
	return c.conn.Stats
}

// Close closes the channel.
func (c *Conn) Close() error {
	return c.conn.Close()
}

func (c *Conn) checkPeer(peer int) error {
	if peer != c.peer {
		return fmt.Errorf("%w: party %d has no channel to peer %d",
			ErrChannel, c.self, peer)
	}
	return nil
}

// Send implements Channel.Send.
func (c *Conn) Send(peer int, data []byte) error {
	if err := c.checkPeer(peer); err != nil {
		return err
	}
	return WriteFrame(c.conn, data)
}

// Recv implements Channel.Recv.
func (c *Conn) Recv(peer int) ([]byte, error) {
	if err := c.checkPeer(peer); err != nil {
		return nil, err
	}
	return ReadFrame(c.conn)
}
