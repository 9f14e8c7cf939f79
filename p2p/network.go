//
// Copyright (c) 2020-2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"
)

const (
	// Magic identifies the protocol in the connection handshake.
	Magic = "beaver/1"

	// DefaultRetry is the default delay between connection attempts.
	DefaultRetry = 5 * time.Second
)

var (
	// ErrHandshake is returned when the peer handshake fails.
	ErrHandshake = errors.New("p2p: handshake failed")
)

// Listener accepts the peer connection at the rendezvous point.
type Listener struct {
	ID       int
	listener net.Listener
}

// Listen creates a rendezvous listener for the party id at addr.
func Listen(addr string, id int) (*Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{
		ID:       id,
		listener: l,
	}, nil
}

// Addr returns the listener's network address.
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

// Close closes the listener.
func (l *Listener) Close() error {
	return l.listener.Close()
}

// Accept waits for a peer to connect and complete the handshake. It
// returns the connection and the peer's ID. Peers that fail the
// handshake are dropped and Accept keeps waiting until ctx is done.
func (l *Listener) Accept(ctx context.Context) (*Conn, int, error) {
	type deadliner interface {
		SetDeadline(t time.Time) error
	}
	if d, ok := l.listener.(deadliner); ok {
		stop := context.AfterFunc(ctx, func() {
			d.SetDeadline(time.Unix(1, 0))
		})
		defer func() {
			stop()
			d.SetDeadline(time.Time{})
		}()
	}

	for {
		nc, err := l.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			return nil, 0, err
		}
		conn := NewConn(nc)

		id, err := l.handshake(conn)
		if err != nil {
			log.Printf("NW %d: %s: %s\n", l.ID, nc.RemoteAddr(), err)
			conn.Close()
			continue
		}
		log.Printf("NW %d: peer %d connected from %s\n",
			l.ID, id, nc.RemoteAddr())
		return conn, id, nil
	}
}

func (l *Listener) handshake(conn *Conn) (int, error) {
	magic, err := conn.ReceiveString()
	if err != nil {
		return 0, err
	}
	if magic != Magic {
		return 0, fmt.Errorf("%w: unknown protocol %q", ErrHandshake, magic)
	}
	id, err := conn.ReceiveUint32()
	if err != nil {
		return 0, err
	}
	if id == l.ID {
		return 0, fmt.Errorf("%w: peer uses our ID %d", ErrHandshake, id)
	}
	if err := conn.SendString(Magic); err != nil {
		return 0, err
	}
	if err := conn.SendUint32(l.ID); err != nil {
		return 0, err
	}
	if err := conn.Flush(); err != nil {
		return 0, err
	}
	return id, nil
}

// Dial connects the party id to the rendezvous point at addr. Failed
// connection attempts are retried every retry interval until ctx is
// done. Dial returns the connection and the peer's ID.
func Dial(ctx context.Context, addr string, id int, retry time.Duration) (
	*Conn, int, error) {

	if retry <= 0 {
		retry = DefaultRetry
	}
	var dialer net.Dialer

	for {
		log.Printf("NW %d: Connecting to %s...\n", id, addr)
		nc, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			log.Printf("NW %d: Connect to %s failed, retrying in %s\n",
				id, addr, retry)
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(retry):
			}
			continue
		}
		log.Printf("NW %d: Connected to %s\n", id, addr)
		conn := NewConn(nc)

		peer, err := dialHandshake(conn, id)
		if err != nil {
			conn.Close()
			return nil, 0, err
		}
		return conn, peer, nil
	}
}

func dialHandshake(conn *Conn, id int) (int, error) {
	if err := conn.SendString(Magic); err != nil {
		return 0, err
	}
	if err := conn.SendUint32(id); err != nil {
		return 0, err
	}
	if err := conn.Flush(); err != nil {
		return 0, err
	}
	magic, err := conn.ReceiveString()
	if err != nil {
		return 0, err
	}
	if magic != Magic {
		return 0, fmt.Errorf("%w: unknown protocol %q", ErrHandshake, magic)
	}
	peer, err := conn.ReceiveUint32()
	if err != nil {
		return 0, err
	}
	if peer == id {
		return 0, fmt.Errorf("%w: peer uses our ID %d", ErrHandshake, id)
	}
	return peer, nil
}

// Connect sets up the two-party connection. The party with ID 0
// listens at addr and the other party dials it.
func Connect(ctx context.Context, addr string, id int, retry time.Duration) (
	*Conn, int, error) {

	if id != 0 {
		return Dial(ctx, addr, id, retry)
	}
	l, err := Listen(addr, id)
	if err != nil {
		return nil, 0, err
	}
	defer l.Close()

	log.Printf("NW %d: Listening for peer at %s\n", id, l.Addr())
	return l.Accept(ctx)
}
