//
// Copyright (c) 2019-2026 Markku Rossi
//
// All rights reserved.
//

// Package p2p implements the buffered point-to-point connection
// between the two protocol parties and the rendezvous that sets it
// up.
package p2p

import (
	"encoding/binary"
	"io"
	"sync/atomic"
	"time"
)

const (
	numBuffers   = 3
	writeBufSize = 64 * 1024
	readBufSize  = 1024 * 1024
)

var (
	bo = binary.BigEndian
)

// deadliner is implemented by connections that support read
// deadlines, such as net.Conn.
type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// Conn implements a protocol connection.
type Conn struct {
	conn      io.ReadWriter
	WriteBuf  []byte
	WritePos  int
	ReadBuf   []byte
	ReadStart int
	ReadEnd   int
	Stats     IOStats

	timeout time.Duration

	fromWriter chan []byte
	toWriter   chan []byte
	writerErr  atomic.Pointer[error]
}

// NewConn creates a new connection around the argument connection.
func NewConn(conn io.ReadWriter) *Conn {
	c := &Conn{
		conn:       conn,
		ReadBuf:    make([]byte, readBufSize),
		fromWriter: make(chan []byte, numBuffers),
		toWriter:   make(chan []byte, numBuffers),
		Stats:      NewIOStats(),
	}

	go c.writer()

	c.WriteBuf = <-c.fromWriter

	return c
}

func (c *Conn) writer() {
	for i := 0; i < numBuffers; i++ {
		c.fromWriter <- make([]byte, writeBufSize)
	}

	for buf := range c.toWriter {
		_, err := c.conn.Write(buf)
		if err != nil {
			c.writerErr.CompareAndSwap(nil, &err)
		}
		c.fromWriter <- buf[0:cap(buf)]
	}
	close(c.fromWriter)
}

// SetTimeout bounds the time a single receive operation may block.
// The timeout is applied as a read deadline and it has effect only if
// the underlying connection supports deadlines. The zero value
// disables the timeout.
func (c *Conn) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

func (c *Conn) armDeadline() error {
	d, ok := c.conn.(deadliner)
	if !ok {
		return nil
	}
	if c.timeout <= 0 {
		return d.SetReadDeadline(time.Time{})
	}
	return d.SetReadDeadline(time.Now().Add(c.timeout))
}

// Flush flushed any pending data in the connection.
func (c *Conn) Flush() error {
	if c.WritePos > 0 {
		c.Stats.Sent.Add(uint64(c.WritePos))
		c.toWriter <- c.WriteBuf[0:c.WritePos]

		c.WriteBuf = <-c.fromWriter
		c.WritePos = 0
		if err := c.err(); err != nil {
			return err
		}
		c.Stats.Flushed.Add(1)
	}
	return nil
}

func (c *Conn) err() error {
	if err := c.writerErr.Load(); err != nil {
		return *err
	}
	return nil
}

// Fill fills the input buffer from the connection so that it holds
// at least n unread bytes. Any unused data in the buffer is moved to
// the beginning of the buffer.
func (c *Conn) Fill(n int) error {
	if c.ReadStart < c.ReadEnd {
		copy(c.ReadBuf[0:], c.ReadBuf[c.ReadStart:c.ReadEnd])
		c.ReadEnd -= c.ReadStart
		c.ReadStart = 0
	} else {
		c.ReadStart = 0
		c.ReadEnd = 0
	}
	if n > len(c.ReadBuf) {
		return io.ErrShortBuffer
	}
	if err := c.armDeadline(); err != nil {
		return err
	}
	for c.ReadStart+n > c.ReadEnd {
		got, err := c.conn.Read(c.ReadBuf[c.ReadEnd:])
		c.Stats.Recvd.Add(uint64(got))
		c.ReadEnd += got
		if c.ReadStart+n <= c.ReadEnd {
			break
		}
		if err != nil {
			if err == io.EOF && c.ReadEnd > c.ReadStart {
				return io.ErrUnexpectedEOF
			}
			return err
		}
	}
	return nil
}

// Close flushes any pending data and closes the connection. The
// connection is closed and the writer released even if the flush
// fails.
func (c *Conn) Close() error {
	err := c.Flush()
	closer, ok := c.conn.(io.Closer)
	if err != nil && ok {
		// Unblock a writer stuck on the broken connection.
		closer.Close()
		ok = false
	}
	close(c.toWriter)
	for range c.fromWriter {
	}
	if err == nil {
		err = c.err()
	}
	if ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// SendUint32 sends an uint32 value.
func (c *Conn) SendUint32(val int) error {
	if c.WritePos+4 > len(c.WriteBuf) {
		if err := c.Flush(); err != nil {
			return err
		}
	}
	bo.PutUint32(c.WriteBuf[c.WritePos:], uint32(val))
	c.WritePos += 4
	return nil
}

// SendUint64 sends an uint64 value.
func (c *Conn) SendUint64(val uint64) error {
	if c.WritePos+8 > len(c.WriteBuf) {
		if err := c.Flush(); err != nil {
			return err
		}
	}
	bo.PutUint64(c.WriteBuf[c.WritePos:], val)
	c.WritePos += 8
	return nil
}

// SendBytes sends the raw bytes val without any framing. Values
// larger than the write buffer are sent in buffer-sized chunks.
func (c *Conn) SendBytes(val []byte) error {
	for len(val) > 0 {
		if c.WritePos >= len(c.WriteBuf) {
			if err := c.Flush(); err != nil {
				return err
			}
		}
		n := copy(c.WriteBuf[c.WritePos:], val)
		c.WritePos += n
		val = val[n:]
	}
	return nil
}

// SendData sends binary data with an uint32 length prefix.
func (c *Conn) SendData(val []byte) error {
	if err := c.SendUint32(len(val)); err != nil {
		return err
	}
	return c.SendBytes(val)
}

// SendString sends a string value.
func (c *Conn) SendString(val string) error {
	return c.SendData([]byte(val))
}

// ReceiveUint32 receives an uint32 value.
func (c *Conn) ReceiveUint32() (int, error) {
	if c.ReadStart+4 > c.ReadEnd {
		if err := c.Fill(4); err != nil {
			return 0, err
		}
	}
	val := bo.Uint32(c.ReadBuf[c.ReadStart:])
	c.ReadStart += 4

	return int(val), nil
}

// ReceiveUint64 receives an uint64 value.
func (c *Conn) ReceiveUint64() (uint64, error) {
	if c.ReadStart+8 > c.ReadEnd {
		if err := c.Fill(8); err != nil {
			return 0, err
		}
	}
	val := bo.Uint64(c.ReadBuf[c.ReadStart:])
	c.ReadStart += 8

	return val, nil
}

// ReceiveBytes receives exactly n raw bytes. Buffered input is
// consumed first and the rest is read directly from the connection.
func (c *Conn) ReceiveBytes(n int) ([]byte, error) {
	result := make([]byte, n)
	got := copy(result, c.ReadBuf[c.ReadStart:c.ReadEnd])
	c.ReadStart += got

	if got < n {
		if err := c.armDeadline(); err != nil {
			return nil, err
		}
		read, err := io.ReadFull(c.conn, result[got:])
		c.Stats.Recvd.Add(uint64(read))
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}
	return result, nil
}

// ReceiveData receives binary data with an uint32 length prefix.
func (c *Conn) ReceiveData() ([]byte, error) {
	l, err := c.ReceiveUint32()
	if err != nil {
		return nil, err
	}
	return c.ReceiveBytes(l)
}

// ReceiveString receives a string value.
func (c *Conn) ReceiveString() (string, error) {
	data, err := c.ReceiveData()
	if err != nil {
		return "", err
	}
	return string(data), nil
}
