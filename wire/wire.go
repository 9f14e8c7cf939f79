//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package wire implements the message framing and the two-party
// channel of the triple generation and multiplication protocols.
//
// Every message is a frame:
//
//	[8-byte big-endian length][length bytes of payload]
//
// The length and the payload are written as two consecutive writes and
// flushed together. The payload is opaque to this package.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/markkurossi/beaver/p2p"
)

const (
	// MaxFrameSize is the largest accepted frame payload.
	MaxFrameSize = 64 * 1024 * 1024

	// ElementSize is the encoded size of a ring element.
	ElementSize = 8
)

// Party ranks.
const (
	RankInitiator = 0
	RankResponder = 1
)

var (
	// ErrChannel is returned for all transport failures: I/O errors,
	// truncated or oversized frames, disconnected peers, receive
	// timeouts, and malformed fixed-size payloads.
	ErrChannel = errors.New("wire: channel error")

	_ IO      = &p2p.Conn{}
	_ Channel = &Conn{}
)

// IO defines the transport the frame codec runs on.
type IO interface {
	// SendUint64 sends an uint64 value.
	SendUint64(val uint64) error

	// SendBytes sends raw bytes.
	SendBytes(val []byte) error

	// Flush flushes any pending data.
	Flush() error

	// ReceiveUint64 receives an uint64 value.
	ReceiveUint64() (uint64, error)

	// ReceiveBytes receives exactly n raw bytes.
	ReceiveBytes(n int) ([]byte, error)
}

// WriteFrame writes payload as one frame.
func WriteFrame(io IO, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: frame of %d bytes exceeds %d",
			ErrChannel, len(payload), MaxFrameSize)
	}
	if err := io.SendUint64(uint64(len(payload))); err != nil {
		return fmt.Errorf("%w: %w", ErrChannel, err)
	}
	if err := io.SendBytes(payload); err != nil {
		return fmt.Errorf("%w: %w", ErrChannel, err)
	}
	if err := io.Flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrChannel, err)
	}
	return nil
}

// ReadFrame reads one frame and returns its payload.
func ReadFrame(io IO) ([]byte, error) {
	l, err := io.ReceiveUint64()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChannel, err)
	}
	if l > MaxFrameSize {
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds %d",
			ErrChannel, l, MaxFrameSize)
	}
	payload, err := io.ReceiveBytes(int(l))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChannel, err)
	}
	return payload, nil
}

// PutElements encodes the ring elements as consecutive 8-byte
// big-endian values.
func PutElements(elements ...uint64) []byte {
	buf := make([]byte, len(elements)*ElementSize)
	for i, e := range elements {
		binary.BigEndian.PutUint64(buf[i*ElementSize:], e)
	}
	return buf
}

// Elements decodes exactly n ring elements from data.
func Elements(data []byte, n int) ([]uint64, error) {
	if len(data) != n*ElementSize {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d elements",
			ErrChannel, len(data), n)
	}
	result := make([]uint64, n)
	for i := range result {
		result[i] = binary.BigEndian.Uint64(data[i*ElementSize:])
	}
	return result, nil
}
