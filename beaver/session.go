//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package beaver

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/markkurossi/beaver/env"
	"github.com/markkurossi/beaver/he"
	"github.com/markkurossi/beaver/p2p"
	"github.com/markkurossi/beaver/ring"
	"github.com/markkurossi/beaver/wire"
	"github.com/markkurossi/text/superscript"
	"github.com/zeebo/blake3"
)

const (
	// StatSecurity is the statistical security parameter of the
	// Responder's mask in bits.
	StatSecurity = 40
)

var (
	// ErrSession is returned when the parties disagree about the
	// session parameters.
	ErrSession = errors.New("beaver: session mismatch")

	// ErrIndexMismatch is returned when the parties use triples at
	// different indices in a multiplication.
	ErrIndexMismatch = errors.New("beaver: triple index mismatch")
)

type timeouter interface {
	SetTimeout(timeout time.Duration)
}

type statser interface {
	Stats() p2p.IOStats
}

// party holds the state common to both protocol roles.
type party struct {
	verbose     bool
	ring        ring.Ring
	ch          wire.Channel
	rank        int
	peer        int
	rand        io.Reader
	timing      *Timing
	fingerprint string
}

func newParty(cfg *env.Config, ch wire.Channel, rank int) (party, error) {
	if err := cfg.Validate(); err != nil {
		return party{}, err
	}
	if cfg.Rank != rank {
		return party{}, fmt.Errorf("%w: configured rank %d, role rank %d",
			ErrSession, cfg.Rank, rank)
	}
	r, err := cfg.GetRing()
	if err != nil {
		return party{}, err
	}
	if t, ok := ch.(timeouter); ok {
		t.SetTimeout(cfg.GetTimeout())
	}
	return party{
		verbose: cfg.Verbose,
		ring:    r,
		ch:      ch,
		rank:    rank,
		peer:    1 - rank,
		rand:    cfg.GetRandom(),
		timing:  NewTiming(),
	}, nil
}

// Debugf prints debugging message if verbose output is enabled.
func (p *party) Debugf(format string, a ...interface{}) {
	if !p.verbose {
		return
	}
	fmt.Printf("P%s: ", superscript.Itoa(p.rank+1))
	fmt.Printf(format, a...)
}

// Fingerprint returns the session fingerprint. It is empty until the
// public key has been exchanged.
func (p *party) Fingerprint() string {
	return p.fingerprint
}

// Timing returns the timing samples of the session.
func (p *party) Timing() *Timing {
	return p.timing
}

// IOStats returns the channel I/O statistics if the channel provides
// them.
func (p *party) IOStats() p2p.IOStats {
	if s, ok := p.ch.(statser); ok {
		return s.Stats()
	}
	return p2p.NewIOStats()
}

func (p *party) send(data []byte) error {
	return p.ch.Send(p.peer, data)
}

func (p *party) recv() ([]byte, error) {
	return p.ch.Recv(p.peer)
}

// maskBits returns the Responder's mask size for the ring r: the
// cross terms a0*b1 + b0*a1 take 2*bits+1 bits and the mask exceeds
// them by StatSecurity bits.
func maskBits(r ring.Ring) int {
	return 2*r.Bits() + 1 + StatSecurity
}

// checkKey verifies that the plaintext space of pub holds the masked
// sum without wrapping.
func checkKey(pub he.PublicKey, r ring.Ring) error {
	need := maskBits(r) + 2
	if pub.PlaintextBits() < need {
		return fmt.Errorf("%w: %d-bit plaintext space, need %d bits for %v",
			he.ErrInvalidKey, pub.PlaintextBits(), need, r)
	}
	return nil
}

// randomMask samples a uniformly random bits-bit integer.
func randomMask(rand io.Reader, bits int) (*big.Int, error) {
	buf := make([]byte, (bits+7)/8)
	if _, err := io.ReadFull(rand, buf); err != nil {
		return nil, err
	}
	if excess := len(buf)*8 - bits; excess > 0 {
		buf[0] &= 0xff >> excess
	}
	return new(big.Int).SetBytes(buf), nil
}

// Fingerprint computes the session fingerprint from the serialized
// public key. Both parties derive the same value, and operators can
// compare it to confirm they run the same session.
func Fingerprint(pub []byte) string {
	sum := blake3.Sum256(pub)
	return hex.EncodeToString(sum[:8])
}

func encodeHeader(r ring.Ring, count int) []byte {
	return wire.PutElements(r.Modulus(), uint64(count))
}

func decodeHeader(data []byte) (modulus uint64, count int, err error) {
	v, err := wire.Elements(data, 2)
	if err != nil {
		return 0, 0, err
	}
	if v[1] == 0 || v[1] > uint64(maxTriples) {
		return 0, 0, fmt.Errorf("%w: invalid triple count %d", ErrSession, v[1])
	}
	return v[0], int(v[1]), nil
}

const maxTriples = 1 << 30
