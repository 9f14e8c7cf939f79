//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package ring implements arithmetic in the integer ring Z_M that
// holds all secret shares. Ring elements are uint64 values in the
// canonical range [0, M).
package ring

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
	"math/bits"
)

const (
	// DefaultModulus is the default ring modulus 2^32.
	DefaultModulus uint64 = 1 << 32

	// MaxModulus is the largest supported modulus. It keeps the sum
	// of two canonical elements below 2^64.
	MaxModulus uint64 = 1 << 63
)

var (
	// ErrInvalidModulus is returned for moduli outside [2, MaxModulus].
	ErrInvalidModulus = errors.New("ring: invalid modulus")
)

// Ring defines the ring Z_M.
type Ring struct {
	m    uint64
	mask uint64
	pow2 bool
}

// New creates a ring with the modulus m.
func New(m uint64) (Ring, error) {
	if m < 2 || m > MaxModulus {
		return Ring{}, fmt.Errorf("%w: %d", ErrInvalidModulus, m)
	}
	return Ring{
		m:    m,
		mask: m - 1,
		pow2: m&(m-1) == 0,
	}, nil
}

// Default returns the ring Z_{2^32}.
func Default() Ring {
	r, _ := New(DefaultModulus)
	return r
}

// Modulus returns the ring modulus M.
func (r Ring) Modulus() uint64 {
	return r.m
}

// Bits returns the number of bits needed to represent any ring
// element.
func (r Ring) Bits() int {
	return bits.Len64(r.m - 1)
}

func (r Ring) String() string {
	if r.pow2 {
		return fmt.Sprintf("Z/2^%d", r.Bits())
	}
	return fmt.Sprintf("Z/%d", r.m)
}

// Reduce canonicalizes x into [0, M).
func (r Ring) Reduce(x uint64) uint64 {
	if r.pow2 {
		return x & r.mask
	}
	return x % r.m
}

// ReduceBig canonicalizes the arbitrary size integer x into [0, M).
// Negative values are reduced to their non-negative residue.
func (r Ring) ReduceBig(x *big.Int) uint64 {
	z := new(big.Int).Mod(x, new(big.Int).SetUint64(r.m))
	return z.Uint64()
}

// Add returns x+y mod M.
func (r Ring) Add(x, y uint64) uint64 {
	s := r.Reduce(x) + r.Reduce(y)
	if s >= r.m {
		s -= r.m
	}
	return s
}

// Neg returns -x mod M.
func (r Ring) Neg(x uint64) uint64 {
	x = r.Reduce(x)
	if x == 0 {
		return 0
	}
	return r.m - x
}

// Sub returns x-y mod M. The difference is computed as x+(M-y) so no
// negative intermediate value is ever formed.
func (r Ring) Sub(x, y uint64) uint64 {
	return r.Add(x, r.Neg(y))
}

// Mul returns x*y mod M.
func (r Ring) Mul(x, y uint64) uint64 {
	hi, lo := bits.Mul64(r.Reduce(x), r.Reduce(y))
	if r.pow2 {
		return lo & r.mask
	}
	return bits.Rem64(hi, lo, r.m)
}

// Random samples a uniformly random element of the ring from rand.
func (r Ring) Random(rand io.Reader) (uint64, error) {
	var buf [8]byte

	// 2^64 mod M; values below it would bias the result.
	threshold := -r.m % r.m

	for {
		if _, err := io.ReadFull(rand, buf[:]); err != nil {
			return 0, err
		}
		v := binary.BigEndian.Uint64(buf[:])
		if r.pow2 {
			return v & r.mask, nil
		}
		if v >= threshold {
			return v % r.m, nil
		}
	}
}

// Big returns the element x as a big.Int.
func Big(x uint64) *big.Int {
	return new(big.Int).SetUint64(x)
}
