//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package paillier implements the he primitive with the Paillier
// cryptosystem.
package paillier

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"sync"

	"github.com/markkurossi/beaver/he"
	gadget "github.com/roasbeef/go-go-gadget-paillier"
)

const (
	// DefaultMinBits is the smallest modulus size accepted by default.
	DefaultMinBits = 2048
)

var (
	_ he.Scheme     = &Scheme{}
	_ he.PublicKey  = &PublicKey{}
	_ he.PrivateKey = &PrivateKey{}

	one = big.NewInt(1)
)

// Scheme implements the Paillier scheme.
type Scheme struct {
	// MinBits is the smallest accepted modulus size. The zero value
	// means DefaultMinBits.
	MinBits int

	// Rand is the entropy source for key generation. The zero value
	// means crypto/rand. Key generation samples both primes
	// concurrently; GenerateKey serializes the reads so Rand need not
	// be safe for concurrent use.
	Rand io.Reader
}

// New creates a Paillier scheme with the default parameters.
func New() *Scheme {
	return &Scheme{}
}

// Name implements he.Scheme.Name.
func (s *Scheme) Name() string {
	return "Paillier"
}

func (s *Scheme) minBits() int {
	if s.MinBits > 0 {
		return s.MinBits
	}
	return DefaultMinBits
}

func (s *Scheme) random() io.Reader {
	if s.Rand != nil {
		return &lockedReader{
			r: s.Rand,
		}
	}
	return rand.Reader
}

// lockedReader serializes reads from r.
type lockedReader struct {
	m sync.Mutex
	r io.Reader
}

func (l *lockedReader) Read(p []byte) (int, error) {
	l.m.Lock()
	defer l.m.Unlock()
	return l.r.Read(p)
}

// GenerateKey implements he.Scheme.GenerateKey.
func (s *Scheme) GenerateKey(bits int) (he.PrivateKey, error) {
	if bits < s.minBits() {
		return nil, fmt.Errorf("%w: %d-bit modulus below minimum %d",
			he.ErrKeyGeneration, bits, s.minBits())
	}
	key, err := gadget.GenerateKey(s.random(), bits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", he.ErrKeyGeneration, err)
	}
	return &PrivateKey{
		key: key,
		pub: &PublicKey{
			key: &key.PublicKey,
		},
	}, nil
}

// ParsePublicKey implements he.Scheme.ParsePublicKey. The key is
// encoded as the big-endian modulus N.
func (s *Scheme) ParsePublicKey(data []byte) (he.PublicKey, error) {
	n := new(big.Int).SetBytes(data)
	if n.BitLen() < s.minBits() {
		return nil, fmt.Errorf("%w: %d-bit modulus below minimum %d",
			he.ErrInvalidKey, n.BitLen(), s.minBits())
	}
	if n.Bit(0) == 0 {
		return nil, fmt.Errorf("%w: even modulus", he.ErrInvalidKey)
	}
	return &PublicKey{
		key: &gadget.PublicKey{
			N:        n,
			G:        new(big.Int).Add(n, one),
			NSquared: new(big.Int).Mul(n, n),
		},
	}, nil
}

// PublicKey implements a Paillier public key.
type PublicKey struct {
	key *gadget.PublicKey
}

// Bytes implements he.PublicKey.Bytes.
func (pub *PublicKey) Bytes() []byte {
	return pub.key.N.Bytes()
}

// PlaintextBits implements he.PublicKey.PlaintextBits.
func (pub *PublicKey) PlaintextBits() int {
	return pub.key.N.BitLen()
}

// Encrypt implements he.PublicKey.Encrypt.
func (pub *PublicKey) Encrypt(m *big.Int) (he.Ciphertext, error) {
	if m.Sign() < 0 || m.Cmp(pub.key.N) >= 0 {
		return nil, fmt.Errorf("paillier: plaintext out of range")
	}
	c, err := gadget.Encrypt(pub.key, m.Bytes())
	if err != nil {
		return nil, fmt.Errorf("paillier: encrypt: %w", err)
	}
	return c, nil
}

// Add implements he.PublicKey.Add.
func (pub *PublicKey) Add(a, b he.Ciphertext) (he.Ciphertext, error) {
	if !pub.valid(a) || !pub.valid(b) {
		return nil, he.ErrInvalidCiphertext
	}
	return gadget.AddCipher(pub.key, a, b), nil
}

// MulScalar implements he.PublicKey.MulScalar.
func (pub *PublicKey) MulScalar(c he.Ciphertext, k *big.Int) (
	he.Ciphertext, error) {

	if !pub.valid(c) {
		return nil, he.ErrInvalidCiphertext
	}
	if k.Sign() < 0 {
		return nil, fmt.Errorf("paillier: negative scalar")
	}
	return gadget.Mul(pub.key, c, k.Bytes()), nil
}

// valid checks that c is in the ciphertext space ]0, N^2[.
func (pub *PublicKey) valid(c he.Ciphertext) bool {
	if len(c) == 0 {
		return false
	}
	v := new(big.Int).SetBytes(c)
	return v.Sign() > 0 && v.Cmp(pub.key.NSquared) < 0
}

// PrivateKey implements a Paillier private key.
type PrivateKey struct {
	key *gadget.PrivateKey
	pub *PublicKey
}

// PublicKey implements he.PrivateKey.PublicKey.
func (priv *PrivateKey) PublicKey() he.PublicKey {
	return priv.pub
}

// Decrypt implements he.PrivateKey.Decrypt.
func (priv *PrivateKey) Decrypt(c he.Ciphertext) (*big.Int, error) {
	if !priv.pub.valid(c) {
		return nil, fmt.Errorf("%w: ciphertext out of range", he.ErrDecryption)
	}
	m, err := gadget.Decrypt(priv.key, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", he.ErrDecryption, err)
	}
	return new(big.Int).SetBytes(m), nil
}
