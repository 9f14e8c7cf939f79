//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

// Package env implements the session configuration for the triple
// generation and multiplication protocols.
package env

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/markkurossi/beaver/ring"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"
)

// Defaults for the configuration values.
const (
	DefaultKeyBits    = 2048
	DefaultNumTriples = 10
	DefaultAddr       = "localhost:29500"
	DefaultTimeout    = 30 * time.Second
)

// Config defines the configuration of one protocol session. Config
// must not be modified after being passed to a session. The zero
// value of each field selects its default.
type Config struct {
	// Rand is the source of entropy for secret shares and masks.
	Rand io.Reader

	// Modulus is the ring modulus M.
	Modulus uint64

	// KeyBits is the homomorphic encryption key size.
	KeyBits int

	// NumTriples is the number of triples to generate.
	NumTriples int

	// Addr is the rendezvous address.
	Addr string

	// Rank is the party rank: 0 for the initiator, 1 for the
	// responder.
	Rank int

	// Timeout bounds each blocking receive. Negative values disable
	// the timeout.
	Timeout time.Duration

	// Verbose enables protocol tracing.
	Verbose bool
}

// GetRandom returns the source of entropy for the session.
func (config *Config) GetRandom() io.Reader {
	if config.Rand != nil {
		return config.Rand
	}
	return rand.Reader
}

// GetRing returns the ring of the session.
func (config *Config) GetRing() (ring.Ring, error) {
	if config.Modulus == 0 {
		return ring.Default(), nil
	}
	return ring.New(config.Modulus)
}

// GetKeyBits returns the encryption key size.
func (config *Config) GetKeyBits() int {
	if config.KeyBits > 0 {
		return config.KeyBits
	}
	return DefaultKeyBits
}

// GetNumTriples returns the number of triples to generate.
func (config *Config) GetNumTriples() int {
	if config.NumTriples > 0 {
		return config.NumTriples
	}
	return DefaultNumTriples
}

// GetAddr returns the rendezvous address.
func (config *Config) GetAddr() string {
	if len(config.Addr) > 0 {
		return config.Addr
	}
	return DefaultAddr
}

// GetTimeout returns the receive timeout. The zero value means no
// timeout.
func (config *Config) GetTimeout() time.Duration {
	switch {
	case config.Timeout < 0:
		return 0
	case config.Timeout == 0:
		return DefaultTimeout
	default:
		return config.Timeout
	}
}

// Validate checks the configuration values.
func (config *Config) Validate() error {
	if _, err := config.GetRing(); err != nil {
		return err
	}
	if config.Rank != 0 && config.Rank != 1 {
		return fmt.Errorf("env: invalid rank %d: expected 0 or 1", config.Rank)
	}
	if config.NumTriples < 0 {
		return fmt.Errorf("env: invalid triple count %d", config.NumTriples)
	}
	return nil
}

// NewSeededRandom creates a deterministic random stream from the seed.
// The stream is the ChaCha20 keystream keyed with the BLAKE2b-256 hash
// of the seed. It is meant for reproducible tests and experiments; the
// same seed always produces the same shares.
func NewSeededRandom(seed []byte) io.Reader {
	key := blake2b.Sum256(seed)
	var nonce [chacha20.NonceSize]byte

	cipher, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		panic(err)
	}
	return &seeded{
		cipher: cipher,
	}
}

type seeded struct {
	cipher *chacha20.Cipher
}

func (s *seeded) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	s.cipher.XORKeyStream(p, p)
	return len(p), nil
}
