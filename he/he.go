//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package he defines the additively homomorphic encryption primitive
// that the triple generation protocol is built on. The protocol only
// uses the operations below and never inspects ciphertext internals.
package he

import (
	"errors"
	"math/big"
)

var (
	// ErrKeyGeneration is returned when key generation fails or is
	// given unsafe parameters.
	ErrKeyGeneration = errors.New("he: key generation failed")

	// ErrDecryption is returned for malformed ciphertexts.
	ErrDecryption = errors.New("he: decryption failed")

	// ErrInvalidKey is returned for public keys that cannot be
	// parsed or are too small for the protocol.
	ErrInvalidKey = errors.New("he: invalid public key")

	// ErrInvalidCiphertext is returned when a homomorphic operation
	// is given a ciphertext that is not valid under the public key.
	ErrInvalidCiphertext = errors.New("he: invalid ciphertext")
)

// Ciphertext is an opaque serialized ciphertext.
type Ciphertext []byte

// Scheme implements key generation and public key parsing for an
// additively homomorphic encryption scheme.
type Scheme interface {
	// Name returns the scheme name.
	Name() string

	// GenerateKey creates a new key pair with the modulus size bits.
	GenerateKey(bits int) (PrivateKey, error)

	// ParsePublicKey parses a public key serialized with
	// PublicKey.Bytes.
	ParsePublicKey(data []byte) (PublicKey, error)
}

// PublicKey implements encryption and the homomorphic operations.
type PublicKey interface {
	// Bytes returns the serialized public key.
	Bytes() []byte

	// PlaintextBits returns the bit size of the plaintext space.
	// Plaintexts must stay below 2^(PlaintextBits()-1) for the
	// homomorphic operations to be exact over the integers.
	PlaintextBits() int

	// Encrypt encrypts the non-negative plaintext m.
	Encrypt(m *big.Int) (Ciphertext, error)

	// Add returns an encryption of the sum of the plaintexts of a
	// and b. Both ciphertexts must be encrypted under this key.
	Add(a, b Ciphertext) (Ciphertext, error)

	// MulScalar returns an encryption of the plaintext of c
	// multiplied by the non-negative scalar k.
	MulScalar(c Ciphertext, k *big.Int) (Ciphertext, error)
}

// PrivateKey implements decryption.
type PrivateKey interface {
	// PublicKey returns the public key of the key pair.
	PublicKey() PublicKey

	// Decrypt decrypts the ciphertext c. The result is the full
	// plaintext of the scheme; reducing it into a smaller ring is
	// the caller's responsibility.
	Decrypt(c Ciphertext) (*big.Int, error)
}
