//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package beaver

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/markkurossi/beaver/env"
	"github.com/markkurossi/beaver/he"
	"github.com/markkurossi/beaver/he/paillier"
	"github.com/markkurossi/beaver/ring"
	"github.com/markkurossi/beaver/triple"
	"github.com/markkurossi/beaver/wire"
	"github.com/stretchr/testify/require"
)

const testKeyBits = 512

var testScheme = &paillier.Scheme{MinBits: testKeyBits}

type result struct {
	store *triple.Store
	err   error
}

// elements returns a reader that yields the argument values as
// 8-byte big-endian integers followed by pad zero bytes.
func elements(pad int, values ...uint64) *bytes.Reader {
	var buf []byte
	for _, v := range values {
		buf = binary.BigEndian.AppendUint64(buf, v)
	}
	buf = append(buf, make([]byte, pad)...)
	return bytes.NewReader(buf)
}

func generate(t *testing.T, cfg0, cfg1 *env.Config) (
	*Initiator, *Responder, result, result) {

	c0, c1 := wire.Pipe()

	p0, err := NewInitiator(cfg0, testScheme, c0)
	require.NoError(t, err)
	p1, err := NewResponder(cfg1, testScheme, c1)
	require.NoError(t, err)

	done := make(chan result)
	go func() {
		store, err := p1.Generate(context.Background())
		done <- result{store, err}
	}()
	store, err := p0.Generate(context.Background())
	r0 := result{store, err}
	r1 := <-done

	// The responder never has pending writes when it returns.
	c1.Close()
	c0.Close()

	return p0, p1, r0, r1
}

func TestGenerate(t *testing.T) {
	const n = 20

	p0, p1, r0, r1 := generate(t,
		&env.Config{
			KeyBits:    testKeyBits,
			NumTriples: n,
			Rank:       wire.RankInitiator,
		},
		&env.Config{
			KeyBits: testKeyBits,
			Rank:    wire.RankResponder,
		})
	require.NoError(t, r0.err)
	require.NoError(t, r1.err)

	require.Equal(t, n, r0.store.Len())
	require.Equal(t, n, r1.store.Len())
	require.NoError(t, triple.Verify(ring.Default(), r0.store, r1.store))

	require.NotEmpty(t, p0.Fingerprint())
	require.Equal(t, p0.Fingerprint(), p1.Fingerprint())

	ts, err := p0.Timing().TripleStats()
	require.NoError(t, err)
	require.Equal(t, n, ts.Count)
	require.LessOrEqual(t, ts.Median, ts.Max)

	var buf bytes.Buffer
	p1.Timing().Print(&buf, p1.IOStats())
	require.Contains(t, buf.String(), "Setup")
	require.Contains(t, buf.String(), "Triples")
	require.Contains(t, buf.String(), "Median")
}

func TestGenerateModulus(t *testing.T) {
	for _, m := range []uint64{1 << 16, 1000003, 1 << 63} {
		_, _, r0, r1 := generate(t,
			&env.Config{
				Modulus:    m,
				KeyBits:    testKeyBits,
				NumTriples: 5,
			},
			&env.Config{
				Modulus:    m,
				KeyBits:    testKeyBits,
				NumTriples: 5,
				Rank:       wire.RankResponder,
			})
		require.NoError(t, r0.err, "modulus %d", m)
		require.NoError(t, r1.err, "modulus %d", m)

		r, err := ring.New(m)
		require.NoError(t, err)
		require.NoError(t, triple.Verify(r, r0.store, r1.store))
	}
}

func TestGenerateWorkedExample(t *testing.T) {
	// Initiator: a=5 b=7. Responder: a=3 b=2 and a zero mask.
	mask := (maskBits(ring.Default()) + 7) / 8

	_, _, r0, r1 := generate(t,
		&env.Config{
			Rand:       elements(0, 5, 7),
			KeyBits:    testKeyBits,
			NumTriples: 1,
		},
		&env.Config{
			Rand:       elements(mask, 3, 2),
			KeyBits:    testKeyBits,
			NumTriples: 1,
			Rank:       wire.RankResponder,
		})
	require.NoError(t, r0.err)
	require.NoError(t, r1.err)

	t0, err := r0.store.Get(0)
	require.NoError(t, err)
	t1, err := r1.store.Get(0)
	require.NoError(t, err)

	require.Equal(t, triple.Triple{A: 5, B: 7, C: 66}, t0)
	require.Equal(t, triple.Triple{A: 3, B: 2, C: 6}, t1)
}

func TestGenerateSeeded(t *testing.T) {
	run := func() (*triple.Store, *triple.Store) {
		_, _, r0, r1 := generate(t,
			&env.Config{
				Rand:       env.NewSeededRandom([]byte("p1")),
				KeyBits:    testKeyBits,
				NumTriples: 3,
			},
			&env.Config{
				Rand:       env.NewSeededRandom([]byte("p2")),
				KeyBits:    testKeyBits,
				NumTriples: 3,
				Rank:       wire.RankResponder,
			})
		require.NoError(t, r0.err)
		require.NoError(t, r1.err)
		return r0.store, r1.store
	}
	a0, a1 := run()
	b0, b1 := run()

	// The key pair differs between runs but the shares do not.
	require.Equal(t, a0.Triples(), b0.Triples())
	require.Equal(t, a1.Triples(), b1.Triples())
}

func TestGenerateCountMismatch(t *testing.T) {
	_, _, r0, r1 := generate(t,
		&env.Config{
			KeyBits:    testKeyBits,
			NumTriples: 3,
			Timeout:    time.Second,
		},
		&env.Config{
			KeyBits:    testKeyBits,
			NumTriples: 2,
			Rank:       wire.RankResponder,
		})
	require.ErrorIs(t, r1.err, ErrSession)
	require.Nil(t, r1.store)
	require.ErrorIs(t, r0.err, wire.ErrChannel)
	require.Nil(t, r0.store)
}

func TestGenerateModulusMismatch(t *testing.T) {
	_, _, r0, r1 := generate(t,
		&env.Config{
			KeyBits:    testKeyBits,
			NumTriples: 2,
			Timeout:    time.Second,
		},
		&env.Config{
			Modulus: 1 << 16,
			KeyBits: testKeyBits,
			Rank:    wire.RankResponder,
		})
	require.ErrorIs(t, r1.err, ErrSession)
	require.Error(t, r0.err)
}

func TestKeyTooSmall(t *testing.T) {
	c0, c1 := wire.Pipe()
	defer c1.Close()
	defer c0.Close()

	p0, err := NewInitiator(&env.Config{KeyBits: 96},
		&paillier.Scheme{MinBits: 64}, c0)
	require.NoError(t, err)
	_, err = p0.Generate(context.Background())
	require.ErrorIs(t, err, he.ErrInvalidKey)

	p0, err = NewInitiator(&env.Config{KeyBits: testKeyBits},
		paillier.New(), c0)
	require.NoError(t, err)
	_, err = p0.Generate(context.Background())
	require.ErrorIs(t, err, he.ErrKeyGeneration)
}

func TestRoleRank(t *testing.T) {
	c0, c1 := wire.Pipe()
	defer c1.Close()
	defer c0.Close()

	_, err := NewInitiator(&env.Config{Rank: 1}, testScheme, c0)
	require.ErrorIs(t, err, ErrSession)
	_, err = NewResponder(&env.Config{}, testScheme, c1)
	require.ErrorIs(t, err, ErrSession)
	_, err = NewResponder(&env.Config{Rank: 2}, testScheme, c1)
	require.Error(t, err)
}

func TestResponderTimeout(t *testing.T) {
	c0, c1 := wire.Pipe()
	defer c0.Close()
	defer c1.Close()

	p1, err := NewResponder(&env.Config{
		Rank:    wire.RankResponder,
		Timeout: 50 * time.Millisecond,
	}, testScheme, c1)
	require.NoError(t, err)

	start := time.Now()
	store, err := p1.Generate(context.Background())
	require.ErrorIs(t, err, wire.ErrChannel)
	require.Nil(t, store)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestPeerDisconnect(t *testing.T) {
	c0, c1 := wire.Pipe()
	defer c1.Close()

	p1, err := NewResponder(&env.Config{Rank: wire.RankResponder},
		testScheme, c1)
	require.NoError(t, err)

	require.NoError(t, c0.Close())

	_, err = p1.Generate(context.Background())
	require.ErrorIs(t, err, wire.ErrChannel)
}

func TestGenerateCancel(t *testing.T) {
	c0, c1 := wire.Pipe()

	p0, err := NewInitiator(&env.Config{
		KeyBits:    testKeyBits,
		NumTriples: 5,
	}, testScheme, c0)
	require.NoError(t, err)
	p1, err := NewResponder(&env.Config{
		KeyBits: testKeyBits,
		Rank:    wire.RankResponder,
	}, testScheme, c1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan result)
	go func() {
		store, err := p1.Generate(ctx)
		done <- result{store, err}
	}()
	s0, err := p0.Generate(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, s0)

	r1 := <-done
	require.ErrorIs(t, r1.err, context.Canceled)
	require.Nil(t, r1.store)

	c0.Close()
	c1.Close()
}

func TestHeader(t *testing.T) {
	r := ring.Default()

	m, n, err := decodeHeader(encodeHeader(r, 42))
	require.NoError(t, err)
	require.Equal(t, r.Modulus(), m)
	require.Equal(t, 42, n)

	_, _, err = decodeHeader(wire.PutElements(r.Modulus(), 0))
	require.ErrorIs(t, err, ErrSession)
	_, _, err = decodeHeader(wire.PutElements(r.Modulus(), 1<<31))
	require.ErrorIs(t, err, ErrSession)
	_, _, err = decodeHeader(wire.PutElements(r.Modulus()))
	require.ErrorIs(t, err, wire.ErrChannel)
}

func TestRandomMask(t *testing.T) {
	bits := maskBits(ring.Default())
	require.Equal(t, 2*32+1+StatSecurity, bits)

	ones := bytes.Repeat([]byte{0xff}, 32)
	v, err := randomMask(bytes.NewReader(ones), bits)
	require.NoError(t, err)
	require.Equal(t, bits, v.BitLen())

	_, err = randomMask(bytes.NewReader(nil), bits)
	require.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte{1, 2, 3})
	require.Len(t, a, 16)
	require.Equal(t, a, Fingerprint([]byte{1, 2, 3}))
	require.NotEqual(t, a, Fingerprint([]byte{1, 2, 4}))
}
