//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package beaver

import (
	"crypto/rand"
	"testing"

	"github.com/markkurossi/beaver/env"
	"github.com/markkurossi/beaver/ring"
	"github.com/markkurossi/beaver/triple"
	"github.com/markkurossi/beaver/wire"
	"github.com/stretchr/testify/require"
)

// dealer creates n valid triple pairs from random cleartext triples.
func dealer(t *testing.T, r ring.Ring, n int) (*triple.Store, *triple.Store) {
	s0 := triple.NewStore()
	s1 := triple.NewStore()
	for i := 0; i < n; i++ {
		a, b, a0, b0, c0 := random(t, r), random(t, r), random(t, r),
			random(t, r), random(t, r)
		c := r.Mul(a, b)
		s0.Append(triple.Triple{A: a0, B: b0, C: c0})
		s1.Append(triple.Triple{
			A: r.Sub(a, a0),
			B: r.Sub(b, b0),
			C: r.Sub(c, c0),
		})
	}
	return s0, s1
}

func random(t *testing.T, r ring.Ring) uint64 {
	v, err := r.Random(rand.Reader)
	require.NoError(t, err)
	return v
}

type share struct {
	z   uint64
	err error
}

// multiply runs f for both parties over a pipe and returns their
// results.
func multiply(t *testing.T, s0, s1 *triple.Store,
	f func(m *Multiplier) (uint64, error)) (share, share) {

	c0, c1 := wire.Pipe()

	m0, err := NewMultiplier(&env.Config{Rank: wire.RankInitiator}, c0, s0)
	require.NoError(t, err)
	m1, err := NewMultiplier(&env.Config{Rank: wire.RankResponder}, c1, s1)
	require.NoError(t, err)

	done := make(chan share)
	go func() {
		z, err := f(m1)
		done <- share{z, err}
	}()
	z, err := f(m0)
	r0 := share{z, err}
	r1 := <-done

	c1.Close()
	c0.Close()

	return r0, r1
}

func TestMaskCombine(t *testing.T) {
	rings := []ring.Ring{ring.Default()}
	for _, m := range []uint64{2, 1000003, 1 << 63, 1<<61 - 1} {
		r, err := ring.New(m)
		require.NoError(t, err)
		rings = append(rings, r)
	}
	for _, r := range rings {
		s0, s1 := dealer(t, r, 100)
		for i := 0; i < s0.Len(); i++ {
			t0, _ := s0.Get(i)
			t1, _ := s1.Get(i)

			x0, y0 := random(t, r), random(t, r)
			x1, y1 := random(t, r), random(t, r)

			d0, e0 := Mask(r, t0, x0, y0)
			d1, e1 := Mask(r, t1, x1, y1)
			d := r.Add(d0, d1)
			e := r.Add(e0, e1)

			z0 := Combine(r, wire.RankInitiator, t0, d, e)
			z1 := Combine(r, wire.RankResponder, t1, d, e)

			want := r.Mul(r.Add(x0, x1), r.Add(y0, y1))
			require.Equal(t, want, r.Add(z0, z1), "%v: triple %d", r, i)
		}
	}
}

func TestCombineCrossTerm(t *testing.T) {
	r := ring.Default()
	tr := triple.Triple{A: 1, B: 2, C: 3}

	// Only the responder adds d*e.
	require.Equal(t, uint64(3+5*2+7*1), Combine(r, 0, tr, 5, 7))
	require.Equal(t, uint64(3+5*2+7*1+5*7), Combine(r, 1, tr, 5, 7))
}

func TestMultiply(t *testing.T) {
	// a0=5 b0=7 c0=66 and a1=3 b1=2 c1=6.
	s0 := triple.NewStore(triple.Triple{A: 5, B: 7, C: 66})
	s1 := triple.NewStore(triple.Triple{A: 3, B: 2, C: 6})

	inputs := map[int][2]uint64{
		wire.RankInitiator: {42, 17},
		wire.RankResponder: {13, 28},
	}
	r0, r1 := multiply(t, s0, s1, func(m *Multiplier) (uint64, error) {
		in := inputs[m.rank]
		z, err := m.Mul(in[0], in[1])
		if err != nil {
			return 0, err
		}
		return m.Open(z)
	})
	require.NoError(t, r0.err)
	require.NoError(t, r1.err)
	require.Equal(t, uint64(2475), r0.z)
	require.Equal(t, uint64(2475), r1.z)

	require.True(t, s0.Consumed(0))
	require.True(t, s1.Consumed(0))
}

func TestMultiplyMany(t *testing.T) {
	const n = 50
	r := ring.Default()
	s0, s1 := dealer(t, r, n)

	var x, y [2][n]uint64
	for p := 0; p < 2; p++ {
		for i := 0; i < n; i++ {
			x[p][i] = random(t, r)
			y[p][i] = random(t, r)
		}
	}

	var shares [2][n]uint64
	r0, r1 := multiply(t, s0, s1, func(m *Multiplier) (uint64, error) {
		for i := 0; i < n; i++ {
			z, err := m.Mul(x[m.rank][i], y[m.rank][i])
			if err != nil {
				return 0, err
			}
			shares[m.rank][i] = z
		}
		return 0, nil
	})
	require.NoError(t, r0.err)
	require.NoError(t, r1.err)

	for i := 0; i < n; i++ {
		want := r.Mul(r.Add(x[0][i], x[1][i]), r.Add(y[0][i], y[1][i]))
		require.Equal(t, want, r.Add(shares[0][i], shares[1][i]))
	}
	require.Zero(t, s0.Remaining())
	require.Zero(t, s1.Remaining())
}

func TestMultiplyReuse(t *testing.T) {
	s0, s1 := dealer(t, ring.Default(), 2)

	r0, r1 := multiply(t, s0, s1, func(m *Multiplier) (uint64, error) {
		if _, err := m.MulAt(1, 3, 4); err != nil {
			return 0, err
		}
		return m.MulAt(1, 5, 6)
	})
	require.ErrorIs(t, r0.err, triple.ErrConsumedTriple)
	require.ErrorIs(t, r1.err, triple.ErrConsumedTriple)
	require.False(t, s0.Consumed(0))
}

func TestMultiplyExhausted(t *testing.T) {
	s0, s1 := dealer(t, ring.Default(), 1)

	r0, r1 := multiply(t, s0, s1, func(m *Multiplier) (uint64, error) {
		if _, err := m.Mul(1, 2); err != nil {
			return 0, err
		}
		return m.Mul(3, 4)
	})
	require.ErrorIs(t, r0.err, triple.ErrExhausted)
	require.ErrorIs(t, r1.err, triple.ErrExhausted)
}

func TestMultiplyIndexMismatch(t *testing.T) {
	s0, s1 := dealer(t, ring.Default(), 2)

	r0, r1 := multiply(t, s0, s1, func(m *Multiplier) (uint64, error) {
		return m.MulAt(m.rank, 1, 1)
	})
	require.ErrorIs(t, r0.err, ErrIndexMismatch)
	require.ErrorIs(t, r1.err, ErrIndexMismatch)
}

func TestMultiplyCountMismatch(t *testing.T) {
	s0, s1 := dealer(t, ring.Default(), 3)
	s1.Append(triple.Triple{})

	r0, r1 := multiply(t, s0, s1, func(m *Multiplier) (uint64, error) {
		return m.Mul(1, 1)
	})
	require.ErrorIs(t, r0.err, triple.ErrTripleCountMismatch)
	require.ErrorIs(t, r1.err, triple.ErrTripleCountMismatch)

	// No triple was consumed.
	require.Equal(t, 3, s0.Remaining())
	require.Equal(t, 4, s1.Remaining())
}

func TestMultiplyGenerated(t *testing.T) {
	_, _, g0, g1 := generate(t,
		&env.Config{
			KeyBits:    testKeyBits,
			NumTriples: 4,
		},
		&env.Config{
			KeyBits: testKeyBits,
			Rank:    wire.RankResponder,
		})
	require.NoError(t, g0.err)
	require.NoError(t, g1.err)

	inputs := map[int][2]uint64{
		wire.RankInitiator: {42, 17},
		wire.RankResponder: {13, 28},
	}
	r0, r1 := multiply(t, g0.store, g1.store,
		func(m *Multiplier) (uint64, error) {
			in := inputs[m.rank]
			z, err := m.MulAt(0, in[0], in[1])
			if err != nil {
				return 0, err
			}
			return m.Open(z)
		})
	require.NoError(t, r0.err)
	require.NoError(t, r1.err)
	require.Equal(t, uint64(2475), r0.z)
	require.Equal(t, uint64(2475), r1.z)
	require.Equal(t, 3, g0.store.Remaining())
}
