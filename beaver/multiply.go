//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package beaver

import (
	"fmt"

	"github.com/markkurossi/beaver/env"
	"github.com/markkurossi/beaver/ring"
	"github.com/markkurossi/beaver/triple"
	"github.com/markkurossi/beaver/wire"
)

// Mask computes the party's masked operands d = x-a and e = y-b.
func Mask(r ring.Ring, t triple.Triple, x, y uint64) (d, e uint64) {
	return r.Sub(x, t.A), r.Sub(y, t.B)
}

// Combine computes the party's share of x*y from the opened values d
// and e. Only the party with rank 1 adds the d*e term.
func Combine(r ring.Ring, rank int, t triple.Triple, d, e uint64) uint64 {
	z := r.Add(t.C, r.Add(r.Mul(d, t.B), r.Mul(e, t.A)))
	if rank == wire.RankResponder {
		z = r.Add(z, r.Mul(d, e))
	}
	return z
}

// Multiplier runs the online Beaver multiplication for one party.
type Multiplier struct {
	party
	store  *triple.Store
	synced bool
}

// NewMultiplier creates a multiplier for the party cfg.Rank. The
// store holds the party's triples and must be aligned with the
// peer's store.
func NewMultiplier(cfg *env.Config, ch wire.Channel, store *triple.Store) (
	*Multiplier, error) {

	p, err := newParty(cfg, ch, cfg.Rank)
	if err != nil {
		return nil, err
	}
	return &Multiplier{
		party: p,
		store: store,
	}, nil
}

// Store returns the multiplier's triple store.
func (m *Multiplier) Store() *triple.Store {
	return m.store
}

// Mul computes the party's share of x*y with the next unused triple.
// Both parties must call Mul in the same order.
func (m *Multiplier) Mul(x, y uint64) (uint64, error) {
	if err := m.sync(); err != nil {
		return 0, err
	}
	idx, t, err := m.store.Next()
	if err != nil {
		return 0, err
	}
	return m.mul(idx, t, x, y)
}

// MulAt computes the party's share of x*y with the triple at index.
func (m *Multiplier) MulAt(index int, x, y uint64) (uint64, error) {
	if err := m.sync(); err != nil {
		return 0, err
	}
	t, err := m.store.Consume(index)
	if err != nil {
		return 0, err
	}
	return m.mul(index, t, x, y)
}

// Open reveals the shared value whose local share is z.
func (m *Multiplier) Open(z uint64) (uint64, error) {
	data, err := m.exchange(wire.PutElements(m.ring.Reduce(z)))
	if err != nil {
		return 0, err
	}
	v, err := wire.Elements(data, 1)
	if err != nil {
		return 0, err
	}
	return m.ring.Add(z, m.ring.Reduce(v[0])), nil
}

func (m *Multiplier) mul(index int, t triple.Triple, x, y uint64) (
	uint64, error) {

	d, e := Mask(m.ring, t, x, y)

	data, err := m.exchange(wire.PutElements(uint64(index), d, e))
	if err != nil {
		return 0, err
	}
	v, err := wire.Elements(data, 3)
	if err != nil {
		return 0, err
	}
	if v[0] != uint64(index) {
		return 0, fmt.Errorf("%w: local %d, peer %d",
			ErrIndexMismatch, index, v[0])
	}
	d = m.ring.Add(d, m.ring.Reduce(v[1]))
	e = m.ring.Add(e, m.ring.Reduce(v[2]))

	z := Combine(m.ring, m.rank, t, d, e)
	m.Debugf("mul #%d: d=%d, e=%d\n", index, d, e)

	return z, nil
}

// sync checks on first use that both parties hold the same number of
// triples.
func (m *Multiplier) sync() error {
	if m.synced {
		return nil
	}
	data, err := m.exchange(wire.PutElements(uint64(m.store.Len())))
	if err != nil {
		return err
	}
	v, err := wire.Elements(data, 1)
	if err != nil {
		return err
	}
	if v[0] != uint64(m.store.Len()) {
		return fmt.Errorf("%w: local %d, peer %d",
			triple.ErrTripleCountMismatch, m.store.Len(), v[0])
	}
	m.synced = true
	return nil
}

// exchange sends data to the peer and returns the peer's message. The
// initiator sends first and the responder receives first.
func (m *Multiplier) exchange(data []byte) ([]byte, error) {
	if m.rank == wire.RankInitiator {
		if err := m.send(data); err != nil {
			return nil, err
		}
		return m.recv()
	}
	peer, err := m.recv()
	if err != nil {
		return nil, err
	}
	if err := m.send(data); err != nil {
		return nil, err
	}
	return peer, nil
}
