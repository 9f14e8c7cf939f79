//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package beaver

import (
	"context"
	"fmt"
	"time"

	"github.com/markkurossi/beaver/env"
	"github.com/markkurossi/beaver/he"
	"github.com/markkurossi/beaver/p2p"
	"github.com/markkurossi/beaver/ring"
	"github.com/markkurossi/beaver/triple"
	"github.com/markkurossi/beaver/wire"
)

// Responder implements the party that combines the initiator's
// encrypted shares with its own shares.
type Responder struct {
	party
	scheme he.Scheme
	count  int
}

// NewResponder creates the responder for the session. The channel
// must connect to the initiator. If cfg.NumTriples is zero, the
// responder accepts the initiator's triple count.
func NewResponder(cfg *env.Config, scheme he.Scheme, ch wire.Channel) (
	*Responder, error) {

	p, err := newParty(cfg, ch, wire.RankResponder)
	if err != nil {
		return nil, err
	}
	return &Responder{
		party:  p,
		scheme: scheme,
		count:  cfg.NumTriples,
	}, nil
}

// Generate runs the session and returns the responder's triples. On
// error no triples are returned.
func (p *Responder) Generate(ctx context.Context) (*triple.Store, error) {
	p.timing = NewTiming()

	pubData, err := p.recv()
	if err != nil {
		return nil, err
	}
	pub, err := p.scheme.ParsePublicKey(pubData)
	if err != nil {
		return nil, err
	}
	if err := checkKey(pub, p.ring); err != nil {
		return nil, err
	}
	p.fingerprint = Fingerprint(pubData)

	hdr, err := p.recv()
	if err != nil {
		return nil, err
	}
	modulus, count, err := decodeHeader(hdr)
	if err != nil {
		return nil, err
	}
	if modulus != p.ring.Modulus() {
		return nil, fmt.Errorf("%w: initiator modulus %d, ours %d",
			ErrSession, modulus, p.ring.Modulus())
	}
	if p.count != 0 && count != p.count {
		return nil, fmt.Errorf("%w: initiator triple count %d, ours %d",
			ErrSession, count, p.count)
	}
	p.Debugf("session %s: %d triples in %v\n", p.fingerprint, count, p.ring)
	p.timing.Sample("Setup", []string{
		p2p.FileSize(len(pubData)).String(),
	})

	store := triple.NewStore()
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		t, err := p.triple(pub)
		if err != nil {
			return nil, fmt.Errorf("triple %d: %w", i, err)
		}
		store.Append(t)
		p.timing.Triple(time.Since(start))
		p.Debugf("triple %d/%d\n", i+1, count)
	}
	p.timing.Sample("Triples", []string{
		p2p.FileSize(p.IOStats().Sum()).String(),
	})

	return store, nil
}

// triple runs one round of the protocol. The initiator's shares are
// only handled as ciphertexts.
func (p *Responder) triple(pub he.PublicKey) (triple.Triple, error) {
	a, err := p.ring.Random(p.rand)
	if err != nil {
		return triple.Triple{}, err
	}
	b, err := p.ring.Random(p.rand)
	if err != nil {
		return triple.Triple{}, err
	}
	mask, err := randomMask(p.rand, maskBits(p.ring))
	if err != nil {
		return triple.Triple{}, err
	}

	ea, err := p.recv()
	if err != nil {
		return triple.Triple{}, err
	}
	eb, err := p.recv()
	if err != nil {
		return triple.Triple{}, err
	}

	// E(s) = E(a0*b1) + E(b0*a1) + E(r)
	eab, err := pub.MulScalar(ea, ring.Big(b))
	if err != nil {
		return triple.Triple{}, err
	}
	eba, err := pub.MulScalar(eb, ring.Big(a))
	if err != nil {
		return triple.Triple{}, err
	}
	er, err := pub.Encrypt(mask)
	if err != nil {
		return triple.Triple{}, err
	}
	es, err := pub.Add(eab, eba)
	if err != nil {
		return triple.Triple{}, err
	}
	es, err = pub.Add(es, er)
	if err != nil {
		return triple.Triple{}, err
	}
	if err := p.send(es); err != nil {
		return triple.Triple{}, err
	}

	return triple.Triple{
		A: a,
		B: b,
		C: p.ring.Sub(p.ring.Mul(a, b), p.ring.ReduceBig(mask)),
	}, nil
}
