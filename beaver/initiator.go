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

// Initiator implements the key owning party of the triple generation
// protocol.
type Initiator struct {
	party
	scheme  he.Scheme
	keyBits int
	count   int
}

// NewInitiator creates the initiator for the session. The channel
// must connect to the responder.
func NewInitiator(cfg *env.Config, scheme he.Scheme, ch wire.Channel) (
	*Initiator, error) {

	p, err := newParty(cfg, ch, wire.RankInitiator)
	if err != nil {
		return nil, err
	}
	return &Initiator{
		party:   p,
		scheme:  scheme,
		keyBits: cfg.GetKeyBits(),
		count:   cfg.GetNumTriples(),
	}, nil
}

// Generate runs the session and returns the initiator's triples. The
// key pair lives only for the duration of the call. On error no
// triples are returned.
func (p *Initiator) Generate(ctx context.Context) (*triple.Store, error) {
	p.timing = NewTiming()

	p.Debugf("generating %d-bit %s key\n", p.keyBits, p.scheme.Name())
	priv, err := p.scheme.GenerateKey(p.keyBits)
	if err != nil {
		return nil, err
	}
	pub := priv.PublicKey()
	if err := checkKey(pub, p.ring); err != nil {
		return nil, err
	}
	p.timing.Sample("Keygen", nil)

	pubData := pub.Bytes()
	p.fingerprint = Fingerprint(pubData)
	p.Debugf("session %s: %d triples in %v\n",
		p.fingerprint, p.count, p.ring)

	if err := p.send(pubData); err != nil {
		return nil, err
	}
	if err := p.send(encodeHeader(p.ring, p.count)); err != nil {
		return nil, err
	}
	p.timing.Sample("Setup", []string{
		p2p.FileSize(len(pubData)).String(),
	})

	store := triple.NewStore()
	for i := 0; i < p.count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		t, err := p.triple(priv, pub)
		if err != nil {
			return nil, fmt.Errorf("triple %d: %w", i, err)
		}
		store.Append(t)
		p.timing.Triple(time.Since(start))
		p.Debugf("triple %d/%d\n", i+1, p.count)
	}
	p.timing.Sample("Triples", []string{
		p2p.FileSize(p.IOStats().Sum()).String(),
	})

	return store, nil
}

// triple runs one round of the protocol.
func (p *Initiator) triple(priv he.PrivateKey, pub he.PublicKey) (
	triple.Triple, error) {

	a, err := p.ring.Random(p.rand)
	if err != nil {
		return triple.Triple{}, err
	}
	b, err := p.ring.Random(p.rand)
	if err != nil {
		return triple.Triple{}, err
	}

	ea, err := pub.Encrypt(ring.Big(a))
	if err != nil {
		return triple.Triple{}, err
	}
	eb, err := pub.Encrypt(ring.Big(b))
	if err != nil {
		return triple.Triple{}, err
	}
	if err := p.send(ea); err != nil {
		return triple.Triple{}, err
	}
	if err := p.send(eb); err != nil {
		return triple.Triple{}, err
	}

	es, err := p.recv()
	if err != nil {
		return triple.Triple{}, err
	}
	s, err := priv.Decrypt(es)
	if err != nil {
		return triple.Triple{}, err
	}

	return triple.Triple{
		A: a,
		B: b,
		C: p.ring.Add(p.ring.Mul(a, b), p.ring.ReduceBig(s)),
	}, nil
}
