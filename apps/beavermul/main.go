//
// main.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/markkurossi/beaver/beaver"
	"github.com/markkurossi/beaver/env"
	"github.com/markkurossi/beaver/p2p"
	"github.com/markkurossi/beaver/triple"
	"github.com/markkurossi/beaver/wire"
)

func main() {
	rank := flag.Int("rank", 0, "party rank: 0 or 1")
	addr := flag.String("addr", env.DefaultAddr, "rendezvous address")
	triples := flag.String("triples", "",
		"triple `file` (default p1.csv or p2.csv)")
	index := flag.Int("index", -1, "triple index, -1 uses the next unused")
	modulus := flag.Uint64("m", 0, "ring modulus (default 2^32)")
	x := flag.Uint64("x", 0, "share of x")
	y := flag.Uint64("y", 0, "share of y")
	open := flag.Bool("open", false, "reveal the product")
	timeout := flag.Duration("timeout", env.DefaultTimeout,
		"receive timeout, 0 disables")
	verbose := flag.Bool("v", false, "verbose output")
	flag.Parse()

	log.SetFlags(0)

	cfg := &env.Config{
		Modulus: *modulus,
		Addr:    *addr,
		Rank:    *rank,
		Timeout: *timeout,
		Verbose: *verbose,
	}
	if *timeout == 0 {
		cfg.Timeout = -1
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if len(*triples) == 0 {
		*triples = fmt.Sprintf("p%d.csv", cfg.Rank+1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	z, err := run(ctx, cfg, *triples, *index, *x, *y, *open)
	if err != nil {
		log.Fatal(err)
	}
	if *open {
		fmt.Printf("x*y=%d\n", z)
	} else {
		fmt.Printf("z=%d\n", z)
	}
}

func run(ctx context.Context, cfg *env.Config, file string, index int,
	x, y uint64, open bool) (uint64, error) {

	r, err := cfg.GetRing()
	if err != nil {
		return 0, err
	}
	store, err := triple.Load(file, r)
	if err != nil {
		return 0, err
	}

	conn, peer, err := p2p.Connect(ctx, cfg.GetAddr(), cfg.Rank,
		p2p.DefaultRetry)
	if err != nil {
		return 0, err
	}
	ch := wire.NewConn(conn, cfg.Rank, peer)
	defer ch.Close()

	m, err := beaver.NewMultiplier(cfg, ch, store)
	if err != nil {
		return 0, err
	}

	if index < 0 {
		index, err = store.Peek()
		if err != nil {
			return 0, err
		}
	} else if _, err := store.Get(index); err != nil {
		return 0, err
	}
	if store.Consumed(index) {
		return 0, fmt.Errorf("%s: %w: index %d", file,
			triple.ErrConsumedTriple, index)
	}
	// Record the triple before it is revealed.
	if err := triple.RecordUsed(file, index); err != nil {
		return 0, err
	}
	if cfg.Verbose {
		log.Printf("using triple %d of %s\n", index, file)
	}

	z, err := m.MulAt(index, x, y)
	if err != nil {
		return 0, err
	}
	if open {
		return m.Open(z)
	}
	return z, nil
}
