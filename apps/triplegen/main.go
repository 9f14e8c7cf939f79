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
	"net"
	"os"
	"os/signal"
	"runtime/pprof"

	"github.com/markkurossi/beaver/beaver"
	"github.com/markkurossi/beaver/env"
	"github.com/markkurossi/beaver/he/paillier"
	"github.com/markkurossi/beaver/p2p"
	"github.com/markkurossi/beaver/triple"
	"github.com/markkurossi/beaver/wire"
)

func defaultAddr() string {
	host := os.Getenv("MASTER_ADDR")
	port := os.Getenv("MASTER_PORT")
	if len(host) == 0 && len(port) == 0 {
		return env.DefaultAddr
	}
	if len(host) == 0 {
		host = "localhost"
	}
	if len(port) == 0 {
		_, port, _ = net.SplitHostPort(env.DefaultAddr)
	}
	return net.JoinHostPort(host, port)
}

func main() {
	rank := flag.Int("rank", 0, "party rank: 0 initiator, 1 responder")
	addr := flag.String("addr", defaultAddr(), "rendezvous address")
	n := flag.Int("n", env.DefaultNumTriples, "number of triples")
	bits := flag.Int("bits", env.DefaultKeyBits, "Paillier modulus size")
	modulus := flag.Uint64("m", 0, "ring modulus (default 2^32)")
	out := flag.String("o", "", "output `file` (default p1.csv or p2.csv)")
	timeout := flag.Duration("timeout", env.DefaultTimeout,
		"receive timeout, 0 disables")
	seed := flag.String("seed", "", "deterministic share seed (testing only)")
	verbose := flag.Bool("v", false, "verbose output")
	timing := flag.Bool("timing", false, "print timing statistics")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to `file`")
	flag.Parse()

	log.SetFlags(0)

	if len(*cpuprofile) > 0 {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	cfg := &env.Config{
		Modulus:    *modulus,
		KeyBits:    *bits,
		NumTriples: *n,
		Addr:       *addr,
		Rank:       *rank,
		Timeout:    *timeout,
		Verbose:    *verbose,
	}
	if *timeout == 0 {
		cfg.Timeout = -1
	}
	if len(*seed) > 0 {
		cfg.Rand = env.NewSeededRandom([]byte(*seed))
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if len(*out) == 0 {
		*out = fmt.Sprintf("p%d.csv", cfg.Rank+1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, *out, *timing); err != nil {
		log.Fatal(err)
	}
}

type session interface {
	Generate(ctx context.Context) (*triple.Store, error)
	Fingerprint() string
	Timing() *beaver.Timing
	IOStats() p2p.IOStats
}

func run(ctx context.Context, cfg *env.Config, out string, timing bool) error {
	conn, peer, err := p2p.Connect(ctx, cfg.GetAddr(), cfg.Rank,
		p2p.DefaultRetry)
	if err != nil {
		return err
	}
	ch := wire.NewConn(conn, cfg.Rank, peer)
	defer ch.Close()

	scheme := paillier.New()

	var s session
	if cfg.Rank == wire.RankInitiator {
		s, err = beaver.NewInitiator(cfg, scheme, ch)
	} else {
		s, err = beaver.NewResponder(cfg, scheme, ch)
	}
	if err != nil {
		return err
	}

	store, err := s.Generate(ctx)
	if err != nil {
		return err
	}
	log.Printf("session %s: %d triples\n", s.Fingerprint(), store.Len())

	if err := triple.Save(out, store); err != nil {
		return err
	}
	log.Printf("wrote %s\n", out)

	if timing {
		s.Timing().Print(os.Stdout, s.IOStats())
	}
	return nil
}
