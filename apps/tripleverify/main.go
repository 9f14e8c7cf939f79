//
// main.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/markkurossi/beaver/beaver"
	"github.com/markkurossi/beaver/ring"
	"github.com/markkurossi/beaver/triple"
	"github.com/markkurossi/beaver/wire"
	"github.com/markkurossi/text/superscript"
)

func main() {
	modulus := flag.Uint64("m", 0, "ring modulus (default 2^32)")
	quiet := flag.Bool("q", false, "do not print the audit table")
	x1 := flag.Uint64("x1", 42, "first party's share of x")
	y1 := flag.Uint64("y1", 17, "first party's share of y")
	x2 := flag.Uint64("x2", 13, "second party's share of x")
	y2 := flag.Uint64("y2", 28, "second party's share of y")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"Usage: %s [options] [p1.csv p2.csv]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	log.SetFlags(0)

	files := []string{"p1.csv", "p2.csv"}
	switch len(flag.Args()) {
	case 0:
	case 2:
		files = flag.Args()
	default:
		flag.Usage()
		os.Exit(2)
	}

	r := ring.Default()
	if *modulus != 0 {
		var err error
		r, err = ring.New(*modulus)
		if err != nil {
			log.Fatal(err)
		}
	}

	var stores [2]*triple.Store
	for i, file := range files {
		s, err := triple.Load(file, r)
		if err != nil {
			log.Fatal(err)
		}
		stores[i] = s
	}

	var err error
	if *quiet {
		err = triple.Verify(r, stores[0], stores[1])
	} else {
		err = triple.Report(os.Stdout, r, stores[0], stores[1])
	}
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%d triples valid in %v\n", stores[0].Len(), r)

	if stores[0].Len() == 0 {
		return
	}
	z, err := demo(r, stores, [2][2]uint64{{*x1, *y1}, {*x2, *y2}})
	if err != nil {
		log.Fatal(err)
	}
	x := r.Add(*x1, *x2)
	y := r.Add(*y1, *y2)
	fmt.Printf("%d * %d = %d (expected %d)\n", x, y, z, r.Mul(x, y))
	if z != r.Mul(x, y) {
		os.Exit(1)
	}
}

// demo multiplies the shared inputs with the first triple of both
// parties and returns the opened product.
func demo(r ring.Ring, stores [2]*triple.Store, inputs [2][2]uint64) (
	uint64, error) {

	var ts [2]triple.Triple
	var d, e uint64
	for rank, s := range stores {
		t, err := s.Consume(0)
		if err != nil {
			return 0, err
		}
		ts[rank] = t
		dp, ep := beaver.Mask(r, t, inputs[rank][0], inputs[rank][1])
		fmt.Printf("P%s: d%s=%d e%s=%d\n", superscript.Itoa(rank+1),
			superscript.Itoa(rank+1), dp, superscript.Itoa(rank+1), ep)
		d = r.Add(d, dp)
		e = r.Add(e, ep)
	}

	var z uint64
	for rank := wire.RankInitiator; rank <= wire.RankResponder; rank++ {
		zp := beaver.Combine(r, rank, ts[rank], d, e)
		fmt.Printf("P%s: z%s=%d\n", superscript.Itoa(rank+1),
			superscript.Itoa(rank+1), zp)
		z = r.Add(z, zp)
	}
	return z, nil
}
