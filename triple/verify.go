//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package triple

import (
	"errors"
	"fmt"
	"io"

	"github.com/markkurossi/beaver/ring"
	"github.com/markkurossi/tabulate"
	"github.com/markkurossi/text/superscript"
)

var (
	// ErrTripleInvariant is matched by errors reporting triple pairs
	// that violate (a0+a1)*(b0+b1) = c0+c1.
	ErrTripleInvariant = errors.New("triple: invariant violation")
)

// InvariantError describes a triple pair that violates the Beaver
// invariant.
type InvariantError struct {
	Index    int
	P0       Triple
	P1       Triple
	A        uint64
	B        uint64
	C        uint64
	Expected uint64
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("triple %d invalid: a%s=%d b%s=%d c%s=%d, a%s=%d b%s=%d c%s=%d: a=%d b=%d a*b=%d != c=%d",
		e.Index,
		party(0), e.P0.A, party(0), e.P0.B, party(0), e.P0.C,
		party(1), e.P1.A, party(1), e.P1.B, party(1), e.P1.C,
		e.A, e.B, e.Expected, e.C)
}

// Is implements errors.Is for ErrTripleInvariant.
func (e *InvariantError) Is(target error) bool {
	return target == ErrTripleInvariant
}

func party(rank int) string {
	return superscript.Itoa(rank + 1)
}

// Recombine returns the shared values a, b, and c of a triple pair.
func Recombine(r ring.Ring, t0, t1 Triple) (a, b, c uint64) {
	return r.Add(t0.A, t1.A), r.Add(t0.B, t1.B), r.Add(t0.C, t1.C)
}

// Check verifies the triple pair at index i.
func Check(r ring.Ring, i int, t0, t1 Triple) error {
	a, b, c := Recombine(r, t0, t1)
	expected := r.Mul(a, b)
	if expected != c {
		return &InvariantError{
			Index:    i,
			P0:       t0,
			P1:       t1,
			A:        a,
			B:        b,
			C:        c,
			Expected: expected,
		}
	}
	return nil
}

// Verify checks that every index-aligned triple pair of the two
// parties' stores satisfies the Beaver invariant. It needs both
// parties' private shares and is meant for auditing only.
func Verify(r ring.Ring, s0, s1 *Store) error {
	if err := CheckAligned(s0, s1); err != nil {
		return err
	}
	for i := range s0.triples {
		if err := Check(r, i, s0.triples[i], s1.triples[i]); err != nil {
			return err
		}
	}
	return nil
}

// Report verifies the stores like Verify and prints a per-index audit
// table to out. It returns the first verification error.
func Report(out io.Writer, r ring.Ring, s0, s1 *Store) error {
	if err := CheckAligned(s0, s1); err != nil {
		return err
	}

	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("#").SetAlign(tabulate.MR)
	tab.Header("a").SetAlign(tabulate.MR)
	tab.Header("b").SetAlign(tabulate.MR)
	tab.Header("c").SetAlign(tabulate.MR)
	tab.Header("a*b").SetAlign(tabulate.MR)
	tab.Header("").SetAlign(tabulate.MC)

	var first error
	for i := range s0.triples {
		a, b, c := Recombine(r, s0.triples[i], s1.triples[i])
		err := Check(r, i, s0.triples[i], s1.triples[i])

		row := tab.Row()
		row.Column(fmt.Sprintf("%d", i+1))
		row.Column(fmt.Sprintf("%d", a))
		row.Column(fmt.Sprintf("%d", b))
		row.Column(fmt.Sprintf("%d", c))
		row.Column(fmt.Sprintf("%d", r.Mul(a, b)))
		if err != nil {
			row.Column("✗").SetFormat(tabulate.FmtBold)
			if first == nil {
				first = err
			}
		} else {
			row.Column("✓")
		}
	}
	tab.Print(out)

	return first
}
