//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package triple implements the per-party store of Beaver triple
// shares, its CSV persistence, and the offline triple verifier.
package triple

import (
	"errors"
	"fmt"
)

var (
	// ErrConsumedTriple is returned when a triple that was already
	// used for a multiplication is requested again.
	ErrConsumedTriple = errors.New("triple: triple already consumed")

	// ErrExhausted is returned when the store has no unused triples.
	ErrExhausted = errors.New("triple: no unused triples")

	// ErrIndex is returned for indices outside the store.
	ErrIndex = errors.New("triple: index out of range")

	// ErrTripleCountMismatch is returned when two parties' stores
	// have different lengths.
	ErrTripleCountMismatch = errors.New("triple: triple count mismatch")
)

// Triple is one party's share (a, b, c) of a Beaver triple.
type Triple struct {
	A uint64
	B uint64
	C uint64
}

func (t Triple) String() string {
	return fmt.Sprintf("(%d, %d, %d)", t.A, t.B, t.C)
}

// Store holds a party's triples in generation order and tracks which
// of them have been consumed. The triple at index i pairs with the
// peer's triple at the same index. Store is not safe for concurrent
// use.
type Store struct {
	triples  []Triple
	consumed []bool
	next     int
}

// NewStore creates a new store holding the argument triples.
func NewStore(triples ...Triple) *Store {
	s := &Store{}
	for _, t := range triples {
		s.Append(t)
	}
	return s
}

// Append adds a triple to the end of the store.
func (s *Store) Append(t Triple) {
	s.triples = append(s.triples, t)
	s.consumed = append(s.consumed, false)
}

// Len returns the number of triples in the store.
func (s *Store) Len() int {
	return len(s.triples)
}

// Remaining returns the number of unused triples.
func (s *Store) Remaining() int {
	var count int
	for _, c := range s.consumed {
		if !c {
			count++
		}
	}
	return count
}

// Get returns the triple at index i without consuming it.
func (s *Store) Get(i int) (Triple, error) {
	if i < 0 || i >= len(s.triples) {
		return Triple{}, fmt.Errorf("%w: %d not in [0, %d)",
			ErrIndex, i, len(s.triples))
	}
	return s.triples[i], nil
}

// Triples returns a copy of all triples in generation order.
func (s *Store) Triples() []Triple {
	result := make([]Triple, len(s.triples))
	copy(result, s.triples)
	return result
}

// Consumed tells if the triple at index i has been consumed.
func (s *Store) Consumed(i int) bool {
	return i >= 0 && i < len(s.consumed) && s.consumed[i]
}

// Consume marks the triple at index i consumed and returns it.
func (s *Store) Consume(i int) (Triple, error) {
	t, err := s.Get(i)
	if err != nil {
		return Triple{}, err
	}
	if s.consumed[i] {
		return Triple{}, fmt.Errorf("%w: index %d", ErrConsumedTriple, i)
	}
	s.consumed[i] = true
	return t, nil
}

// Next consumes the lowest-indexed unused triple and returns its
// index and value.
func (s *Store) Next() (int, Triple, error) {
	for ; s.next < len(s.triples); s.next++ {
		if !s.consumed[s.next] {
			i := s.next
			s.consumed[i] = true
			s.next++
			return i, s.triples[i], nil
		}
	}
	return 0, Triple{}, ErrExhausted
}

// Peek returns the index of the lowest-indexed unused triple without
// consuming it.
func (s *Store) Peek() (int, error) {
	for i := s.next; i < len(s.triples); i++ {
		if !s.consumed[i] {
			return i, nil
		}
	}
	return 0, ErrExhausted
}

// CheckAligned verifies that the two stores can be used together.
func CheckAligned(s0, s1 *Store) error {
	if s0.Len() != s1.Len() {
		return fmt.Errorf("%w: %d vs %d", ErrTripleCountMismatch,
			s0.Len(), s1.Len())
	}
	return nil
}
