//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package beaver implements two-party Beaver triple generation with
// additively homomorphic encryption and the online Beaver
// multiplication protocol over the ring Z_M.
//
// Triple generation runs between the Initiator (rank 0) and the
// Responder (rank 1) without a trusted dealer. The Initiator owns the
// key pair and sends its public key to the Responder. For each triple
// index, in order:
//
//	Initiator                              Responder
//	sample a0, b0                          sample a1, b1, mask r
//	E(a0), E(b0)           ------------>
//	                                       E(s) = E(a0)*b1 + E(b0)*a1 + E(r)
//	                       <------------   E(s)
//	s = D(E(s)) mod M                      c1 = a1*b1 - r mod M
//	c0 = a0*b0 + s mod M
//
// so that c0 + c1 = (a0+a1)*(b0+b1) mod M. The Responder only sees
// ciphertexts, and the mask r, which is wider than the cross terms by
// a statistical security parameter, hides a1 and b1 from the integer
// the Initiator decrypts.
//
// The online multiplication consumes one triple per party at a
// matching index. Each party opens d = x-a and e = y-b, and computes
// its share of x*y locally. Only the responder adds the d*e term.
//
// The protocols are secure against semi-honest parties only.
package beaver
