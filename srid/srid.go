// Package srid implements s-RID-RC: an epoch-gated, s-RID-only variant of
// RRC that keeps its receive-set digests in a rolling pair of live/fresh
// accumulators instead of recomputing a digest over the whole receive-set
// on every message. The live set and accumulators are replaced by the fresh
// ones every four epochs, which bounds how many received messages the live
// set holds.
package srid

import (
	"github.com/shadowline/rrc/msethash"
	"github.com/shadowline/rrc/ratchet"
	"github.com/shadowline/rrc/rrc"
)

// Ordinal identifies a message by the epoch and index it was sent in.
type Ordinal = ratchet.Ordinal

// Message pairs an ordinal with a commitment to its content.
type Message = rrc.Message

// State is one party's view of an s-RID-RC session.
type State struct {
	Ratchet *ratchet.State

	HashKey      [32]byte
	HashKeyPrime [32]byte

	S      map[Message]struct{}
	R      map[Message]struct{}
	FreshR map[Message]struct{}

	// MaxNum mirrors the Rust original's max_num field: present in the
	// state but never read or updated by checks or Receive.
	MaxNum Ordinal

	Epoch      uint64
	AckedEpoch uint64

	NumsPrime      map[Ordinal]struct{}
	FreshNumsPrime map[Ordinal]struct{}

	IncrementalHash      *msethash.Ristretto
	FreshIncrementalHash *msethash.Ristretto
	HashOrdinalSet       *msethash.Ristretto
	FreshOrdinalSetHash  *msethash.Ristretto
}

// Init runs the key agreement for both parties of a fresh s-RID-RC session.
// Bob starts one epoch ahead of Alice, exactly as the underlying Double
// Ratchet bootstrap leaves Bob's DH ratchet key already established.
func Init() (alice, bob *State, err error) {
	hashKey, err := exchangeKey()
	if err != nil {
		return nil, nil, err
	}
	hashKeyPrime, err := exchangeKey()
	if err != nil {
		return nil, nil, err
	}

	aliceRatchet, bobRatchet, err := ratchet.InitAll()
	if err != nil {
		return nil, nil, err
	}

	alice = newState(aliceRatchet, hashKey, hashKeyPrime, 0, 0)
	bob = newState(bobRatchet, hashKey, hashKeyPrime, 1, 1)
	return alice, bob, nil
}

func newState(r *ratchet.State, hashKey, hashKeyPrime [32]byte, epoch, ackedEpoch uint64) *State {
	incr := msethash.NewRistretto()
	incr.Add(hashKeyPrime[:], 1)
	freshIncr := msethash.NewRistretto()
	freshIncr.Add(hashKeyPrime[:], 1)

	return &State{
		Ratchet:              r,
		HashKey:              hashKey,
		HashKeyPrime:         hashKeyPrime,
		S:                    make(map[Message]struct{}),
		R:                    make(map[Message]struct{}),
		FreshR:               make(map[Message]struct{}),
		NumsPrime:            make(map[Ordinal]struct{}),
		FreshNumsPrime:       make(map[Ordinal]struct{}),
		IncrementalHash:      incr,
		FreshIncrementalHash: freshIncr,
		HashOrdinalSet:       msethash.NewRistretto(),
		FreshOrdinalSetHash:  msethash.NewRistretto(),
		Epoch:                epoch,
		AckedEpoch:           ackedEpoch,
	}
}

func exchangeKey() ([32]byte, error) {
	a, err := ratchet.GenerateKeyPair()
	if err != nil {
		return [32]byte{}, err
	}
	b, err := ratchet.GenerateKeyPair()
	if err != nil {
		return [32]byte{}, err
	}
	shared, err := ratchet.DH(a.Private, b.Public)
	if err != nil {
		return [32]byte{}, err
	}
	var out [32]byte
	copy(out[:], shared)
	return out, nil
}

// hashMessageSetRistretto is the one-shot (non-incremental) digest over a
// message set, keyed with hashKeyPrime as the accumulator's first element:
// used to recompute R* on the receiving side, where no incremental
// accumulator for the peer's claimed set is available.
func hashMessageSetRistretto(hashKeyPrime [32]byte, set map[Message]struct{}) [32]byte {
	acc := msethash.NewRistretto()
	acc.Add(hashKeyPrime[:], 1)
	for m := range set {
		ob := m.Ordinal.Bytes()
		acc.Add(ob[:], 1)
		acc.Add(m.Content[:], 1)
	}
	return acc.Finalize()
}

// hashOrdinalSetPlain digests a set of ordinals with no key, matching
// get_ordinal_set_hash.
func hashOrdinalSetPlain(set map[Ordinal]struct{}) [32]byte {
	acc := msethash.NewRistretto()
	for o := range set {
		ob := o.Bytes()
		acc.Add(ob[:], 1)
	}
	return acc.Finalize()
}

func cloneOrdinalSet(set map[Ordinal]struct{}) map[Ordinal]struct{} {
	out := make(map[Ordinal]struct{}, len(set))
	for o := range set {
		out[o] = struct{}{}
	}
	return out
}
