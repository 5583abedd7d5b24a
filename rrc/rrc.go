// Package rrc implements Robust Ratcheted Communication: a Double Ratchet
// session wrapped with sent/received/acknowledged message-set bookkeeping
// that lets each party detect when the other has forged, dropped, or
// replayed protocol state, at a choice of three security levels.
package rrc

import (
	"crypto/sha256"
	"sort"

	"github.com/shadowline/rrc/ratchet"
)

// Ordinal identifies a message by the epoch and index it was sent in.
type Ordinal = ratchet.Ordinal

// SecurityLevel selects which forgery-detection guarantee a State enforces.
type SecurityLevel int

const (
	// RRid detects forgeries of the receiver's own claimed receive-set.
	RRid SecurityLevel = iota
	// SRid detects forgeries of the sender's claim about what it has
	// received from the peer.
	SRid
	// RRidAndSRid enforces both.
	RRidAndSRid
)

// Message is an entry in the sent/received/acknowledged bookkeeping sets: a
// message's ordinal paired with a commitment to its content.
type Message struct {
	Ordinal Ordinal
	Content [32]byte
}

// State is one party's view of an RRC session.
type State struct {
	Ratchet *ratchet.State

	HashKey      [32]byte
	HashKeyPrime [32]byte

	S      map[Message]struct{}
	R      map[Message]struct{}
	SAck   map[Message]struct{}
	MaxNum Ordinal

	SecurityLevel SecurityLevel
}

// InitAll runs the key agreement for both parties of a fresh RRC session:
// an underlying Double Ratchet session plus two auxiliary DH exchanges that
// seed the hash keys used to bind the sent/received bookkeeping sets into
// each message's associated data.
func InitAll(level SecurityLevel) (alice, bob *State, err error) {
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

	alice = newState(aliceRatchet, hashKey, hashKeyPrime, level)
	bob = newState(bobRatchet, hashKey, hashKeyPrime, level)
	return alice, bob, nil
}

func newState(r *ratchet.State, hashKey, hashKeyPrime [32]byte, level SecurityLevel) *State {
	return &State{
		Ratchet:       r,
		HashKey:       hashKey,
		HashKeyPrime:  hashKeyPrime,
		S:             make(map[Message]struct{}),
		R:             make(map[Message]struct{}),
		SAck:          make(map[Message]struct{}),
		SecurityLevel: level,
	}
}

// exchangeKey performs a throwaway DH exchange and returns the shared
// secret, standing in for the out-of-band key agreement a real deployment
// would run once during session bootstrap.
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

// hashMessageSet computes H(set, key): SHA-256 over key followed by the
// set's message contents in canonical (epoch, index) order. Ordinals
// themselves are not part of the digest input, only used to fix iteration
// order deterministically.
func hashMessageSet(key [32]byte, set map[Message]struct{}) [32]byte {
	msgs := make([]Message, 0, len(set))
	for m := range set {
		msgs = append(msgs, m)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Ordinal.Less(msgs[j].Ordinal) })

	h := sha256.New()
	h.Write(key[:])
	for _, m := range msgs {
		h.Write(m.Content[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// hashOrdinalSet computes H_ord(set): SHA-256 over the set's ordinals in
// canonical order, with no key.
func hashOrdinalSet(set map[Ordinal]struct{}) [32]byte {
	ords := make([]Ordinal, 0, len(set))
	for o := range set {
		ords = append(ords, o)
	}
	sort.Slice(ords, func(i, j int) bool { return ords[i].Less(ords[j]) })

	h := sha256.New()
	for _, o := range ords {
		b := o.Bytes()
		h.Write(b[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func ordinalsOf(set map[Message]struct{}) map[Ordinal]struct{} {
	out := make(map[Ordinal]struct{}, len(set))
	for m := range set {
		out[m.Ordinal] = struct{}{}
	}
	return out
}

func isSubset(sub, super map[Message]struct{}) bool {
	for m := range sub {
		if _, ok := super[m]; !ok {
			return false
		}
	}
	return true
}

func ordinalSubset(sub map[Ordinal]struct{}, super map[Message]struct{}) bool {
	for o := range sub {
		found := false
		for m := range super {
			if m.Ordinal == o {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
