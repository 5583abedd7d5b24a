// Package arc implements UNF-ARC: a forgery-detection wrapper providing
// unforgeability via out-of-band authentication tags, layered either
// directly over a Double Ratchet session (this file, and send_receive.go)
// or over an RRC session (rrc_arc.go).
package arc

import (
	"crypto/sha256"

	"github.com/shadowline/rrc/ratchet"
)

// ArcOrdinal identifies a message using signed epoch/index fields rather
// than unsigned ones, so that MaxNum can be initialized to a sentinel
// strictly below any real ordinal ({0, -1}) instead of needing special-case
// handling for the very first received message.
type ArcOrdinal struct {
	Epoch int32
	Index int32
}

// Less reports whether o sorts strictly before other.
func (o ArcOrdinal) Less(other ArcOrdinal) bool {
	if o.Epoch != other.Epoch {
		return o.Epoch < other.Epoch
	}
	return o.Index < other.Index
}

// LessEqual reports whether o sorts before or equal to other.
func (o ArcOrdinal) LessEqual(other ArcOrdinal) bool {
	return o == other || o.Less(other)
}

// Message pairs an ordinal with a commitment to its content.
type Message struct {
	Ordinal ArcOrdinal
	Content [32]byte
}

// AuthTag carries a snapshot of the sender's sent/received message sets,
// exchanged out-of-band from the encrypted channel for forgery detection.
type AuthTag struct {
	S   map[Message]struct{}
	R   map[Message]struct{}
	Num ArcOrdinal
}

// State is one party's view of a UNF-ARC session built directly on a
// Double Ratchet session.
type State struct {
	Ratchet *ratchet.State
	HashKey [32]byte

	S    map[Message]struct{}
	R    map[Message]struct{}
	SAck map[Message]struct{}

	Num    ArcOrdinal
	MaxNum ArcOrdinal
}

// Init runs the key agreement for both parties of a fresh UNF-ARC session.
func Init() (alice, bob *State, err error) {
	aliceRatchet, bobRatchet, err := ratchet.InitAll()
	if err != nil {
		return nil, nil, err
	}
	hashKey, err := exchangeKey()
	if err != nil {
		return nil, nil, err
	}

	alice = newState(aliceRatchet, hashKey)
	bob = newState(bobRatchet, hashKey)
	return alice, bob, nil
}

func newState(r *ratchet.State, hashKey [32]byte) *State {
	return &State{
		Ratchet: r,
		HashKey: hashKey,
		S:       make(map[Message]struct{}),
		R:       make(map[Message]struct{}),
		SAck:    make(map[Message]struct{}),
		Num:     ArcOrdinal{Epoch: 0, Index: 0},
		MaxNum:  ArcOrdinal{Epoch: 0, Index: -1},
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

// tagHash commits to an ordinal, associated data, and ciphertext under the
// session's shared hash key. The ratchet ordinal -> ArcOrdinal narrowing
// mirrors the Rust original's usize -> i32 try_into().unwrap(): both assume
// the ordinal stays well within range for any realistic session length.
func tagHash(key [32]byte, ord ArcOrdinal, ad, ct []byte) [32]byte {
	h := sha256.New()
	h.Write(key[:])
	h.Write(ad)
	var ob [8]byte
	putInt32BE(ob[0:4], ord.Epoch)
	putInt32BE(ob[4:8], ord.Index)
	h.Write(ob[:])
	h.Write(ct)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func putInt32BE(b []byte, v int32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func isSubset(sub, super map[Message]struct{}) bool {
	for m := range sub {
		if _, ok := super[m]; !ok {
			return false
		}
	}
	return true
}

func cloneMessages(set map[Message]struct{}) map[Message]struct{} {
	out := make(map[Message]struct{}, len(set))
	for m := range set {
		out[m] = struct{}{}
	}
	return out
}
