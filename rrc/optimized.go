package rrc

import (
	"github.com/shadowline/rrc/msethash"
	"github.com/shadowline/rrc/ratchet"
)

// OptimizedState is the optimized-send variant of State: it replaces the
// O(|R|) sort-and-hash of the received and sent sets on every Send with
// accumulators that fold in each new element incrementally.
type OptimizedState struct {
	Base *State

	IncrementalHash msethash.XorHash
	HashS           *msethash.Ristretto
	HashOrdinalSet  *msethash.Ristretto
	NumsPrime       map[Ordinal]struct{}
}

// OptimizedCiphertext carries the same information as Ciphertext, but with
// the R-set digest represented as an incremental XorHash triple instead of
// a single SHA-256 digest.
type OptimizedCiphertext struct {
	Inner []byte
	S     map[Message]struct{}
	R     map[Ordinal]struct{}
	RXor  msethash.XorHash
}

// InitAllOptimizedSend runs the same key agreement as InitAll and seeds the
// incremental accumulators for an empty starting receive-set.
func InitAllOptimizedSend(level SecurityLevel) (alice, bob *OptimizedState, err error) {
	baseAlice, baseBob, err := InitAll(level)
	if err != nil {
		return nil, nil, err
	}
	alice = newOptimizedState(baseAlice)
	bob = newOptimizedState(baseBob)
	return alice, bob, nil
}

func newOptimizedState(base *State) *OptimizedState {
	return &OptimizedState{
		Base:            base,
		IncrementalHash: msethash.ComputeFull(base.HashKeyPrime, nil),
		HashS:           msethash.NewRistretto(),
		HashOrdinalSet:  msethash.NewRistretto(),
		NumsPrime:       make(map[Ordinal]struct{}),
	}
}

// Send is the optimized-send counterpart of State.Send.
func (s *OptimizedState) Send(associatedData, plaintext []byte) (Ordinal, OptimizedCiphertext, ratchet.Header, error) {
	hashSFinal := s.HashS.Finalize()
	hashOrdFinal := s.HashOrdinalSet.Finalize()
	rXorBytes := s.IncrementalHash.Bytes()

	adPrime := make([]byte, 0, 96+len(rXorBytes))
	adPrime = append(adPrime, associatedData...)
	adPrime = append(adPrime, hashSFinal[:]...)
	adPrime = append(adPrime, hashOrdFinal[:]...)
	adPrime = append(adPrime, rXorBytes[:]...)

	ord, header, inner, err := s.Base.Ratchet.Send(adPrime, plaintext)
	if err != nil {
		return Ordinal{}, OptimizedCiphertext{}, ratchet.Header{}, err
	}

	ct := OptimizedCiphertext{
		Inner: inner,
		S:     cloneMessages(s.Base.S),
		R:     cloneOrdinals(s.NumsPrime),
		RXor:  s.IncrementalHash,
	}

	h := tagHash(s.Base.HashKey, ord, associatedData, ct.Inner, hashSFinal, hashOrdFinal, rXorBytes[:])

	newMsg := Message{Ordinal: ord, Content: h}
	s.Base.S[newMsg] = struct{}{}

	ob := ord.Bytes()
	s.HashS.Add(ob[:], 1)
	s.HashS.Add(h[:], 1)

	return ord, ct, header, nil
}

// Receive is the optimized-send counterpart of State.Receive.
func (s *OptimizedState) Receive(associatedData []byte, ct OptimizedCiphertext, header ratchet.Header) (bool, Ordinal, []byte) {
	hashSentCt := optiHashMessageSet(ct.S)
	ordinalSetHash := optiHashOrdinalSet(ct.R)
	rXorBytes := ct.RXor.Bytes()

	adPrime := make([]byte, 0, 96+len(rXorBytes))
	adPrime = append(adPrime, associatedData...)
	adPrime = append(adPrime, hashSentCt[:]...)
	adPrime = append(adPrime, ordinalSetHash[:]...)
	adPrime = append(adPrime, rXorBytes[:]...)

	ok, num, pt, _ := s.Base.Ratchet.Receive(adPrime, header, ct.Inner)
	if !ok {
		return false, Ordinal{}, nil
	}

	h := tagHash(s.Base.HashKey, num, associatedData, ct.Inner, hashSentCt, ordinalSetHash, rXorBytes[:])

	if s.Base.optimizedChecks(ct.S, ct.R, ct.RXor, h, num) {
		return false, Ordinal{}, nil
	}

	msg := Message{Ordinal: num, Content: h}
	s.Base.R[msg] = struct{}{}
	s.NumsPrime[num] = struct{}{}

	ob := num.Bytes()
	s.HashOrdinalSet.Add(ob[:], 1)
	elemHash := msethash.HashElement(s.Base.HashKeyPrime, ob, h)
	s.IncrementalHash = msethash.Update(s.IncrementalHash, s.Base.HashKeyPrime, elemHash)

	for m := range ct.S {
		s.Base.SAck[m] = struct{}{}
	}
	return true, num, pt
}

func cloneOrdinals(set map[Ordinal]struct{}) map[Ordinal]struct{} {
	out := make(map[Ordinal]struct{}, len(set))
	for o := range set {
		out[o] = struct{}{}
	}
	return out
}

// optiHashMessageSet and optiHashOrdinalSet rebuild a fresh Ristretto
// accumulator over the given set each call, the same non-incremental
// operation the receiving side always has to pay for a ciphertext it did
// not itself build up; only the sender's own bookkeeping is incremental.
func optiHashMessageSet(set map[Message]struct{}) [32]byte {
	acc := msethash.NewRistretto()
	for m := range set {
		ob := m.Ordinal.Bytes()
		acc.Add(ob[:], 1)
		acc.Add(m.Content[:], 1)
	}
	return acc.Finalize()
}

func optiHashOrdinalSet(set map[Ordinal]struct{}) [32]byte {
	acc := msethash.NewRistretto()
	for o := range set {
		ob := o.Bytes()
		acc.Add(ob[:], 1)
	}
	return acc.Finalize()
}
