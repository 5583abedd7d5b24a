package srid

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/shadowline/rrc/msethash"
	"github.com/shadowline/rrc/ratchet"
)

// Ciphertext is what Send produces and Receive consumes.
type Ciphertext struct {
	Header    ratchet.Header
	Inner     []byte
	Epoch     uint64
	ROrdinals map[Ordinal]struct{}
	RHash     [32]byte
}

// Send encrypts plaintext for the peer, binding the incremental receive-set
// digests into the Double Ratchet associated data. The current epoch travels
// in the ciphertext and is bound only into the message's tag h, not into
// the associated data.
func (s *State) Send(associatedData, plaintext []byte) (Ordinal, Ciphertext, error) {
	rOrdinals := cloneOrdinalSet(s.NumsPrime)
	rHash := s.IncrementalHash.Finalize()
	ordHash := s.HashOrdinalSet.Finalize()

	adPrime := make([]byte, 0, 96)
	adPrime = append(adPrime, associatedData...)
	adPrime = append(adPrime, ordHash[:]...)
	adPrime = append(adPrime, rHash[:]...)

	ord, header, inner, err := s.Ratchet.Send(adPrime, plaintext)
	if err != nil {
		return Ordinal{}, Ciphertext{}, err
	}

	h := tagHash(s.HashKey, ord, associatedData, inner, s.Epoch, ordHash, rHash)
	s.S[Message{Ordinal: ord, Content: h}] = struct{}{}

	ct := Ciphertext{
		Header:    header,
		Inner:     inner,
		Epoch:     s.Epoch,
		ROrdinals: rOrdinals,
		RHash:     rHash,
	}
	return ord, ct, nil
}

// Receive verifies and decrypts an incoming ciphertext, advancing the
// epoch-gated receive-set bookkeeping on success.
func (s *State) Receive(associatedData []byte, ct Ciphertext) (bool, Ordinal, []byte) {
	ordHash := hashOrdinalSetPlain(ct.ROrdinals)

	adPrime := make([]byte, 0, 96)
	adPrime = append(adPrime, associatedData...)
	adPrime = append(adPrime, ordHash[:]...)
	adPrime = append(adPrime, ct.RHash[:]...)

	ok, num, pt, _ := s.Ratchet.Receive(adPrime, ct.Header, ct.Inner)
	if !ok {
		return false, Ordinal{}, nil
	}

	h := tagHash(s.HashKey, num, associatedData, ct.Inner, ct.Epoch, ordHash, ct.RHash)

	if s.checks(ct) {
		return false, Ordinal{}, nil
	}

	msg := Message{Ordinal: num, Content: h}
	s.R[msg] = struct{}{}
	s.NumsPrime[num] = struct{}{}
	s.updateReceiveHashed(msg, false)
	s.updateOrdinalSetHash(num, false)

	s.FreshR[msg] = struct{}{}
	s.FreshNumsPrime[num] = struct{}{}
	s.updateReceiveHashed(msg, true)
	s.updateOrdinalSetHash(num, true)

	if ct.Epoch == s.Epoch+1 {
		s.Epoch += 2
	}

	if s.Epoch == s.AckedEpoch+4 {
		s.R = s.FreshR
		s.FreshR = make(map[Message]struct{})
		s.AckedEpoch += 4

		s.NumsPrime = s.FreshNumsPrime
		s.FreshNumsPrime = make(map[Ordinal]struct{})
		s.IncrementalHash = s.FreshIncrementalHash
		s.HashOrdinalSet = s.FreshOrdinalSetHash

		s.FreshOrdinalSetHash = msethash.NewRistretto()
		s.FreshIncrementalHash = msethash.NewRistretto()
		s.FreshIncrementalHash.Add(s.HashKeyPrime[:], 1)
	}

	return true, num, pt
}

func (s *State) checks(ct Ciphertext) bool {
	var violation bool
	if ct.Epoch > s.Epoch+1 {
		violation = true
	}

	rStar := make(map[Message]struct{})
	for m := range s.S {
		if _, ok := ct.ROrdinals[m.Ordinal]; ok {
			rStar[m] = struct{}{}
		}
	}

	if hashMessageSetRistretto(s.HashKeyPrime, rStar) != ct.RHash {
		violation = true
	}
	return violation
}

func (s *State) updateReceiveHashed(msg Message, fresh bool) {
	ob := msg.Ordinal.Bytes()
	acc := s.IncrementalHash
	if fresh {
		acc = s.FreshIncrementalHash
	}
	acc.Add(ob[:], 1)
	acc.Add(msg.Content[:], 1)
}

func (s *State) updateOrdinalSetHash(num Ordinal, fresh bool) {
	ob := num.Bytes()
	acc := s.HashOrdinalSet
	if fresh {
		acc = s.FreshOrdinalSetHash
	}
	acc.Add(ob[:], 1)
}

func tagHash(key [32]byte, num Ordinal, ad, ct []byte, epoch uint64, ordHash, rHash [32]byte) [32]byte {
	h := sha256.New()
	h.Write(key[:])
	ob := num.Bytes()
	h.Write(ob[:])
	h.Write(ad)
	h.Write(ct)
	var eb [8]byte
	binary.BigEndian.PutUint64(eb[:], epoch)
	h.Write(eb[:])
	h.Write(ordHash[:])
	h.Write(rHash[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
