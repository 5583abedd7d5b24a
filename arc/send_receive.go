package arc

import "github.com/shadowline/rrc/ratchet"

// Send encrypts plaintext for the peer over the underlying Double Ratchet
// session and records it in the sent-message set.
func (s *State) Send(associatedData, plaintext []byte) (ArcOrdinal, ratchet.Header, []byte, error) {
	ord, header, ct, err := s.Ratchet.Send(associatedData, plaintext)
	if err != nil {
		return ArcOrdinal{}, ratchet.Header{}, nil, err
	}
	arcOrd := ArcOrdinal{Epoch: int32(ord.Epoch), Index: int32(ord.Index)}

	h := tagHash(s.HashKey, arcOrd, associatedData, ct)
	s.S[Message{Ordinal: arcOrd, Content: h}] = struct{}{}
	s.Num = arcOrd

	return arcOrd, header, ct, nil
}

// Receive verifies and decrypts an incoming ciphertext. A message whose
// ordinal falls at or below MaxNum is only accepted if it was already
// acknowledged via AuthReceive: anything else at that ordinal would have to
// be a forgery, since MaxNum only advances past already-authenticated
// traffic.
func (s *State) Receive(associatedData []byte, header ratchet.Header, ciphertext []byte) (bool, ArcOrdinal, []byte) {
	ok, num, pt, _ := s.Ratchet.Receive(associatedData, header, ciphertext)
	if !ok {
		return false, ArcOrdinal{}, nil
	}
	arcNum := ArcOrdinal{Epoch: int32(num.Epoch), Index: int32(num.Index)}

	h := tagHash(s.HashKey, arcNum, associatedData, ciphertext)

	if arcNum.LessEqual(s.MaxNum) {
		if _, acked := s.SAck[Message{Ordinal: arcNum, Content: h}]; !acked {
			return false, ArcOrdinal{}, nil
		}
	}

	s.R[Message{Ordinal: arcNum, Content: h}] = struct{}{}
	return true, arcNum, pt
}

// AuthSend produces an out-of-band authentication tag snapshotting the
// current sent/received message sets, to be delivered to the peer over a
// separate, trusted channel.
func (s *State) AuthSend() (ArcOrdinal, AuthTag) {
	return s.Num, AuthTag{S: cloneMessages(s.S), R: cloneMessages(s.R), Num: s.Num}
}

// AuthReceive verifies a peer's authentication tag against this party's own
// bookkeeping. A violation here means the peer has forged or dropped
// protocol state at some point since the last successful authentication.
func (s *State) AuthReceive(at AuthTag) (bool, ArcOrdinal) {
	if !isSubset(at.R, s.S) {
		return false, s.Num
	}

	rSubset := make(map[Message]struct{})
	for m := range s.R {
		if m.Ordinal.LessEqual(at.Num) {
			rSubset[m] = struct{}{}
		}
	}
	if !isSubset(rSubset, at.S) {
		return false, s.Num
	}

	for m := range at.S {
		s.SAck[m] = struct{}{}
	}

	if s.MaxNum.Less(at.Num) {
		s.MaxNum = at.Num
	}
	return true, at.Num
}
