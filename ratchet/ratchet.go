package ratchet

// Send advances the sending chain by one step, encrypts plaintext under the
// resulting message key with associatedData bound into the MAC, and
// returns the ordinal and header the receiver needs to process it.
func (s *State) Send(associatedData, plaintext []byte) (Ordinal, Header, []byte, error) {
	var mk messageKey
	s.CKs, mk = kdfCK(s.CKs)

	h := Header{
		DHRatchetKey: s.DHs.Public,
		PrevChainLen: s.PN,
		MsgNbr:       s.Ns,
		Epoch:        s.Epoch,
	}
	s.Ns++

	ct, err := encrypt(mk, plaintext, concat(associatedData, h))
	if err != nil {
		return Ordinal{}, Header{}, nil, err
	}
	return Ordinal{Epoch: h.Epoch, Index: h.MsgNbr}, h, ct, nil
}

// Receive processes an incoming header and ciphertext. On success ok is
// true, ord identifies the message, and pt holds the plaintext. On failure
// ok is false and err distinguishes an authentication failure from a skip
// limit violation.
//
// State mutations performed while locating the message key (skipped-key
// derivation, the DH ratchet step, and the associated zeroization of the
// outdated DHs secret) are not rolled back if the final MAC check fails:
// forward secrecy already advanced past the point where undoing it would
// help, so there is nothing to gain by discarding that work.
func (s *State) Receive(associatedData []byte, h Header, ciphertext []byte) (bool, Ordinal, []byte, error) {
	if mk, ok := s.skipped[skipKey{h.DHRatchetKey, h.MsgNbr}]; ok {
		pt, err := decrypt(mk, ciphertext, concat(associatedData, h))
		if err != nil {
			return false, Ordinal{}, nil, err
		}
		delete(s.skipped, skipKey{h.DHRatchetKey, h.MsgNbr})
		return true, Ordinal{Epoch: h.Epoch, Index: h.MsgNbr}, pt, nil
	}

	if h.DHRatchetKey != s.DHr {
		if err := s.skip(h.PrevChainLen); err != nil {
			return false, Ordinal{}, nil, err
		}
		if err := s.dhRatchetStep(h); err != nil {
			return false, Ordinal{}, nil, err
		}
	}
	if err := s.skip(h.MsgNbr); err != nil {
		return false, Ordinal{}, nil, err
	}

	var mk messageKey
	s.CKr, mk = kdfCK(s.CKr)
	s.Nr++

	pt, err := decrypt(mk, ciphertext, concat(associatedData, h))
	if err != nil {
		return false, Ordinal{}, nil, err
	}
	return true, Ordinal{Epoch: h.Epoch, Index: h.MsgNbr}, pt, nil
}
