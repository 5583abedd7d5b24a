package arc

import (
	"github.com/shadowline/rrc/ratchet"
	"github.com/shadowline/rrc/rrc"
)

// Kind discriminates a SendWrapper riding on top of an ordinary RRC
// ciphertext: either a real message, or an out-of-band authentication tag
// piggybacked on the RRC channel itself instead of a separate side channel.
type Kind uint8

const (
	KindMessage Kind = iota
	KindAuthTag
)

// SendWrapper is rrc.State's Send/Receive output with the flag discriminant
// UNF-ARC-over-RRC needs to tell a real message apart from an
// authentication tag at Receive time.
type SendWrapper struct {
	Kind    Kind
	Ordinal rrc.Ordinal
	Ct      rrc.Ciphertext
	Header  ratchet.Header
}

// fakeAD and the literal "0" plaintext stand in for a real message when an
// authentication tag needs to ride the RRC channel: the tag's content is
// irrelevant, only its S/R bookkeeping (carried inside rrc.Ciphertext)
// matters to the peer.
var fakeAD = [32]byte{}

// RRCState is one party's view of a UNF-ARC session layered over RRC
// instead of directly over the Double Ratchet.
type RRCState struct {
	Inner *rrc.State
}

// RRCInit runs the key agreement for both parties of a fresh UNF-ARC-over-
// RRC session at the given RRC security level.
func RRCInit(level rrc.SecurityLevel) (alice, bob *RRCState, err error) {
	a, b, err := rrc.InitAll(level)
	if err != nil {
		return nil, nil, err
	}
	return &RRCState{Inner: a}, &RRCState{Inner: b}, nil
}

// Send encrypts plaintext, tagging it as an ordinary message.
func (s *RRCState) Send(associatedData, plaintext []byte) (SendWrapper, error) {
	ord, ct, header, err := s.Inner.Send(associatedData, plaintext)
	if err != nil {
		return SendWrapper{}, err
	}
	return SendWrapper{Kind: KindMessage, Ordinal: ord, Ct: ct, Header: header}, nil
}

// Receive decrypts an incoming SendWrapper, rejecting anything not tagged
// as an ordinary message (an authentication tag delivered here instead of
// via AuthReceive is treated as a protocol violation, not a message).
func (s *RRCState) Receive(associatedData []byte, w SendWrapper) (bool, rrc.Ordinal, []byte) {
	if w.Kind != KindMessage {
		return false, rrc.Ordinal{}, nil
	}
	return s.Inner.Receive(associatedData, w.Ct, w.Header)
}

// AuthSend piggybacks an authentication tag on an ordinary RRC send over
// fixed associated data and plaintext, since the tag's payload is never
// read: only the S/R bookkeeping RRC attaches to every ciphertext matters.
func (s *RRCState) AuthSend() (SendWrapper, error) {
	ord, ct, header, err := s.Inner.Send(fakeAD[:], []byte("0"))
	if err != nil {
		return SendWrapper{}, err
	}
	return SendWrapper{Kind: KindAuthTag, Ordinal: ord, Ct: ct, Header: header}, nil
}

// AuthReceive decrypts a peer's authentication tag, rejecting anything not
// tagged as one.
func (s *RRCState) AuthReceive(at SendWrapper) (bool, rrc.Ordinal) {
	if at.Kind != KindAuthTag {
		return false, rrc.Ordinal{}
	}
	ok, ord, _ := s.Inner.Receive(fakeAD[:], at.Ct, at.Header)
	return ok, ord
}
