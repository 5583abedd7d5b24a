package ratchet

import (
	"encoding/binary"
	"errors"
)

var errShortHeader = errors.New("ratchet: truncated header")

// Header rides alongside a ciphertext and carries the sender's current DH
// ratchet public key plus enough bookkeeping for the receiver to locate (or
// skip to) the right message key.
type Header struct {
	DHRatchetKey [32]byte
	PrevChainLen uint64
	MsgNbr       uint64
	Epoch        uint64
}

// adBytes serializes the header fields that are bound into the encrypt-then-MAC
// associated data. Epoch is deliberately excluded: it travels alongside the
// header for bookkeeping but is not part of the authenticated header binding.
func (h Header) adBytes() []byte {
	buf := make([]byte, 0, 48)
	buf = append(buf, h.DHRatchetKey[:]...)
	buf = appendUint64(buf, h.PrevChainLen)
	buf = appendUint64(buf, h.MsgNbr)
	return buf
}

// Bytes serializes the full header, including epoch, for wire framing.
func (h Header) Bytes() []byte {
	buf := h.adBytes()
	return appendUint64(buf, h.Epoch)
}

// DecodeHeader parses a header previously produced by Header.Bytes.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < 32+3*8 {
		return Header{}, errShortHeader
	}
	var h Header
	copy(h.DHRatchetKey[:], b[0:32])
	h.PrevChainLen = binary.BigEndian.Uint64(b[32:40])
	h.MsgNbr = binary.BigEndian.Uint64(b[40:48])
	h.Epoch = binary.BigEndian.Uint64(b[48:56])
	return h, nil
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// concat binds the associated data and the header (minus epoch) into the
// single byte string that is authenticated by the AEAD construction:
// be(len(ad)) || ad || header.adBytes().
func concat(ad []byte, h Header) []byte {
	buf := make([]byte, 0, 8+len(ad)+48)
	buf = appendUint64(buf, uint64(len(ad)))
	buf = append(buf, ad...)
	buf = append(buf, h.adBytes()...)
	return buf
}

// Ordinal identifies a message by the epoch it was sent in and its index
// within that epoch's chain. Ordinals are compared lexicographically
// (epoch first, then index).
type Ordinal struct {
	Epoch uint64
	Index uint64
}

// Less reports whether o sorts strictly before p.
func (o Ordinal) Less(p Ordinal) bool {
	if o.Epoch != p.Epoch {
		return o.Epoch < p.Epoch
	}
	return o.Index < p.Index
}

// LessEqual reports whether o sorts before or equal to p.
func (o Ordinal) LessEqual(p Ordinal) bool {
	return o == p || o.Less(p)
}

// Bytes serializes the ordinal as two big-endian uint64s.
func (o Ordinal) Bytes() [16]byte {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], o.Epoch)
	binary.BigEndian.PutUint64(buf[8:16], o.Index)
	return buf
}
