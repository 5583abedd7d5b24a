// Package wire implements the byte framing for RRC and s-RID-RC
// ciphertexts: header || ordinal || length-prefixed ciphertext/sent-set/
// received-ordinal-set || digest, laid out the way the original
// implementation's send_bytes/receive_bytes functions do.
package wire

import (
	"encoding/binary"
	"errors"

	"github.com/shadowline/rrc/ratchet"
	"github.com/shadowline/rrc/rrc"
	"github.com/shadowline/rrc/srid"
)

// ErrMalformedPayload is returned when a payload is too short or its
// embedded length fields do not fit inside the buffer that was given.
var ErrMalformedPayload = errors.New("wire: malformed payload")

const (
	headerLen   = 32 + 3*8 // dh_ratchet_key || prev_chain_len || msg_nbr || epoch
	ordinalLen  = 16       // epoch || index
	metadataLen = 3 * 8    // ct_len || s_len || r_ord_len
	digestLen   = 32
)

// Encode frames an RRC ciphertext, its header, and the ordinal it was sent
// under into a single byte payload.
//
// The ordinal is written into the payload purely for layout compatibility:
// Decode skips over it rather than parsing it back into a value, since
// Receive always recovers the authoritative ordinal from the ratchet state
// itself, exactly as the original framing does.
func Encode(ct rrc.Ciphertext, h ratchet.Header, ord rrc.Ordinal) []byte {
	sBytes := encodeMessageSet(ct.S)
	rBytes := encodeOrdinalSet(ct.R)

	ctLen, sLen, rLen := len(ct.Inner), len(sBytes), len(rBytes)
	total := headerLen + ordinalLen + metadataLen + ctLen + sLen + rLen + digestLen
	buf := make([]byte, 0, total)

	buf = append(buf, h.Bytes()...)
	ob := ord.Bytes()
	buf = append(buf, ob[:]...)

	buf = appendUint64(buf, uint64(ctLen))
	buf = appendUint64(buf, uint64(sLen))
	buf = appendUint64(buf, uint64(rLen))

	buf = append(buf, ct.Inner...)
	buf = append(buf, sBytes...)
	buf = append(buf, rBytes...)
	buf = append(buf, ct.RHash[:]...)

	return buf
}

// Decode parses a payload produced by Encode. It should only be called on
// payloads produced by Encode; no guarantee is made about graceful failure
// on arbitrary byte strings beyond returning ErrMalformedPayload for
// obviously truncated input.
func Decode(payload []byte) (rrc.Ciphertext, ratchet.Header, error) {
	if len(payload) < headerLen+ordinalLen+metadataLen+digestLen {
		return rrc.Ciphertext{}, ratchet.Header{}, ErrMalformedPayload
	}

	h, err := ratchet.DecodeHeader(payload[:headerLen])
	if err != nil {
		return rrc.Ciphertext{}, ratchet.Header{}, err
	}
	off := headerLen + ordinalLen

	ctLen := binary.BigEndian.Uint64(payload[off:])
	sLen := binary.BigEndian.Uint64(payload[off+8:])
	rLen := binary.BigEndian.Uint64(payload[off+16:])
	off += metadataLen

	need := off + int(ctLen) + int(sLen) + int(rLen) + digestLen
	if need < off || len(payload) < need {
		return rrc.Ciphertext{}, ratchet.Header{}, ErrMalformedPayload
	}

	inner := make([]byte, ctLen)
	copy(inner, payload[off:off+int(ctLen)])
	off += int(ctLen)

	s, err := decodeMessageSet(payload[off : off+int(sLen)])
	if err != nil {
		return rrc.Ciphertext{}, ratchet.Header{}, err
	}
	off += int(sLen)

	r, err := decodeOrdinalSet(payload[off : off+int(rLen)])
	if err != nil {
		return rrc.Ciphertext{}, ratchet.Header{}, err
	}
	off += int(rLen)

	var rHash [32]byte
	copy(rHash[:], payload[off:off+digestLen])

	return rrc.Ciphertext{Inner: inner, S: s, R: r, RHash: rHash}, h, nil
}

// EncodeSRID frames an s-RID-RC ciphertext: header || epoch || ct_len ||
// r_ordinals_len || ciphertext || r_ordinals || r_hash.
func EncodeSRID(ct srid.Ciphertext) []byte {
	rOrdBytes := encodeOrdinalSet(ct.ROrdinals)

	ctLen, rLen := len(ct.Inner), len(rOrdBytes)
	total := headerLen + 8 + 2*8 + ctLen + rLen + digestLen
	buf := make([]byte, 0, total)

	buf = append(buf, ct.Header.Bytes()...)
	buf = appendUint64(buf, ct.Epoch)
	buf = appendUint64(buf, uint64(ctLen))
	buf = appendUint64(buf, uint64(rLen))
	buf = append(buf, ct.Inner...)
	buf = append(buf, rOrdBytes...)
	buf = append(buf, ct.RHash[:]...)

	return buf
}

// DecodeSRID parses a payload produced by EncodeSRID.
func DecodeSRID(payload []byte) (srid.Ciphertext, error) {
	if len(payload) < headerLen+8+2*8+digestLen {
		return srid.Ciphertext{}, ErrMalformedPayload
	}

	h, err := ratchet.DecodeHeader(payload[:headerLen])
	if err != nil {
		return srid.Ciphertext{}, err
	}
	off := headerLen

	epoch := binary.BigEndian.Uint64(payload[off:])
	off += 8
	ctLen := binary.BigEndian.Uint64(payload[off:])
	off += 8
	rLen := binary.BigEndian.Uint64(payload[off:])
	off += 8

	need := off + int(ctLen) + int(rLen) + digestLen
	if need < off || len(payload) < need {
		return srid.Ciphertext{}, ErrMalformedPayload
	}

	inner := make([]byte, ctLen)
	copy(inner, payload[off:off+int(ctLen)])
	off += int(ctLen)

	rOrdinals, err := decodeOrdinalSet(payload[off : off+int(rLen)])
	if err != nil {
		return srid.Ciphertext{}, err
	}
	off += int(rLen)

	var rHash [32]byte
	copy(rHash[:], payload[off:off+digestLen])

	return srid.Ciphertext{
		Header:    h,
		Inner:     inner,
		Epoch:     epoch,
		ROrdinals: rOrdinals,
		RHash:     rHash,
	}, nil
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}
