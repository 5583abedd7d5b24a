package wire

import (
	"encoding/binary"

	"github.com/shadowline/rrc/rrc"
)

// encodeMessageSet lays out a Message set as a 4-byte BE element count
// followed by, per element, its ordinal (16 bytes BE) and its 32-byte
// content commitment.
func encodeMessageSet(set map[rrc.Message]struct{}) []byte {
	buf := make([]byte, 4, 4+len(set)*(ordinalLen+digestLen))
	binary.BigEndian.PutUint32(buf, uint32(len(set)))
	for m := range set {
		ob := m.Ordinal.Bytes()
		buf = append(buf, ob[:]...)
		buf = append(buf, m.Content[:]...)
	}
	return buf
}

// decodeMessageSet parses a payload produced by encodeMessageSet.
func decodeMessageSet(b []byte) (map[rrc.Message]struct{}, error) {
	if len(b) < 4 {
		return nil, ErrMalformedPayload
	}
	count := binary.BigEndian.Uint32(b)
	b = b[4:]
	const elemLen = ordinalLen + digestLen
	need := uint64(count) * uint64(elemLen)
	if need > uint64(len(b)) {
		return nil, ErrMalformedPayload
	}
	set := make(map[rrc.Message]struct{}, count)
	for i := uint32(0); i < count; i++ {
		off := int(i) * elemLen
		m := rrc.Message{
			Ordinal: decodeOrdinal(b[off : off+ordinalLen]),
		}
		copy(m.Content[:], b[off+ordinalLen:off+elemLen])
		set[m] = struct{}{}
	}
	return set, nil
}

// encodeOrdinalSet lays out a set of ordinals as a 4-byte BE element count
// followed by each ordinal's 16-byte BE encoding, with no content field.
func encodeOrdinalSet(set map[rrc.Ordinal]struct{}) []byte {
	buf := make([]byte, 4, 4+len(set)*ordinalLen)
	binary.BigEndian.PutUint32(buf, uint32(len(set)))
	for o := range set {
		ob := o.Bytes()
		buf = append(buf, ob[:]...)
	}
	return buf
}

// decodeOrdinalSet parses a payload produced by encodeOrdinalSet.
func decodeOrdinalSet(b []byte) (map[rrc.Ordinal]struct{}, error) {
	if len(b) < 4 {
		return nil, ErrMalformedPayload
	}
	count := binary.BigEndian.Uint32(b)
	b = b[4:]
	need := uint64(count) * uint64(ordinalLen)
	if need > uint64(len(b)) {
		return nil, ErrMalformedPayload
	}
	set := make(map[rrc.Ordinal]struct{}, count)
	for i := uint32(0); i < count; i++ {
		off := int(i) * ordinalLen
		set[decodeOrdinal(b[off:off+ordinalLen])] = struct{}{}
	}
	return set, nil
}

func decodeOrdinal(b []byte) rrc.Ordinal {
	return rrc.Ordinal{
		Epoch: binary.BigEndian.Uint64(b[0:8]),
		Index: binary.BigEndian.Uint64(b[8:16]),
	}
}
