package msethash

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"

	"golang.org/x/crypto/blake2s"
)

// MBytes is the byte width of the cardinality and nonce fields in an
// XorHash: M = 256 + 24 bits supports multisets with up to 2^24 elements
// while keeping a 256-bit collision margin on the cardinality counter.
const MBytes = (256 + 24) / 8

// XorHash is the incremental MSet-XOR-Hash triple (h, c, r) described by
// Clarke et al.: h folds every element's keyed hash together with XOR
// (commutative, so element order never matters), c is the set's
// cardinality, and r is a per-update nonce that re-randomizes h so that an
// attacker cannot cancel out a known element by replaying an old digest.
type XorHash struct {
	H [32]byte
	C [MBytes]byte
	R [MBytes]byte
}

// HashElement derives the keyed per-element digest folded into an XorHash,
// using Blake2s-256 to keep the per-element hash distinct from the SHA-256
// nonce-commitment hash used elsewhere in the triple.
func HashElement(key [32]byte, ordinal [16]byte, content [32]byte) [32]byte {
	h, err := blake2s.New256(nil)
	if err != nil {
		panic("msethash: blake2s.New256: " + err.Error())
	}
	h.Write(key[:])
	h.Write(ordinal[:])
	h.Write(content[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func generateNonce() [MBytes]byte {
	var nonce [MBytes]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		panic("msethash: rand.Read: " + err.Error())
	}
	return nonce
}

func nonceCommitment(key [32]byte, nonce [MBytes]byte) [32]byte {
	h := sha256.New()
	h.Write(key[:])
	h.Write(nonce[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func xor32(a, b [32]byte) [32]byte {
	var out [32]byte
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// ComputeFull builds an XorHash from scratch over the given per-element
// digests (already passed through HashElement). It seeds an accumulator
// with an initial set (typically empty), after which every further element
// is folded in with Update instead of recomputing the whole hash; it is also
// used to recompute a digest over a whole set for comparison with Equal.
func ComputeFull(key [32]byte, elementHashes [][32]byte) XorHash {
	var x XorHash
	x.R = generateNonce()

	h := nonceCommitment(key, x.R)
	for _, eh := range elementHashes {
		h = xor32(h, eh)
	}
	x.H = h

	putCardinality(&x.C, uint64(len(elementHashes)))
	return x
}

// Update folds one more element's digest into x, returning the new triple.
// Every update draws a fresh nonce, so two accumulators that added the same
// elements in different orders converge to unequal-looking triples that
// Equal still recognizes as representing the same multiset.
func Update(x XorHash, key [32]byte, elementHash [32]byte) XorHash {
	oldCommitment := nonceCommitment(key, x.R)
	hWithoutNonce := xor32(oldCommitment, x.H)
	hWithoutNonce = xor32(hWithoutNonce, elementHash)

	var next XorHash
	next.R = generateNonce()
	newCommitment := nonceCommitment(key, next.R)
	next.H = xor32(hWithoutNonce, newCommitment)

	putCardinality(&next.C, cardinality(x.C)+1)
	return next
}

// Equal reports whether x and y are XorHash digests of the same multiset,
// unwinding each side's nonce commitment before comparing.
func Equal(x, y XorHash, key [32]byte) bool {
	xUnnonced := xor32(nonceCommitment(key, x.R), x.H)
	yUnnonced := xor32(nonceCommitment(key, y.R), y.H)
	return xUnnonced == yUnnonced && x.C == y.C
}

func putCardinality(c *[MBytes]byte, n uint64) {
	for i := range c {
		c[i] = 0
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	copy(c[MBytes-8:], buf[:])
}

func cardinality(c [MBytes]byte) uint64 {
	return binary.BigEndian.Uint64(c[MBytes-8:])
}

// Bytes serializes the triple as h || c || r, matching the wire layout used
// by the optimized-send ciphertext's R field.
func (x XorHash) Bytes() [32 + 2*MBytes]byte {
	var out [32 + 2*MBytes]byte
	copy(out[0:32], x.H[:])
	copy(out[32:32+MBytes], x.C[:])
	copy(out[32+MBytes:32+2*MBytes], x.R[:])
	return out
}

// DecodeXorHash parses the layout produced by Bytes.
func DecodeXorHash(b [32 + 2*MBytes]byte) XorHash {
	var x XorHash
	copy(x.H[:], b[0:32])
	copy(x.C[:], b[32:32+MBytes])
	copy(x.R[:], b[32+MBytes:32+2*MBytes])
	return x
}
