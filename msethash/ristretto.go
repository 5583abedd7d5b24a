// Package msethash implements the multiset-hash primitives shared by the
// RRC forgery-detection bookkeeping: a commutative Ristretto255 group
// accumulator (updated in place by each Add) and an incremental
// MSet-XOR-Hash accumulator (for the optimized-send variants, where every
// Update must change the digest in place without rehashing the whole set).
package msethash

import (
	"crypto/sha512"
	"encoding/binary"
	"hash"

	"github.com/gtank/ristretto255"
)

// Ristretto is a commutative multiset-hash accumulator over the Ristretto255
// group: order of insertion never affects the final digest, and elements
// can be added with a multiplicity greater than one.
type Ristretto struct {
	acc    *ristretto255.Element
	stream hash.Hash // non-nil while an Update/EndUpdate stream is open
}

// NewRistretto returns an accumulator initialized to the group identity,
// i.e. the hash of the empty multiset.
func NewRistretto() *Ristretto {
	return &Ristretto{acc: ristretto255.NewElement()}
}

// Add folds data into the accumulator multiplicity times. Elements are
// mapped into the group by hashing with SHA-512 and using the 64-byte
// digest as uniform input to the group's hash-to-curve map.
//
// Add panics if called while an Update stream is open without a matching
// EndUpdate: the two element-mapping mechanisms are mutually exclusive, not
// composable.
func (r *Ristretto) Add(data []byte, multiplicity uint64) {
	if r.stream != nil {
		panic("msethash: Add called with an Update stream open")
	}
	digest := sha512.Sum512(data)
	r.accumulate(digest[:], multiplicity)
}

// Update streams data into the element currently being added, letting a
// caller build up one multiset element piecewise instead of assembling it
// into a single byte slice first. The stream is finalized and folded into
// the accumulator by EndUpdate.
func (r *Ristretto) Update(data []byte) {
	if r.stream == nil {
		r.stream = sha512.New()
	}
	r.stream.Write(data)
}

// EndUpdate closes the stream opened by Update, maps its digest into the
// group exactly as Add does, and folds it into the accumulator with the
// given multiplicity. It panics if no Update stream is open.
func (r *Ristretto) EndUpdate(multiplicity uint64) {
	if r.stream == nil {
		panic("msethash: EndUpdate called with no Update stream open")
	}
	digest := r.stream.Sum(nil)
	r.stream = nil
	r.accumulate(digest, multiplicity)
}

// Reset returns the accumulator to the group identity and discards any open
// Update stream, as if it had just been returned by NewRistretto.
func (r *Ristretto) Reset() {
	r.acc = ristretto255.NewElement()
	r.stream = nil
}

func (r *Ristretto) accumulate(digest []byte, multiplicity uint64) {
	point := ristretto255.NewElement().FromUniformBytes(digest)

	// FromUniformBytes reads its input as a little-endian integer, so the
	// multiplicity goes in the low-order bytes to make the scalar equal it.
	var scalarBuf [64]byte
	binary.LittleEndian.PutUint64(scalarBuf[0:8], multiplicity)
	scalar := ristretto255.NewScalar().FromUniformBytes(scalarBuf[:])

	scaled := ristretto255.NewElement().ScalarMult(scalar, point)
	r.acc.Add(r.acc, scaled)
}

// Finalize returns the 32-byte compressed Ristretto255 point representing
// the current multiset digest. The accumulator remains usable afterwards.
func (r *Ristretto) Finalize() [32]byte {
	var out [32]byte
	copy(out[:], r.acc.Encode(nil))
	return out
}

// Clone returns an independent copy of the accumulator, useful for taking a
// snapshot digest (Finalize) without disturbing further incremental Adds.
// It does not carry over an open Update stream.
func (r *Ristretto) Clone() *Ristretto {
	clone := ristretto255.NewElement()
	if err := clone.Decode(r.acc.Encode(nil)); err != nil {
		panic("msethash: cloning a valid group element failed: " + err.Error())
	}
	return &Ristretto{acc: clone}
}
