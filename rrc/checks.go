package rrc

import "github.com/shadowline/rrc/msethash"

// checks implements the r-RID / s-RID forgery-detection predicate. It
// returns true when a violation is detected, in which case Receive must
// reject the message.
//
// Several details here preserve specific, already-decided behavior rather
// than a more "natural" reading of the underlying construction:
//
//   - For SRid alone, only the s-RID check runs: a violation there is
//     reported immediately, without touching max_num or evaluating the
//     r-RID side at all.
//   - The r-RID containment check is R'' ⊆ ct.S (a subset test), not the
//     reverse.
//   - The else-branch (num >= max_num) flags a violation using
//     SAck.difference(ct.S), not ct.S.difference(SAck).
func (s *State) checks(ct Ciphertext, h [32]byte, num Ordinal) bool {
	var sViolation bool

	if s.SecurityLevel != RRid {
		rStar := make(map[Message]struct{})
		for m := range s.S {
			if _, ok := ct.R[m.Ordinal]; ok {
				rStar[m] = struct{}{}
			}
		}
		sViolation = hashMessageSet(s.HashKeyPrime, rStar) != ct.RHash
		if s.SecurityLevel == SRid {
			return sViolation
		}
	}

	rViolation := s.rInclusionViolation(ct.S, h, num)

	switch s.SecurityLevel {
	case RRid:
		return rViolation
	case RRidAndSRid:
		return rViolation || sViolation
	default: // SRid was already returned above; unreachable in practice.
		return sViolation
	}
}

// rInclusionViolation implements the r-RID half of checks, shared verbatim
// between the plain and optimized-send ciphertext shapes since it only
// depends on the peer's claimed sent-set, not on how the s-RID digest is
// represented.
func (s *State) rInclusionViolation(ctS map[Message]struct{}, h [32]byte, num Ordinal) bool {
	rPrime := make(map[Message]struct{})
	for m := range s.R {
		if m.Ordinal.LessEqual(num) {
			rPrime[m] = struct{}{}
		}
	}
	violation := !isSubset(rPrime, ctS)
	for m := range ctS {
		if num.LessEqual(m.Ordinal) {
			violation = true
			break
		}
	}

	if num.Less(s.MaxNum) {
		if _, ok := s.SAck[Message{Ordinal: num, Content: h}]; !ok {
			violation = true
		}
		if !isSubset(ctS, s.SAck) {
			violation = true
		}
		sAckPrime := make(map[Message]struct{})
		for m := range s.SAck {
			if m.Ordinal.Less(num) {
				sAckPrime[m] = struct{}{}
			}
		}
		if !isSubset(sAckPrime, ctS) {
			violation = true
		}
	} else {
		s.MaxNum = num
		for m := range s.SAck {
			if _, inCt := ctS[m]; inCt {
				continue
			}
			if m.Ordinal.Less(s.MaxNum) {
				violation = true
				break
			}
		}
	}
	return violation
}

// optimizedChecks is checks' counterpart for the incremental-hash ciphertext
// shape: the r-RID half is identical (shared via rInclusionViolation), but
// the s-RID half compares the peer's claimed R against an incremental
// XorHash digest recomputed from the sender's own S set, rather than a
// single SHA-256 digest of a sorted message set.
func (s *State) optimizedChecks(ctS map[Message]struct{}, ctR map[Ordinal]struct{}, rXor msethash.XorHash, h [32]byte, num Ordinal) bool {
	var sViolation bool

	if s.SecurityLevel != RRid {
		rStar := make(map[Message]struct{})
		for m := range s.S {
			if _, ok := ctR[m.Ordinal]; ok {
				rStar[m] = struct{}{}
			}
		}
		elemHashes := make([][32]byte, 0, len(rStar))
		for m := range rStar {
			ob := m.Ordinal.Bytes()
			elemHashes = append(elemHashes, msethash.HashElement(s.HashKeyPrime, ob, m.Content))
		}
		recomputed := msethash.ComputeFull(s.HashKeyPrime, elemHashes)
		sViolation = !msethash.Equal(recomputed, rXor, s.HashKeyPrime)
		if s.SecurityLevel == SRid {
			return sViolation
		}
	}

	rViolation := s.rInclusionViolation(ctS, h, num)

	switch s.SecurityLevel {
	case RRid:
		return rViolation
	case RRidAndSRid:
		return rViolation || sViolation
	default:
		return sViolation
	}
}
