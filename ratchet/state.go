package ratchet

import "fmt"

type skipKey struct {
	pub   [32]byte
	index uint64
}

// State is one party's view of a Double Ratchet session. It is owned
// exclusively by that party: State is not safe for concurrent use, and
// nothing in this package synchronizes access to it.
type State struct {
	DHs KeyPair
	DHr [32]byte

	RK  rootKey
	CKs chainKey
	CKr chainKey

	Ns, Nr, PN uint64
	Epoch      uint64

	skipped map[skipKey]messageKey
}

// InitAll runs the initial key agreement for both parties of a fresh
// session and returns their respective states. Real deployments derive the
// shared secret and ratchet seed from an out-of-band handshake; this
// function performs that handshake locally for testing and for composing
// higher-level protocols on top, matching what a caller would otherwise
// have to do with two independent DH exchanges.
func InitAll() (alice, bob *State, err error) {
	aliceShared, err := generateDH()
	if err != nil {
		return nil, nil, err
	}
	bobShared, err := generateDH()
	if err != nil {
		return nil, nil, err
	}
	sharedSecret, err := dh(aliceShared.Private, bobShared.Public)
	if err != nil {
		return nil, nil, err
	}

	aliceRatchet, err := generateDH()
	if err != nil {
		return nil, nil, err
	}
	bobRatchet, err := generateDH()
	if err != nil {
		return nil, nil, err
	}
	ratchetSecret, err := dh(aliceRatchet.Private, bobRatchet.Public)
	if err != nil {
		return nil, nil, err
	}

	bobRatchetDH, err := generateDH()
	if err != nil {
		return nil, nil, err
	}

	alice, err = initAlice(sharedSecret, bobRatchetDH.Public, ratchetSecret)
	if err != nil {
		return nil, nil, err
	}
	bob, err = initBob(sharedSecret, bobRatchetDH, ratchetSecret)
	if err != nil {
		return nil, nil, err
	}
	return alice, bob, nil
}

func initAlice(sharedSecret []byte, bobDHPublic [32]byte, ratchetSecret []byte) (*State, error) {
	dhPair, err := generateDH()
	if err != nil {
		return nil, err
	}
	var sk rootKey
	copy(sk[:], sharedSecret)
	dhOut, err := dh(dhPair.Private, bobDHPublic)
	if err != nil {
		return nil, err
	}
	rk, ck, err := kdfRK(sk, dhOut)
	if err != nil {
		return nil, err
	}
	var ckr chainKey
	copy(ckr[:], ratchetSecret)
	return &State{
		DHs:     dhPair,
		DHr:     bobDHPublic,
		RK:      rk,
		CKs:     ck,
		CKr:     ckr,
		skipped: make(map[skipKey]messageKey),
	}, nil
}

func initBob(sharedSecret []byte, dhPair KeyPair, ratchetSecret []byte) (*State, error) {
	filling, err := generateDH()
	if err != nil {
		return nil, err
	}
	var rk rootKey
	copy(rk[:], sharedSecret)
	var cks chainKey
	copy(cks[:], ratchetSecret)
	return &State{
		DHs:     dhPair,
		DHr:     filling.Public,
		RK:      rk,
		CKs:     cks,
		CKr:     chainKey{},
		skipped: make(map[skipKey]messageKey),
	}, nil
}

// skip derives and stores message keys for any messages in the current
// receiving chain between Nr and until, so that out-of-order delivery can
// still be decrypted later. Apart from the skip-limit check, which runs
// first, it is a no-op while CKr is still the zero-valued sentinel (Bob,
// before his first DH ratchet step).
func (s *State) skip(until uint64) error {
	if s.Nr+maxSkip < until {
		return ErrSkipLimitExceeded
	}
	if s.CKr == (chainKey{}) {
		return nil
	}
	for s.Nr < until {
		var mk messageKey
		s.CKr, mk = kdfCK(s.CKr)
		s.skipped[skipKey{s.DHr, s.Nr}] = mk
		s.Nr++
	}
	return nil
}

// dhRatchetStep performs a DH ratchet step on receipt of a header carrying
// a new DH public key. The outdated DHs secret is zeroized unconditionally
// as part of this step: once the step is taken, there is no path back to
// the old secret even if the message that triggered it later fails to
// authenticate.
func (s *State) dhRatchetStep(h Header) error {
	s.PN = s.Ns
	s.Ns = 0
	s.Nr = 0
	s.DHr = h.DHRatchetKey

	dhOut, err := dh(s.DHs.Private, s.DHr)
	if err != nil {
		return fmt.Errorf("ratchet: dh ratchet step: %w", err)
	}
	s.RK, s.CKr, err = kdfRK(s.RK, dhOut)
	if err != nil {
		return err
	}

	wipe(s.DHs.Private[:])
	s.DHs, err = generateDH()
	if err != nil {
		return err
	}

	dhOut, err = dh(s.DHs.Private, s.DHr)
	if err != nil {
		return fmt.Errorf("ratchet: dh ratchet step: %w", err)
	}
	s.RK, s.CKs, err = kdfRK(s.RK, dhOut)
	if err != nil {
		return err
	}
	s.Epoch++
	return nil
}
