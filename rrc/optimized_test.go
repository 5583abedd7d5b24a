package rrc

import "testing"

func TestOptimizedSendReceiveRoundTrip(t *testing.T) {
	alice, bob, err := InitAllOptimizedSend(RRidAndSRid)
	if err != nil {
		t.Fatalf("InitAllOptimizedSend: %v", err)
	}

	var ad [32]byte
	copy(ad[:], []byte("associated data"))

	ord, ct, h, err := alice.Send(ad[:], []byte("hello"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	ok, rord, pt := bob.Receive(ad[:], ct, h)
	if !ok {
		t.Fatalf("Receive rejected a legitimate message")
	}
	if rord != ord {
		t.Fatalf("ordinal mismatch: got %+v want %+v", rord, ord)
	}
	if string(pt) != "hello" {
		t.Fatalf("plaintext mismatch: got %q", pt)
	}
}

func TestOptimizedAllSecurityLevelsRoundTrip(t *testing.T) {
	for _, level := range []SecurityLevel{RRid, SRid, RRidAndSRid} {
		alice, bob, err := InitAllOptimizedSend(level)
		if err != nil {
			t.Fatalf("InitAllOptimizedSend: %v", err)
		}
		var ad [32]byte
		for i := 0; i < 5; i++ {
			ord, ct, h, err := alice.Send(ad[:], []byte("msg"))
			if err != nil {
				t.Fatalf("Send: %v", err)
			}
			ok, rord, _ := bob.Receive(ad[:], ct, h)
			if !ok || rord != ord {
				t.Fatalf("level %v: Receive failed on message %d", level, i)
			}
		}
	}
}

func TestOptimizedBidirectionalAcknowledgement(t *testing.T) {
	alice, bob, err := InitAllOptimizedSend(RRidAndSRid)
	if err != nil {
		t.Fatalf("InitAllOptimizedSend: %v", err)
	}
	var ad [32]byte

	_, ct1, h1, err := alice.Send(ad[:], []byte("one"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ok, _, _ := bob.Receive(ad[:], ct1, h1); !ok {
		t.Fatalf("bob rejected first message")
	}

	_, ct2, h2, err := bob.Send(ad[:], []byte("ack"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ok, _, _ := alice.Receive(ad[:], ct2, h2); !ok {
		t.Fatalf("alice rejected bob's reply")
	}
	if len(alice.Base.SAck) == 0 {
		t.Fatalf("alice did not record bob's acknowledgement of her sent set")
	}
}

func TestOptimizedTamperedSentSetRejected(t *testing.T) {
	alice, bob, err := InitAllOptimizedSend(RRidAndSRid)
	if err != nil {
		t.Fatalf("InitAllOptimizedSend: %v", err)
	}
	var ad [32]byte
	_, ct1, h1, err := alice.Send(ad[:], []byte("one"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ok, _, _ := bob.Receive(ad[:], ct1, h1); !ok {
		t.Fatalf("bob rejected first message")
	}

	_, ct2, h2, err := bob.Send(ad[:], []byte("two"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	ct2.S[Message{Ordinal: Ordinal{Epoch: 99, Index: 99}, Content: [32]byte{1}}] = struct{}{}

	if ok, _, _ := alice.Receive(ad[:], ct2, h2); ok {
		t.Fatalf("alice accepted a message with a forged sent-set claim")
	}
}

// cloneOptimizedState snapshots an optimized-send party's state, including
// its incremental accumulators, the same way cloneState snapshots the
// underlying plain RRC state.
func cloneOptimizedState(s *OptimizedState) *OptimizedState {
	return &OptimizedState{
		Base:            cloneState(s.Base),
		IncrementalHash: s.IncrementalHash,
		HashS:           s.HashS.Clone(),
		HashOrdinalSet:  s.HashOrdinalSet.Clone(),
		NumsPrime:       cloneOrdinals(s.NumsPrime),
	}
}

// TestOptimizedAdversarialExampleIsDetectedForSRid is the optimized-send
// counterpart of TestAdversarialExampleIsDetectedForSRid: Eve clones Alice's
// state and forges a message Bob accepts, then Bob's genuine reply reaching
// Alice must be rejected since it claims to acknowledge something she never
// sent.
func TestOptimizedAdversarialExampleIsDetectedForSRid(t *testing.T) {
	alice, bob, err := InitAllOptimizedSend(RRidAndSRid)
	if err != nil {
		t.Fatalf("InitAllOptimizedSend: %v", err)
	}
	eve := cloneOptimizedState(alice)
	var ad [32]byte

	_, forgedCt, forgedH, err := eve.Send(ad[:], []byte("Wassup my dude?"))
	if err != nil {
		t.Fatalf("Send (eve): %v", err)
	}
	bob.Receive(ad[:], forgedCt, forgedH)

	_, ct, h, err := bob.Send(ad[:], []byte("I'm fine how are you Alice?"))
	if err != nil {
		t.Fatalf("Send (bob): %v", err)
	}
	if ok, _, _ := alice.Receive(ad[:], ct, h); ok {
		t.Fatalf("alice accepted bob's reply acknowledging a message she never sent")
	}
}

// TestOptimizedAdversarialExampleIsDetectedForRRid is the optimized-send
// counterpart of TestAdversarialExampleIsDetectedForRRid: Eve's forged
// message reaches Bob first, then Alice's own genuine next message must be
// rejected by Bob because it is inconsistent with what he already
// (wrongly) believes he has received.
func TestOptimizedAdversarialExampleIsDetectedForRRid(t *testing.T) {
	alice, bob, err := InitAllOptimizedSend(RRidAndSRid)
	if err != nil {
		t.Fatalf("InitAllOptimizedSend: %v", err)
	}
	eve := cloneOptimizedState(alice)
	var ad [32]byte

	_, forgedCt, forgedH, err := eve.Send(ad[:], []byte("Wassup my dude? (fake)"))
	if err != nil {
		t.Fatalf("Send (eve): %v", err)
	}
	bob.Receive(ad[:], forgedCt, forgedH)

	_, ct, h, err := alice.Send(ad[:], []byte("Wassup my dude? (real)"))
	if err != nil {
		t.Fatalf("Send (alice): %v", err)
	}
	if ok, _, _ := bob.Receive(ad[:], ct, h); ok {
		t.Fatalf("bob accepted alice's legitimate message despite an outstanding forgery at the same ordinal")
	}
}

func TestOptimizedOutOfOrderDeliveryAccepted(t *testing.T) {
	alice, bob, err := InitAllOptimizedSend(RRidAndSRid)
	if err != nil {
		t.Fatalf("InitAllOptimizedSend: %v", err)
	}
	var ad [32]byte

	ord1, ct1, h1, err := alice.Send(ad[:], []byte("m1"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	ord2, ct2, h2, err := alice.Send(ad[:], []byte("m2"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	ord3, ct3, h3, err := alice.Send(ad[:], []byte("m3"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if ok, rord, _ := bob.Receive(ad[:], ct3, h3); !ok || rord != ord3 {
		t.Fatalf("Receive rejected an out-of-order message")
	}
	if ok, rord, _ := bob.Receive(ad[:], ct1, h1); !ok || rord != ord1 {
		t.Fatalf("Receive rejected a delayed earlier message")
	}
	if ok, rord, _ := bob.Receive(ad[:], ct2, h2); !ok || rord != ord2 {
		t.Fatalf("Receive rejected a delayed earlier message")
	}
}
