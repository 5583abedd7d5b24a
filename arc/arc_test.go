package arc

import (
	"bytes"
	"testing"

	"github.com/shadowline/rrc/rrc"
)

func TestLiveness(t *testing.T) {
	alice, bob, err := Init()
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	var ad [32]byte

	for i := 0; i < 15; i++ {
		_, h, ct, err := alice.Send(ad[:], []byte("alice's message"))
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
		ok, _, pt := bob.Receive(ad[:], h, ct)
		if !ok || !bytes.Equal(pt, []byte("alice's message")) {
			t.Fatalf("round %d: bob rejected a legitimate message", i)
		}

		_, h, ct, err = bob.Send(ad[:], []byte("bob's reply"))
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
		ok, _, pt = alice.Receive(ad[:], h, ct)
		if !ok || !bytes.Equal(pt, []byte("bob's reply")) {
			t.Fatalf("round %d: alice rejected a legitimate reply", i)
		}
	}

	_, at := alice.AuthSend()
	if ok, _ := bob.AuthReceive(at); !ok {
		t.Fatalf("bob rejected a legitimate authentication tag")
	}
	_, at = bob.AuthSend()
	if ok, _ := alice.AuthReceive(at); !ok {
		t.Fatalf("alice rejected a legitimate authentication tag")
	}
}

// TestSafetyDetectsForgery simulates an attacker who, having compromised
// Bob's state after a run of legitimate traffic, manages to get a message
// accepted into Bob's received-set under an ordinal Alice has already
// authenticated, without that message actually being something Alice sent.
// Alice's next authentication tag should let Bob detect the mismatch.
func TestSafetyDetectsForgery(t *testing.T) {
	alice, bob, err := Init()
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	var ad [32]byte

	for i := 0; i < 5; i++ {
		_, h, ct, err := alice.Send(ad[:], []byte("alice's message"))
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
		if ok, _, _ := bob.Receive(ad[:], h, ct); !ok {
			t.Fatalf("round %d: bob rejected a legitimate message", i)
		}

		_, h, ct, err = bob.Send(ad[:], []byte("bob's reply"))
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
		if ok, _, _ := alice.Receive(ad[:], h, ct); !ok {
			t.Fatalf("round %d: alice rejected a legitimate reply", i)
		}
	}

	_, at := alice.AuthSend()
	if ok, _ := bob.AuthReceive(at); !ok {
		t.Fatalf("bob rejected alice's legitimate authentication tag before any forgery")
	}

	// Plant a message in bob's received-set under an ordinal alice has
	// already authenticated up to, whose content has no corresponding
	// entry in alice's sent-set: exactly what a forged message looks like.
	forged := Message{Ordinal: alice.Num, Content: [32]byte{0xff}}
	bob.R[forged] = struct{}{}

	_, at = alice.AuthSend()
	if ok, _ := bob.AuthReceive(at); ok {
		t.Fatalf("bob should have detected a message attributed to alice that she never sent")
	}
}

func TestRRCLiveness(t *testing.T) {
	alice, bob, err := RRCInit(rrc.RRid)
	if err != nil {
		t.Fatalf("RRCInit: %v", err)
	}
	var ad [32]byte

	for i := 0; i < 10; i++ {
		w, err := alice.Send(ad[:], []byte("ping"))
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
		if ok, _, _ := bob.Receive(ad[:], w); !ok {
			t.Fatalf("round %d: bob rejected a legitimate message", i)
		}

		w, err = bob.Send(ad[:], []byte("pong"))
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
		if ok, _, _ := alice.Receive(ad[:], w); !ok {
			t.Fatalf("round %d: alice rejected a legitimate reply", i)
		}
	}

	at, err := alice.AuthSend()
	if err != nil {
		t.Fatalf("AuthSend: %v", err)
	}
	if ok, _ := bob.AuthReceive(at); !ok {
		t.Fatalf("bob rejected a legitimate authentication tag")
	}
}

func TestRRCReceiveRejectsAuthTagAsMessage(t *testing.T) {
	alice, bob, err := RRCInit(rrc.RRid)
	if err != nil {
		t.Fatalf("RRCInit: %v", err)
	}
	var ad [32]byte

	at, err := alice.AuthSend()
	if err != nil {
		t.Fatalf("AuthSend: %v", err)
	}
	if ok, _, _ := bob.Receive(ad[:], at); ok {
		t.Fatalf("bob accepted an authentication tag delivered as an ordinary message")
	}
}

func TestRRCAuthReceiveRejectsMessageAsAuthTag(t *testing.T) {
	alice, bob, err := RRCInit(rrc.RRid)
	if err != nil {
		t.Fatalf("RRCInit: %v", err)
	}
	var ad [32]byte

	w, err := alice.Send(ad[:], []byte("hello"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ok, _ := bob.AuthReceive(w); ok {
		t.Fatalf("bob accepted an ordinary message delivered as an authentication tag")
	}
}
