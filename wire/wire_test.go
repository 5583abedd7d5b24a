package wire

import (
	"bytes"
	"testing"

	"github.com/shadowline/rrc/rrc"
	"github.com/shadowline/rrc/srid"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	alice, bob, err := rrc.InitAll(rrc.RRidAndSRid)
	if err != nil {
		t.Fatalf("InitAll: %v", err)
	}

	var ad [32]byte
	copy(ad[:], []byte("associated data"))

	ord, ct, h, err := alice.Send(ad[:], []byte("hello wire"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	payload := Encode(ct, h, ord)

	decodedCt, decodedHeader, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(decodedCt.Inner, ct.Inner) {
		t.Fatalf("inner ciphertext mismatch")
	}
	if decodedHeader != h {
		t.Fatalf("header mismatch: got %+v want %+v", decodedHeader, h)
	}
	if decodedCt.RHash != ct.RHash {
		t.Fatalf("RHash mismatch")
	}
	if len(decodedCt.S) != len(ct.S) {
		t.Fatalf("S set size mismatch: got %d want %d", len(decodedCt.S), len(ct.S))
	}
	for m := range ct.S {
		if _, ok := decodedCt.S[m]; !ok {
			t.Fatalf("decoded S missing message %+v", m)
		}
	}

	ok, rord, pt := bob.Receive(ad[:], decodedCt, decodedHeader)
	if !ok {
		t.Fatalf("Receive of decoded payload rejected")
	}
	if rord != ord {
		t.Fatalf("ordinal mismatch: got %+v want %+v", rord, ord)
	}
	if string(pt) != "hello wire" {
		t.Fatalf("plaintext mismatch: got %q", pt)
	}
}

func TestDecodeRejectsTruncatedPayload(t *testing.T) {
	alice, _, err := rrc.InitAll(rrc.RRid)
	if err != nil {
		t.Fatalf("InitAll: %v", err)
	}
	var ad [32]byte
	ord, ct, h, err := alice.Send(ad[:], []byte("x"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	payload := Encode(ct, h, ord)

	if _, _, err := Decode(payload[:len(payload)-1]); err != ErrMalformedPayload {
		t.Fatalf("expected ErrMalformedPayload on truncated payload, got %v", err)
	}
	if _, _, err := Decode(nil); err != ErrMalformedPayload {
		t.Fatalf("expected ErrMalformedPayload on empty payload, got %v", err)
	}
}

func TestEncodeDecodeSRIDRoundTrip(t *testing.T) {
	alice, bob, err := srid.Init()
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	var ad [32]byte
	copy(ad[:], []byte("srid wire ad"))

	ord, ct, err := alice.Send(ad[:], []byte("hello srid wire"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	payload := EncodeSRID(ct)
	decoded, err := DecodeSRID(payload)
	if err != nil {
		t.Fatalf("DecodeSRID: %v", err)
	}
	if !bytes.Equal(decoded.Inner, ct.Inner) {
		t.Fatalf("inner ciphertext mismatch")
	}
	if decoded.Epoch != ct.Epoch {
		t.Fatalf("epoch mismatch: got %d want %d", decoded.Epoch, ct.Epoch)
	}
	if decoded.RHash != ct.RHash {
		t.Fatalf("RHash mismatch")
	}

	ok, rord, pt := bob.Receive(ad[:], decoded)
	if !ok {
		t.Fatalf("Receive of decoded srid payload rejected")
	}
	if rord != ord {
		t.Fatalf("ordinal mismatch: got %+v want %+v", rord, ord)
	}
	if string(pt) != "hello srid wire" {
		t.Fatalf("plaintext mismatch: got %q", pt)
	}
}

func TestDecodeRejectsTruncatedSRIDPayload(t *testing.T) {
	alice, _, err := srid.Init()
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	var ad [32]byte
	_, ct, err := alice.Send(ad[:], []byte("x"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	payload := EncodeSRID(ct)

	if _, err := DecodeSRID(payload[:len(payload)-1]); err != ErrMalformedPayload {
		t.Fatalf("expected ErrMalformedPayload on truncated payload, got %v", err)
	}
}
