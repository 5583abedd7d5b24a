package ratchet

// GenerateKeyPair produces a fresh X25519 key pair. Exported so higher-level
// protocols built on top of a ratchet.State (RRC, s-RID-RC, UNF-ARC) can run
// their own auxiliary DH exchanges (e.g. for a forgery-detection hash key)
// using the same primitive the ratchet itself is built on.
func GenerateKeyPair() (KeyPair, error) {
	return generateDH()
}

// DH performs the X25519 Diffie-Hellman operation.
func DH(priv, pub [32]byte) ([]byte, error) {
	return dh(priv, pub)
}
