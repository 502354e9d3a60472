package primitives

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

// TestPropertyEd25519SignVerifyAlwaysRoundTrips checks spec §8's
// universally-quantified property: for any scalar and any message, a
// signature produced by Ed25519SignWithScalar verifies against the
// corresponding public point, and never verifies against a different
// message or a different key.
func TestPropertyEd25519SignVerifyAlwaysRoundTrips(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seedA := rapid.Int64().Draw(t, "seedA")
		seedB := rapid.Int64().Draw(t, "seedB")
		msgA := rapid.String().Draw(t, "msgA")
		msgB := rapid.String().Draw(t, "msgB")

		scalar := HashToScalar([]byte(fmt.Sprintf("scalar-%d", seedA)))
		otherScalar := HashToScalar([]byte(fmt.Sprintf("scalar-%d", seedB)))

		pub, err := ScalarMulBase(scalar)
		if err != nil {
			t.Fatalf("ScalarMulBase: %v", err)
		}
		otherPub, err := ScalarMulBase(otherScalar)
		if err != nil {
			t.Fatalf("ScalarMulBase: %v", err)
		}

		msgHash := HashToScalar([]byte(msgA))
		otherMsgHash := HashToScalar([]byte(msgB))

		sig, err := Ed25519SignWithScalar(msgHash[:], scalar[:])
		if err != nil {
			t.Fatalf("Ed25519SignWithScalar: %v", err)
		}

		if !Ed25519VerifyScalar(sig, msgHash[:], pub[:]) {
			t.Fatal("signature must verify against its own message and key")
		}
		if msgA != msgB && Ed25519VerifyScalar(sig, otherMsgHash[:], pub[:]) {
			t.Fatal("signature must not verify against a different message")
		}
		if seedA != seedB && Ed25519VerifyScalar(sig, msgHash[:], otherPub[:]) {
			t.Fatal("signature must not verify against a different key")
		}
	})
}

// TestPropertyBase58CNRoundTrips checks that CryptoNote base58 encode/decode
// is a lossless round trip for any byte slice, regardless of how it splits
// across full and partial 8-byte blocks.
func TestPropertyBase58CNRoundTrips(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 0, 128).Draw(t, "data")

		encoded := Base58CNEncode(data)
		decoded, err := Base58CNDecode(encoded)
		if err != nil {
			t.Fatalf("Base58CNDecode: %v", err)
		}
		if len(data) == 0 {
			if len(decoded) != 0 {
				t.Fatalf("expected empty decode, got %x", decoded)
			}
			return
		}
		if string(decoded) != string(data) {
			t.Fatalf("round trip mismatch: got %x, want %x", decoded, data)
		}
	})
}

// TestPropertyAEADRoundTrips checks that Encrypt/Decrypt round-trip for any
// plaintext under any 32-byte key, and that flipping any single ciphertext
// byte breaks decryption.
func TestPropertyAEADRoundTrips(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keySeed := rapid.Int64().Draw(t, "keySeed")
		plaintext := rapid.SliceOfN(rapid.Byte(), 0, 256).Draw(t, "plaintext")

		kek := HashToScalar([]byte(fmt.Sprintf("kek-%d", keySeed)))

		ciphertext, err := Encrypt(plaintext, kek[:])
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		decrypted, err := Decrypt(ciphertext, kek[:])
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if string(decrypted) != string(plaintext) {
			t.Fatalf("round trip mismatch: got %x, want %x", decrypted, plaintext)
		}

		tampered := append([]byte(nil), ciphertext...)
		tampered[len(tampered)-1] ^= 0xff
		if _, err := Decrypt(tampered, kek[:]); err == nil {
			t.Fatal("decrypt must fail on tampered ciphertext")
		}
	})
}
