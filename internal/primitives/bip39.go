package primitives

import (
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// GenerateMnemonic produces a new BIP39 mnemonic phrase at the given entropy
// strength in bits (128 => 12 words, 256 => 24 words), per spec §4.1's
// wallet-creation step.
func GenerateMnemonic(entropyBits int) (string, error) {
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", fmt.Errorf("primitives: mnemonic entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("primitives: mnemonic encode: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic reports whether mnemonic is a well-formed BIP39 phrase:
// every word is in the English wordlist and the trailing checksum bits
// match.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}
