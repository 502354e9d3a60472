package primitives

import (
	"fmt"
	"math/big"
)

// cryptoNoteAlphabet is the base58 alphabet CryptoNote chains use, as
// specified in spec §6 — the same 58 glyphs in the same order as Bitcoin's;
// what differs is the block-based encoding below.
const cryptoNoteAlphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// fullBlockSize and fullEncodedBlockSize are CryptoNote base58's raw/encoded
// sizes for a complete 8-byte block.
const (
	fullBlockSize        = 8
	fullEncodedBlockSize = 11
)

// encodedBlockSizes maps a partial raw block length (1..8) to its encoded
// length, per spec §6.
var encodedBlockSizes = [9]int{0, 2, 3, 5, 6, 7, 9, 10, 11}

var cryptoNoteAlphabetIndex = func() map[byte]int {
	m := make(map[byte]int, len(cryptoNoteAlphabet))
	for i := 0; i < len(cryptoNoteAlphabet); i++ {
		m[cryptoNoteAlphabet[i]] = i
	}
	return m
}()

// Base58CNEncode encodes data using CryptoNote's block-based base58 variant:
// data is split into 8-byte blocks (the final block may be shorter), and
// each block is independently encoded to a fixed-width run of characters per
// encodedBlockSizes.
func Base58CNEncode(data []byte) string {
	var out []byte
	fullBlocks := len(data) / fullBlockSize
	for i := 0; i < fullBlocks; i++ {
		out = append(out, encodeBlock(data[i*fullBlockSize:(i+1)*fullBlockSize], fullEncodedBlockSize)...)
	}
	if rem := len(data) % fullBlockSize; rem > 0 {
		out = append(out, encodeBlock(data[fullBlocks*fullBlockSize:], encodedBlockSizes[rem])...)
	}
	return string(out)
}

func encodeBlock(block []byte, encodedSize int) []byte {
	num := new(big.Int).SetBytes(block)
	base := big.NewInt(58)
	encoded := make([]byte, encodedSize)
	rem := new(big.Int)
	for i := encodedSize - 1; i >= 0; i-- {
		num.DivMod(num, base, rem)
		encoded[i] = cryptoNoteAlphabet[rem.Int64()]
	}
	return encoded
}

// Base58CNDecode is the inverse of Base58CNEncode.
func Base58CNDecode(s string) ([]byte, error) {
	fullChars := len(s) / fullEncodedBlockSize
	remChars := len(s) % fullEncodedBlockSize

	remRawSize := -1
	if remChars > 0 {
		for raw, enc := range encodedBlockSizes {
			if enc == remChars {
				remRawSize = raw
				break
			}
		}
		if remRawSize < 0 {
			return nil, fmt.Errorf("%w: invalid cryptonote base58 tail length %d", ErrBadEncoding, remChars)
		}
	}

	capacity := fullChars * fullBlockSize
	if remRawSize > 0 {
		capacity += remRawSize
	}
	out := make([]byte, 0, capacity)
	for i := 0; i < fullChars; i++ {
		block, err := decodeBlock(s[i*fullEncodedBlockSize:(i+1)*fullEncodedBlockSize], fullBlockSize)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	if remChars > 0 {
		block, err := decodeBlock(s[fullChars*fullEncodedBlockSize:], remRawSize)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	return out, nil
}

func decodeBlock(s string, rawSize int) ([]byte, error) {
	num := new(big.Int)
	base := big.NewInt(58)
	for i := 0; i < len(s); i++ {
		digit, ok := cryptoNoteAlphabetIndex[s[i]]
		if !ok {
			return nil, fmt.Errorf("%w: invalid cryptonote base58 character %q", ErrBadEncoding, s[i])
		}
		num.Mul(num, base)
		num.Add(num, big.NewInt(int64(digit)))
	}
	raw := num.Bytes()
	if len(raw) > rawSize {
		return nil, fmt.Errorf("%w: cryptonote base58 block overflow", ErrBadEncoding)
	}
	padded := make([]byte, rawSize)
	copy(padded[rawSize-len(raw):], raw)
	return padded, nil
}
