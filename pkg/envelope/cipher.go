// Package envelope implements the proprietary block cipher wrapping every
// request and response body on the vclink cloud API.
//
// The cipher operates on 16-byte blocks through a ten-layer network: a
// terminal byte substitution, an initial permutation with XOR whitening
// (round 0), and nine rounds of nibble-interleaved substitution followed by
// split half-block permutations. It is structurally AES-like, but the table
// contents encode the vendor's key schedule, so interoperability requires
// reproducing the indexing arithmetic byte for byte. The wire format is
// base64 of zero-IV CBC over PKCS#7-padded JSON, prefixed with a one-byte
// version tag.
package envelope

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	// BlockSize is the cipher block length in bytes.
	BlockSize = 16

	// Tag is the version byte prefixed to every encoded envelope.
	Tag = '1'

	encryptRounds = 10
	decryptFloor  = 1
)

var (
	// ErrTableSize reports a cipher table whose length does not match the
	// vendor layout. Treated as fatal at startup.
	ErrTableSize = errors.New("cipher table size mismatch")

	// ErrBlockAlign reports ciphertext or plaintext whose length is not a
	// multiple of the block size.
	ErrBlockAlign = errors.New("data length not a multiple of block size")
)

var zeroIV [BlockSize]byte

// Cipher holds the lookup tables for the envelope cipher. All methods are
// safe for concurrent use; the tables are never written after construction.
type Cipher struct {
	round    []byte
	subEnc   []byte
	subDec   []byte
	perm     []byte
	schedL   []byte
	schedR   []byte
	finalEnc []byte
	finalDec []byte
}

// NewCipher validates the embedded table sizes and returns a ready cipher.
// A size mismatch means the build carries corrupted tables and is not
// recoverable at runtime.
func NewCipher() (*Cipher, error) {
	tables := []struct {
		name string
		data []byte
		want int
	}{
		{"roundTable", roundTable, 160},
		{"subTableEnc", subTableEnc, 256},
		{"subTableDec", subTableDec, 256},
		{"permTable", permTable, 16},
		{"schedLeft", schedLeft, 8},
		{"schedRight", schedRight, 8},
		{"finalTableEnc", finalTableEnc, 256},
		{"finalTableDec", finalTableDec, 256},
	}
	for _, t := range tables {
		if len(t.data) != t.want {
			return nil, fmt.Errorf("%w: %s has %d bytes, want %d", ErrTableSize, t.name, len(t.data), t.want)
		}
	}
	return &Cipher{
		round:    roundTable,
		subEnc:   subTableEnc,
		subDec:   subTableDec,
		perm:     permTable,
		schedL:   schedLeft,
		schedR:   schedRight,
		finalEnc: finalTableEnc,
		finalDec: finalTableDec,
	}, nil
}

// interleave swaps the nibbles of b, producing the table index the vendor
// cipher uses for every substitution lookup.
func interleave(b byte) byte {
	return b<<4 | b>>4
}

// EncryptBlock encrypts a single 16-byte block, running rounds 0 through
// roundCeiling. The full cipher uses roundCeiling 10: the terminal
// substitution, then round 0 (initial permutation plus whitening), then
// nine substitution/permutation rounds.
func (c *Cipher) EncryptBlock(block []byte, roundCeiling int) []byte {
	var s, t [BlockSize]byte
	copy(s[:], block[:BlockSize])

	if roundCeiling == encryptRounds {
		for i := range s {
			s[i] = c.finalEnc[s[i]]
		}
	}

	// round 0: initial permutation, then whitening with row 0
	for i := 0; i < BlockSize; i++ {
		t[i] = s[c.perm[i]]
	}
	for i := 0; i < BlockSize; i++ {
		s[i] = t[i] ^ c.round[i]
	}

	top := roundCeiling
	if top > 9 {
		top = 9
	}
	for r := 1; r <= top; r++ {
		k := c.round[16*r : 16*r+16]
		for i := 0; i < BlockSize; i++ {
			s[i] = c.subEnc[interleave(s[i]^k[i])]
		}
		for i := 0; i < 8; i++ {
			t[i] = s[c.schedL[i]]
			t[8+i] = s[8+c.schedR[i]]
		}
		s = t
	}

	out := make([]byte, BlockSize)
	copy(out, s[:])
	return out
}

// DecryptBlock decrypts a single 16-byte block, unwinding rounds 9 down to
// roundFloor. The full cipher uses roundFloor 1, which also undoes round 0
// and finishes with the terminal substitution.
func (c *Cipher) DecryptBlock(block []byte, roundFloor int) []byte {
	var s, t [BlockSize]byte
	copy(s[:], block[:BlockSize])

	for r := 9; r >= roundFloor; r-- {
		for i := 0; i < 8; i++ {
			t[c.schedL[i]] = s[i]
			t[8+c.schedR[i]] = s[8+i]
		}
		s = t
		k := c.round[16*r : 16*r+16]
		for i := 0; i < BlockSize; i++ {
			s[i] = c.subDec[interleave(s[i])] ^ k[i]
		}
	}

	if roundFloor == decryptFloor {
		for i := 0; i < BlockSize; i++ {
			s[i] ^= c.round[i]
		}
		for i := 0; i < BlockSize; i++ {
			t[c.perm[i]] = s[i]
		}
		s = t
		for i := range s {
			s[i] = c.finalDec[s[i]]
		}
	}

	out := make([]byte, BlockSize)
	copy(out, s[:])
	return out
}

// EncryptCBC encrypts data with standard CBC chaining over the block
// cipher. The data length must be a multiple of the block size.
func (c *Cipher) EncryptCBC(data, iv []byte) ([]byte, error) {
	if len(data)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBlockAlign, len(data))
	}
	if len(iv) != BlockSize {
		return nil, fmt.Errorf("%w: iv is %d bytes", ErrBlockAlign, len(iv))
	}
	out := make([]byte, len(data))
	prev := iv
	var blk [BlockSize]byte
	for off := 0; off < len(data); off += BlockSize {
		for i := 0; i < BlockSize; i++ {
			blk[i] = data[off+i] ^ prev[i]
		}
		copy(out[off:], c.EncryptBlock(blk[:], encryptRounds))
		prev = out[off : off+BlockSize]
	}
	return out, nil
}

// DecryptCBC decrypts CBC-chained data. The data length must be a multiple
// of the block size.
func (c *Cipher) DecryptCBC(data, iv []byte) ([]byte, error) {
	if len(data)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBlockAlign, len(data))
	}
	if len(iv) != BlockSize {
		return nil, fmt.Errorf("%w: iv is %d bytes", ErrBlockAlign, len(iv))
	}
	out := make([]byte, len(data))
	prev := iv
	for off := 0; off < len(data); off += BlockSize {
		pb := c.DecryptBlock(data[off:off+BlockSize], decryptFloor)
		for i := 0; i < BlockSize; i++ {
			out[off+i] = pb[i] ^ prev[i]
		}
		prev = data[off : off+BlockSize]
	}
	return out, nil
}

// Encode produces the wire form of data: PKCS#7 padding, zero-IV CBC,
// standard base64, and the leading version tag.
func (c *Cipher) Encode(data []byte) string {
	ct, _ := c.EncryptCBC(pkcs7Pad(data), zeroIV[:])
	return string(Tag) + base64.StdEncoding.EncodeToString(ct)
}

// Decode reverses Encode, tolerating the variants the cloud emits:
// embedded whitespace, URL-safe base64 characters, and missing padding.
// Padding removal is best effort; a payload whose tail is not plausible
// PKCS#7 padding is returned whole rather than rejected.
func (c *Cipher) Decode(text string) ([]byte, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, text)
	if s != "" && s[0] == Tag {
		s = s[1:]
	}
	s = strings.ReplaceAll(s, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")
	s = strings.TrimRight(s, "=")
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("envelope base64: %w", err)
	}
	if len(raw)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBlockAlign, len(raw))
	}
	pt, err := c.DecryptCBC(raw, zeroIV[:])
	if err != nil {
		return nil, err
	}
	return pkcs7Strip(pt), nil
}

func pkcs7Pad(data []byte) []byte {
	n := BlockSize - len(data)%BlockSize
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func pkcs7Strip(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	n := int(data[len(data)-1])
	if n < 1 || n > BlockSize || n > len(data) {
		return data
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return data
		}
	}
	return data[:len(data)-n]
}
