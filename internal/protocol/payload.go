package protocol

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Inner payloads use standard AES-128-CBC with a zero IV. The ciphertext
// travels as uppercase hex in the outer envelope's data field and in push
// message bodies.

var aesZeroIV = make([]byte, aes.BlockSize)

// EncryptPayload marshals v and encrypts it with the given 16-byte key,
// returning uppercase hex. Tests also use it to fabricate server
// responses.
func EncryptPayload(v interface{}, key []byte) (string, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	padded := pkcs7Pad(plain, aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, aesZeroIV).CryptBlocks(ct, padded)
	return strings.ToUpper(hex.EncodeToString(ct)), nil
}

// DecryptPayload decrypts a hex ciphertext with the given 16-byte key and
// parses the JSON object inside. Every failure is a DecryptError: the
// ciphertext may be fine and the key stale, so callers must not treat it
// as permanent.
func DecryptPayload(hexText string, key []byte) (map[string]interface{}, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(hexText))
	if err != nil {
		return nil, &DecryptError{Err: err}
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return nil, &DecryptError{Err: fmt.Errorf("ciphertext length %d", len(raw))}
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &DecryptError{Err: err}
	}
	pt := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, aesZeroIV).CryptBlocks(pt, raw)

	pt, err = pkcs7Strip(pt, aes.BlockSize)
	if err != nil {
		return nil, &DecryptError{Err: err}
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(pt, &obj); err != nil {
		return nil, &DecryptError{Err: err}
	}
	return obj, nil
}

func pkcs7Pad(data []byte, size int) []byte {
	n := size - len(data)%size
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func pkcs7Strip(data []byte, size int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty plaintext")
	}
	n := int(data[len(data)-1])
	if n < 1 || n > size || n > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("inconsistent padding")
		}
	}
	return data[:len(data)-n], nil
}
