package protocol

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/vclink/vclink-bridge/pkg/envelope"
)

// Codec assembles and parses outer request envelopes. Safe for concurrent
// use: it holds only immutable identity data and the envelope cipher.
type Codec struct {
	env      *envelope.Cipher
	device   DeviceIdentity
	country  string
	language string
}

// NewCodec builds a codec for one device identity. Fails only when the
// embedded cipher tables are corrupt, which is fatal for the process.
func NewCodec(device DeviceIdentity, countryCode, language string) (*Codec, error) {
	env, err := envelope.NewCipher()
	if err != nil {
		return nil, err
	}
	return &Codec{
		env:      env,
		device:   device,
		country:  countryCode,
		language: language,
	}, nil
}

// Envelope exposes the outer cipher, used to frame push payloads and to
// fabricate server responses in tests.
func (c *Codec) Envelope() *envelope.Cipher { return c.env }

// MD5Hex returns the lowercase hex MD5 of s.
func MD5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func md5Raw(s string) []byte {
	sum := md5.Sum([]byte(s))
	return sum[:]
}

// LoginContentKey derives the AES key for login payloads: the raw MD5 of
// the hex MD5 of the account password.
func LoginContentKey(password string) []byte {
	return md5Raw(MD5Hex(password))
}

// ContentKey derives the session key that encrypts inner payloads.
func ContentKey(s *Session) []byte { return md5Raw(s.EncryToken) }

// SignKey derives the session key whose hex form is appended to the
// signature string.
func SignKey(s *Session) []byte { return md5Raw(s.SignToken) }

// BuildLoginEnvelope produces the wire text for a login call, plus the
// password-derived key that also decrypts the login response payload.
func (c *Codec) BuildLoginEnvelope(username, password string) (string, []byte, error) {
	key := LoginContentKey(password)
	inner := map[string]string{
		"userName":  username,
		"password":  MD5Hex(password),
		"pushToken": "",
	}
	fields := c.baseFields()
	fields["userName"] = username

	text, err := c.seal(fields, inner, key, "password="+MD5Hex(password))
	if err != nil {
		return "", nil, err
	}
	return text, key, nil
}

// BuildSessionEnvelope produces the wire text for a session-scoped call,
// plus the content key needed to decrypt the matching response payload.
func (c *Codec) BuildSessionEnvelope(sess *Session, inner map[string]string) (string, []byte, error) {
	if sess == nil {
		return "", nil, ErrNotAuthenticated
	}
	key := ContentKey(sess)
	fields := c.baseFields()
	fields["userId"] = sess.UserID

	text, err := c.seal(fields, inner, key, "sign="+hex.EncodeToString(SignKey(sess)))
	if err != nil {
		return "", nil, err
	}
	return text, key, nil
}

func (c *Codec) baseFields() map[string]string {
	return map[string]string{
		"appVersion":  c.device.AppVersion,
		"countryCode": c.country,
		"imei":        c.device.IMEI,
		"language":    c.language,
		"mac":         c.device.MAC,
		"model":       c.device.Model,
		"sdkLevel":    c.device.SDKLevel,
	}
}

// seal encrypts the inner payload into the data field, signs the exact
// field set, appends the checkcode, and encodes the outer envelope. The
// server recomputes both digests over the same serialization, so the
// field set must contain exactly the keys placed here and nothing else.
func (c *Codec) seal(fields, inner map[string]string, contentKey []byte, secret string) (string, error) {
	data, err := EncryptPayload(inner, contentKey)
	if err != nil {
		return "", err
	}
	fields["data"] = data
	fields["sign"] = signFields(fields, secret)

	signed, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	fields["checkcode"] = Checkcode(signed)

	outer, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return c.env.Encode(outer), nil
}

// signFields joins the sorted key=value pairs with '&', appends the
// secret term, and digests the result.
func signFields(fields map[string]string, secret string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
		b.WriteByte('&')
	}
	b.WriteString(secret)
	return signDigest(b.String())
}

// signDigest renders a SHA-1 digest in the vendor's mixed-case form: hex
// byte pairs at even positions are uppercased and drop a leading zero,
// pairs at odd positions stay lowercase with both digits.
func signDigest(s string) string {
	sum := sha1.Sum([]byte(s))
	h := hex.EncodeToString(sum[:])

	var b strings.Builder
	for i := 0; i < len(h); i += 2 {
		pair := h[i : i+2]
		if (i/2)%2 == 0 {
			pair = strings.ToUpper(pair)
			if pair[0] == '0' {
				pair = pair[1:]
			}
		}
		b.WriteString(pair)
	}
	return b.String()
}

// Checkcode computes the outer-object integrity value: the MD5 digest of
// the serialized object with its words reordered 12-15, 4-7, 8-11, 0-3,
// as lowercase hex. Serialization sorts keys, so the value is independent
// of field insertion order.
func Checkcode(serialized []byte) string {
	d := md5.Sum(serialized)
	out := make([]byte, 0, md5.Size)
	out = append(out, d[12:16]...)
	out = append(out, d[4:8]...)
	out = append(out, d[8:12]...)
	out = append(out, d[0:4]...)
	return hex.EncodeToString(out)
}

// WrapRequest produces the HTTP body carrying an envelope.
func WrapRequest(envelopeText string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{"request": envelopeText})
	if err != nil {
		return nil, fmt.Errorf("wrap request: %w", err)
	}
	return body, nil
}
