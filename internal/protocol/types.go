// Package protocol implements the signed-envelope codec for the vclink
// cloud API: outer field assembly, per-session key derivation, the
// mixed-case SHA-1 signature, the reordered-MD5 checkcode, and the
// AES-128-CBC inner payload.
package protocol

// DeviceIdentity carries the static fields identifying the simulated
// mobile client. Immutable for the process lifetime; every outer
// envelope embeds all of them.
type DeviceIdentity struct {
	IMEI       string
	MAC        string
	Model      string
	SDKLevel   string
	AppVersion string
}

// Session is the authenticated state issued by a successful login.
// Values are never mutated; re-login replaces the whole session.
type Session struct {
	UserID     string
	SignToken  string
	EncryToken string
}
