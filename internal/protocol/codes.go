package protocol

// Server response codes the client acts on. Values are assigned by the
// cloud; policy is keyed on the code, never on the message text.
const (
	CodeSuccess            = "1000"
	CodeSessionInvalid     = "1005"
	CodeSessionExpired     = "1006"
	CodeTokenRejected      = "8100"
	CodeRateLimited        = "1047"
	CodeNotSupported       = "8021"
	CodeControlPINInvalid  = "6015"
	CodeControlPINLocked   = "6016"
	CodeControlPINUnset    = "6017"
	CodeCommandUnavailable = "8985"
)

// IsSessionExpiredCode reports whether code means the session token is no
// longer valid and a re-login is required.
func IsSessionExpiredCode(code string) bool {
	switch code {
	case CodeSessionInvalid, CodeSessionExpired, CodeTokenRejected:
		return true
	}
	return false
}

// IsControlPasswordCode reports whether code is one of the remote-command
// PIN failures.
func IsControlPasswordCode(code string) bool {
	switch code {
	case CodeControlPINInvalid, CodeControlPINLocked, CodeControlPINUnset:
		return true
	}
	return false
}
