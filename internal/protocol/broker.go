package protocol

import (
	"fmt"
	"strings"
	"time"
)

// Push broker credential derivation. The broker authenticates MQTT
// connects with values derived from the device identity and the current
// session; the password embeds a timestamp, so it must be regenerated on
// every (re)connect.

// PushClientID derives the fixed MQTT client identifier for a device.
func PushClientID(imei string) string {
	return "oversea_" + strings.ToUpper(MD5Hex(imei))
}

// PushPassword derives the MQTT connect password for the given session
// and instant: the unix seconds concatenated with the hex MD5 of
// signToken + clientID + userID + unix seconds.
func PushPassword(s *Session, clientID string, now time.Time) string {
	ts := fmt.Sprintf("%d", now.Unix())
	return ts + MD5Hex(s.SignToken+clientID+s.UserID+ts)
}
