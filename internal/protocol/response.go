package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// frameMarker precedes the JSON body in some response envelopes.
const frameMarker = '~'

// Response is a decoded outer response. Code is normalized to a string;
// the cloud emits it as a string or a bare number depending on endpoint
// and firmware generation.
type Response struct {
	Code    string
	Message string
	Data    string // hex ciphertext of the inner payload
}

// Success reports the all-clear code.
func (r *Response) Success() bool { return r.Code == CodeSuccess }

// DecodeResponse unwraps and decodes a raw HTTP response body. The body
// is either the envelope text itself or a {"response": "<text>"} wrapper.
func (c *Codec) DecodeResponse(raw []byte) (*Response, error) {
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, "{") {
		var wrapper struct {
			Response string `json:"response"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, fmt.Errorf("parse response wrapper: %w", err)
		}
		text = strings.TrimSpace(wrapper.Response)
	}
	if text == "" {
		return nil, ErrEmptyPayload
	}

	decoded, err := c.env.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}
	body := decoded
	if len(body) > 1 && body[0] == frameMarker && (body[1] == '{' || body[1] == '[') {
		body = body[1:]
	}

	var parsed struct {
		Code        json.RawMessage `json:"code"`
		Message     string          `json:"message"`
		RespondData string          `json:"respondData"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response body: %w", err)
	}
	return &Response{
		Code:    normalizeCode(parsed.Code),
		Message: parsed.Message,
		Data:    parsed.RespondData,
	}, nil
}

// normalizeCode renders a string or numeric JSON code as a plain string.
func normalizeCode(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return strings.Trim(string(raw), `"`)
}
