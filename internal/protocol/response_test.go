package protocol

import (
	"errors"
	"fmt"
	"testing"
)

func encodeBody(c *Codec, body string) string {
	return c.env.Encode([]byte(body))
}

func TestDecodeResponseWrapped(t *testing.T) {
	c := testCodec(t)
	env := encodeBody(c, `{"code":"1000","message":"success","respondData":"ABCD"}`)

	resp, err := c.DecodeResponse([]byte(fmt.Sprintf(`{"response":%q}`, env)))
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if resp.Code != "1000" || resp.Message != "success" || resp.Data != "ABCD" {
		t.Errorf("response = %+v", resp)
	}
	if !resp.Success() {
		t.Error("Success() = false")
	}
}

func TestDecodeResponseBareEnvelope(t *testing.T) {
	c := testCodec(t)
	env := encodeBody(c, `{"code":"1047","message":"too many requests"}`)

	resp, err := c.DecodeResponse([]byte(env))
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if resp.Code != CodeRateLimited {
		t.Errorf("Code = %s", resp.Code)
	}
	if resp.Success() {
		t.Error("Success() = true")
	}
}

func TestDecodeResponseNumericCode(t *testing.T) {
	c := testCodec(t)
	env := encodeBody(c, `{"code":1000,"message":"ok"}`)

	resp, err := c.DecodeResponse([]byte(env))
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if resp.Code != "1000" {
		t.Errorf("Code = %q, want \"1000\"", resp.Code)
	}
}

func TestDecodeResponseFrameMarker(t *testing.T) {
	c := testCodec(t)
	env := encodeBody(c, "~"+`{"code":"1006","message":"session expired"}`)

	resp, err := c.DecodeResponse([]byte(env))
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if resp.Code != CodeSessionExpired {
		t.Errorf("Code = %s", resp.Code)
	}
	if !IsSessionExpiredCode(resp.Code) {
		t.Error("IsSessionExpiredCode = false")
	}
}

func TestDecodeResponseEmpty(t *testing.T) {
	c := testCodec(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty wrapper", `{"response":""}`},
		{"missing key", `{"status":"down"}`},
		{"blank body", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.DecodeResponse([]byte(tt.body))
			if !errors.Is(err, ErrEmptyPayload) {
				t.Errorf("error = %v, want ErrEmptyPayload", err)
			}
		})
	}
}

func TestDecodeResponseGarbage(t *testing.T) {
	c := testCodec(t)

	if _, err := c.DecodeResponse([]byte(`{"response":"!!!not an envelope!!!"}`)); err == nil {
		t.Error("expected error for non-envelope text")
	}
	if _, err := c.DecodeResponse([]byte(`{"response":`)); err == nil {
		t.Error("expected error for truncated wrapper")
	}
}
