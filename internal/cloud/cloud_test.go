package cloud

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vclink/vclink-bridge/internal/protocol"
)

// fakeCloud speaks the real wire protocol: it decodes request envelopes,
// decrypts inner payloads with the session it issued, and fabricates
// properly encrypted responses. Per-path handlers decide the outcome.
type pathHandler func(call int, inner map[string]interface{}) (code, message string, payload interface{})

type fakeCloud struct {
	t        *testing.T
	codec    *protocol.Codec
	password string

	mu       sync.Mutex
	handlers map[string]pathHandler
	calls    map[string]int
	issued   *protocol.Session
	logins   int
}

func (f *fakeCloud) handle(path string, h pathHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

func (f *fakeCloud) callCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeCloud) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func (f *fakeCloud) issueSession() *protocol.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	s := &protocol.Session{
		UserID:     "u42",
		SignToken:  fmt.Sprintf("sign-token-%d", f.logins),
		EncryToken: fmt.Sprintf("encry-token-%d", f.logins),
	}
	f.issued = s
	return s
}

func (f *fakeCloud) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var wrapper struct {
		Request string `json:"request"`
	}
	if !assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&wrapper)) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	decoded, err := f.codec.Envelope().Decode(wrapper.Request)
	if !assert.NoError(f.t, err, "request envelope") {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var outer map[string]string
	if !assert.NoError(f.t, json.Unmarshal(decoded, &outer)) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.calls[r.URL.Path]++
	call := f.calls[r.URL.Path]
	issued := f.issued
	handler := f.handlers[r.URL.Path]
	f.mu.Unlock()

	var key []byte
	if r.URL.Path == PathLogin {
		key = protocol.LoginContentKey(f.password)
	} else {
		if !assert.NotNil(f.t, issued, "session request before login") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		key = protocol.ContentKey(issued)
	}
	inner, err := protocol.DecryptPayload(outer["data"], key)
	if !assert.NoError(f.t, err, "request payload") {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if handler == nil {
		if r.URL.Path == PathLogin {
			sess := f.issueSession()
			f.respond(w, "1000", "success", map[string]string{
				"userId":     sess.UserID,
				"signToken":  sess.SignToken,
				"encryToken": sess.EncryToken,
			}, key)
			return
		}
		f.respond(w, "9999", "no handler for "+r.URL.Path, nil, key)
		return
	}

	code, message, payload := handler(call, inner)
	f.respond(w, code, message, payload, key)
}

func (f *fakeCloud) respond(w http.ResponseWriter, code, message string, payload interface{}, key []byte) {
	body := map[string]string{"code": code, "message": message}
	if payload != nil {
		data, err := protocol.EncryptPayload(payload, key)
		if !assert.NoError(f.t, err) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body["respondData"] = data
	}
	raw, err := json.Marshal(body)
	if !assert.NoError(f.t, err) {
		return
	}
	resp, err := json.Marshal(map[string]string{"response": f.codec.Envelope().Encode(raw)})
	if !assert.NoError(f.t, err) {
		return
	}
	w.Write(resp)
}

type harness struct {
	fake     *fakeCloud
	codec    *protocol.Codec
	client   *Client
	sessions *SessionManager
	orch     *CommandOrchestrator
}

func newHarness(t *testing.T, cfg OrchestratorConfig) *harness {
	t.Helper()

	device := protocol.DeviceIdentity{
		IMEI:       "860032040912748",
		MAC:        "02:00:5E:10:00:25",
		Model:      "Pixel 4",
		SDKLevel:   "30",
		AppVersion: "2.3.0",
	}
	codec, err := protocol.NewCodec(device, "86", "en")
	require.NoError(t, err)

	fake := &fakeCloud{
		t:        t,
		codec:    codec,
		password: "Secret1!",
		handlers: make(map[string]pathHandler),
		calls:    make(map[string]int),
	}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, codec)
	require.NoError(t, err)

	sessions := NewSessionManager(client, codec, "13800138000", "Secret1!")
	orch, err := NewOrchestrator(client, codec, sessions, cfg)
	require.NoError(t, err)

	return &harness{
		fake:     fake,
		codec:    codec,
		client:   client,
		sessions: sessions,
		orch:     orch,
	}
}

// pushPayload encrypts a push message the way the vendor broker does,
// using the hex AES transport keyed by the current session.
func (h *harness) pushPayload(t *testing.T, eventType int, vin, serial string, data map[string]interface{}) []byte {
	t.Helper()

	msg := map[string]interface{}{
		"eventType": eventType,
		"vin":       vin,
		"data":      data,
	}
	if serial != "" {
		msg["requestSerial"] = serial
	}
	sess := h.sessions.Current()
	require.NotNil(t, sess)
	text, err := protocol.EncryptPayload(msg, protocol.ContentKey(sess))
	require.NoError(t, err)
	return []byte(text)
}

// fastConfig keeps trigger flows in the millisecond range for tests.
func fastConfig() OrchestratorConfig {
	return OrchestratorConfig{
		PushWait:         10 * time.Millisecond,
		PollInterval:     5 * time.Millisecond,
		PollAttempts:     4,
		RateLimitDelay:   time.Millisecond,
		RateLimitRetries: 2,
	}
}
