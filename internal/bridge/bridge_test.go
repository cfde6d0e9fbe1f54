package bridge

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vclink/vclink-bridge/internal/cloud"
	"github.com/vclink/vclink-bridge/internal/config"
	"github.com/vclink/vclink-bridge/internal/models"
	"github.com/vclink/vclink-bridge/internal/protocol"
)

const testVIN = "LVSHFFAC8N1234567"

type publishedMsg struct {
	subject string
	data    []byte
}

type fakeConn struct {
	mu       sync.Mutex
	messages []publishedMsg
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, publishedMsg{subject: subject, data: data})
	return nil
}

func (f *fakeConn) QueueSubscribe(subject, queue string, handler nats.MsgHandler) (*nats.Subscription, error) {
	return nil, nil
}

func (f *fakeConn) snapshot() []publishedMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishedMsg(nil), f.messages...)
}

func (f *fakeConn) bySubject(subject string) []publishedMsg {
	var out []publishedMsg
	for _, m := range f.snapshot() {
		if m.subject == subject {
			out = append(out, m)
		}
	}
	return out
}

func newTestBridge(t *testing.T) (*Bridge, *fakeConn) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Cloud.BaseURL = "http://127.0.0.1:1"
	cfg.Cloud.Account = "user@example.com"
	cfg.Cloud.Password = "login-password"
	cfg.Cloud.Device.IMEI = "860123456789012"
	cfg.Cloud.Device.MAC = "02:00:00:00:00:01"
	cfg.Cloud.Device.Model = "SM-G9730"
	cfg.Cloud.Device.SDKLevel = "29"
	cfg.Cloud.Device.AppVersion = "2.3.0"
	cfg.Cloud.Device.CountryCode = "1"
	cfg.Cloud.Device.Language = "en"
	cfg.Cloud.PushWait = 5 * time.Second
	cfg.Cloud.PollInterval = 2 * time.Second
	cfg.Cloud.PollAttempts = 12
	cfg.Cloud.UpdateInterval = time.Minute

	nc := &fakeConn{}
	b, err := New(cfg, nc)
	require.NoError(t, err)
	return b, nc
}

func TestPublishTelemetry(t *testing.T) {
	b, nc := newTestBridge(t)

	b.publishTelemetry(testVIN, cloud.KindRealtime, map[string]interface{}{"enduranceMileage": 318.0}, cloud.SourcePush)

	msgs := nc.snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, "vclink.telemetry.realtime."+testVIN, msgs[0].subject)

	var update models.TelemetryUpdate
	require.NoError(t, json.Unmarshal(msgs[0].data, &update))
	assert.Equal(t, testVIN, update.VIN)
	assert.Equal(t, models.TelemetryKindRealtime, update.Kind)
	assert.Equal(t, models.TelemetrySourcePush, update.Source)
	assert.Equal(t, 318.0, update.Payload["enduranceMileage"])
	assert.False(t, update.CapturedAt.IsZero())
}

func TestPublishTelemetryGPSSubject(t *testing.T) {
	b, nc := newTestBridge(t)

	b.publishTelemetry(testVIN, cloud.KindGPS, map[string]interface{}{"latitude": 31.2}, cloud.SourceHTTP)

	msgs := nc.snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, "vclink.telemetry.gps."+testVIN, msgs[0].subject)
}

func TestPublishTelemetryIgnoresCommandKind(t *testing.T) {
	b, nc := newTestBridge(t)

	b.publishTelemetry(testVIN, cloud.KindCommand, map[string]interface{}{}, cloud.SourcePush)

	assert.Empty(t, nc.snapshot())
}

func TestHandleFetchErrorUnsupportedReportedOnce(t *testing.T) {
	b, nc := newTestBridge(t)

	err := &protocol.EndpointNotSupportedError{VIN: testVIN, Endpoint: "gps"}
	b.handleFetchError(testVIN, cloud.KindGPS, err)
	b.handleFetchError(testVIN, cloud.KindGPS, err)

	events := nc.bySubject(SubjectProtocolEvent)
	require.Len(t, events, 1)

	var event models.EventMessage
	require.NoError(t, json.Unmarshal(events[0].data, &event))
	assert.Equal(t, string(models.EventTypeUnsupported), event.Type)
	assert.Equal(t, testVIN, event.VIN)

	// A different endpoint of the same vehicle reports separately
	b.handleFetchError(testVIN, cloud.KindRealtime, &protocol.EndpointNotSupportedError{VIN: testVIN, Endpoint: "realtime"})
	assert.Len(t, nc.bySubject(SubjectProtocolEvent), 2)
}

func TestHandleFetchErrorRateLimited(t *testing.T) {
	b, nc := newTestBridge(t)

	b.handleFetchError(testVIN, cloud.KindRealtime, &protocol.RateLimitedError{Attempts: 4})

	events := nc.bySubject(SubjectProtocolEvent)
	require.Len(t, events, 1)

	var event models.EventMessage
	require.NoError(t, json.Unmarshal(events[0].data, &event))
	assert.Equal(t, string(models.EventTypeRateLimited), event.Type)
	assert.Equal(t, protocol.CodeRateLimited, event.Code)
}

func TestHandleFetchErrorGenericNoEvent(t *testing.T) {
	b, nc := newTestBridge(t)

	b.handleFetchError(testVIN, cloud.KindRealtime, errors.New("connection refused"))

	assert.Empty(t, nc.bySubject(SubjectProtocolEvent))
}

func TestOnStaleToken(t *testing.T) {
	b, nc := newTestBridge(t)

	b.onStaleToken()
	b.onStaleToken()

	events := nc.bySubject(SubjectProtocolEvent)
	require.Len(t, events, 2)

	var event models.EventMessage
	require.NoError(t, json.Unmarshal(events[0].data, &event))
	assert.Equal(t, string(models.EventTypePushDropped), event.Type)

	// The relogin signal coalesces, a second trigger must not block
	assert.Len(t, b.relogin, 1)
}

func TestHandleCommandRequestNoSession(t *testing.T) {
	b, nc := newTestBridge(t)

	req := models.CommandRequest{
		ID:     "b5f2a180-0000-4000-8000-000000000001",
		VIN:    testVIN,
		Action: "FIND_VEHICLE",
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)

	b.handleCommandRequest(&nats.Msg{Subject: SubjectCommandRequest, Data: data})

	results := nc.bySubject(SubjectCommandResult)
	require.Len(t, results, 1)

	var result models.CommandResultMessage
	require.NoError(t, json.Unmarshal(results[0].data, &result))
	assert.Equal(t, req.ID, result.ID)
	assert.Equal(t, testVIN, result.VIN)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no active session")
	assert.False(t, result.CompletedAt.IsZero())
}

func TestHandleCommandRequestBadPayload(t *testing.T) {
	b, nc := newTestBridge(t)

	b.handleCommandRequest(&nats.Msg{Subject: SubjectCommandRequest, Data: []byte("not json")})
	b.handleCommandRequest(&nats.Msg{Subject: SubjectCommandRequest, Data: []byte(`{"vin":"LVSHFFAC8N1234567"}`)})

	assert.Empty(t, nc.snapshot())
}

func TestCommandTimeout(t *testing.T) {
	b, _ := newTestBridge(t)

	// 5s push wait + 12 polls x 2s + 30s margin
	assert.Equal(t, 59*time.Second, b.commandTimeout())
}

func TestPushCredentialsWithoutSession(t *testing.T) {
	b, _ := newTestBridge(t)

	_, _, ok := b.pushCredentials()
	assert.False(t, ok)
}

func TestSessionHooksPublishEvents(t *testing.T) {
	b, nc := newTestBridge(t)

	b.onSessionUp(&protocol.Session{UserID: "u-100200", SignToken: "s", EncryToken: "e"})
	b.onSessionDown()

	events := nc.bySubject(SubjectProtocolEvent)
	require.Len(t, events, 2)

	var up, down models.EventMessage
	require.NoError(t, json.Unmarshal(events[0].data, &up))
	require.NoError(t, json.Unmarshal(events[1].data, &down))
	assert.Equal(t, string(models.EventTypeSessionLogin), up.Type)
	assert.Equal(t, "u-100200", up.Details["userId"])
	assert.Equal(t, string(models.EventTypeSessionExpired), down.Type)
}
