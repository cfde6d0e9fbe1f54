package api

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/google/uuid"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/vclink/vclink-bridge/internal/config"
    "github.com/vclink/vclink-bridge/internal/models"
    "github.com/vclink/vclink-bridge/internal/storage"
    "github.com/vclink/vclink-bridge/pkg/crypto"
)

const testVIN = "LVSHFFAC8N1234567"

// fakeStore implements the handful of Store methods the handlers touch.
// Calls to anything else panic via the embedded nil interface.
type fakeStore struct {
    storage.Store

    users     map[string]*models.User
    usersByID map[uuid.UUID]*models.User
    vehicles  map[string]*models.Vehicle
    latest    map[string]*models.TelemetrySnapshot
    snapshots []*models.TelemetrySnapshot
    commands  map[uuid.UUID]*models.Command
    events    []*models.EventLog

    lastLoginAt map[uuid.UUID]time.Time
    lastFilters storage.EventLogFilters
}

func newFakeStore() *fakeStore {
    return &fakeStore{
        users:       make(map[string]*models.User),
        usersByID:   make(map[uuid.UUID]*models.User),
        vehicles:    make(map[string]*models.Vehicle),
        latest:      make(map[string]*models.TelemetrySnapshot),
        commands:    make(map[uuid.UUID]*models.Command),
        lastLoginAt: make(map[uuid.UUID]time.Time),
    }
}

func (f *fakeStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
    user, ok := f.usersByID[id]
    if !ok {
        return nil, storage.ErrNotFound
    }
    return user, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
    user, ok := f.users[email]
    if !ok {
        return nil, storage.ErrNotFound
    }
    return user, nil
}

func (f *fakeStore) UpdateUserLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
    f.lastLoginAt[id] = at
    return nil
}

func (f *fakeStore) GetVehicle(ctx context.Context, vin string) (*models.Vehicle, error) {
    vehicle, ok := f.vehicles[vin]
    if !ok {
        return nil, storage.ErrNotFound
    }
    return vehicle, nil
}

func (f *fakeStore) ListVehicles(ctx context.Context, limit, offset int) ([]*models.Vehicle, int64, error) {
    out := make([]*models.Vehicle, 0, len(f.vehicles))
    for _, v := range f.vehicles {
        out = append(out, v)
    }
    return out, int64(len(out)), nil
}

func (f *fakeStore) GetLatestTelemetry(ctx context.Context, vin, kind string) (*models.TelemetrySnapshot, error) {
    snap, ok := f.latest[vin+"/"+kind]
    if !ok {
        return nil, storage.ErrNotFound
    }
    return snap, nil
}

func (f *fakeStore) ListTelemetry(ctx context.Context, vin, kind string, limit, offset int) ([]*models.TelemetrySnapshot, int64, error) {
    return f.snapshots, int64(len(f.snapshots)), nil
}

func (f *fakeStore) CreateCommand(ctx context.Context, cmd *models.Command) error {
    f.commands[cmd.ID] = cmd
    return nil
}

func (f *fakeStore) GetCommand(ctx context.Context, id uuid.UUID) (*models.Command, error) {
    cmd, ok := f.commands[id]
    if !ok {
        return nil, storage.ErrNotFound
    }
    return cmd, nil
}

func (f *fakeStore) CompleteCommand(ctx context.Context, id uuid.UUID, status models.CommandStatus, errMsg string, result models.Variables, completedAt time.Time) error {
    cmd, ok := f.commands[id]
    if !ok {
        return storage.ErrNotFound
    }
    cmd.Status = status
    cmd.Error = errMsg
    cmd.Result = result
    return nil
}

func (f *fakeStore) ListCommands(ctx context.Context, vin string, limit, offset int) ([]*models.Command, int64, error) {
    out := make([]*models.Command, 0, len(f.commands))
    for _, cmd := range f.commands {
        if vin == "" || cmd.VIN == vin {
            out = append(out, cmd)
        }
    }
    return out, int64(len(out)), nil
}

func (f *fakeStore) CreateEventLog(ctx context.Context, event *models.EventLog) error {
    f.events = append(f.events, event)
    return nil
}

func (f *fakeStore) ListEventLogs(ctx context.Context, filters storage.EventLogFilters, limit, offset int) ([]*models.EventLog, int64, error) {
    f.lastFilters = filters
    return f.events, int64(len(f.events)), nil
}

type fakePublisher struct {
    subjects [][]byte
    subject  string
    err      error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
    if f.err != nil {
        return f.err
    }
    f.subject = subject
    f.subjects = append(f.subjects, data)
    return nil
}

func newTestServer(t *testing.T) (*RESTServer, *fakeStore, *fakePublisher) {
    t.Helper()

    cfg := &config.Config{}
    cfg.Server.Name = "vclink-bridge-test"
    cfg.Server.Version = "0.0.0"
    cfg.JWT.Secret = "test-secret"
    cfg.JWT.AccessTokenTTL = time.Hour
    cfg.JWT.RefreshTokenTTL = 24 * time.Hour

    store := newFakeStore()
    publisher := &fakePublisher{}
    return NewRESTServer(cfg, store, publisher), store, publisher
}

func addUser(t *testing.T, store *fakeStore, email, password string, active bool) *models.User {
    t.Helper()

    hash, err := crypto.HashPassword(password)
    require.NoError(t, err)

    user := &models.User{
        Email:        email,
        Username:     "tester",
        PasswordHash: hash,
        IsActive:     active,
    }
    user.ID = uuid.New()
    store.users[email] = user
    store.usersByID[user.ID] = user
    return user
}

func login(t *testing.T, srv *RESTServer, store *fakeStore) string {
    t.Helper()

    user := addUser(t, store, "ops@example.com", "hunter2secret", true)
    access, _, err := srv.auth.GenerateTokenPair(user)
    require.NoError(t, err)
    return access
}

func doRequest(t *testing.T, srv *RESTServer, method, path, token string, body interface{}) *httptest.ResponseRecorder {
    t.Helper()

    var reader io.Reader
    if body != nil {
        data, err := json.Marshal(body)
        require.NoError(t, err)
        reader = bytes.NewReader(data)
    }

    req := httptest.NewRequest(method, path, reader)
    if token != "" {
        req.Header.Set("Authorization", "Bearer "+token)
    }

    rec := httptest.NewRecorder()
    srv.router.ServeHTTP(rec, req)
    return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
    t.Helper()

    var out map[string]interface{}
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
    return out
}

func TestHealth(t *testing.T) {
    srv, _, _ := newTestServer(t)

    rec := doRequest(t, srv, http.MethodGet, "/api/v1/health", "", nil)

    require.Equal(t, http.StatusOK, rec.Code)
    body := decodeBody(t, rec)
    assert.Equal(t, "ok", body["status"])
    assert.Equal(t, "vclink-bridge-test", body["name"])
}

func TestLogin(t *testing.T) {
    srv, store, _ := newTestServer(t)
    user := addUser(t, store, "ops@example.com", "hunter2secret", true)

    rec := doRequest(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
        "email":    "ops@example.com",
        "password": "hunter2secret",
    })

    require.Equal(t, http.StatusOK, rec.Code)
    body := decodeBody(t, rec)
    assert.NotEmpty(t, body["accessToken"])
    assert.NotEmpty(t, body["refreshToken"])
    assert.NotZero(t, store.lastLoginAt[user.ID])

    // The returned token must pass auth on a protected route
    token := body["accessToken"].(string)
    rec = doRequest(t, srv, http.MethodGet, "/api/v1/users/me", token, nil)
    require.Equal(t, http.StatusOK, rec.Code)
    me := decodeBody(t, rec)
    assert.Equal(t, "ops@example.com", me["email"])
}

func TestLoginWrongPassword(t *testing.T) {
    srv, store, _ := newTestServer(t)
    addUser(t, store, "ops@example.com", "hunter2secret", true)

    rec := doRequest(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
        "email":    "ops@example.com",
        "password": "wrong-password",
    })

    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginDisabledAccount(t *testing.T) {
    srv, store, _ := newTestServer(t)
    addUser(t, store, "ops@example.com", "hunter2secret", false)

    rec := doRequest(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
        "email":    "ops@example.com",
        "password": "hunter2secret",
    })

    assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRefresh(t *testing.T) {
    srv, store, _ := newTestServer(t)
    user := addUser(t, store, "ops@example.com", "hunter2secret", true)

    _, refresh, err := srv.auth.GenerateTokenPair(user)
    require.NoError(t, err)

    rec := doRequest(t, srv, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
        "refreshToken": refresh,
    })

    require.Equal(t, http.StatusOK, rec.Code)
    body := decodeBody(t, rec)
    assert.NotEmpty(t, body["accessToken"])
    assert.NotEmpty(t, body["refreshToken"])
}

func TestAuthRequired(t *testing.T) {
    srv, _, _ := newTestServer(t)

    rec := doRequest(t, srv, http.MethodGet, "/api/v1/vehicles", "", nil)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    req := httptest.NewRequest(http.MethodGet, "/api/v1/vehicles", nil)
    req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
    recorder := httptest.NewRecorder()
    srv.router.ServeHTTP(recorder, req)
    assert.Equal(t, http.StatusUnauthorized, recorder.Code)

    rec = doRequest(t, srv, http.MethodGet, "/api/v1/vehicles", "not-a-token", nil)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListVehicles(t *testing.T) {
    srv, store, _ := newTestServer(t)
    token := login(t, srv, store)

    store.vehicles[testVIN] = &models.Vehicle{VIN: testVIN, Brand: "VClink", Model: "iEV7S"}

    rec := doRequest(t, srv, http.MethodGet, "/api/v1/vehicles", token, nil)

    require.Equal(t, http.StatusOK, rec.Code)
    body := decodeBody(t, rec)
    assert.Equal(t, float64(1), body["total"])
}

func TestGetVehicle(t *testing.T) {
    srv, store, _ := newTestServer(t)
    token := login(t, srv, store)

    store.vehicles[testVIN] = &models.Vehicle{VIN: testVIN, Brand: "VClink"}

    rec := doRequest(t, srv, http.MethodGet, "/api/v1/vehicles/"+testVIN, token, nil)
    require.Equal(t, http.StatusOK, rec.Code)
    body := decodeBody(t, rec)
    assert.Equal(t, testVIN, body["vin"])

    rec = doRequest(t, srv, http.MethodGet, "/api/v1/vehicles/LVSHFFAC8N7654321", token, nil)
    assert.Equal(t, http.StatusNotFound, rec.Code)

    rec = doRequest(t, srv, http.MethodGet, "/api/v1/vehicles/short", token, nil)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetVehicleStatus(t *testing.T) {
    srv, store, _ := newTestServer(t)
    token := login(t, srv, store)

    store.latest[testVIN+"/"+models.TelemetryKindRealtime] = &models.TelemetrySnapshot{
        VIN:     testVIN,
        Kind:    models.TelemetryKindRealtime,
        Source:  models.TelemetrySourcePush,
        Payload: models.Variables{"enduranceMileage": 318.0},
    }

    rec := doRequest(t, srv, http.MethodGet, "/api/v1/vehicles/"+testVIN+"/status", token, nil)
    require.Equal(t, http.StatusOK, rec.Code)
    body := decodeBody(t, rec)
    assert.Equal(t, models.TelemetrySourcePush, body["source"])

    rec = doRequest(t, srv, http.MethodGet, "/api/v1/vehicles/LVSHFFAC8N7654321/status", token, nil)
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetVehiclePosition(t *testing.T) {
    srv, store, _ := newTestServer(t)
    token := login(t, srv, store)

    store.latest[testVIN+"/"+models.TelemetryKindGPS] = &models.TelemetrySnapshot{
        VIN:     testVIN,
        Kind:    models.TelemetryKindGPS,
        Source:  models.TelemetrySourceHTTP,
        Payload: models.Variables{"latitude": 31.2304, "longitude": 121.4737},
    }

    rec := doRequest(t, srv, http.MethodGet, "/api/v1/vehicles/"+testVIN+"/position", token, nil)
    require.Equal(t, http.StatusOK, rec.Code)
    body := decodeBody(t, rec)
    assert.InDelta(t, 31.2304, body["latitude"].(float64), 1e-9)
    assert.InDelta(t, 121.4737, body["longitude"].(float64), 1e-9)
}

func TestGetVehiclePositionNoFix(t *testing.T) {
    srv, store, _ := newTestServer(t)
    token := login(t, srv, store)

    // Snapshot exists but carries no coordinates
    store.latest[testVIN+"/"+models.TelemetryKindGPS] = &models.TelemetrySnapshot{
        VIN:     testVIN,
        Kind:    models.TelemetryKindGPS,
        Payload: models.Variables{"speed": 0.0},
    }

    rec := doRequest(t, srv, http.MethodGet, "/api/v1/vehicles/"+testVIN+"/position", token, nil)
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListVehicleTelemetry(t *testing.T) {
    srv, store, _ := newTestServer(t)
    token := login(t, srv, store)

    store.snapshots = []*models.TelemetrySnapshot{
        {VIN: testVIN, Kind: models.TelemetryKindRealtime},
        {VIN: testVIN, Kind: models.TelemetryKindGPS},
    }

    rec := doRequest(t, srv, http.MethodGet, "/api/v1/vehicles/"+testVIN+"/telemetry", token, nil)
    require.Equal(t, http.StatusOK, rec.Code)
    body := decodeBody(t, rec)
    assert.Equal(t, float64(2), body["total"])

    rec = doRequest(t, srv, http.MethodGet, "/api/v1/vehicles/"+testVIN+"/telemetry?kind=bogus", token, nil)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendCommand(t *testing.T) {
    srv, store, publisher := newTestServer(t)
    token := login(t, srv, store)

    store.vehicles[testVIN] = &models.Vehicle{VIN: testVIN}

    rec := doRequest(t, srv, http.MethodPost, "/api/v1/vehicles/"+testVIN+"/commands", token, map[string]interface{}{
        "action":     "AIR_CONDITIONER_ON",
        "params":     map[string]string{"temperature": "24"},
        "controlPin": "123456",
    })

    require.Equal(t, http.StatusAccepted, rec.Code)
    body := decodeBody(t, rec)
    assert.Equal(t, string(models.CommandStatusPending), body["status"])

    id, err := uuid.Parse(body["id"].(string))
    require.NoError(t, err)

    // The command row is persisted without the control PIN
    cmd := store.commands[id]
    require.NotNil(t, cmd)
    assert.Equal(t, "AIR_CONDITIONER_ON", cmd.Action)
    assert.Equal(t, "24", cmd.Params["temperature"])
    for key := range cmd.Params {
        assert.NotContains(t, key, "Pin")
    }

    // The PIN travels only on the message plane
    require.Len(t, publisher.subjects, 1)
    assert.Equal(t, "vclink.command.request", publisher.subject)

    var msg models.CommandRequest
    require.NoError(t, json.Unmarshal(publisher.subjects[0], &msg))
    assert.Equal(t, id.String(), msg.ID)
    assert.Equal(t, testVIN, msg.VIN)
    assert.Equal(t, "123456", msg.ControlPIN)

    require.Len(t, store.events, 1)
    assert.Equal(t, models.EventTypeCommandSent, store.events[0].Type)
}

func TestSendCommandValidation(t *testing.T) {
    srv, store, _ := newTestServer(t)
    token := login(t, srv, store)
    store.vehicles[testVIN] = &models.Vehicle{VIN: testVIN}

    tests := map[string]map[string]interface{}{
        "missing action": {"action": ""},
        "bad action":     {"action": "DROP TABLE"},
        "bad pin":        {"action": "LOCK", "controlPin": "12ab"},
    }

    for name, body := range tests {
        t.Run(name, func(t *testing.T) {
            rec := doRequest(t, srv, http.MethodPost, "/api/v1/vehicles/"+testVIN+"/commands", token, body)
            assert.Equal(t, http.StatusBadRequest, rec.Code)
        })
    }
}

func TestSendCommandUnknownVehicle(t *testing.T) {
    srv, store, publisher := newTestServer(t)
    token := login(t, srv, store)

    rec := doRequest(t, srv, http.MethodPost, "/api/v1/vehicles/"+testVIN+"/commands", token, map[string]interface{}{
        "action": "LOCK",
    })

    assert.Equal(t, http.StatusNotFound, rec.Code)
    assert.Empty(t, publisher.subjects)
}

func TestSendCommandPublishFailure(t *testing.T) {
    srv, store, publisher := newTestServer(t)
    token := login(t, srv, store)

    store.vehicles[testVIN] = &models.Vehicle{VIN: testVIN}
    publisher.err = errors.New("nats: connection closed")

    rec := doRequest(t, srv, http.MethodPost, "/api/v1/vehicles/"+testVIN+"/commands", token, map[string]interface{}{
        "action": "LOCK",
    })

    assert.Equal(t, http.StatusBadGateway, rec.Code)

    require.Len(t, store.commands, 1)
    for _, cmd := range store.commands {
        assert.Equal(t, models.CommandStatusFailed, cmd.Status)
    }
}

func TestGetCommand(t *testing.T) {
    srv, store, _ := newTestServer(t)
    token := login(t, srv, store)

    id := uuid.New()
    store.commands[id] = &models.Command{ID: id, VIN: testVIN, Action: "LOCK", Status: models.CommandStatusSucceeded}

    rec := doRequest(t, srv, http.MethodGet, "/api/v1/commands/"+id.String(), token, nil)
    require.Equal(t, http.StatusOK, rec.Code)
    body := decodeBody(t, rec)
    assert.Equal(t, string(models.CommandStatusSucceeded), body["status"])

    rec = doRequest(t, srv, http.MethodGet, "/api/v1/commands/not-a-uuid", token, nil)
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = doRequest(t, srv, http.MethodGet, "/api/v1/commands/"+uuid.NewString(), token, nil)
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListCommandsFiltered(t *testing.T) {
    srv, store, _ := newTestServer(t)
    token := login(t, srv, store)

    first := uuid.New()
    second := uuid.New()
    store.commands[first] = &models.Command{ID: first, VIN: testVIN, Action: "LOCK"}
    store.commands[second] = &models.Command{ID: second, VIN: "LVSHFFAC8N7654321", Action: "UNLOCK"}

    rec := doRequest(t, srv, http.MethodGet, "/api/v1/commands?vin="+testVIN, token, nil)
    require.Equal(t, http.StatusOK, rec.Code)
    body := decodeBody(t, rec)
    assert.Equal(t, float64(1), body["total"])

    rec = doRequest(t, srv, http.MethodGet, "/api/v1/vehicles/"+testVIN+"/commands", token, nil)
    require.Equal(t, http.StatusOK, rec.Code)
    body = decodeBody(t, rec)
    assert.Equal(t, float64(1), body["total"])
}

func TestListEvents(t *testing.T) {
    srv, store, _ := newTestServer(t)
    token := login(t, srv, store)

    store.events = []*models.EventLog{
        {Type: models.EventTypeSessionLogin, Level: models.EventLevelInfo},
    }

    rec := doRequest(t, srv, http.MethodGet,
        "/api/v1/events?vin="+testVIN+"&level=WARNING&start=2026-08-01T00:00:00Z", token, nil)

    require.Equal(t, http.StatusOK, rec.Code)

    require.NotNil(t, store.lastFilters.VIN)
    assert.Equal(t, testVIN, *store.lastFilters.VIN)
    require.NotNil(t, store.lastFilters.Level)
    assert.Equal(t, models.EventLevelWarning, *store.lastFilters.Level)
    require.NotNil(t, store.lastFilters.StartTime)
    assert.Nil(t, store.lastFilters.EndTime)

    rec = doRequest(t, srv, http.MethodGet, "/api/v1/events?start=yesterday", token, nil)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}
