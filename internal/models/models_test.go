package models

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestVariablesValueScan(t *testing.T) {
    v := Variables{"speed": 42.5, "charging": true}

    raw, err := v.Value()
    require.NoError(t, err)

    var out Variables
    require.NoError(t, out.Scan(raw))
    assert.Equal(t, 42.5, out["speed"])
    assert.Equal(t, true, out["charging"])
}

func TestVariablesScanNil(t *testing.T) {
    var out Variables
    require.NoError(t, out.Scan(nil))
    assert.NotNil(t, out)
    assert.Empty(t, out)
}

func TestVariablesValueNil(t *testing.T) {
    var v Variables
    raw, err := v.Value()
    require.NoError(t, err)
    assert.Nil(t, raw)
}

func TestTelemetrySnapshotPosition(t *testing.T) {
    snap := TelemetrySnapshot{
        VIN:  "LSVNV2182E2100001",
        Kind: TelemetryKindGPS,
        Payload: Variables{
            "latitude":  31.2304,
            "longitude": 121.4737,
        },
    }

    lat, lon, ok := snap.Position()
    require.True(t, ok)
    assert.Equal(t, 31.2304, lat)
    assert.Equal(t, 121.4737, lon)

    snap.Payload = Variables{"latitude": "31.2304"}
    _, _, ok = snap.Position()
    assert.False(t, ok)
}

func TestTelemetrySnapshotEnduranceMileage(t *testing.T) {
    snap := TelemetrySnapshot{
        Kind:    TelemetryKindRealtime,
        Payload: Variables{"enduranceMileage": 318.0},
    }
    assert.Equal(t, 318.0, snap.EnduranceMileage())

    snap.Payload = nil
    assert.Equal(t, 0.0, snap.EnduranceMileage())
}

func TestCommandIsTerminal(t *testing.T) {
    cmd := Command{Status: CommandStatusPending, CreatedAt: time.Now()}
    assert.False(t, cmd.IsTerminal())

    cmd.Status = CommandStatusSent
    assert.False(t, cmd.IsTerminal())

    cmd.Status = CommandStatusSucceeded
    assert.True(t, cmd.IsTerminal())

    cmd.Status = CommandStatusFailed
    assert.True(t, cmd.IsTerminal())
}
