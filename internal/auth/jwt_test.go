package auth

import (
    "fmt"
    "testing"
    "time"

    "github.com/google/uuid"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/vclink/vclink-bridge/internal/config"
    "github.com/vclink/vclink-bridge/internal/models"
    "github.com/vclink/vclink-bridge/pkg/crypto"
)

func newTestManager(ttl time.Duration) *JWTManager {
    return NewJWTManager(&config.JWTConfig{
        Secret:          "test-secret",
        AccessTokenTTL:  ttl,
        RefreshTokenTTL: 24 * time.Hour,
    })
}

func testUser() *models.User {
    return &models.User{
        ID:      uuid.New(),
        Email:   "admin@vclink.local",
        IsAdmin: true,
    }
}

func TestGenerateAndValidate(t *testing.T) {
    m := newTestManager(time.Hour)
    user := testUser()

    access, refresh, err := m.GenerateTokenPair(user)
    require.NoError(t, err)
    require.NotEmpty(t, access)
    require.NotEmpty(t, refresh)

    claims, err := m.ValidateToken(access)
    require.NoError(t, err)
    assert.Equal(t, user.ID, claims.UserID)
    assert.Equal(t, user.Email, claims.Email)
    assert.True(t, claims.IsAdmin)
    assert.Equal(t, "vclink-api", claims.Issuer)
}

func TestValidateWrongSecret(t *testing.T) {
    m := newTestManager(time.Hour)
    access, _, err := m.GenerateTokenPair(testUser())
    require.NoError(t, err)

    other := NewJWTManager(&config.JWTConfig{
        Secret:         "different-secret",
        AccessTokenTTL: time.Hour,
    })
    _, err = other.ValidateToken(access)
    assert.Error(t, err)
}

func TestValidateExpired(t *testing.T) {
    m := newTestManager(-time.Minute)
    access, _, err := m.GenerateTokenPair(testUser())
    require.NoError(t, err)

    _, err = m.ValidateToken(access)
    assert.Error(t, err)
}

func TestValidateGarbage(t *testing.T) {
    m := newTestManager(time.Hour)
    _, err := m.ValidateToken("not.a.token")
    assert.Error(t, err)
}

func TestRefreshToken(t *testing.T) {
    m := newTestManager(time.Hour)
    user := testUser()

    _, refresh, err := m.GenerateTokenPair(user)
    require.NoError(t, err)

    access, newRefresh, err := m.RefreshToken(refresh, func(id uuid.UUID) (*models.User, error) {
        assert.Equal(t, user.ID, id)
        return user, nil
    })
    require.NoError(t, err)
    require.NotEmpty(t, newRefresh)

    claims, err := m.ValidateToken(access)
    require.NoError(t, err)
    assert.Equal(t, user.ID, claims.UserID)
    assert.True(t, claims.IsAdmin)
}

func TestRefreshTokenLookupFailure(t *testing.T) {
    m := newTestManager(time.Hour)
    _, refresh, err := m.GenerateTokenPair(testUser())
    require.NoError(t, err)

    _, _, err = m.RefreshToken(refresh, func(uuid.UUID) (*models.User, error) {
        return nil, fmt.Errorf("user not found")
    })
    assert.Error(t, err)
}

func TestRefreshTokenRejectsAccessGarbage(t *testing.T) {
    m := newTestManager(time.Hour)
    _, _, err := m.RefreshToken("garbage", func(uuid.UUID) (*models.User, error) {
        t.Fatal("lookup should not be called")
        return nil, nil
    })
    assert.Error(t, err)
}

func TestVerifyPassword(t *testing.T) {
    m := newTestManager(time.Hour)

    hash, err := crypto.HashPassword("Sup3rSecret!")
    require.NoError(t, err)

    assert.True(t, m.VerifyPassword("Sup3rSecret!", hash))
    assert.False(t, m.VerifyPassword("wrong", hash))
}
