package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/devboard/config"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken(secret, "u1", "kim@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "kim@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
	assert.NotEmpty(t, claims.ID)
}

func TestGenerateTokenIsUniquePerCall(t *testing.T) {
	secret := []byte("test-secret")
	a, err := GenerateToken(secret, "u1", "kim@example.com", time.Hour)
	require.NoError(t, err)
	b, err := GenerateToken(secret, "u1", "kim@example.com", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	ca, err := ParseToken(secret, a)
	require.NoError(t, err)
	cb, err := ParseToken(secret, b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestParseTokenRequiresID(t *testing.T) {
	secret := []byte("test-secret")
	bare := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := bare.SignedString(secret)
	require.NoError(t, err)

	_, err = ParseToken(secret, signed)
	assert.Error(t, err)
}

func TestParseTokenRejectsForeignSecretAndExpiry(t *testing.T) {
	token, err := GenerateToken([]byte("one"), "u1", "a@b.c", time.Hour)
	require.NoError(t, err)
	_, err = ParseToken([]byte("two"), token)
	assert.Error(t, err)

	expired, err := GenerateToken([]byte("one"), "u1", "a@b.c", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken([]byte("one"), expired)
	assert.Error(t, err)

	_, err = ParseToken([]byte("one"), "not-a-jwt")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
	assert.False(t, CheckPassword("", ""))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "hello", SanitizePlain("  <b>hello</b> "))
	assert.NotContains(t, Sanitize(`<p onclick="x()">hi</p><script>alert(1)</script>`), "script")
	assert.Contains(t, Sanitize("<p>hi</p>"), "<p>hi</p>")
}

func TestTokenBlacklistMemory(t *testing.T) {
	ctx := context.Background()
	b := NewTokenBlacklist(nil)
	assert.False(t, b.IsRevoked(ctx, "jti-1"))

	require.NoError(t, b.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	assert.True(t, b.IsRevoked(ctx, "jti-1"))
	assert.False(t, b.IsRevoked(ctx, "jti-3"))

	// Already expired tokens need no entry.
	require.NoError(t, b.Revoke(ctx, "jti-2", time.Now().Add(-time.Second)))
	assert.False(t, b.IsRevoked(ctx, "jti-2"))
}

func TestStateStoreIsSingleUse(t *testing.T) {
	ctx := context.Background()
	s := NewStateStore(nil)
	require.NoError(t, s.Save(ctx, "abc", time.Minute))

	assert.True(t, s.Consume(ctx, "abc"))
	assert.False(t, s.Consume(ctx, "abc"))
	assert.False(t, s.Consume(ctx, "unknown"))
}

func TestErrorResponseShape(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)

	Error(ctx, http.StatusNotFound, 40401, "post not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code":40401,"message":"post not found"}`, w.Body.String())
}

func TestSuccessWritesBarePayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)

	Success(ctx, gin.H{"status": "ok"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRedisOptions(t *testing.T) {
	assert.Nil(t, redisOptions(config.AppConfig{}))
	assert.Nil(t, NewRedisClient(config.AppConfig{RedisPort: 6379}))

	opts := redisOptions(config.AppConfig{
		RedisHost:     "cache.internal",
		RedisPort:     6380,
		RedisDB:       2,
		RedisPassword: "pw",
	})
	require.NotNil(t, opts)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, redisDialTimeout, opts.DialTimeout)
	assert.Equal(t, redisIOTimeout, opts.ReadTimeout)
}
