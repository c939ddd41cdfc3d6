package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routerfleet/regional-broker/internal/config"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse", defaultArgon2Params)
	require.NoError(t, err)
	assert.True(t, VerifyPassword("correct-horse", hash))
	assert.False(t, VerifyPassword("wrong-password", hash))
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	assert.False(t, VerifyPassword("anything", "not-a-valid-hash"))
	assert.False(t, VerifyPassword("anything", "argon2id$only$three$parts"))
}

func TestSessionManager_JWTRoundTrip(t *testing.T) {
	sm := NewSessionManager(config.Config{AdminSessionSecret: "test-secret"})

	token, err := sm.GenerateJWT("alice", time.Hour)
	require.NoError(t, err)

	sub, err := sm.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestSessionManager_JWTExpired(t *testing.T) {
	sm := NewSessionManager(config.Config{AdminSessionSecret: "test-secret"})

	// GenerateJWT rejects a non-positive TTL; a 1ns TTL truncates to an exp
	// in the current second, which ValidateJWT already treats as expired.
	token, err := sm.GenerateJWT("alice", time.Nanosecond)
	require.NoError(t, err)

	_, err = sm.ValidateJWT(token)
	assert.Error(t, err)
}

func TestSessionManager_JWTWrongSecret(t *testing.T) {
	sm1 := NewSessionManager(config.Config{AdminSessionSecret: "secret-one"})
	sm2 := NewSessionManager(config.Config{AdminSessionSecret: "secret-two"})

	token, err := sm1.GenerateJWT("alice", time.Hour)
	require.NoError(t, err)

	_, err = sm2.ValidateJWT(token)
	assert.Error(t, err)
}

func TestSessionManager_SessionRoundTrip(t *testing.T) {
	sm := NewSessionManager(config.Config{AdminSessionSecret: "test-secret"})

	val, err := sm.CreateSession("alice")
	require.NoError(t, err)

	data, err := sm.ValidateSession(val)
	require.NoError(t, err)
	assert.Equal(t, "alice", data.Username)
}

func TestAdminAPIGuard_NoopWhenAdminDisabled(t *testing.T) {
	srv := &Server{Cfg: config.Config{}}
	guard := srv.AdminAPIGuard()

	called := false
	h := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAPIGuard_RejectsMissingCredentials(t *testing.T) {
	cfg := config.Config{AdminUsername: "admin", AdminPassword: "secret", AdminSessionSecret: "hmac-secret"}
	srv := &Server{Cfg: cfg}
	guard := srv.AdminAPIGuard()

	called := false
	h := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminAPIGuard_AcceptsValidBearerToken(t *testing.T) {
	cfg := config.Config{AdminUsername: "admin", AdminPassword: "secret", AdminSessionSecret: "hmac-secret"}
	srv := &Server{Cfg: cfg}
	guard := srv.AdminAPIGuard()

	sm := NewSessionManager(cfg)
	token, err := sm.GenerateJWT("admin", time.Hour)
	require.NoError(t, err)

	called := false
	h := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAPIGuard_AcceptsSSOHeader(t *testing.T) {
	cfg := config.Config{AdminUsername: "admin", AdminPassword: "secret", AdminSessionSecret: "hmac-secret"}
	srv := &Server{Cfg: cfg}
	guard := srv.AdminAPIGuard()

	called := false
	h := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("X-Auth-Request-User", "alice")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}
