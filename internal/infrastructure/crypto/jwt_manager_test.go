package crypto

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/perimeter/pkg/errors"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func testKey(t *testing.T) *SigningKey {
	t.Helper()
	key, err := NewSigningKey([]byte(strings.Repeat("s", 32)))
	require.NoError(t, err)
	return key
}

func TestJWTManager_RoundTrip(t *testing.T) {
	manager := NewJWTManager(testKey(t))

	tests := []struct {
		name    string
		subject string
		roles   []string
		want    []string
	}{
		{"with roles keeps order", "42", []string{"USER", "ADMIN"}, []string{"USER", "ADMIN"}},
		{"single role", "user-7", []string{"AUDITOR"}, []string{"AUDITOR"}},
		{"nil roles become empty", "7", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := manager.Issue(tt.subject, tt.roles, 60)
			require.NoError(t, err)

			claims, err := manager.Verify(token)
			require.NoError(t, err)
			assert.Equal(t, tt.subject, claims.Subject)
			assert.Equal(t, tt.want, claims.Roles)
		})
	}
}

func TestJWTManager_WireFormat(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	manager := NewJWTManager(testKey(t), WithClock(clock.Now))

	token, err := manager.Issue("42", nil, 3600)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	header, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"alg":"HS256","typ":"JWT"}`, string(header))

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &body))
	assert.Equal(t, "42", body["sub"])
	assert.Equal(t, float64(1_700_000_000), body["iat"])
	assert.Equal(t, float64(1_700_003_600), body["exp"])
	assert.Equal(t, []interface{}{}, body["roles"])
}

func TestJWTManager_ExpiryBoundary(t *testing.T) {
	issuedAt := time.Unix(1_700_000_000, 0)
	clock := &fakeClock{now: issuedAt}
	manager := NewJWTManager(testKey(t), WithClock(clock.Now))

	token, err := manager.Issue("42", []string{"USER"}, 1)
	require.NoError(t, err)

	clock.Set(issuedAt.Add(900 * time.Millisecond))
	_, err = manager.Verify(token)
	assert.NoError(t, err)

	clock.Set(issuedAt.Add(1 * time.Second))
	_, err = manager.Verify(token)
	assert.True(t, errors.Is(err, errors.ErrTokenExpired))

	clock.Set(issuedAt.Add(5 * time.Second))
	_, err = manager.Verify(token)
	assert.True(t, errors.Is(err, errors.ErrTokenExpired))
	assert.False(t, errors.Is(err, errors.ErrTokenInvalid))
}

func TestJWTManager_TamperedSignature(t *testing.T) {
	manager := NewJWTManager(testKey(t))

	token, err := manager.Issue("42", []string{"USER"}, 60)
	require.NoError(t, err)

	sigStart := strings.LastIndex(token, ".") + 1
	for i := sigStart; i < len(token); i++ {
		b := []byte(token)
		b[i] ^= 0x01
		_, err := manager.Verify(string(b))
		require.Error(t, err, "flipped byte %d", i-sigStart)
		assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
	}
}

func TestJWTManager_TamperedPayload(t *testing.T) {
	manager := NewJWTManager(testKey(t))

	token, err := manager.Issue("42", []string{"USER"}, 60)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	forged, _ := json.Marshal(map[string]interface{}{
		"sub":   "1",
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
		"roles": []string{"ADMIN"},
	})
	parts[1] = base64.RawURLEncoding.EncodeToString(forged)

	_, err = manager.Verify(strings.Join(parts, "."))
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
}

func TestJWTManager_RejectsForeignTokens(t *testing.T) {
	manager := NewJWTManager(testKey(t))
	other := NewJWTManager(mustKey(t, strings.Repeat("o", 32)))

	otherToken, err := other.Issue("42", nil, 60)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(testKey(t).Bytes())
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42",
	}).SignedString(testKey(t).Bytes())
	require.NoError(t, err)

	tests := map[string]string{
		"different key":  otherToken,
		"alg none":       noneToken,
		"missing sub":    noSubject,
		"missing exp":    noExpiry,
		"not a jwt":      "definitely-not-a-token",
		"empty":          "",
		"two segments":   "a.b",
		"garbage base64": "!!!.???.***",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := manager.Verify(token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
		})
	}
}

func TestJWTManager_IssueValidation(t *testing.T) {
	manager := NewJWTManager(testKey(t))

	_, err := manager.Issue("", nil, 60)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = manager.Issue("42", nil, 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func mustKey(t *testing.T, raw string) *SigningKey {
	t.Helper()
	key, err := NewSigningKey([]byte(raw))
	require.NoError(t, err)
	return key
}
