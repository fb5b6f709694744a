package crypto

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/perimeter/internal/config"
	"github.com/turtacn/perimeter/pkg/errors"
	"github.com/turtacn/perimeter/pkg/logger"
)

func TestSigningKey(t *testing.T) {
	t.Run("rejects short keys", func(t *testing.T) {
		_, err := NewSigningKey([]byte("too-short"))
		assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
	})

	t.Run("never formats its bytes", func(t *testing.T) {
		key := testKey(t)
		assert.Equal(t, "SigningKey(***)", fmt.Sprintf("%v", key))
		assert.NotContains(t, fmt.Sprintf("%#v", key), "ssss")
	})

	t.Run("generated keys round trip through base64", func(t *testing.T) {
		key, err := GenerateSigningKey()
		require.NoError(t, err)
		parsed, err := ParseSigningKey(key.Base64())
		require.NoError(t, err)
		assert.Equal(t, key.Bytes(), parsed.Bytes())
	})
}

func TestLoadSigningKey_FromConfig(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{
		SecretBase64: base64.StdEncoding.EncodeToString([]byte(strings.Repeat("c", 32))),
	}}

	key, err := LoadSigningKey(context.Background(), cfg, logger.NewNoopLogger())
	require.NoError(t, err)
	assert.Equal(t, []byte(strings.Repeat("c", 32)), key.Bytes())

	_, err = LoadSigningKey(context.Background(), &config.Config{}, logger.NewNoopLogger())
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestLoadSigningKey_FromVault(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("v", 32)))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/perimeter/jwt" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "dev-token", r.Header.Get("X-Vault-Token"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":{"data":{"secret_base64":%q},"metadata":{"version":1}}}`, encoded)
	}))
	defer srv.Close()

	cfg := &config.Config{Vault: config.VaultConfig{
		Enabled:   true,
		Address:   srv.URL,
		Token:     "dev-token",
		MountPath: "secret",
		KeyPath:   "perimeter/jwt",
		KeyField:  "secret_base64",
	}}

	key, err := LoadSigningKey(context.Background(), cfg, logger.NewNoopLogger())
	require.NoError(t, err)
	assert.Equal(t, []byte(strings.Repeat("v", 32)), key.Bytes())

	cfg.Vault.KeyField = "missing"
	_, err = LoadSigningKey(context.Background(), cfg, logger.NewNoopLogger())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
