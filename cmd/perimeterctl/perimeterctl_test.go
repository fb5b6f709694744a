package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/perimeter/internal/infrastructure/crypto"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestKeygen(t *testing.T) {
	out, err := execute(t, "keygen")
	require.NoError(t, err)

	_, err = crypto.ParseSigningKey(out)
	assert.NoError(t, err)
}

func TestTokenIssueAndVerify(t *testing.T) {
	key, err := crypto.GenerateSigningKey()
	require.NoError(t, err)

	token, err := execute(t, "token", "issue", "--key", key.Base64(), "--sub", "42", "--roles", "USER,ADMIN", "--ttl", "1h")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."))

	out, err := execute(t, "token", "verify", "--key", key.Base64(), token)
	require.NoError(t, err)

	var claims map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &claims))
	assert.Equal(t, "42", claims["sub"])
	assert.Equal(t, []interface{}{"USER", "ADMIN"}, claims["roles"])
	assert.Equal(t, 3600.0, claims["exp"].(float64)-claims["iat"].(float64))
}

func TestTokenVerify_WrongKey(t *testing.T) {
	issuer, err := crypto.GenerateSigningKey()
	require.NoError(t, err)
	other, err := crypto.GenerateSigningKey()
	require.NoError(t, err)

	token, err := execute(t, "token", "issue", "--key", issuer.Base64(), "--sub", "1")
	require.NoError(t, err)

	_, err = execute(t, "token", "verify", "--key", other.Base64(), token)
	require.Error(t, err)
	assert.Equal(t, "token invalid", err.Error())
}

func TestTokenIssue_RequiresSubject(t *testing.T) {
	key, err := crypto.GenerateSigningKey()
	require.NoError(t, err)

	_, err = execute(t, "token", "issue", "--key", key.Base64())
	assert.Error(t, err)
}
