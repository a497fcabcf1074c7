package utils

import (
	"testing"
	"time"

	"replyloop/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEmailAddress(t *testing.T) {
	cases := map[string]string{
		"Jane Doe <jane@Example.com>": "jane@example.com",
		"jane@example.com":            "jane@example.com",
		"  JANE@EXAMPLE.COM  ":        "jane@example.com",
		"\"Doe, Jane\" <jane@example.com>": "jane@example.com",
	}
	for input, want := range cases {
		assert.Equal(t, want, ExtractEmailAddress(input), "input %q", input)
	}
}

func TestParseUint(t *testing.T) {
	got, err := ParseUint("42")
	require.NoError(t, err)
	assert.EqualValues(t, 42, got)

	_, err = ParseUint("nope")
	assert.Error(t, err)

	_, err = ParseUint("-1")
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	config.AppConfig.EncryptionKey = "test-encryption-key"

	encrypted, err := Encrypt("smtp-secret")
	require.NoError(t, err)
	assert.NotEqual(t, "smtp-secret", encrypted)

	decrypted, err := Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "smtp-secret", decrypted)
}

func TestDecryptGarbageFails(t *testing.T) {
	config.AppConfig.EncryptionKey = "test-encryption-key"

	_, err := Decrypt("not-base64!!!")
	assert.Error(t, err)
}

func TestAPITokenRoundTrip(t *testing.T) {
	config.AppConfig.APITokenSecret = "test-token-secret"

	token, err := GenerateAPIToken("ci-runner", time.Hour)
	require.NoError(t, err)

	claims, err := ParseAPIToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ci-runner", claims.Name)
}

func TestAPITokenWrongSecretRejected(t *testing.T) {
	config.AppConfig.APITokenSecret = "test-token-secret"
	token, err := GenerateAPIToken("ci-runner", time.Hour)
	require.NoError(t, err)

	config.AppConfig.APITokenSecret = "different-secret"
	defer func() { config.AppConfig.APITokenSecret = "test-token-secret" }()

	_, err = ParseAPIToken(token)
	assert.Error(t, err)
}
