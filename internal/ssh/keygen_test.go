package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func TestGenerateKeyPair(t *testing.T) {
	kp, err := GenerateKeyPair("anvil-nva")
	require.NoError(t, err)
	require.NotNil(t, kp)

	t.Run("private key is OpenSSH PEM", func(t *testing.T) {
		block, _ := pem.Decode(kp.Private)
		require.NotNil(t, block, "private key should be PEM encoded")
		assert.Equal(t, "OPENSSH PRIVATE KEY", block.Type)

		_, err := ssh.ParseRawPrivateKey(kp.Private)
		assert.NoError(t, err)
	})

	t.Run("public key is authorized_keys format", func(t *testing.T) {
		publicKeyStr := kp.PublicKeyString()
		assert.True(t, strings.HasPrefix(publicKeyStr, "ssh-ed25519 "))
		assert.True(t, strings.HasSuffix(publicKeyStr, "\n"))

		_, _, _, _, err := ssh.ParseAuthorizedKey(kp.Public)
		assert.NoError(t, err)
	})

	t.Run("public and private keys match", func(t *testing.T) {
		signer, err := kp.Signer()
		require.NoError(t, err)

		stored, _, _, _, err := ssh.ParseAuthorizedKey(kp.Public)
		require.NoError(t, err)

		assert.Equal(t, ssh.MarshalAuthorizedKey(stored), ssh.MarshalAuthorizedKey(signer.PublicKey()))
	})

	t.Run("each generation produces unique keys", func(t *testing.T) {
		kp2, err := GenerateKeyPair("anvil-nva")
		require.NoError(t, err)
		assert.NotEqual(t, kp.Private, kp2.Private)
		assert.NotEqual(t, kp.Public, kp2.Public)
	})
}

func TestLoadKeyPair(t *testing.T) {
	t.Run("round trips a generated key", func(t *testing.T) {
		kp, err := GenerateKeyPair("")
		require.NoError(t, err)

		loaded, err := LoadKeyPair(kp.Private)
		require.NoError(t, err)
		assert.Equal(t, kp.Public, loaded.Public)
	})

	t.Run("accepts PKCS8", func(t *testing.T) {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		der, err := x509.MarshalPKCS8PrivateKey(priv)
		require.NoError(t, err)
		pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

		loaded, err := LoadKeyPair(pemBytes)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(loaded.PublicKeyString(), "ssh-ed25519 "))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := LoadKeyPair([]byte("not a key"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse private key")
	})
}

func TestKeyPair_AuthMethod(t *testing.T) {
	kp, err := GenerateKeyPair("test")
	require.NoError(t, err)

	auth, err := kp.AuthMethod()
	require.NoError(t, err)
	assert.NotNil(t, auth)

	bad := &KeyPair{Private: []byte("invalid")}
	_, err = bad.AuthMethod()
	assert.Error(t, err)
}
