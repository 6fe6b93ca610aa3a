package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// GenerateKeyPair generates an Ed25519 SSH key pair. comment ends up in the
// authorized_keys line and the private key header.
func GenerateKeyPair(comment string) (*KeyPair, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(privateKey, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to encode private key: %w", err)
	}

	sshPublicKey, err := ssh.NewPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to convert public key: %w", err)
	}

	return &KeyPair{
		Private: pem.EncodeToMemory(block),
		Public:  ssh.MarshalAuthorizedKey(sshPublicKey),
	}, nil
}

// LoadKeyPair rebuilds a KeyPair from an unencrypted private key in any
// format x/crypto/ssh understands (OpenSSH, PKCS#1, PKCS#8)
func LoadKeyPair(privatePEM []byte) (*KeyPair, error) {
	signer, err := ssh.ParsePrivateKey(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &KeyPair{
		Private: privatePEM,
		Public:  ssh.MarshalAuthorizedKey(signer.PublicKey()),
	}, nil
}

// PublicKeyString returns the public key as an OpenSSH authorized_keys formatted string
func (kp *KeyPair) PublicKeyString() string {
	return string(kp.Public)
}

// Signer parses the private key
func (kp *KeyPair) Signer() (ssh.Signer, error) {
	signer, err := ssh.ParsePrivateKey(kp.Private)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return signer, nil
}

// AuthMethod returns an ssh.AuthMethod that can be used for authentication
func (kp *KeyPair) AuthMethod() (ssh.AuthMethod, error) {
	signer, err := kp.Signer()
	if err != nil {
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}
