// Package secrets stores generated SSH private keys in the OS keyring, with
// a permission-restricted file as fallback when no keyring is available.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name used in the OS keyring
const KeyringService = "anvil"

// ErrKeyNotFound is returned when neither the keyring nor the fallback
// directory holds the requested key
var ErrKeyNotFound = errors.New("key not found")

// KeyStore keeps private keys by account name
type KeyStore struct {
	fallbackDir string
}

// NewKeyStore creates a KeyStore whose file fallback lives under dir
func NewKeyStore(dir string) *KeyStore {
	return &KeyStore{fallbackDir: filepath.Join(dir, "keys")}
}

// Account names the key of an Azure resource, e.g. "anvil-rg/anvil-nva"
func Account(resourceGroup, name string) string {
	return resourceGroup + "/" + name
}

// Store saves a key in the OS keyring
// Falls back to file storage if keyring is unavailable
func (s *KeyStore) Store(account string, key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("key cannot be empty")
	}

	if err := keyring.Set(KeyringService, account, string(key)); err == nil {
		return nil
	}

	return s.storeInFile(account, key)
}

// Load retrieves a key from the OS keyring
// Falls back to file storage if the keyring has no entry
func (s *KeyStore) Load(account string) ([]byte, error) {
	key, err := keyring.Get(KeyringService, account)
	if err == nil {
		return []byte(key), nil
	}

	return s.loadFromFile(account)
}

// Delete removes a key from both the keyring and the fallback directory.
// Deleting an absent key is not an error.
func (s *KeyStore) Delete(account string) error {
	keyringErr := keyring.Delete(KeyringService, account)
	if errors.Is(keyringErr, keyring.ErrNotFound) {
		keyringErr = nil
	}

	fileErr := s.deleteFile(account)

	if keyringErr != nil && fileErr != nil {
		return fmt.Errorf("failed to delete key from keyring (%v) and file (%v)", keyringErr, fileErr)
	}
	return nil
}

func (s *KeyStore) path(account string) string {
	return filepath.Join(s.fallbackDir, strings.ReplaceAll(account, "/", "_"))
}

func (s *KeyStore) storeInFile(account string, key []byte) error {
	if err := os.MkdirAll(s.fallbackDir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(s.path(account), key, 0600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}

	return nil
}

func (s *KeyStore) loadFromFile(account string) ([]byte, error) {
	data, err := os.ReadFile(s.path(account))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", account, ErrKeyNotFound)
		}
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return data, nil
}

func (s *KeyStore) deleteFile(account string) error {
	if err := os.Remove(s.path(account)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete key file: %w", err)
	}
	return nil
}
