// Package identity is the local identity provider at the engine
// boundary: account setup persists a device-unique username plus the
// hashed unlock credentials (PIN or passphrase, and the optional
// secret code typed into the calculator). Credentials never leave the
// device and no server is involved.
package identity

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/calcvault/core/internal/store"
)

var (
	ErrNotSetUp     = errors.New("account not set up")
	ErrAlreadySetUp = errors.New("account already set up")
)

type Manager struct {
	store *store.Store
}

func NewManager(st *store.Store) *Manager {
	return &Manager{store: st}
}

// IsSetUp reports whether account setup has completed on this device.
func (m *Manager) IsSetUp() (bool, error) {
	data, ok, err := m.store.Get(store.KeyIsSetup)
	if err != nil {
		return false, err
	}
	return ok && string(data) == "true", nil
}

// Setup establishes the device identity and unlock PIN. Fails when an
// identity already exists; a full reset is the only way back.
func (m *Manager) Setup(username, avatar, pin string) error {
	done, err := m.IsSetUp()
	if err != nil {
		return err
	}
	if done {
		return ErrAlreadySetUp
	}

	hash, err := hashSecret(pin)
	if err != nil {
		return fmt.Errorf("hashing pin: %w", err)
	}
	if err := m.store.SaveIdentity(username, avatar); err != nil {
		return err
	}
	if err := m.store.Put(store.KeySecurePIN, []byte(hash)); err != nil {
		return err
	}
	return m.store.Put(store.KeyIsSetup, []byte("true"))
}

// VerifyPIN checks the unlock PIN in constant time.
func (m *Manager) VerifyPIN(pin string) (bool, error) {
	data, ok, err := m.store.Get(store.KeySecurePIN)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrNotSetUp
	}
	return verifySecret(pin, string(data)), nil
}

// SetSecretCode stores the hidden calculator unlock sequence.
func (m *Manager) SetSecretCode(code string) error {
	hash, err := hashSecret(code)
	if err != nil {
		return fmt.Errorf("hashing secret code: %w", err)
	}
	return m.store.Put(store.KeySecretCode, []byte(hash))
}

// VerifySecretCode checks a candidate calculator sequence. Reports
// false, not an error, when no code is configured.
func (m *Manager) VerifySecretCode(code string) (bool, error) {
	data, ok, err := m.store.Get(store.KeySecretCode)
	if err != nil || !ok {
		return false, err
	}
	return verifySecret(code, string(data)), nil
}

func hashSecret(secret string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(secret), salt, 1, 64*1024, 4, 32)

	return fmt.Sprintf("%s:%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func verifySecret(secret, encoded string) bool {
	saltB64, hashB64, ok := strings.Cut(encoded, ":")
	if !ok {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(hashB64)
	if err != nil {
		return false
	}

	hash := argon2.IDKey([]byte(secret), salt, 1, 64*1024, 4, 32)
	return subtle.ConstantTimeCompare(hash, expectedHash) == 1
}
