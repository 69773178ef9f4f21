// Package secrets persists the stored rotation request encrypted at rest.
// The file layout is salt || nonce || ciphertext with no header, so an
// attacker learns nothing about the contents from the file itself.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/scrypt"
)

const (
	saltLen  = 32
	nonceLen = 12

	scryptN      = 1 << 18
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
)

// ErrDecrypt is returned for both a wrong password and a corrupt file;
// callers must not be able to tell the two apart.
var ErrDecrypt = errors.New("cannot decrypt: wrong password or corrupt data")

// Request is the stored rotation configuration. The WIF never leaves
// this package unencrypted except through Load.
type Request struct {
	AccountName    string `json:"account_name"`
	URL            string `json:"url,omitempty"`
	PublicKey      string `json:"public_key"`
	PrivateKeyWIF  string `json:"private_key_wif"`
	WalletPassword string `json:"wallet_password,omitempty"`
}

// Store encrypts rotation requests to a file under dir.
type Store struct {
	path string
}

// NewStore returns a store writing to dir/rotation_request.enc.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, "rotation_request.enc")}
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

// Exists reports whether a stored request is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Save encrypts req with a key derived from password and writes it with
// owner-only permissions.
func (s *Store) Save(req Request, password string) error {
	plain, err := json.Marshal(req)
	if err != nil {
		return err
	}
	blob, err := Encrypt(plain, password)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, blob, 0o600)
}

// Load reads and decrypts the stored request.
func (s *Store) Load(password string) (Request, error) {
	blob, err := os.ReadFile(s.path)
	if err != nil {
		return Request{}, err
	}
	plain, err := Decrypt(blob, password)
	if err != nil {
		return Request{}, err
	}
	var req Request
	if err := json.Unmarshal(plain, &req); err != nil {
		return Request{}, ErrDecrypt
	}
	return req, nil
}

// Delete removes the stored request. Missing file is not an error.
func (s *Store) Delete() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Encrypt derives a key from password via scrypt and seals data with
// AES-256-GCM. Output is salt || nonce || ciphertext.
func Encrypt(data []byte, password string) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	out := make([]byte, 0, saltLen+nonceLen+len(data)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, data, nil), nil
}

// Decrypt reverses Encrypt. Any failure surfaces as ErrDecrypt.
func Decrypt(blob []byte, password string) ([]byte, error) {
	if len(blob) < saltLen+nonceLen+1 {
		return nil, ErrDecrypt
	}
	salt := blob[:saltLen]
	nonce := blob[saltLen : saltLen+nonceLen]
	ciphertext := blob[saltLen+nonceLen:]

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
