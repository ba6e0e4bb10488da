// Package securefile stores credentials in a single file encrypted with
// AES-256-GCM. The key is derived from a passphrase with scrypt; the salt and
// nonce are stored alongside the ciphertext.
package securefile

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"golang.org/x/crypto/scrypt"

	"github.com/petalworks/storefront-core/pkg/storage"
)

const (
	saltBytes = 16
	keyBytes  = 32

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

type envelope struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Store is a file-backed implementation of storage.Secure.
type Store struct {
	mu         sync.Mutex
	path       string
	passphrase []byte
}

// Open binds a secure store to the given file. The file is created lazily on
// the first Set.
func Open(path, passphrase string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("keychain path is required")
	}
	if passphrase == "" {
		return nil, fmt.Errorf("keychain passphrase is required")
	}
	return &Store{path: path, passphrase: []byte(passphrase)}, nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return "", false, err
	}
	value, ok := values[key]
	return value, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	values[key] = value
	return s.write(values)
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.write(values)
}

func (s *Store) read() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading keychain: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding keychain envelope: %w", err)
	}

	gcm, err := s.cipherFor(env.Salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting keychain: %w", err)
	}

	values := map[string]string{}
	if err := json.Unmarshal(plaintext, &values); err != nil {
		return nil, fmt.Errorf("decoding keychain values: %w", err)
	}
	return values, nil
}

func (s *Store) write(values map[string]string) error {
	plaintext, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encoding keychain values: %w", err)
	}

	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}
	gcm, err := s.cipherFor(salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}

	env := envelope{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, plaintext, nil),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding keychain envelope: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("writing keychain: %w", err)
	}
	return nil
}

func (s *Store) cipherFor(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(s.passphrase, salt, scryptN, scryptR, scryptP, keyBytes)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("initializing gcm: %w", err)
	}
	return gcm, nil
}

var _ storage.Secure = (*Store)(nil)
