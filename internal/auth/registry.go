package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// KeyRegistry holds the API keys allowed to request a token.
// Plain keys are matched by set membership. Hashed keys are bcrypt digests
// checked only when the plain set misses.
type KeyRegistry struct {
	mu     sync.RWMutex
	keys   map[string]struct{}
	hashes [][]byte
}

// NewKeyRegistry seeds a registry with plain keys. Blank keys are ignored.
func NewKeyRegistry(keys ...string) *KeyRegistry {
	r := &KeyRegistry{keys: make(map[string]struct{}, len(keys))}
	for _, key := range keys {
		if key != "" {
			r.keys[key] = struct{}{}
		}
	}
	return r
}

// AddHashed registers a bcrypt digest of an API key.
func (r *KeyRegistry) AddHashed(hash string) error {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return fmt.Errorf("invalid api key hash: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hashes = append(r.hashes, []byte(hash))
	return nil
}

// IsAuthorized reports whether credential is currently registered.
func (r *KeyRegistry) IsAuthorized(credential string) bool {
	if credential == "" {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.keys[credential]; ok {
		return true
	}
	for _, hash := range r.hashes {
		if bcrypt.CompareHashAndPassword(hash, []byte(credential)) == nil {
			return true
		}
	}
	return false
}

// Add registers a plain API key.
func (r *KeyRegistry) Add(credential string) error {
	if credential == "" {
		return errors.New("api key must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[credential] = struct{}{}
	return nil
}

// Remove unregisters a plain API key. Unknown keys are ignored.
func (r *KeyRegistry) Remove(credential string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, credential)
}

// Len returns the number of registered entries, plain and hashed.
func (r *KeyRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys) + len(r.hashes)
}

// HashAPIKey returns a bcrypt digest suitable for AddHashed.
func HashAPIKey(credential string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(credential), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Fingerprint returns a short stable digest of a credential for logs and records.
func Fingerprint(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:8])
}
