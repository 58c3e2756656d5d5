// Package apikey validates admin API keys. Keys come from configuration and
// are held only as SHA-256 digests; a presented key is hashed and looked up.
package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/config"
)

// HashPrefix marks a configured key that is already a digest.
const HashPrefix = "sha256:"

var ErrInvalidKey = errors.New("invalid api key")

// KeyInfo holds metadata about a validated API key. A zero RateLimit means
// the server-wide limit applies.
type KeyInfo struct {
	Name      string `json:"name"`
	RateLimit int    `json:"rate_limit"`
}

// Validator checks presented keys against the configured set.
type Validator struct {
	keys   map[string]KeyInfo
	logger *slog.Logger
}

// NewValidator builds a Validator from configured keys. Unnamed keys are
// named by position.
func NewValidator(keys []config.APIKeyConfig) *Validator {
	v := &Validator{
		keys:   make(map[string]KeyInfo, len(keys)),
		logger: slog.Default().With("component", "apikey-validator"),
	}
	for i, k := range keys {
		name := k.Name
		if name == "" {
			name = "key-" + strconv.Itoa(i)
		}
		hash := strings.TrimPrefix(k.Key, HashPrefix)
		if !strings.HasPrefix(k.Key, HashPrefix) {
			hash = HashKey(k.Key)
		}
		v.keys[strings.ToLower(hash)] = KeyInfo{Name: name, RateLimit: k.RateLimit}
	}
	v.logger.Info("api keys loaded", "count", len(v.keys))
	return v
}

// Validate returns the KeyInfo for rawKey, or ErrInvalidKey.
func (v *Validator) Validate(_ context.Context, rawKey string) (*KeyInfo, error) {
	if rawKey == "" {
		return nil, ErrInvalidKey
	}
	info, ok := v.keys[HashKey(rawKey)]
	if !ok {
		return nil, ErrInvalidKey
	}
	return &info, nil
}

// Len reports how many keys are configured.
func (v *Validator) Len() int {
	return len(v.keys)
}

// HashKey returns the SHA-256 hex digest of a raw API key.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// GenerateKey returns a cryptographically random 32-byte hex-encoded key.
func GenerateKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
