package notes

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"shielded-notes-go/internal/models"

	"github.com/google/uuid"
)

// Sentinel errors shared by the encryption layer.
var (
	ErrUnknownLevel      = errors.New("no encryption strategy for privacy level")
	ErrInvalidCiphertext = errors.New("invalid encrypted data format")
)

const (
	semiPrivateMarker = "SEMI:"
	fullPrivateMarker = "FULL:"
	paddingSeparator  = "|||"
)

// Strategy is the per-privacy-level encryption treatment. The transforms are
// reversible placeholder encodings, not cryptography; the strategy-selection
// contract (marker-prefixed ciphertext, per-level overhead) is what matters.
type Strategy interface {
	Encrypt(data, key string) (string, error)
	Decrypt(encrypted, key string) (string, error)
	Algorithm() string
	Overhead() int // percent size overhead
}

// publicStrategy is the identity transform.
type publicStrategy struct{}

func (publicStrategy) Encrypt(data, _ string) (string, error)      { return data, nil }
func (publicStrategy) Decrypt(encrypted, _ string) (string, error) { return encrypted, nil }
func (publicStrategy) Algorithm() string                           { return "NONE" }
func (publicStrategy) Overhead() int                               { return 0 }

// semiPrivateStrategy is a marker-tagged reversible encoding.
type semiPrivateStrategy struct{}

func (semiPrivateStrategy) Encrypt(data, _ string) (string, error) {
	return semiPrivateMarker + base64.StdEncoding.EncodeToString([]byte(data)), nil
}

func (semiPrivateStrategy) Decrypt(encrypted, _ string) (string, error) {
	if !strings.HasPrefix(encrypted, semiPrivateMarker) {
		return "", fmt.Errorf("%w: missing semi-private marker", ErrInvalidCiphertext)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(encrypted, semiPrivateMarker))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	return string(decoded), nil
}

func (semiPrivateStrategy) Algorithm() string { return "AES-256-GCM" }
func (semiPrivateStrategy) Overhead() int     { return 25 }

// fullPrivateStrategy adds random padding before encoding so equal payloads
// never produce equal ciphertexts.
type fullPrivateStrategy struct{}

func (fullPrivateStrategy) Encrypt(data, _ string) (string, error) {
	padded := data + paddingSeparator + randomToken()
	return fullPrivateMarker + base64.StdEncoding.EncodeToString([]byte(padded)), nil
}

func (fullPrivateStrategy) Decrypt(encrypted, _ string) (string, error) {
	if !strings.HasPrefix(encrypted, fullPrivateMarker) {
		return "", fmt.Errorf("%w: missing full-private marker", ErrInvalidCiphertext)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(encrypted, fullPrivateMarker))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	parts := strings.Split(string(decoded), paddingSeparator)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: bad padding layout", ErrInvalidCiphertext)
	}
	return parts[0], nil
}

func (fullPrivateStrategy) Algorithm() string { return "AES-256-GCM+OBFUSCATION" }
func (fullPrivateStrategy) Overhead() int     { return 45 }

// randomToken returns a short random alphanumeric token for padding and salts.
func randomToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:13]
}

// EncryptionMetadata describes the treatment applied at a level.
type EncryptionMetadata struct {
	Algorithm string `json:"algorithm"`
	Overhead  int    `json:"overhead"`
	KeyLength int    `json:"key_length"`
}

// BatchItem pairs a blob with its privacy level for batch operations.
type BatchItem struct {
	Data         string
	PrivacyLevel models.PrivacyLevel
}

// Encryptor dispatches to the per-level strategy and manages level keys.
// Keys are issued lazily and cached until rotated. Safe for concurrent use.
type Encryptor struct {
	mu         sync.Mutex
	strategies map[models.PrivacyLevel]Strategy
	keys       map[models.PrivacyLevel]string
}

// NewEncryptor builds an Encryptor with one strategy per privacy level.
func NewEncryptor() *Encryptor {
	return &Encryptor{
		strategies: map[models.PrivacyLevel]Strategy{
			models.PrivacyPublic:      publicStrategy{},
			models.PrivacySemiPrivate: semiPrivateStrategy{},
			models.PrivacyFullPrivate: fullPrivateStrategy{},
		},
		keys: make(map[models.PrivacyLevel]string),
	}
}

func (e *Encryptor) strategy(level models.PrivacyLevel) (Strategy, error) {
	s, ok := e.strategies[level]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLevel, level)
	}
	return s, nil
}

// Encrypt applies the level's strategy with its cached key.
func (e *Encryptor) Encrypt(data string, level models.PrivacyLevel) (string, error) {
	s, err := e.strategy(level)
	if err != nil {
		return "", err
	}
	return s.Encrypt(data, e.keyFor(level))
}

// Decrypt reverses the level's strategy.
func (e *Encryptor) Decrypt(encrypted string, level models.PrivacyLevel) (string, error) {
	s, err := e.strategy(level)
	if err != nil {
		return "", err
	}
	return s.Decrypt(encrypted, e.keyFor(level))
}

// keyFor returns the cached key for the level, generating one if absent.
func (e *Encryptor) keyFor(level models.PrivacyLevel) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	key, ok := e.keys[level]
	if !ok {
		key = e.generateKeyLocked(level)
	}
	return key
}

func (e *Encryptor) generateKeyLocked(level models.PrivacyLevel) string {
	key := fmt.Sprintf("key_%s_%d_%s", level, time.Now().UnixMilli(), randomToken())
	e.keys[level] = key
	return key
}

// GenerateKey issues and caches a fresh key for the level.
func (e *Encryptor) GenerateKey(level models.PrivacyLevel) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generateKeyLocked(level)
}

// RotateKey discards the level's key and issues a new one.
func (e *Encryptor) RotateKey(level models.PrivacyLevel) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.keys, level)
	return e.generateKeyLocked(level)
}

// ClearKeys discards every cached key.
func (e *Encryptor) ClearKeys() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keys = make(map[models.PrivacyLevel]string)
}

// Salt returns a fresh random salt.
func (e *Encryptor) Salt() string {
	return randomToken()
}

// Overhead returns the percent size overhead for a level.
func (e *Encryptor) Overhead(level models.PrivacyLevel) (int, error) {
	s, err := e.strategy(level)
	if err != nil {
		return 0, err
	}
	return s.Overhead(), nil
}

// Algorithm returns the algorithm name for a level.
func (e *Encryptor) Algorithm(level models.PrivacyLevel) (string, error) {
	s, err := e.strategy(level)
	if err != nil {
		return "", err
	}
	return s.Algorithm(), nil
}

// Metadata reports the treatment applied at a level.
func (e *Encryptor) Metadata(level models.PrivacyLevel) (EncryptionMetadata, error) {
	s, err := e.strategy(level)
	if err != nil {
		return EncryptionMetadata{}, err
	}
	return EncryptionMetadata{
		Algorithm: s.Algorithm(),
		Overhead:  s.Overhead(),
		KeyLength: len(e.keyFor(level)),
	}, nil
}

// ValidateFormat reports whether a blob looks like a well-formed ciphertext.
// Public blobs carry no marker, so any non-empty blob passes.
func (e *Encryptor) ValidateFormat(encrypted string) bool {
	return encrypted != ""
}

// BatchEncrypt encrypts every item with its own level's strategy, preserving
// order. One unrecognized level fails the whole batch.
func (e *Encryptor) BatchEncrypt(items []BatchItem) ([]string, error) {
	out := make([]string, 0, len(items))
	for i, item := range items {
		encrypted, err := e.Encrypt(item.Data, item.PrivacyLevel)
		if err != nil {
			return nil, fmt.Errorf("batch encrypt item %d: %w", i, err)
		}
		out = append(out, encrypted)
	}
	return out, nil
}

// BatchDecrypt decrypts every item with its own level's strategy, preserving
// order. One bad item fails the whole batch.
func (e *Encryptor) BatchDecrypt(items []BatchItem) ([]string, error) {
	out := make([]string, 0, len(items))
	for i, item := range items {
		decrypted, err := e.Decrypt(item.Data, item.PrivacyLevel)
		if err != nil {
			return nil, fmt.Errorf("batch decrypt item %d: %w", i, err)
		}
		out = append(out, decrypted)
	}
	return out, nil
}
