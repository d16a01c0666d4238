package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/aretw0/flowengine/pkg/ports"
)

// envelopeKey holds the ciphertext inside an encrypted run's final state.
const envelopeKey = "__encrypted__"

// ErrKeySize is returned when a key is not 32 bytes long.
var ErrKeySize = errors.New("encryption key must be 32 bytes (AES-256)")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	ports.Store
	config EncryptionConfig
}

// payload is the sealed part of a run.
type payload struct {
	FinalState domain.State      `json:"final_state"`
	Log        []domain.LogEntry `json:"execution_log"`
}

// NewEncryptionMiddleware creates a middleware that seals the final state and
// log of every run with AES-GCM. IDs and timestamps stay readable so runs can
// still be indexed and listed.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, ErrKeySize
	}
	for _, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, ErrKeySize
		}
	}
	return func(next ports.Store) ports.Store {
		return &encryptionMiddleware{
			Store:  next,
			config: config,
		}
	}, nil
}

func (m *encryptionMiddleware) SaveRun(ctx context.Context, run *domain.Run) error {
	// 1. Serialize the sensitive part
	plainText, err := json.Marshal(payload{FinalState: run.FinalState, Log: run.Log})
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	// 2. Encrypt
	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt run: %w", err)
	}

	// 3. Create envelope
	envelope := *run
	envelope.FinalState = domain.State{
		envelopeKey: base64.StdEncoding.EncodeToString(ciphertext),
	}
	envelope.Log = nil

	return m.Store.SaveRun(ctx, &envelope)
}

func (m *encryptionMiddleware) LoadRun(ctx context.Context, id string) (*domain.Run, error) {
	envelope, err := m.Store.LoadRun(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.open(envelope)
}

func (m *encryptionMiddleware) ListRuns(ctx context.Context, graphID string) ([]*domain.Run, error) {
	envelopes, err := m.Store.ListRuns(ctx, graphID)
	if err != nil {
		return nil, err
	}
	runs := make([]*domain.Run, 0, len(envelopes))
	for _, e := range envelopes {
		run, err := m.open(e)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (m *encryptionMiddleware) open(envelope *domain.Run) (*domain.Run, error) {
	encryptedStr, ok := envelope.FinalState[envelopeKey].(string)
	if !ok {
		// Fail secure: a configured key means every run must be sealed.
		return nil, fmt.Errorf("run %s is missing encrypted data envelope", envelope.ID)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	// Try Active, then Fallback
	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt run %s: %w", envelope.ID, err)
	}

	var p payload
	if err := json.Unmarshal(plainText, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted run: %w", err)
	}

	run := *envelope
	run.FinalState = p.FinalState
	run.Log = p.Log
	return &run, nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	// Try active key first
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	// Try fallbacks in order
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}

func (m *encryptionMiddleware) Close() error { return closeNext(m.Store) }
