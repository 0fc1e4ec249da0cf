package localstore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	keyLen  = chacha20poly1305.KeySize
	saltLen = 16

	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 1
)

var ErrDecrypt = errors.New("decrypting value")

// Cipher seals values with XChaCha20-Poly1305. The storage key is bound as
// associated data so a ciphertext cannot be replayed under another key.
type Cipher struct {
	key []byte
}

// DeriveCipher stretches passphrase with Argon2id.
func DeriveCipher(passphrase, salt []byte) *Cipher {
	return &Cipher{key: argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, keyLen)}
}

func (c *Cipher) Seal(key string, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX, chacha20poly1305.NonceSizeX+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, []byte(key)), nil
}

func (c *Cipher) Open(key string, sealed []byte) ([]byte, error) {
	if len(sealed) < chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, err
	}

	nonce, ct := sealed[:chacha20poly1305.NonceSizeX], sealed[chacha20poly1305.NonceSizeX:]

	plaintext, err := aead.Open(nil, nonce, ct, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}

	return plaintext, nil
}

// EncryptedKV encrypts every value written through it. The salt lives in
// plaintext under keySalt in the underlying store.
type EncryptedKV struct {
	kv     KV
	cipher *Cipher
}

// NewEncryptedKV derives the cipher from passphrase, creating and persisting a
// random salt on first use.
func NewEncryptedKV(ctx context.Context, kv KV, passphrase string) (*EncryptedKV, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase is required")
	}

	salt, err := kv.Get(ctx, keySalt)
	if err != nil {
		return nil, fmt.Errorf("reading salt: %w", err)
	}

	if len(salt) == 0 {
		salt = make([]byte, saltLen)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("generating salt: %w", err)
		}

		if err := kv.Set(ctx, keySalt, salt); err != nil {
			return nil, fmt.Errorf("storing salt: %w", err)
		}
	}

	return &EncryptedKV{kv: kv, cipher: DeriveCipher([]byte(passphrase), salt)}, nil
}

func (e *EncryptedKV) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := e.kv.Get(ctx, key)
	if err != nil || sealed == nil {
		return nil, err
	}

	return e.cipher.Open(key, sealed)
}

func (e *EncryptedKV) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := e.cipher.Seal(key, value)
	if err != nil {
		return fmt.Errorf("encrypting %s: %w", key, err)
	}

	return e.kv.Set(ctx, key, sealed)
}

func (e *EncryptedKV) Delete(ctx context.Context, key string) error {
	return e.kv.Delete(ctx, key)
}

func (e *EncryptedKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	return e.kv.Keys(ctx, prefix)
}
