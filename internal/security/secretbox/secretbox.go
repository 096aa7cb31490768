// Package secretbox cifra valores cortos en reposo (tokens en el storage
// durable) con AES-256-GCM. Formato: base64(nonce)|base64(ciphertext).
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	// MasterKeyEnvVar contiene la clave maestra en base64 (32 bytes).
	MasterKeyEnvVar = "TENANTGATE_MASTER_KEY"

	nonceSize = 12 // AES-GCM nonce recomendado (96 bits)
	keyLength = 32 // AES-256
	sep       = "|"
)

var ErrInvalidFormat = errors.New("secretbox: formato inválido, esperado base64(nonce)|base64(ciphertext)")

// Box cifra/descifra con una clave fija.
type Box struct {
	aead cipher.AEAD
}

// New crea un Box con la clave dada (32 bytes).
func New(key []byte) (*Box, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("secretbox: clave de %d bytes, requiere %d", len(key), keyLength)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secretbox: aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secretbox: cipher.NewGCM: %w", err)
	}
	return &Box{aead: aead}, nil
}

// NewFromEnv carga la clave maestra desde TENANTGATE_MASTER_KEY (base64).
func NewFromEnv() (*Box, error) {
	kb64 := strings.TrimSpace(os.Getenv(MasterKeyEnvVar))
	if kb64 == "" {
		return nil, fmt.Errorf("secretbox: %s no seteada; genere una con: openssl rand -base64 32", MasterKeyEnvVar)
	}
	k, err := base64.StdEncoding.DecodeString(kb64)
	if err != nil {
		return nil, fmt.Errorf("secretbox: decode %s: %w", MasterKeyEnvVar, err)
	}
	return New(k)
}

// Seal cifra plain y devuelve base64(nonce)|base64(ciphertext).
func (b *Box) Seal(plain string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secretbox: nonce random: %w", err)
	}
	ct := b.aead.Seal(nil, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Open descifra un valor producido por Seal.
func (b *Box) Open(sealed string) (string, error) {
	parts := strings.Split(sealed, sep)
	if len(parts) != 2 {
		return "", ErrInvalidFormat
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSize {
		return "", ErrInvalidFormat
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrInvalidFormat
	}
	plain, err := b.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("secretbox: open: %w", err)
	}
	return string(plain), nil
}
