/*
 * Copyright (C) 2025. Gardel <sunxinao@hotmail.com> and contributors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"golang.org/x/crypto/pbkdf2"
	"io"
	"strings"
)

// EncryptedPrefix marks an encrypted value, format: ENC:base64(nonce|ciphertext|tag)
const EncryptedPrefix = "ENC:"

const (
	KeySize                  = 32
	DefaultKdfIterations     = 600000
	DefaultEncryptionSalt    = "watchme-secure-store"
	minimumEncryptionKeySize = 8
)

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
	ErrDecryptionFailed  = errors.New("decryption failed: authentication tag mismatch")
	ErrWeakEncryptionKey = fmt.Errorf("encryption key must be at least %d characters", minimumEncryptionKeySize)
)

// Cipher encrypts values at rest with AES-256-GCM.
type Cipher struct {
	aead cipher.AEAD
}

// DeriveKey derives a KeySize key from secret using PBKDF2-SHA-256.
func DeriveKey(secret string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(secret), salt, iterations, KeySize, sha256.New)
}

func NewCipher(secret string, salt []byte, iterations int) (*Cipher, error) {
	if len(secret) < minimumEncryptionKeySize {
		return nil, ErrWeakEncryptionKey
	}
	if iterations < 1 {
		iterations = DefaultKdfIterations
	}
	key := DeriveKey(secret, salt, iterations)
	defer zeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return &Cipher{aead: gcm}, nil
}

func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *Cipher) Decrypt(value string) ([]byte, error) {
	if !strings.HasPrefix(value, EncryptedPrefix) {
		return nil, ErrInvalidCiphertext
	}
	data, err := base64.StdEncoding.DecodeString(value[len(EncryptedPrefix):])
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize+c.aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}
	plaintext, err := c.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
