// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealed key layout, base64 encoded:
//
//	version(1) || memory(4) || time(4) || threads(1) || salt(16) || nonce(24) || ciphertext+tag
//
// The KDF costs travel with the value so a sealer with different settings
// can still open it.
const (
	sealVersion   = 1
	sealSaltLen   = 16
	sealParamsLen = 4 + 4 + 1
	sealHeaderLen = 1 + sealParamsLen + sealSaltLen + chacha20poly1305.NonceSizeX
)

// KeySealer encrypts principals' private keys under their password.
// The key-encryption key is derived with argon2id; the payload is sealed with
// XChaCha20-Poly1305, so a wrong password never yields plaintext.
type KeySealer struct {
	memory  uint32
	time    uint32
	threads uint8
}

// NewKeySealer creates a KeySealer that seals with the memory, time and
// thread settings of params.
func NewKeySealer(params Argon2Params) *KeySealer {
	params = params.withDefaults()
	return &KeySealer{memory: params.Memory, time: params.Time, threads: params.Threads}
}

// Seal encrypts plaintext under password.
func (s *KeySealer) Seal(plaintext, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	buf := make([]byte, sealHeaderLen, sealHeaderLen+len(plaintext)+chacha20poly1305.Overhead)
	buf[0] = sealVersion
	binary.BigEndian.PutUint32(buf[1:5], s.memory)
	binary.BigEndian.PutUint32(buf[5:9], s.time)
	buf[9] = s.threads
	if _, err := rand.Read(buf[1+sealParamsLen:]); err != nil {
		return "", oops.Code("KEYSEAL_RANDOM_FAILED").Wrap(err)
	}
	salt := buf[1+sealParamsLen : 1+sealParamsLen+sealSaltLen]
	nonce := buf[1+sealParamsLen+sealSaltLen:]

	key := argon2.IDKey([]byte(password), salt, s.time, s.memory, s.threads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", oops.Code("KEYSEAL_CIPHER_FAILED").Wrap(err)
	}

	// The version and KDF costs are authenticated as additional data.
	out := aead.Seal(buf, nonce, []byte(plaintext), buf[:1+sealParamsLen])
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal. Any failure, including a wrong
// password, is reported as a DecryptionFailure and no plaintext is returned.
func (s *KeySealer) Open(sealed, password string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", newError(KindDecryptionFailure, oops.Code("KEYSEAL_MALFORMED").Wrap(err))
	}

	if len(raw) < sealHeaderLen+chacha20poly1305.Overhead {
		return "", newError(KindDecryptionFailure, oops.Code("KEYSEAL_MALFORMED").
			With("length", len(raw)).
			Errorf("sealed key too short"))
	}
	if raw[0] != sealVersion {
		return "", newError(KindDecryptionFailure, oops.Code("KEYSEAL_MALFORMED").
			With("version", int(raw[0])).
			Errorf("unsupported sealed key version"))
	}

	memory := binary.BigEndian.Uint32(raw[1:5])
	iterations := binary.BigEndian.Uint32(raw[5:9])
	threads := raw[9]
	if memory == 0 || memory > maxArgon2Memory || iterations == 0 || threads == 0 {
		return "", newError(KindDecryptionFailure, oops.Code("KEYSEAL_MALFORMED").
			With("memory", memory).
			With("time", iterations).
			With("threads", int(threads)).
			Errorf("sealed key has invalid kdf parameters"))
	}

	salt := raw[1+sealParamsLen : 1+sealParamsLen+sealSaltLen]
	nonce := raw[1+sealParamsLen+sealSaltLen : sealHeaderLen]

	key := argon2.IDKey([]byte(password), salt, iterations, memory, threads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", newError(KindDecryptionFailure, oops.Code("KEYSEAL_CIPHER_FAILED").Wrap(err))
	}

	plaintext, err := aead.Open(nil, nonce, raw[sealHeaderLen:], raw[:1+sealParamsLen])
	if err != nil {
		return "", newError(KindDecryptionFailure, oops.Code("KEYSEAL_OPEN_FAILED").Errorf("private key decryption failed"))
	}
	return string(plaintext), nil
}
