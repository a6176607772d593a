// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package auth

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"

	"github.com/admissions-portal/portal/pkg/errutil"
)

var testArgon2Params = Argon2Params{Memory: 8 * 1024, Time: 1, Threads: 1, SaltLen: 16, KeyLen: 32}

func TestArgon2Hasher_HashAndVerify(t *testing.T) {
	h := NewArgon2Hasher(testArgon2Params)

	hash, err := h.Hash("secret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"))

	ok, err := h.Verify("secret", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("Secret", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	again, err := h.Hash("secret")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salts differ")
}

func TestArgon2Hasher_EmptyPassword(t *testing.T) {
	_, err := NewArgon2Hasher(testArgon2Params).Hash("")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
}

func TestArgon2Hasher_ZeroParamsUseDefaults(t *testing.T) {
	h := NewArgon2Hasher(Argon2Params{})
	assert.Equal(t, DefaultArgon2Params, h.params)
}

func TestArgon2Hasher_VerifiesArgon2i(t *testing.T) {
	salt := []byte("0123456789abcdef")
	key := argon2.Key([]byte("test"), salt, 3, 4096, 1, 32)
	encoded := fmt.Sprintf("$argon2i$v=19$m=4096,t=3,p=1$%s$%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))

	h := NewArgon2Hasher(testArgon2Params)
	ok, err := h.Verify("test", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong", encoded)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, h.NeedsUpgrade(encoded))
}

func TestArgon2Hasher_VerifiesPaddedBase64(t *testing.T) {
	salt := []byte("saltsaltsaltsalt")
	key := argon2.IDKey([]byte("pw"), salt, 1, 1024, 1, 32)
	encoded := fmt.Sprintf("$argon2id$v=19$m=1024,t=1,p=1$%s$%s",
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key))

	ok, err := NewArgon2Hasher(testArgon2Params).Verify("pw", encoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestArgon2Hasher_InvalidHash(t *testing.T) {
	salt := base64.RawStdEncoding.EncodeToString([]byte("saltsaltsaltsalt"))
	key := base64.RawStdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"bcrypt", "$2a$10$abcdefghijklmnopqrstuv"},
		{"wrong algorithm", "$argon2d$v=19$m=1024,t=1,p=1$" + salt + "$" + key},
		{"old version", "$argon2id$v=16$m=1024,t=1,p=1$" + salt + "$" + key},
		{"zero threads", "$argon2id$v=19$m=1024,t=1,p=0$" + salt + "$" + key},
		{"too many threads", "$argon2id$v=19$m=1024,t=1,p=256$" + salt + "$" + key},
		{"zero iterations", "$argon2id$v=19$m=1024,t=0,p=1$" + salt + "$" + key},
		{"memory too large", "$argon2id$v=19$m=2097152,t=1,p=1$" + salt + "$" + key},
		{"bad salt", "$argon2id$v=19$m=1024,t=1,p=1$!!!$" + key},
		{"empty key", "$argon2id$v=19$m=1024,t=1,p=1$" + salt + "$"},
		{"garbled params", "$argon2id$v=19$memory$" + salt + "$" + key},
	}
	h := NewArgon2Hasher(testArgon2Params)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := h.Verify("pw", tt.hash)
			require.Error(t, err)
			assert.False(t, ok)
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
		})
	}
}

func TestArgon2Hasher_NeedsUpgrade(t *testing.T) {
	h := NewArgon2Hasher(testArgon2Params)
	assert.False(t, h.NeedsUpgrade("$argon2id$v=19$m=65536,t=1,p=4$s$h"))
	assert.True(t, h.NeedsUpgrade("$argon2i$v=19$m=4096,t=3,p=1$s$h"))
}
