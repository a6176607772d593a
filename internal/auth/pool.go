// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package auth

import (
	"context"
	"runtime"

	"github.com/samber/oops"
	"golang.org/x/sync/semaphore"
)

// CryptoPool bounds how many argon2 computations run at once. Password
// verification and key decryption are memory hungry, so unbounded fan-out
// under a login burst would exhaust the host.
type CryptoPool struct {
	sem  *semaphore.Weighted
	size int
}

// NewCryptoPool creates a pool admitting size concurrent jobs.
// A size of zero or less means runtime.GOMAXPROCS(0).
func NewCryptoPool(size int) *CryptoPool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &CryptoPool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the number of concurrent slots.
func (p *CryptoPool) Size() int {
	return p.size
}

// Do runs fn once a slot is free. It returns ctx's error if the context is
// done before a slot is acquired; fn is not run in that case.
func (p *CryptoPool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return oops.Code("CRYPTO_POOL_ACQUIRE_FAILED").With("pool_size", p.size).Wrap(err)
	}
	defer p.sem.Release(1)
	return fn()
}
