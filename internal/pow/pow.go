// Package pow supplies a default nonce search: the brute-force primitive
// the object validity formula is checked against. The core only depends
// on the solve(target, initialHash) parameter shape of
// wire.Object.SolveNonce; this package is one concrete "solve" the
// composition root can wire in.
package pow

import (
	"crypto/sha512"
	"encoding/binary"
	"math/big"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
)

// Solve searches for a nonce n such that the first 8 bytes of
// double-SHA-512(n || initialHash), read as a big-endian uint64, is at
// most target. It fans the search out across every available CPU,
// starting each worker at a distinct random offset so two concurrent
// searches over the same object don't duplicate work.
func Solve(target *big.Int, initialHash [64]byte) [8]byte {
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}

	targetVal := target.Uint64()
	if !target.IsUint64() {
		// target exceeds uint64 range: every value satisfies it.
		targetVal = ^uint64(0)
	}

	var found uint64
	var done int32
	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		start := rand.Uint64()
		go func(nonce uint64) {
			defer wg.Done()
			var buf [8 + 64]byte
			copy(buf[8:], initialHash[:])
			for atomic.LoadInt32(&done) == 0 {
				binary.BigEndian.PutUint64(buf[:8], nonce)
				first := sha512.Sum512(buf[:])
				second := sha512.Sum512(first[:])
				if binary.BigEndian.Uint64(second[:8]) <= targetVal {
					if atomic.CompareAndSwapInt32(&done, 0, 1) {
						atomic.StoreUint64(&found, nonce)
					}
					return
				}
				nonce++
			}
		}(start)
	}
	wg.Wait()

	var out [8]byte
	binary.BigEndian.PutUint64(out[:], found)
	return out
}
