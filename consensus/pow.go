package consensus

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"math/big"
	mrand "math/rand"
	"runtime"
)

// Threshold is the minimum value (interpreted as a little-endian u64) the
// 8-byte BLAKE2b digest of nonce||root must reach for the nonce to be valid
// proof of work (spec §4.3).
const Threshold uint64 = 0xFFFFFFC000000000

// CheckWork reports whether w is valid proof of work for root.
//
// D = BLAKE2b_8(w ‖ root), read as a little-endian u64, must be >= Threshold.
// w holds the nonce's little-endian bytes, the "w_le" form the spec's
// predicate feeds to BLAKE2b; ParseWork and Work.Hex convert between that
// form and the most-significant-byte-first hex text, so a work value read
// from hex can be checked directly.
func CheckWork(root Hash32, w Work) bool {
	d := workDigest(w, root)
	return binary.LittleEndian.Uint64(d[:]) >= Threshold
}

// EncodeWorkOnWire serializes w for the wire, honoring the State/legacy
// endianness asymmetry (spec §4.3, §9 Open Question 3).
//
// This is a documented protocol wart, not a bug to fix: State blocks write
// the work's numeric value big-endian; every legacy shape writes the same
// value little-endian (i.e. Work's native byte order, copied unchanged).
func EncodeWorkOnWire(w Work, kind BlockKind) [8]byte {
	if kind == BlockKindState {
		return reverse8(w)
	}
	return [8]byte(w)
}

// DecodeWorkOnWire is the inverse of EncodeWorkOnWire.
func DecodeWorkOnWire(b [8]byte, kind BlockKind) Work {
	if kind == BlockKindState {
		return Work(reverse8(Work(b)))
	}
	return Work(b)
}

func reverse8(w Work) [8]byte {
	var out [8]byte
	for i := 0; i < 8; i++ {
		out[i] = w[7-i]
	}
	return out
}

// WorkGeneratorConfig configures the parallel search (spec §4.3).
type WorkGeneratorConfig struct {
	// Workers is the number of search goroutines. Zero means
	// runtime.NumCPU().
	Workers int
	// MaxIterations, if non-zero, bounds the total number of candidates
	// tried across all workers combined, divided evenly per worker (rounded
	// down, but never below one candidate per worker).
	MaxIterations uint64
}

// DefaultWorkGeneratorConfig returns one worker per logical CPU and no
// iteration cap.
func DefaultWorkGeneratorConfig() WorkGeneratorConfig {
	return WorkGeneratorConfig{Workers: runtime.NumCPU()}
}

// GenerateWork searches for a nonce satisfying CheckWork(root, nonce) using
// cfg.Workers parallel goroutines (spec §4.3).
//
// The search is a pure function of root up to randomness: repeated calls
// may return different valid nonces. It returns ok=false, with no error, if the
// configured iteration budget is exhausted without finding one; it returns a
// non-nil error only if ctx is canceled first.
func GenerateWork(ctx context.Context, root Hash32, cfg WorkGeneratorConfig) (Work, bool, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}

	perWorkerBudget := uint64(0)
	if cfg.MaxIterations > 0 {
		perWorkerBudget = cfg.MaxIterations / uint64(workers)
		if perWorkerBudget == 0 {
			perWorkerBudget = 1
		}
	}

	// Cancellation is message-passing, not a shared atomic flag (spec §9
	// design note): the coordinator floods `workers` sentinels so each
	// worker's non-blocking poll sees at least one.
	cancel := make(chan struct{}, workers)
	results := make(chan Work, workers)
	// Buffered to `workers` so every searchWorker's deferred send succeeds
	// even after the coordinator has already returned on the success or
	// cancellation path below — otherwise the late senders block forever.
	done := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		seed := workerSeed(uint64(i))
		go searchWorker(seed, root, perWorkerBudget, cancel, results, done)
	}

	broadcastCancel := func() {
		for i := 0; i < workers; i++ {
			select {
			case cancel <- struct{}{}:
			default:
			}
		}
	}

	remaining := workers
	for remaining > 0 {
		select {
		case <-ctx.Done():
			broadcastCancel()
			return Work{}, false, ctx.Err()
		case w, ok := <-results:
			if !ok {
				continue
			}
			broadcastCancel()
			return w, true, nil
		case <-done:
			remaining--
		}
	}
	// A worker sends its nonce before its done signal, so a nonce found by
	// the last worker to finish may still be buffered here.
	select {
	case w := <-results:
		return w, true, nil
	default:
	}
	return Work{}, false, nil
}

func searchWorker(seed uint64, root Hash32, budget uint64, cancel <-chan struct{}, results chan<- Work, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	rng := mrand.New(mrand.NewSource(int64(seed)))
	var tried uint64
	for budget == 0 || tried < budget {
		select {
		case <-cancel:
			return
		default:
		}
		var nonce Work
		binary.LittleEndian.PutUint64(nonce[:], rng.Uint64())
		if CheckWork(root, nonce) {
			select {
			case results <- nonce:
			default:
			}
			return
		}
		tried++
	}
}

// workerSeed derives a distinct PRNG seed per worker index from one shared
// source of entropy, so workers don't all explore the same candidates.
func workerSeed(index uint64) uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failure is exceptionally rare; fall back to a
		// big.Int-derived mix so the search still proceeds.
		n, _ := rand.Int(rand.Reader, big.NewInt(0).SetUint64(^uint64(0)>>1))
		if n != nil {
			return n.Uint64() ^ (index * 0x9E3779B97F4A7C15)
		}
		return index * 0x9E3779B97F4A7C15
	}
	return binary.LittleEndian.Uint64(b[:]) ^ (index * 0x9E3779B97F4A7C15)
}
