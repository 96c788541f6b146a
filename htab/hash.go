package htab

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// hashSeed is the only process-wide global state the core carries. It
// must be initialized before any Dict is created for results to be
// reproducible; SetHashSeed gives callers that control, with a
// crypto/rand-derived default so an uninitialized process is still
// collision-resistant by default.
var hashSeed uint64

func init() {
	var b [8]byte
	if _, err := rand.Read(b[:]); err == nil {
		hashSeed = binary.LittleEndian.Uint64(b[:])
	} else {
		hashSeed = 0x9E3779B97F4A7C15
	}
}

// SetHashSeed sets the process-global hash seed used by XXHash and
// Murmur32. Must be called before any Dict is created; tests that need
// determinism should fix the seed first.
func SetHashSeed(seed uint64) {
	hashSeed = seed
}

// GetHashSeed returns the current process-global hash seed.
func GetHashSeed() uint64 {
	return hashSeed
}

// Hasher computes a hash for a key, typically salted by the
// process-global hash seed.
type Hasher func(key interface{}) uint32

// Comparator reports whether two keys are equal.
type Comparator func(a, b interface{}) bool

func keyBytes(key interface{}) []byte {
	switch k := key.(type) {
	case []byte:
		return k
	case string:
		return []byte(k)
	default:
		panic("htab: default hash functions require a []byte or string key")
	}
}

// hashUint64 is a 64-bit avalanche finalizer (Murmur3-style fmix64),
// grounded on compactindexsized/compactindex.go's hashUint64.
func hashUint64(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

// XXHash is the default Hasher: xxHash64 over the seed followed by the
// key bytes, folded to 32 bits through hashUint64's avalanche mixer.
func XXHash(key interface{}) uint32 {
	d := xxhash.New()
	var seedBuf [8]byte
	binary.LittleEndian.PutUint64(seedBuf[:], hashSeed)
	d.Write(seedBuf[:])
	d.Write(keyBytes(key))
	return uint32(hashUint64(d.Sum64()))
}

// XXHashCaseInsensitive is XXHash for text keys that should compare
// equal regardless of case: the key is ASCII-folded to lowercase before
// hashing, so it agrees with a case-insensitive Comparator.
func XXHashCaseInsensitive(key interface{}) uint32 {
	b := keyBytes(key)
	lower := make([]byte, len(b))
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		lower[i] = c
	}
	return XXHash(lower)
}

// Murmur32 is a seeded 32-bit Murmur2-style mixer, provided because the
// spec names a "MurmurHash-family 32-bit variant" explicitly alongside
// the xxHash-based default.
func Murmur32(key interface{}) uint32 {
	b := keyBytes(key)
	const m = 0x5bd1e995
	const r = 24
	h := uint32(hashSeed) ^ uint32(len(b))
	for len(b) >= 4 {
		k := binary.LittleEndian.Uint32(b)
		k *= m
		k ^= k >> r
		k *= m
		h *= m
		h ^= k
		b = b[4:]
	}
	switch len(b) {
	case 3:
		h ^= uint32(b[2]) << 16
		fallthrough
	case 2:
		h ^= uint32(b[1]) << 8
		fallthrough
	case 1:
		h ^= uint32(b[0])
		h *= m
	}
	h ^= h >> 13
	h *= m
	h ^= h >> 15
	return h
}
