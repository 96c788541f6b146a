package htab_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredb/corekv/htab"
)

func TestXXHashDeterministicForFixedSeed(t *testing.T) {
	htab.SetHashSeed(42)
	a := htab.XXHash([]byte("hello"))
	b := htab.XXHash([]byte("hello"))
	require.Equal(t, a, b)
}

func TestXXHashDiffersAcrossKeys(t *testing.T) {
	htab.SetHashSeed(42)
	a := htab.XXHash([]byte("hello"))
	b := htab.XXHash([]byte("world"))
	require.NotEqual(t, a, b)
}

func TestXXHashChangesWithSeed(t *testing.T) {
	htab.SetHashSeed(1)
	a := htab.XXHash([]byte("hello"))
	htab.SetHashSeed(2)
	b := htab.XXHash([]byte("hello"))
	require.NotEqual(t, a, b)
}

func TestXXHashCaseInsensitiveIgnoresCase(t *testing.T) {
	htab.SetHashSeed(7)
	a := htab.XXHashCaseInsensitive([]byte("Hello"))
	b := htab.XXHashCaseInsensitive([]byte("hello"))
	require.Equal(t, a, b)
}

func TestMurmur32Deterministic(t *testing.T) {
	htab.SetHashSeed(9)
	a := htab.Murmur32([]byte("some key"))
	b := htab.Murmur32([]byte("some key"))
	require.Equal(t, a, b)
}

func TestMurmur32DiffersAcrossKeys(t *testing.T) {
	htab.SetHashSeed(9)
	a := htab.Murmur32([]byte("foo"))
	b := htab.Murmur32([]byte("bar"))
	require.NotEqual(t, a, b)
}

func TestGetHashSeedReflectsSetHashSeed(t *testing.T) {
	htab.SetHashSeed(123456789)
	require.Equal(t, uint64(123456789), htab.GetHashSeed())
}
