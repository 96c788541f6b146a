package iset_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredb/corekv/cerr"
	"github.com/coredb/corekv/iset"
)

func values(s *iset.Set) []int64 {
	out := make([]int64, s.Len())
	for i := range out {
		v, err := s.GetAt(i)
		if err != nil {
			panic(err)
		}
		out[i] = v
	}
	return out
}

func TestNewIsEmptyW16(t *testing.T) {
	s := iset.New()
	require.Equal(t, 0, s.Len())
	require.Equal(t, iset.W16, s.Encoding())
}

func TestAddFindRoundTrip(t *testing.T) {
	s := iset.New()
	require.True(t, s.Add(5))
	require.True(t, s.Find(5))
	require.False(t, s.Find(6))
}

func TestAddDuplicateNoop(t *testing.T) {
	s := iset.New()
	require.True(t, s.Add(5))
	require.False(t, s.Add(5))
	require.Equal(t, 1, s.Len())
}

func TestAddMaintainsSortedOrder(t *testing.T) {
	s := iset.New()
	for _, v := range []int64{5, 1, 9, -3, 0} {
		s.Add(v)
	}
	require.Equal(t, []int64{-3, 0, 1, 5, 9}, values(s))
}

func TestRemove(t *testing.T) {
	s := iset.New()
	for _, v := range []int64{1, 2, 3} {
		s.Add(v)
	}
	require.True(t, s.Remove(2))
	require.Equal(t, []int64{1, 3}, values(s))
	require.False(t, s.Remove(2))
}

func TestWidthUpgradeOnOverflow(t *testing.T) {
	s := iset.New()
	s.Add(1)
	s.Add(-100)
	s.Add(200000)
	s.Add(4294967296)
	require.Equal(t, iset.W64, s.Encoding())
	require.Equal(t, []int64{-100, 1, 200000, 4294967296}, values(s))
	require.True(t, s.Find(200000))
	require.False(t, s.Find(200001))
}

func TestWidthNeverDowngrades(t *testing.T) {
	s := iset.New()
	s.Add(1 << 20) // forces W32
	require.Equal(t, iset.W32, s.Encoding())
	s.Remove(1 << 20)
	require.Equal(t, 0, s.Len())
	require.Equal(t, iset.W32, s.Encoding())
}

func TestUpgradePrependsWhenNewMinimum(t *testing.T) {
	s := iset.New()
	s.Add(10)
	s.Add(20)
	s.Add(-100000) // below W16 range, becomes new minimum
	require.Equal(t, iset.W32, s.Encoding())
	require.Equal(t, []int64{-100000, 10, 20}, values(s))
}

func TestUpgradeAppendsWhenNewMaximum(t *testing.T) {
	s := iset.New()
	s.Add(10)
	s.Add(20)
	s.Add(100000) // above W16 range, becomes new maximum
	require.Equal(t, iset.W32, s.Encoding())
	require.Equal(t, []int64{10, 20, 100000}, values(s))
}

func TestGetAtOutOfRange(t *testing.T) {
	s := iset.New()
	s.Add(1)
	_, err := s.GetAt(5)
	require.ErrorIs(t, err, cerr.OutOfRange)
}

func TestBlobLenMatchesEncodingAndLength(t *testing.T) {
	s := iset.New()
	for _, v := range []int64{1, 2, 3} {
		s.Add(v)
	}
	require.Equal(t, 3*s.Encoding().Width(), s.BlobLen())
}

func TestRandomUniformPick(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	s := iset.New()
	for _, v := range []int64{1, 2, 3, 4, 5} {
		s.Add(v)
	}
	for i := 0; i < 20; i++ {
		v, err := s.Random(r)
		require.NoError(t, err)
		require.True(t, s.Find(v))
	}
}

func TestRandomOnEmptySet(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	s := iset.New()
	_, err := s.Random(r)
	require.Error(t, err)
}

func TestAddManyStaysSortedAndUnique(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	s := iset.New()
	seen := map[int64]bool{}
	for i := 0; i < 500; i++ {
		v := int64(r.Intn(1000) - 500)
		if !seen[v] {
			require.True(t, s.Add(v))
			seen[v] = true
		} else {
			require.False(t, s.Add(v))
		}
	}
	got := values(s)
	for i := 1; i < len(got); i++ {
		require.Less(t, got[i-1], got[i])
	}
	require.Equal(t, len(seen), s.Len())
}
