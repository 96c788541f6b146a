package zlist_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredb/corekv/zlist"
)

func TestNewEmptyBlobLen(t *testing.T) {
	l := zlist.New()
	require.Equal(t, 0, l.Len())
	require.Equal(t, 11, l.BlobLen()) // header(10) + terminator(1)
}

func TestOrderPreservationAndIntegerCoercion(t *testing.T) {
	l := zlist.New()
	l.Push(zlist.Tail, []byte("foo"))
	l.Push(zlist.Tail, []byte("quux"))
	l.Push(zlist.Head, []byte("hello"))
	l.Push(zlist.Tail, []byte("1024"))

	require.Equal(t, 4, l.Len())

	p, err := l.IndexAt(0)
	require.NoError(t, err)
	require.Equal(t, "hello", string(l.Get(p).Str))

	p, err = l.IndexAt(1)
	require.NoError(t, err)
	require.Equal(t, "foo", string(l.Get(p).Str))

	p, err = l.IndexAt(2)
	require.NoError(t, err)
	require.Equal(t, "quux", string(l.Get(p).Str))

	p, err = l.IndexAt(3)
	require.NoError(t, err)
	v := l.Get(p)
	require.True(t, v.IsInt)
	require.Equal(t, int64(1024), v.Int)
}

func TestReverseIterationDeleteEmptiesList(t *testing.T) {
	l := zlist.New()
	l.Push(zlist.Tail, []byte("foo"))
	l.Push(zlist.Tail, []byte("quux"))
	l.Push(zlist.Head, []byte("hello"))
	l.Push(zlist.Tail, []byte("1024"))

	p, err := l.IndexAt(l.Len() - 1)
	require.NoError(t, err)
	for {
		next := l.Delete(p)
		if l.Len() == 0 {
			break
		}
		p = l.Prev(next)
	}
	require.Equal(t, 0, l.Len())
	require.Equal(t, 11, l.BlobLen())
}

func TestCrossEncodingCompare(t *testing.T) {
	l := zlist.New()
	p := l.Push(zlist.Tail, []byte("1024"))
	require.True(t, l.CompareAt(p, []byte("1024")))
	require.False(t, l.CompareAt(p, []byte("1025")))
	require.True(t, l.CompareAt(p, []byte("01024")))
}

func TestPushGetRoundTrip(t *testing.T) {
	l := zlist.New()
	p := l.Push(zlist.Tail, []byte("hello world"))
	v := l.Get(p)
	require.False(t, v.IsInt)
	require.Equal(t, "hello world", string(v.Str))
}

func TestPushDeleteRestoresBlobLen(t *testing.T) {
	l := zlist.New()
	before := l.BlobLen()
	p := l.Push(zlist.Tail, []byte("X"))
	l.Delete(p)
	require.Equal(t, before, l.BlobLen())
}

func TestInsertBeforeMiddle(t *testing.T) {
	l := zlist.New()
	l.Push(zlist.Tail, []byte("a"))
	l.Push(zlist.Tail, []byte("c"))
	second, _ := l.IndexAt(1)
	l.InsertBefore(second, []byte("b"))
	require.Equal(t, 3, l.Len())
	p0, _ := l.IndexAt(0)
	p1, _ := l.IndexAt(1)
	p2, _ := l.IndexAt(2)
	require.Equal(t, "a", string(l.Get(p0).Str))
	require.Equal(t, "b", string(l.Get(p1).Str))
	require.Equal(t, "c", string(l.Get(p2).Str))
}

func TestDeleteRange(t *testing.T) {
	l := zlist.New()
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		l.Push(zlist.Tail, []byte(s))
	}
	require.NoError(t, l.DeleteRange(1, 2))
	require.Equal(t, 3, l.Len())
	var got []string
	l.Walk(true, func(_ zlist.Ptr, v zlist.Value) bool {
		got = append(got, string(v.Str))
		return true
	})
	require.Equal(t, []string{"a", "d", "e"}, got)
}

func TestIndexAtNegative(t *testing.T) {
	l := zlist.New()
	l.Push(zlist.Tail, []byte("a"))
	l.Push(zlist.Tail, []byte("b"))
	l.Push(zlist.Tail, []byte("c"))
	p, err := l.IndexAt(-1)
	require.NoError(t, err)
	require.Equal(t, "c", string(l.Get(p).Str))
}

func TestIndexAtOutOfRange(t *testing.T) {
	l := zlist.New()
	l.Push(zlist.Tail, []byte("a"))
	_, err := l.IndexAt(5)
	require.Error(t, err)
}

func TestFindWithSkip(t *testing.T) {
	l := zlist.New()
	for _, s := range []string{"x", "target", "target", "x"} {
		l.Push(zlist.Tail, []byte(s))
	}
	p0, _ := l.IndexAt(0)
	p2, _ := l.IndexAt(2)
	found := l.Find(p0, []byte("target"), 1)
	require.Equal(t, p2, found) // index 1 is skipped; index 2 is compared
	require.True(t, l.CompareAt(found, []byte("target")))
}

func TestCascadeUpdateAcross254ByteBoundary(t *testing.T) {
	l := zlist.New()
	// First entry long enough that its encoded length is >= 254, so the
	// second entry's prevLen field must be 5 bytes wide.
	big := strings.Repeat("x", 300)
	l.Push(zlist.Tail, []byte(big))
	l.Push(zlist.Tail, []byte("small"))

	p0, _ := l.IndexAt(0)
	p1, _ := l.IndexAt(1)
	require.Equal(t, big, string(l.Get(p0).Str))
	require.Equal(t, "small", string(l.Get(p1).Str))

	// Deleting the big entry leaves "small"'s enlarged prevLen field in
	// place (no shrink), but the list must still decode correctly.
	l.Delete(p0)
	require.Equal(t, 1, l.Len())
	p, _ := l.IndexAt(0)
	require.Equal(t, "small", string(l.Get(p).Str))
}

func TestStringLengthEncodingTiers(t *testing.T) {
	l := zlist.New()
	short := strings.Repeat("a", 10)
	mid := strings.Repeat("b", 1000)
	long := strings.Repeat("c", 20000)
	l.Push(zlist.Tail, []byte(short))
	l.Push(zlist.Tail, []byte(mid))
	l.Push(zlist.Tail, []byte(long))
	p0, _ := l.IndexAt(0)
	p1, _ := l.IndexAt(1)
	p2, _ := l.IndexAt(2)
	require.Equal(t, short, string(l.Get(p0).Str))
	require.Equal(t, mid, string(l.Get(p1).Str))
	require.Equal(t, long, string(l.Get(p2).Str))
}

func TestIntegerEncodingTiers(t *testing.T) {
	l := zlist.New()
	vals := []int64{5, -100, 30000, -70000, 3000000000, -9000000000000}
	for _, v := range vals {
		l.Push(zlist.Tail, []byte(itoa(v)))
	}
	for i, v := range vals {
		p, err := l.IndexAt(i)
		require.NoError(t, err)
		got := l.Get(p)
		require.True(t, got.IsInt)
		require.Equal(t, v, got.Int)
	}
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [32]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func TestNonCanonicalIntegerStringsStayStrings(t *testing.T) {
	l := zlist.New()
	p := l.Push(zlist.Tail, []byte("01024"))
	v := l.Get(p)
	require.False(t, v.IsInt)
	require.Equal(t, "01024", string(v.Str))
}
