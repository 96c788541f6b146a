// Package iset implements a contiguous, sorted, duplicate-free sequence
// of signed integers with an adaptive element width, trading pointer
// indirection for cache locality the way Redis's intset.c does.
package iset

import (
	"encoding/binary"
	"errors"
	"math/rand"
	"sort"

	"github.com/coredb/corekv/cerr"
)

// Encoding is the element width currently used by a Set's backing blob.
type Encoding uint8

const (
	W16 Encoding = iota
	W32
	W64
)

// Width returns the byte width of the encoding.
func (e Encoding) Width() int {
	switch e {
	case W16:
		return 2
	case W32:
		return 4
	default:
		return 8
	}
}

// encodingFor returns the smallest encoding that can represent v.
func encodingFor(v int64) Encoding {
	switch {
	case v >= -1<<15 && v <= 1<<15-1:
		return W16
	case v >= -1<<31 && v <= 1<<31-1:
		return W32
	default:
		return W64
	}
}

// Set is a sorted, duplicate-free set of int64 values stored as a flat
// byte blob with an adaptive element width.
type Set struct {
	encoding Encoding
	data     []byte // length elements, each encoding.Width() bytes, little-endian
}

// New returns an empty Set with initial encoding W16.
func New() *Set {
	return &Set{encoding: W16}
}

// Len returns the number of elements.
func (s *Set) Len() int {
	return len(s.data) / s.encoding.Width()
}

// BlobLen returns the byte length of the backing allocation.
func (s *Set) BlobLen() int {
	return len(s.data)
}

// Encoding reports the set's current element width.
func (s *Set) Encoding() Encoding {
	return s.encoding
}

func (s *Set) get(i int, enc Encoding) int64 {
	w := enc.Width()
	off := i * w
	switch enc {
	case W16:
		return int64(int16(binary.LittleEndian.Uint16(s.data[off:])))
	case W32:
		return int64(int32(binary.LittleEndian.Uint32(s.data[off:])))
	default:
		return int64(binary.LittleEndian.Uint64(s.data[off:]))
	}
}

func put(dst []byte, enc Encoding, v int64) {
	switch enc {
	case W16:
		binary.LittleEndian.PutUint16(dst, uint16(int16(v)))
	case W32:
		binary.LittleEndian.PutUint32(dst, uint32(int32(v)))
	default:
		binary.LittleEndian.PutUint64(dst, uint64(v))
	}
}

// search returns (index, found) for v within the current encoding,
// using a strictly-ascending binary search.
func (s *Set) search(v int64) (int, bool) {
	n := s.Len()
	enc := s.encoding
	idx := sort.Search(n, func(i int) bool {
		return s.get(i, enc) >= v
	})
	if idx < n && s.get(idx, enc) == v {
		return idx, true
	}
	return idx, false
}

// Add inserts v. It reports success=false, without mutating the set, if
// v is already present.
//
// When v requires a wider encoding than the set currently uses, every
// existing element is re-expanded, from the highest index to the
// lowest, into a newly allocated buffer of the new width; v is then
// always the new minimum or maximum by construction and is written
// directly at the corresponding end.
func (s *Set) Add(v int64) (success bool) {
	need := encodingFor(v)
	if need > s.encoding {
		s.upgrade(need, v)
		return true
	}
	idx, found := s.search(v)
	if found {
		return false
	}
	w := s.encoding.Width()
	n := s.Len()
	grown := make([]byte, (n+1)*w)
	copy(grown, s.data[:idx*w])
	copy(grown[(idx+1)*w:], s.data[idx*w:])
	put(grown[idx*w:], s.encoding, v)
	s.data = grown
	return true
}

// upgrade widens the set's encoding to need, re-expanding every element
// high-to-low, then inserts v at whichever end it belongs by
// construction (v lies strictly outside the current width's range).
func (s *Set) upgrade(need Encoding, v int64) {
	old := s.encoding
	n := s.Len()
	newW := need.Width()
	grown := make([]byte, (n+1)*newW)

	prepend := v < 0
	var destStart int
	if prepend {
		destStart = 1
	} else {
		destStart = 0
	}
	for i := n - 1; i >= 0; i-- {
		val := s.get(i, old)
		put(grown[(destStart+i)*newW:], need, val)
	}
	if prepend {
		put(grown[:newW], need, v)
	} else {
		put(grown[n*newW:], need, v)
	}
	s.encoding = need
	s.data = grown
}

// Remove deletes v if present. Width is never downgraded.
func (s *Set) Remove(v int64) (success bool) {
	idx, found := s.search(v)
	if !found {
		return false
	}
	w := s.encoding.Width()
	n := s.Len()
	shrunk := make([]byte, (n-1)*w)
	copy(shrunk, s.data[:idx*w])
	copy(shrunk[idx*w:], s.data[(idx+1)*w:])
	s.data = shrunk
	return true
}

// Find reports whether v is present. O(log n); O(1) when v falls
// outside the current encoding's representable range.
func (s *Set) Find(v int64) bool {
	if encodingFor(v) > s.encoding {
		return false
	}
	_, found := s.search(v)
	return found
}

// Random returns a uniformly-picked element. Returns an error if the set
// is empty.
func (s *Set) Random(r *rand.Rand) (int64, error) {
	n := s.Len()
	if n == 0 {
		return 0, errors.New("iset: empty set")
	}
	i := r.Intn(n)
	return s.get(i, s.encoding), nil
}

// GetAt loads the element at index i. Returns cerr.OutOfRange if i is
// out of bounds.
func (s *Set) GetAt(i int) (int64, error) {
	if i < 0 || i >= s.Len() {
		return 0, cerr.OutOfRange
	}
	return s.get(i, s.encoding), nil
}
