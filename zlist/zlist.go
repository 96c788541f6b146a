// Package zlist implements a ziplist-style compact, byte-packed
// dual-ended sequence: a single heap blob holding heterogeneous small
// strings and integers with per-entry variable-length headers, trading
// pointer randomness for cache locality the way store/index/recordlist.go
// trades it for a flat, self-describing byte blob.
package zlist

import (
	"encoding/binary"
	"fmt"
	"strconv"

	logging "github.com/ipfs/go-log/v2"

	"github.com/coredb/corekv/cerr"
)

var log = logging.Logger("zlist")

const (
	headerSize    = 4 + 4 + 2 // totalBytes u32, tailOffset u32, count u16
	terminatorLen = 1
	terminator    = 0xFF
	countSaturate = 0xFFFF
)

// typeLen first-byte kind discriminants, per the wire format.
const (
	tlStr14Tag = 0x40 // 01xxxxxx yyyyyyyy, 14-bit big-endian length
	tlStr32Tag = 0x80 // exactly 10000000, 32-bit big-endian length follows
	tlInt16    = 0xC0
	tlInt32    = 0xD0
	tlInt64    = 0xE0
	tlInt24    = 0xF0
	tlInt8     = 0xFE
	tlImm4Lo   = 0xF1 // imm4 values occupy 0xF1..0xFD (xxxx in [0001,1101])
	tlImm4Hi   = 0xFD
	maxStr6    = 0x3F
	maxStr14   = 0x3FFF
)

// List is a single owned byte blob implementing the ziplist layout.
// Entry positions (Ptr) are byte offsets into the blob and are not
// stable across mutations; callers must re-derive a Ptr from the
// returned blob plus a saved offset after any mutating call.
type List struct {
	blob []byte
}

// Ptr is a byte offset into a List's blob. PtrEnd refers to the
// terminator (the position logically "after" the last entry).
type Ptr int

// New returns an empty zlist: header plus a bare terminator byte.
func New() *List {
	l := &List{blob: make([]byte, headerSize+terminatorLen)}
	l.setTotalBytes(uint32(len(l.blob)))
	l.setTailOffset(uint32(headerSize))
	l.setRawCount(0)
	l.blob[headerSize] = terminator
	return l
}

func (l *List) totalBytes() uint32     { return binary.LittleEndian.Uint32(l.blob[0:]) }
func (l *List) setTotalBytes(v uint32) { binary.LittleEndian.PutUint32(l.blob[0:], v) }
func (l *List) tailOffset() uint32     { return binary.LittleEndian.Uint32(l.blob[4:]) }
func (l *List) setTailOffset(v uint32) { binary.LittleEndian.PutUint32(l.blob[4:], v) }
func (l *List) rawCount() uint16       { return binary.LittleEndian.Uint16(l.blob[8:]) }
func (l *List) setRawCount(v uint16)   { binary.LittleEndian.PutUint16(l.blob[8:], v) }

// BlobLen returns the byte length of the backing allocation.
func (l *List) BlobLen() int { return len(l.blob) }

// PtrEnd is the terminator position, always totalBytes-1.
func (l *List) PtrEnd() Ptr { return Ptr(l.totalBytes() - 1) }

func (l *List) isEnd(p Ptr) bool { return int(p) >= len(l.blob)-1 }

func (l *List) firstPtr() Ptr { return Ptr(headerSize) }

func (l *List) lastPtr() Ptr {
	if l.rawCount() == 0 {
		return l.PtrEnd()
	}
	return Ptr(l.tailOffset())
}

// --- prevLen encode/decode ---

func prevLenSize(prevEntryLen int) int {
	if prevEntryLen < 254 {
		return 1
	}
	return 5
}

func readPrevLen(b []byte) (value int, size int) {
	if b[0] != 0xFE {
		return int(b[0]), 1
	}
	return int(binary.LittleEndian.Uint32(b[1:])), 5
}

func writePrevLen(dst []byte, prevEntryLen int) int {
	if prevEntryLen < 254 {
		dst[0] = byte(prevEntryLen)
		return 1
	}
	dst[0] = 0xFE
	binary.LittleEndian.PutUint32(dst[1:], uint32(prevEntryLen))
	return 5
}

// --- entry decode ---

type kind int

const (
	kindStr kind = iota
	kindInt
)

type decodedEntry struct {
	prevLen       int
	prevLenSize   int
	totalEntryLen int
	kind          kind
	str           []byte
	intVal        int64
}

func decodeInt24(b []byte) int64 {
	v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if v&0x800000 != 0 {
		v |= -1 << 24
	}
	return int64(v)
}

func encodeInt24(dst []byte, v int64) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
}

// decodeAt decodes the entry at byte offset p. p must not be the
// terminator.
func (l *List) decodeAt(p Ptr) decodedEntry {
	b := l.blob[p:]
	prevLen, plSize := readPrevLen(b)
	tb := b[plSize]

	d := decodedEntry{prevLen: prevLen, prevLenSize: plSize}

	switch {
	case tb&0xC0 == 0x00: // string <=63
		n := int(tb & 0x3F)
		d.kind = kindStr
		d.str = b[plSize+1 : plSize+1+n]
		d.totalEntryLen = plSize + 1 + n
	case tb&0xC0 == tlStr14Tag: // string <=16383
		n := (int(tb&0x3F) << 8) | int(b[plSize+1])
		d.kind = kindStr
		d.str = b[plSize+2 : plSize+2+n]
		d.totalEntryLen = plSize + 2 + n
	case tb == tlStr32Tag: // string >=16384
		n := int(binary.BigEndian.Uint32(b[plSize+1 : plSize+5]))
		d.kind = kindStr
		d.str = b[plSize+5 : plSize+5+n]
		d.totalEntryLen = plSize + 5 + n
	case tb == tlInt16:
		d.kind = kindInt
		d.intVal = int64(int16(binary.LittleEndian.Uint16(b[plSize+1:])))
		d.totalEntryLen = plSize + 1 + 2
	case tb == tlInt32:
		d.kind = kindInt
		d.intVal = int64(int32(binary.LittleEndian.Uint32(b[plSize+1:])))
		d.totalEntryLen = plSize + 1 + 4
	case tb == tlInt64:
		d.kind = kindInt
		d.intVal = int64(binary.LittleEndian.Uint64(b[plSize+1:]))
		d.totalEntryLen = plSize + 1 + 8
	case tb == tlInt24:
		d.kind = kindInt
		d.intVal = decodeInt24(b[plSize+1 : plSize+4])
		d.totalEntryLen = plSize + 1 + 3
	case tb == tlInt8:
		d.kind = kindInt
		d.intVal = int64(int8(b[plSize+1]))
		d.totalEntryLen = plSize + 1 + 1
	case tb >= tlImm4Lo && tb <= tlImm4Hi:
		d.kind = kindInt
		d.intVal = int64(tb&0x0F) - 1
		d.totalEntryLen = plSize + 1
	default:
		panic(fmt.Sprintf("zlist: corrupt typeLen byte 0x%02x at offset %d", tb, p))
	}
	return d
}

func (l *List) entryTotalLenAt(p Ptr) int { return l.decodeAt(p).totalEntryLen }

func (l *List) nextPtr(p Ptr) Ptr { return p + Ptr(l.entryTotalLenAt(p)) }

func (l *List) prevPtr(p Ptr) Ptr {
	d := l.decodeAt(p)
	return p - Ptr(d.prevLen)
}

// --- value encode ---

type encodedEntry struct {
	headerAndPayload []byte
}

func encodeValue(b []byte) encodedEntry {
	if iv, ok := parseIntForInsert(b); ok {
		return encodeInt(iv)
	}
	return encodeString(b)
}

func encodeString(b []byte) encodedEntry {
	n := len(b)
	switch {
	case n <= maxStr6:
		out := make([]byte, 1+n)
		out[0] = byte(n)
		copy(out[1:], b)
		return encodedEntry{out}
	case n <= maxStr14:
		out := make([]byte, 2+n)
		out[0] = tlStr14Tag | byte(n>>8)
		out[1] = byte(n)
		copy(out[2:], b)
		return encodedEntry{out}
	default:
		out := make([]byte, 5+n)
		out[0] = tlStr32Tag
		binary.BigEndian.PutUint32(out[1:5], uint32(n))
		copy(out[5:], b)
		return encodedEntry{out}
	}
}

func encodeInt(v int64) encodedEntry {
	switch {
	case v >= 0 && v <= 12:
		return encodedEntry{[]byte{0xF0 | byte(v+1)}}
	case v >= -1<<7 && v <= 1<<7-1:
		return encodedEntry{[]byte{tlInt8, byte(v)}}
	case v >= -1<<15 && v <= 1<<15-1:
		out := make([]byte, 3)
		out[0] = tlInt16
		binary.LittleEndian.PutUint16(out[1:], uint16(v))
		return encodedEntry{out}
	case v >= -1<<23 && v <= 1<<23-1:
		out := make([]byte, 4)
		out[0] = tlInt24
		encodeInt24(out[1:], v)
		return encodedEntry{out}
	case v >= -1<<31 && v <= 1<<31-1:
		out := make([]byte, 5)
		out[0] = tlInt32
		binary.LittleEndian.PutUint32(out[1:], uint32(v))
		return encodedEntry{out}
	default:
		out := make([]byte, 9)
		out[0] = tlInt64
		binary.LittleEndian.PutUint64(out[1:], uint64(v))
		return encodedEntry{out}
	}
}

// parseIntForInsert parses b as a canonical signed decimal integer,
// rejecting length 0 or >=32 and any non-canonical spelling (leading
// zeros, a leading '+', "-0", ...), matching zlist's integer-coercion-
// on-insert rule: only values that round-trip exactly are coerced.
func parseIntForInsert(b []byte) (int64, bool) {
	if len(b) == 0 || len(b) >= 32 {
		return 0, false
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, false
	}
	if strconv.FormatInt(v, 10) != string(b) {
		return 0, false
	}
	return v, true
}

// parseIntForCompare parses b leniently for CompareAt/Find, where the
// caller only cares about numeric equivalence, not canonical spelling.
func parseIntForCompare(b []byte) (int64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Value is the decoded contents of an entry: either a byte string or an
// integer, discriminated by IsInt.
type Value struct {
	IsInt bool
	Str   []byte
	Int   int64
}

// Len returns the number of entries, walking the blob if count has
// saturated at 0xFFFF.
func (l *List) Len() int {
	if l.rawCount() < countSaturate {
		return int(l.rawCount())
	}
	n := 0
	for p := l.firstPtr(); !l.isEnd(p); p = l.nextPtr(p) {
		n++
	}
	return n
}

// Next returns the entry following p, or PtrEnd() if p was the last
// entry (or already the terminator).
func (l *List) Next(p Ptr) Ptr {
	if l.isEnd(p) {
		return p
	}
	return l.nextPtr(p)
}

// Prev returns the entry preceding p. If p is the terminator, returns
// the last entry (or the terminator itself if the list is empty). If p
// is the first entry, returns p itself.
func (l *List) Prev(p Ptr) Ptr {
	if l.isEnd(p) {
		return l.lastPtr()
	}
	if p == l.firstPtr() {
		return p
	}
	return l.prevPtr(p)
}

// Get decodes the entry at p.
func (l *List) Get(p Ptr) Value {
	d := l.decodeAt(p)
	if d.kind == kindInt {
		return Value{IsInt: true, Int: d.intVal}
	}
	return Value{Str: d.str}
}

// IndexAt returns the pointer of the entry at position i (0-based from
// head); negative i counts from the tail. Returns cerr.NotFound if out
// of range.
func (l *List) IndexAt(i int) (Ptr, error) {
	n := l.Len()
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, cerr.NotFound
	}
	p := l.firstPtr()
	for ; i > 0; i-- {
		p = l.nextPtr(p)
	}
	return p, nil
}

// CompareAt reports whether the entry at p is semantically equal to b:
// byte-for-byte for string entries, or numerically (parsing b as an
// integer of any width) for integer entries, since two encoders may
// pick different widths for the same value.
func (l *List) CompareAt(p Ptr, b []byte) bool {
	d := l.decodeAt(p)
	if d.kind == kindStr {
		return bytesEqual(d.str, b)
	}
	v, ok := parseIntForCompare(b)
	if !ok {
		return false
	}
	return v == d.intVal
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Find performs a linear search starting at p, comparing every
// (skip+1)th entry against b, and returns the matching pointer or
// PtrEnd() if none matched.
func (l *List) Find(p Ptr, b []byte, skip int) Ptr {
	count := 0
	for !l.isEnd(p) {
		if count == 0 {
			if l.CompareAt(p, b) {
				return p
			}
			count = skip
		} else {
			count--
		}
		p = l.nextPtr(p)
	}
	return p
}

// Walk invokes fn for every entry, forward from head or backward from
// tail, stopping early if fn returns false.
func (l *List) Walk(forward bool, fn func(p Ptr, v Value) bool) {
	if l.Len() == 0 {
		return
	}
	if forward {
		for p := l.firstPtr(); !l.isEnd(p); p = l.nextPtr(p) {
			if !fn(p, l.Get(p)) {
				return
			}
		}
		return
	}
	for p := l.lastPtr(); ; p = l.prevPtr(p) {
		if !fn(p, l.Get(p)) {
			return
		}
		if p == l.firstPtr() {
			return
		}
	}
}

// End selects which end of the list Push inserts at.
type End int

const (
	Head End = iota
	Tail
)

// Push inserts bytes at the head or tail of the list and returns the
// pointer to the new entry.
func (l *List) Push(end End, bytes []byte) Ptr {
	var p Ptr
	if end == Head {
		p = l.firstPtr()
	} else {
		p = l.PtrEnd()
	}
	return l.InsertBefore(p, bytes)
}

func (l *List) incrCount() {
	if c := l.rawCount(); c < countSaturate {
		l.setRawCount(c + 1)
	}
}

func (l *List) decrCount(n int) {
	c := int(l.rawCount())
	if c >= countSaturate {
		return // saturated; true count requires a walk, leave it pinned
	}
	c -= n
	if c < 0 {
		c = 0
	}
	l.setRawCount(uint16(c))
}

// replaceRegion replaces l.blob[start:end] with newRegion, growing or
// shrinking the blob as needed, and adjusts totalBytes/tailOffset for
// every entry whose absolute position shifts as a result (anything at
// or after end). Entries before start, and the replaced span itself,
// are the caller's responsibility to reconcile.
func (l *List) replaceRegion(start, end Ptr, newRegion []byte) {
	delta := len(newRegion) - int(end-start)
	newTotal := len(l.blob) + delta
	out := make([]byte, newTotal)
	copy(out, l.blob[:start])
	copy(out[start:], newRegion)
	copy(out[int(start)+len(newRegion):], l.blob[end:])
	l.blob = out
	l.setTotalBytes(uint32(newTotal))
	if Ptr(l.tailOffset()) >= end {
		l.setTailOffset(uint32(int(l.tailOffset()) + delta))
	}
}

// fixupPrevLen ensures the entry at pos has a prevLen field encoding
// requiredVal, growing the field from 1 to 5 bytes if necessary (never
// shrinking an existing 5-byte field back to 1, which prevents
// oscillation under alternating insert/delete at the 254-byte
// boundary), and recurses into pos's successor when growth changes
// pos's own total length.
func (l *List) fixupPrevLen(pos Ptr, requiredVal int) {
	hops := 0
	for {
		if l.isEnd(pos) {
			return
		}
		hops++
		if hops == 4 {
			log.Warnw("prevLen cascade update spanning several entries", "startLen", requiredVal)
		}
		d := l.decodeAt(pos)
		curField := d.prevLenSize
		requiredField := prevLenSize(requiredVal)

		if curField == 5 {
			// A field already laid out as 5 bytes is never shrunk back to
			// 1, even if requiredVal would now fit: the entry's total
			// length already accounts for the wide field, so writing the
			// narrow form here would desync prevLenSize from the entry's
			// physical layout.
			l.blob[pos] = 0xFE
			binary.LittleEndian.PutUint32(l.blob[pos+1:], uint32(requiredVal))
			return
		}
		if requiredField <= curField {
			writePrevLen(l.blob[pos:], requiredVal)
			return
		}

		// curField == 1, requiredField == 5: the field must grow by 4
		// bytes. Rebuild the entry with the same header+payload but a
		// wide prevLen field, which shifts everything after it by 4.
		rest := append([]byte(nil), l.blob[int(pos)+curField:int(pos)+d.totalEntryLen]...)
		newEntry := make([]byte, 5+len(rest))
		writePrevLen(newEntry, requiredVal)
		copy(newEntry[5:], rest)

		oldEnd := pos + Ptr(d.totalEntryLen)
		l.replaceRegion(pos, oldEnd, newEntry)

		next := pos + Ptr(len(newEntry))
		pos = next
		requiredVal = len(newEntry)
	}
}

// InsertBefore inserts bytes immediately before p (which may be
// PtrEnd()), following the insert algorithm of spec section 4.4, and
// returns the pointer to the newly inserted entry.
func (l *List) InsertBefore(p Ptr, bytes []byte) Ptr {
	enc := encodeValue(bytes)
	atEnd := l.isEnd(p)

	var prevVal int
	if atEnd {
		if l.rawCount() != 0 {
			prevVal = l.entryTotalLenAt(l.lastPtr())
		}
	} else {
		prevVal, _ = readPrevLen(l.blob[p:])
	}

	plSize := prevLenSize(prevVal)
	newEntry := make([]byte, plSize+len(enc.headerAndPayload))
	writePrevLen(newEntry, prevVal)
	copy(newEntry[plSize:], enc.headerAndPayload)

	l.replaceRegion(p, p, newEntry)

	if atEnd {
		l.setTailOffset(uint32(p))
	} else {
		l.fixupPrevLen(p+Ptr(len(newEntry)), len(newEntry))
	}

	l.incrCount()
	return p
}

// Delete removes the single entry at p, returning the pointer to the
// entry that now occupies p's former slot (p's old successor, or
// PtrEnd() if p was the last entry).
func (l *List) Delete(p Ptr) Ptr {
	return l.deleteRun(p, l.nextPtr(p), 1)
}

// DeleteRange removes n entries starting at the entry with index i,
// clamping n to the number of entries actually available from i.
func (l *List) DeleteRange(i, n int) error {
	p, err := l.IndexAt(i)
	if err != nil {
		return err
	}
	resolved := i
	if resolved < 0 {
		resolved += l.Len()
	}
	if avail := l.Len() - resolved; n > avail {
		n = avail
	}
	q := p
	for k := 0; k < n; k++ {
		q = l.nextPtr(q)
	}
	l.deleteRun(p, q, n)
	return nil
}

// deleteRun removes the contiguous run of n entries [p, q).
func (l *List) deleteRun(p, q Ptr, n int) Ptr {
	predLen, _ := readPrevLen(l.blob[p:])

	if l.isEnd(q) {
		l.replaceRegion(p, q, nil)
		if p == l.firstPtr() {
			l.setTailOffset(uint32(p))
		} else {
			l.setTailOffset(uint32(p - Ptr(predLen)))
		}
		l.decrCount(n)
		return l.PtrEnd()
	}

	l.replaceRegion(p, q, nil)
	l.fixupPrevLen(p, predLen)
	l.decrCount(n)
	return p
}
