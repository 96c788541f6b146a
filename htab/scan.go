package htab

// Scan performs one step of a cursor-based, allocation-free traversal
// that tolerates concurrent inserts and deletes: a key present for the
// entire scan is guaranteed to be visited at least once, and a key
// present for none of it is guaranteed never to be visited (a key
// inserted or deleted mid-scan may or may not be seen). Pass cursor 0
// to start; a returned cursor of 0 means the scan is complete.
//
// The algorithm is Redis's dictScan: successive cursors are produced by
// a reverse-binary increment, which visits every value in [0, mask]
// exactly once while the mask stays fixed. When the mask changes between
// calls the scan still terminates and skips no bucket a stable key could
// be in, but buckets already covered may be visited again, so a key can
// be reported more than once.
func (d *Dict) Scan(cursor uint64, fn func(key interface{}, value Value)) uint64 {
	if !d.rehashing() {
		tbl := &d.t[0]
		m := tbl.mask
		emit(tbl, cursor&m, fn)
		next := reverseBinaryIncrement(cursor, m)
		if next == 0 && cursor != 0 {
			log.Debugw("scan cursor wrapped to completion", "mask", m)
		}
		return next
	}

	small, big := &d.t[0], &d.t[1]
	if small.size > big.size {
		small, big = big, small
	}
	sm, bm := small.mask, big.mask

	emit(small, cursor&sm, fn)
	v := cursor
	for {
		emit(big, v&bm, fn)
		v = reverseBinaryIncrement(v, bm)
		if v&(sm^bm) == 0 {
			break
		}
	}
	return v
}

func emit(tbl *table, idx uint64, fn func(key interface{}, value Value)) {
	for e := tbl.buckets[idx]; e != nil; e = e.next {
		fn(e.key, e.value)
	}
}

func reverseBinaryIncrement(cursor, mask uint64) uint64 {
	cursor |= ^mask
	cursor = reverseBits(cursor)
	cursor++
	cursor = reverseBits(cursor)
	return cursor
}

func reverseBits(x uint64) uint64 {
	var r uint64
	for i := 0; i < 64; i++ {
		r = (r << 1) | (x & 1)
		x >>= 1
	}
	return r
}
