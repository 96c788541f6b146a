// Package htab implements an incrementally-rehashed chained hash table
// in the style of Redis's dict.c: two sub-tables, a bounded per-step
// rehash walk driven by every mutating call, and growth/shrink policies
// that keep load factor bounded without ever pausing on a full rehash.
package htab

import (
	"math/rand"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/coredb/corekv/cerr"
)

var log = logging.Logger("htab")

const (
	initialSize          = 4
	forceRatio           = 5
	stepEmptyLimitFactor = 10
)

// ValueKind discriminates the payload carried by a Value.
type ValueKind int

const (
	ValPtr ValueKind = iota
	ValInt
	ValUint
	ValFloat
)

// Value is a small tagged union, avoiding a boxed interface{} for the
// common cases of storing a counter or pointer alongside a key.
type Value struct {
	Kind  ValueKind
	Ptr   interface{}
	Int   int64
	Uint  uint64
	Float float64
}

func PtrValue(v interface{}) Value { return Value{Kind: ValPtr, Ptr: v} }
func IntValue(v int64) Value       { return Value{Kind: ValInt, Int: v} }
func UintValue(v uint64) Value     { return Value{Kind: ValUint, Uint: v} }
func FloatValue(v float64) Value   { return Value{Kind: ValFloat, Float: v} }

type entry struct {
	key   interface{}
	value Value
	next  *entry
}

type table struct {
	buckets []*entry
	size    int
	mask    uint64
	used    int
}

func newTable(size int) table {
	return table{buckets: make([]*entry, size), size: size, mask: uint64(size - 1)}
}

// Dict is a chained hash table rehashed incrementally across two
// sub-tables, T[0] and T[1]. Every mutating call advances the rehash by
// one step; RehashFor lets a caller donate a larger, time-bounded slice
// of work (e.g. from an idle loop).
type Dict struct {
	t           [2]table
	rehashIndex int // -1 when not rehashing

	hash       Hasher
	keyCompare Comparator

	keyDup        func(interface{}) interface{}
	valDup        func(Value) Value
	keyDestructor func(interface{})
	valDestructor func(Value)

	iterators      int
	resizeDisabled bool
}

// Option configures optional hooks on a Dict at construction time.
type Option func(*Dict)

// WithKeyDup sets a hook invoked to duplicate a key before it is stored,
// mirroring dict.c's dictType.keyDup.
func WithKeyDup(fn func(interface{}) interface{}) Option { return func(d *Dict) { d.keyDup = fn } }

// WithValDup sets a hook invoked to duplicate a value before it is
// stored.
func WithValDup(fn func(Value) Value) Option { return func(d *Dict) { d.valDup = fn } }

// WithKeyDestructor sets a hook invoked when a key is evicted by Delete.
func WithKeyDestructor(fn func(interface{})) Option {
	return func(d *Dict) { d.keyDestructor = fn }
}

// WithValDestructor sets a hook invoked when a value is evicted by
// Delete or overwritten by Replace.
func WithValDestructor(fn func(Value)) Option {
	return func(d *Dict) { d.valDestructor = fn }
}

// New returns an empty Dict using hash and keyCompare as the hash
// function and key-equality comparator.
func New(hash Hasher, keyCompare Comparator, opts ...Option) *Dict {
	d := &Dict{
		rehashIndex: -1,
		hash:        hash,
		keyCompare:  keyCompare,
	}
	d.t[0] = newTable(initialSize)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func nextPow2(n int) int {
	if n < 1 {
		n = 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (d *Dict) rehashing() bool { return d.rehashIndex >= 0 }

// Used returns the total number of stored keys.
func (d *Dict) Used() int {
	u := d.t[0].used
	if d.rehashing() {
		u += d.t[1].used
	}
	return u
}

// resize begins a rehash into a table sized to the smallest power of
// two that is at least max(reqSize, initialSize). If the dict is
// currently empty the new table is installed directly, with no rehash
// walk needed.
func (d *Dict) resize(reqSize int) error {
	if reqSize < d.t[0].used {
		return cerr.IllegalArgument
	}
	size := nextPow2(max(reqSize, initialSize))
	if d.t[0].size == size {
		return nil
	}
	if d.t[0].used == 0 {
		d.t[0] = newTable(size)
		d.rehashIndex = -1
		return nil
	}
	d.t[1] = newTable(size)
	d.rehashIndex = 0
	return nil
}

// DisableResize prevents automatic growth from exceeding load factor 1
// except under forceRatio pressure, and blocks ResizeToMinimal
// entirely. Mirrors dict.c's dictSetResizeEnabled(0), used while a
// forking snapshot is in flight elsewhere in a store.
func (d *Dict) DisableResize() { d.resizeDisabled = true }

// EnableResize re-enables automatic growth and ResizeToMinimal.
func (d *Dict) EnableResize() { d.resizeDisabled = false }

// ResizeToMinimal shrinks T[0] to the smallest power of two that still
// fits its current contents, if it is currently underfull and resizing
// is enabled. A no-op (not an error) if the table is already minimal.
func (d *Dict) ResizeToMinimal() error {
	if d.resizeDisabled {
		return cerr.IllegalArgument
	}
	if d.rehashing() {
		return nil
	}
	if d.t[0].used >= d.t[0].size/10 {
		return nil
	}
	return d.resize(max(d.t[0].used, initialSize))
}

func (d *Dict) maybeExpand() {
	if d.rehashing() {
		return
	}
	if d.t[0].used < d.t[0].size {
		return
	}
	if !d.resizeDisabled || d.t[0].used/d.t[0].size >= forceRatio {
		d.resize(d.t[0].used + 1)
	}
}

// stepRehash advances the rehash walk by up to steps buckets, pausing
// immediately if a safe iterator is active.
func (d *Dict) stepRehash(steps int) {
	for ; steps > 0; steps-- {
		if !d.rehashing() || d.iterators > 0 {
			return
		}
		d.doOneStep()
	}
}

func (d *Dict) doOneStep() {
	if d.t[0].used == 0 {
		d.finishRehash()
		return
	}
	limit := stepEmptyLimitFactor
	empty := 0
	for d.t[0].buckets[d.rehashIndex] == nil {
		d.rehashIndex++
		empty++
		if empty >= limit {
			log.Warnw("rehash step hit empty-bucket limit, deferring remaining work", "index", d.rehashIndex, "size", d.t[0].size)
			return
		}
		if d.rehashIndex >= d.t[0].size {
			return
		}
	}
	e := d.t[0].buckets[d.rehashIndex]
	for e != nil {
		next := e.next
		idx := uint64(d.hash(e.key)) & d.t[1].mask
		e.next = d.t[1].buckets[idx]
		d.t[1].buckets[idx] = e
		d.t[0].used--
		d.t[1].used++
		e = next
	}
	d.t[0].buckets[d.rehashIndex] = nil
	d.rehashIndex++
	if d.t[0].used == 0 {
		d.finishRehash()
	}
}

func (d *Dict) finishRehash() {
	d.t[0] = d.t[1]
	d.t[1] = table{}
	d.rehashIndex = -1
}

// RehashFor runs rehash steps in batches of 100 buckets, checking the
// wall clock between batches, until either the rehash completes or
// budget elapses. Intended to be called from an idle loop to finish a
// rehash faster than the trickle of per-operation single steps would.
func (d *Dict) RehashFor(budget time.Duration) {
	deadline := time.Now().Add(budget)
	for d.rehashing() {
		d.stepRehash(100)
		if time.Now().After(deadline) {
			return
		}
	}
}

func (d *Dict) find(key interface{}) *entry {
	if d.t[0].size == 0 {
		return nil
	}
	h := uint64(d.hash(key))
	for e := d.t[0].buckets[h&d.t[0].mask]; e != nil; e = e.next {
		if d.keyCompare(e.key, key) {
			return e
		}
	}
	if d.rehashing() {
		for e := d.t[1].buckets[h&d.t[1].mask]; e != nil; e = e.next {
			if d.keyCompare(e.key, key) {
				return e
			}
		}
	}
	return nil
}

// Find looks up key, reporting its value and whether it was present.
func (d *Dict) Find(key interface{}) (Value, bool) {
	e := d.find(key)
	if e == nil {
		return Value{}, false
	}
	return e.value, true
}

// addRaw inserts an empty-valued entry for key, returning
// cerr.AlreadyExists if key is already present.
func (d *Dict) addRaw(key interface{}) (*entry, error) {
	d.stepRehash(1)
	if d.find(key) != nil {
		return nil, cerr.AlreadyExists
	}
	d.maybeExpand()
	var target *table
	if d.rehashing() {
		target = &d.t[1]
	} else {
		target = &d.t[0]
	}
	k := key
	if d.keyDup != nil {
		k = d.keyDup(key)
	}
	e := &entry{key: k}
	idx := uint64(d.hash(key)) & target.mask
	e.next = target.buckets[idx]
	target.buckets[idx] = e
	target.used++
	return e, nil
}

// Add inserts key/value. Returns cerr.AlreadyExists, without mutating
// the dict, if key is already present.
func (d *Dict) Add(key interface{}, value Value) error {
	e, err := d.addRaw(key)
	if err != nil {
		return err
	}
	if d.valDup != nil {
		value = d.valDup(value)
	}
	e.value = value
	return nil
}

// Replace inserts key/value, overwriting any existing value for key
// (running valDestructor on the value it replaces).
func (d *Dict) Replace(key interface{}, value Value) {
	if d.valDup != nil {
		value = d.valDup(value)
	}
	e, err := d.addRaw(key)
	if err == nil {
		e.value = value
		return
	}
	existing := d.find(key)
	old := existing.value
	existing.value = value
	if d.valDestructor != nil {
		d.valDestructor(old)
	}
}

// DeleteOption controls whether Delete runs the dict's destructor hooks
// on the evicted key/value.
type DeleteOption int

const (
	DeleteFree DeleteOption = iota
	DeleteNoFree
)

// Delete removes key, returning cerr.NotFound if absent.
func (d *Dict) Delete(key interface{}, opt DeleteOption) error {
	d.stepRehash(1)
	for i := 0; i <= 1; i++ {
		tbl := &d.t[i]
		if tbl.size == 0 {
			continue
		}
		idx := uint64(d.hash(key)) & tbl.mask
		var prev *entry
		for e := tbl.buckets[idx]; e != nil; e = e.next {
			if d.keyCompare(e.key, key) {
				if prev != nil {
					prev.next = e.next
				} else {
					tbl.buckets[idx] = e.next
				}
				if opt != DeleteNoFree {
					if d.keyDestructor != nil {
						d.keyDestructor(e.key)
					}
					if d.valDestructor != nil {
						d.valDestructor(e.value)
					}
				}
				tbl.used--
				return nil
			}
			prev = e
		}
		if !d.rehashing() {
			break
		}
	}
	return cerr.NotFound
}

// RandomKey returns a randomly chosen key/value pair. Returns
// cerr.NotFound if the dict is empty.
//
// Selection picks a random non-empty bucket by rejection sampling, then
// a uniformly random position within that bucket's chain, so a key that
// shares its bucket with others is less likely to be chosen than a key
// alone in its bucket.
func (d *Dict) RandomKey(r *rand.Rand) (interface{}, Value, error) {
	if d.Used() == 0 {
		return nil, Value{}, cerr.NotFound
	}
	for {
		var tbl *table
		var idx int
		if d.rehashing() {
			span := (d.t[0].size - d.rehashIndex) + d.t[1].size
			pick := r.Intn(span)
			if pick < d.t[0].size-d.rehashIndex {
				tbl = &d.t[0]
				idx = d.rehashIndex + pick
			} else {
				tbl = &d.t[1]
				idx = pick - (d.t[0].size - d.rehashIndex)
			}
		} else {
			tbl = &d.t[0]
			idx = r.Intn(tbl.size)
		}
		if tbl.buckets[idx] == nil {
			continue
		}
		length := 0
		for e := tbl.buckets[idx]; e != nil; e = e.next {
			length++
		}
		pick := r.Intn(length)
		e := tbl.buckets[idx]
		for ; pick > 0; pick-- {
			e = e.next
		}
		return e.key, e.value, nil
	}
}

// GetSomeKeys returns up to count keys chosen by a bounded scan from a
// random starting bucket; cheaper than RandomKey called count times,
// at the cost of being biased toward keys in long chains near the
// start point. Intended for cache-eviction sampling, not for uniform
// statistics.
func (d *Dict) GetSomeKeys(r *rand.Rand, count int) []interface{} {
	total := d.Used()
	if total == 0 {
		return nil
	}
	if count > total {
		count = total
	}
	out := make([]interface{}, 0, count)
	start := r.Intn(d.t[0].size)
	for i := 0; i < d.t[0].size && len(out) < count; i++ {
		idx := (start + i) % d.t[0].size
		if d.rehashing() && idx < d.rehashIndex {
			continue
		}
		for e := d.t[0].buckets[idx]; e != nil; e = e.next {
			out = append(out, e.key)
			if len(out) >= count {
				return out
			}
		}
	}
	if d.rehashing() {
		for i := 0; i < d.t[1].size && len(out) < count; i++ {
			for e := d.t[1].buckets[i]; e != nil; e = e.next {
				out = append(out, e.key)
				if len(out) >= count {
					return out
				}
			}
		}
	}
	return out
}

// Stats is a snapshot of the dict's internal structure, for diagnostics
// and tests; not part of the core's hot path.
type Stats struct {
	T0Size, T0Used int
	T1Size, T1Used int
	Rehashing      bool
	RehashIndex    int
	ChainLengths   []int
}

// Stats reports the current size of both sub-tables and the chain
// length of every bucket in T[0].
func (d *Dict) Stats() Stats {
	hist := make([]int, d.t[0].size)
	for i, b := range d.t[0].buckets {
		n := 0
		for e := b; e != nil; e = e.next {
			n++
		}
		hist[i] = n
	}
	return Stats{
		T0Size: d.t[0].size, T0Used: d.t[0].used,
		T1Size: d.t[1].size, T1Used: d.t[1].used,
		Rehashing: d.rehashing(), RehashIndex: d.rehashIndex,
		ChainLengths: hist,
	}
}

// Keys returns every key in the dict, via a safe iterator. Order is
// unspecified.
func (d *Dict) Keys() []interface{} {
	it := d.NewSafeIterator()
	defer it.Release()
	var out []interface{}
	for it.Next() {
		out = append(out, it.Key())
	}
	return out
}

// ForEach calls fn for every key/value pair via a safe iterator,
// stopping early if fn returns false.
func (d *Dict) ForEach(fn func(key interface{}, value Value) bool) {
	it := d.NewSafeIterator()
	defer it.Release()
	for it.Next() {
		if !fn(it.Key(), it.Value()) {
			return
		}
	}
}
