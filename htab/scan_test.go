package htab_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coredb/corekv/htab"
)

func fullScan(d *htab.Dict) map[string]int64 {
	out := map[string]int64{}
	cursor := uint64(0)
	for {
		cursor = d.Scan(cursor, func(key interface{}, value htab.Value) {
			out[string(key.([]byte))] = value.Int
		})
		if cursor == 0 {
			break
		}
	}
	return out
}

func TestScanCoversEveryKeyNotRehashing(t *testing.T) {
	d := newDict()
	want := map[string]int64{}
	for i := 0; i < 50; i++ {
		k := fmt.Sprintf("k%d", i)
		want[k] = int64(i)
		require.NoError(t, d.Add([]byte(k), htab.IntValue(int64(i))))
	}
	d.RehashFor(time.Second)
	require.False(t, d.Stats().Rehashing)

	got := fullScan(d)
	require.Equal(t, want, got)
}

func TestScanTerminates(t *testing.T) {
	d := newDict()
	for i := 0; i < 5; i++ {
		require.NoError(t, d.Add([]byte(fmt.Sprintf("k%d", i)), htab.IntValue(int64(i))))
	}
	cursor := uint64(0)
	steps := 0
	for {
		cursor = d.Scan(cursor, func(key interface{}, value htab.Value) {})
		steps++
		if cursor == 0 {
			break
		}
		require.Less(t, steps, 10000, "scan failed to terminate")
	}
}

func TestScanDuringRehashCoversStableKeys(t *testing.T) {
	d := newDict()
	stable := map[string]int64{}
	for i := 0; i < 1025; i++ {
		k := fmt.Sprintf("stable-%d", i)
		stable[k] = int64(i)
		require.NoError(t, d.Add([]byte(k), htab.IntValue(int64(i))))
	}
	require.True(t, d.Stats().Rehashing) // the 1025th insert starts a 1024->2048 rehash

	// Interleave scanning with inserting and deleting a disjoint,
	// "unstable" set of keys, which the scan is free to see or not see.
	seenStable := map[string]bool{}
	cursor := uint64(0)
	churn := 0
	for {
		cursor = d.Scan(cursor, func(key interface{}, value htab.Value) {
			k := string(key.([]byte))
			if _, isStable := stable[k]; isStable {
				seenStable[k] = true
			}
		})
		churnKey := []byte(fmt.Sprintf("churn-%d", churn))
		d.Add(churnKey, htab.IntValue(int64(churn)))
		d.Delete(churnKey, htab.DeleteFree)
		churn++
		if cursor == 0 {
			break
		}
	}

	for k := range stable {
		require.True(t, seenStable[k], "stable key %s not visited by scan", k)
	}
}
