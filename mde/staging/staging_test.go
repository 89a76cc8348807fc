package staging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInsertGetRemove(t *testing.T) {
	tbl := New()
	key := []byte("recipient-key")

	_, ok := tbl.Get(key)
	require.False(t, ok)

	tbl.Insert(key, Entry{Timestamp: 100})
	e, ok := tbl.Get(key)
	require.True(t, ok)
	require.EqualValues(t, 100, e.Timestamp)

	tbl.Remove(key)
	_, ok = tbl.Get(key)
	require.False(t, ok)
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	tbl := New()
	now := time.Unix(1_700_000_000, 0)

	fresh := []byte("fresh")
	stale := []byte("stale")
	tbl.Insert(fresh, Entry{Timestamp: now.Unix()})
	tbl.Insert(stale, Entry{Timestamp: now.Add(-30 * time.Second).Unix()})

	tbl.Sweep(now, 20*time.Second, nil)

	_, ok := tbl.Get(fresh)
	require.True(t, ok, "fresh entry within grace window must survive")
	_, ok = tbl.Get(stale)
	require.False(t, ok, "stale entry past grace window must be swept")
}

func TestSweepBoundaryIsInclusive(t *testing.T) {
	tbl := New()
	now := time.Unix(1_700_000_000, 0)
	key := []byte("exact")
	tbl.Insert(key, Entry{Timestamp: now.Add(-20 * time.Second).Unix()})

	tbl.Sweep(now, 20*time.Second, nil)

	_, ok := tbl.Get(key)
	require.False(t, ok, "entry exactly at timeout must be swept (<=, not <)")
}

func TestSweepProcessesAllExpiredEntriesPerTick(t *testing.T) {
	tbl := New()
	now := time.Unix(1_700_000_000, 0)
	for _, slug := range []string{"a", "b", "c"} {
		tbl.Insert([]byte(slug), Entry{Timestamp: now.Add(-1 * time.Hour).Unix()})
	}

	var removed []string
	tbl.Sweep(now, time.Second, func(key []byte) error {
		removed = append(removed, string(key))
		return nil
	})

	require.ElementsMatch(t, []string{"a", "b", "c"}, removed)
	require.Equal(t, 0, tbl.Len())
}

func TestSweepStopsAtFirstFailureButKeepsFailedEntryStaged(t *testing.T) {
	tbl := New()
	now := time.Unix(1_700_000_000, 0)
	tbl.Insert([]byte("ok"), Entry{Timestamp: now.Add(-1 * time.Hour).Unix()})
	tbl.Insert([]byte("broken"), Entry{Timestamp: now.Add(-1 * time.Hour).Unix()})

	attempted := 0
	tbl.Sweep(now, time.Second, func(key []byte) error {
		attempted++
		if string(key) == "broken" {
			return errors.New("disk full")
		}
		return nil
	})

	require.LessOrEqual(t, attempted, 2)
	// Whichever entry failed must still be present for a retry next tick.
	remaining := tbl.Len()
	require.GreaterOrEqual(t, remaining, 1)
}
