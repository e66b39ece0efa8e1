package keeper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testTimeouts() timeoutIndex {
	return newTimeoutIndex("t_by_height", "t_by_id")
}

func TestTimeoutIndex_InsertGetHeight(t *testing.T) {
	kv := newTestKV(t)
	idx := testTimeouts()

	require.NoError(t, idx.Insert(kv, 100, []byte("req-a")))

	h, ok, err := idx.GetHeight(kv, []byte("req-a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(100), h)

	_, ok, err = idx.GetHeight(kv, []byte("req-missing"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTimeoutIndex_RemoveByID(t *testing.T) {
	kv := newTestKV(t)
	idx := testTimeouts()
	require.NoError(t, idx.Insert(kv, 100, []byte("req-a")))

	require.NoError(t, idx.RemoveByID(kv, []byte("req-a")))

	_, ok, err := idx.GetHeight(kv, []byte("req-a"))
	require.NoError(t, err)
	require.False(t, ok)

	// Removing an absent id is a no-op, not an error.
	require.NoError(t, idx.RemoveByID(kv, []byte("req-a")))
}

func TestTimeoutIndex_RemoveByHeightSweepsOnlyThatHeight(t *testing.T) {
	kv := newTestKV(t)
	idx := testTimeouts()

	require.NoError(t, idx.Insert(kv, 100, []byte("req-a")))
	require.NoError(t, idx.Insert(kv, 100, []byte("req-b")))
	require.NoError(t, idx.Insert(kv, 200, []byte("req-c")))

	ids, err := idx.RemoveByHeight(kv, 100)
	require.NoError(t, err)
	require.ElementsMatch(t, [][]byte{[]byte("req-a"), []byte("req-b")}, ids)

	_, ok, err := idx.GetHeight(kv, []byte("req-a"))
	require.NoError(t, err)
	require.False(t, ok)

	h, ok, err := idx.GetHeight(kv, []byte("req-c"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(200), h)

	ids, err = idx.RemoveByHeight(kv, 999)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestTimeoutIndex_ByHeightOrderIsByteOrder(t *testing.T) {
	kv := newTestKV(t)
	idx := testTimeouts()

	require.NoError(t, idx.Insert(kv, 50, []byte{0x03}))
	require.NoError(t, idx.Insert(kv, 50, []byte{0x01}))
	require.NoError(t, idx.Insert(kv, 50, []byte{0x02}))

	ids, err := idx.RemoveByHeight(kv, 50)
	require.NoError(t, err)
	require.Equal(t, [][]byte{{0x01}, {0x02}, {0x03}}, ids)
}
