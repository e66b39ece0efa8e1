package keeper

import (
	"encoding/binary"

	"cosmossdk.io/core/store"
)

// timeoutIndex is component B: a bidirectional map between request id
// and expiry height, with bulk sweep by height. Scans are
// deterministic by byte order of id within a height because the
// underlying store iterates keys in lexicographic order and ids are
// appended after the big-endian height in the by-height namespace
// (spec §4.B: "Scans must be deterministic by byte order of id within
// a height").
type timeoutIndex struct {
	byHeightNS string
	byIDNS     string
}

func newTimeoutIndex(byHeightNS, byIDNS string) timeoutIndex {
	return timeoutIndex{byHeightNS: byHeightNS, byIDNS: byIDNS}
}

func (t timeoutIndex) byHeightKey(height uint64, id []byte) []byte {
	suffix := make([]byte, 8+len(id))
	binary.BigEndian.PutUint64(suffix, height)
	copy(suffix[8:], id)
	return byteKeyRaw(t.byHeightNS, suffix)
}

func (t timeoutIndex) byHeightPrefix(height uint64) []byte {
	suffix := make([]byte, 8)
	binary.BigEndian.PutUint64(suffix, height)
	return byteKeyRaw(t.byHeightNS, suffix)
}

func (t timeoutIndex) byIDKey(id []byte) []byte {
	return byteKeyRaw(t.byIDNS, id)
}

// Insert records that id expires at height.
func (t timeoutIndex) Insert(kv store.KVStore, height uint64, id []byte) error {
	if err := kv.Set(t.byHeightKey(height, id), []byte{}); err != nil {
		return err
	}
	heightBz := make([]byte, 8)
	binary.BigEndian.PutUint64(heightBz, height)
	return kv.Set(t.byIDKey(id), heightBz)
}

// GetHeight returns the expiry height for id, and whether it exists.
func (t timeoutIndex) GetHeight(kv store.KVStore, id []byte) (uint64, bool, error) {
	bz, err := kv.Get(t.byIDKey(id))
	if err != nil {
		return 0, false, err
	}
	if bz == nil {
		return 0, false, nil
	}
	return binary.BigEndian.Uint64(bz), true, nil
}

// RemoveByID drops both directions of the index for id, if present.
func (t timeoutIndex) RemoveByID(kv store.KVStore, id []byte) error {
	height, ok, err := t.GetHeight(kv, id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := kv.Delete(t.byHeightKey(height, id)); err != nil {
		return err
	}
	return kv.Delete(t.byIDKey(id))
}

// RemoveByHeight sweeps every id expiring at exactly height, removing
// both directions of the index and returning the collected ids in
// byte order.
func (t timeoutIndex) RemoveByHeight(kv store.KVStore, height uint64) ([][]byte, error) {
	prefix := t.byHeightPrefix(height)
	end := prefixEndBytes(prefix)
	iter, err := kv.Iterator(prefix, end)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ids [][]byte
	for ; iter.Valid(); iter.Next() {
		key := iter.Key()
		id := append([]byte(nil), key[len(prefix):]...)
		ids = append(ids, id)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if err := kv.Delete(t.byHeightKey(height, id)); err != nil {
			return nil, err
		}
		if err := kv.Delete(t.byIDKey(id)); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// prefixEndBytes returns the smallest key greater than every key with
// the given prefix, for use as an iterator's exclusive upper bound.
func prefixEndBytes(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
