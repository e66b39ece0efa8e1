package keeper

import (
	"encoding/binary"
	"fmt"

	"cosmossdk.io/core/store"
)

// orderedSet is component A of the spec: O(1) insert/remove/has over a
// key set backed by three persistent structures under a common
// namespace (len, key_to_index, index_to_key), with swap-removal to
// keep indices contiguous. Grounded on
// original_source/seda-chain-contracts/contract/src/msgs/enumerable_set.rs.
type orderedSet struct {
	lenNS        string
	keyToIndexNS string
	indexToKeyNS string
}

func newOrderedSet(lenNS, keyToIndexNS, indexToKeyNS string) orderedSet {
	return orderedSet{lenNS: lenNS, keyToIndexNS: keyToIndexNS, indexToKeyNS: indexToKeyNS}
}

func (s orderedSet) lenKey() []byte { return []byte(s.lenNS) }

func (s orderedSet) keyToIndexKey(key []byte) []byte {
	return byteKeyRaw(s.keyToIndexNS, key)
}

func (s orderedSet) indexToKeyKey(index uint32) []byte {
	return byteKeyRaw(s.indexToKeyNS, u32beRaw(index))
}

func (s orderedSet) Len(kv store.KVStore) (uint32, error) {
	bz, err := kv.Get(s.lenKey())
	if err != nil {
		return 0, err
	}
	if bz == nil {
		return 0, nil
	}
	return binary.BigEndian.Uint32(bz), nil
}

func (s orderedSet) setLen(kv store.KVStore, n uint32) error {
	return kv.Set(s.lenKey(), u32beRaw(n))
}

func (s orderedSet) Has(kv store.KVStore, key []byte) (bool, error) {
	bz, err := kv.Get(s.keyToIndexKey(key))
	if err != nil {
		return false, err
	}
	return bz != nil, nil
}

func (s orderedSet) GetIndex(kv store.KVStore, key []byte) (uint32, bool, error) {
	bz, err := kv.Get(s.keyToIndexKey(key))
	if err != nil {
		return 0, false, err
	}
	if bz == nil {
		return 0, false, nil
	}
	return binary.BigEndian.Uint32(bz), true, nil
}

// At returns the key stored at the given index, or nil if absent.
func (s orderedSet) At(kv store.KVStore, index uint32) ([]byte, error) {
	return kv.Get(s.indexToKeyKey(index))
}

// Add inserts key into the set. Inserting a key already present is a
// programming fault (spec §4.A: "panic-equivalent").
func (s orderedSet) Add(kv store.KVStore, key []byte) error {
	has, err := s.Has(kv, key)
	if err != nil {
		return err
	}
	if has {
		panic(fmt.Sprintf("oracle: ordered set %s: key already exists", s.lenNS))
	}
	index, err := s.Len(kv)
	if err != nil {
		return err
	}
	if err := kv.Set(s.indexToKeyKey(index), key); err != nil {
		return err
	}
	if err := kv.Set(s.keyToIndexKey(key), u32beRaw(index)); err != nil {
		return err
	}
	return s.setLen(kv, index+1)
}

// Remove deletes key from the set via swap-removal, preserving
// contiguous indices in [0, len). Removing an absent key is a
// programming fault.
func (s orderedSet) Remove(kv store.KVStore, key []byte) error {
	index, ok, err := s.GetIndex(kv, key)
	if err != nil {
		return err
	}
	if !ok {
		panic(fmt.Sprintf("oracle: ordered set %s: key does not exist", s.lenNS))
	}
	total, err := s.Len(kv)
	if err != nil {
		return err
	}
	if total == 0 {
		panic(fmt.Sprintf("oracle: ordered set %s: len is zero but key existed", s.lenNS))
	}

	if total == 1 || index == total-1 {
		if err := kv.Delete(s.indexToKeyKey(index)); err != nil {
			return err
		}
		if err := kv.Delete(s.keyToIndexKey(key)); err != nil {
			return err
		}
		return s.setLen(kv, total-1)
	}

	lastIndex := total - 1
	lastKey, err := s.At(kv, lastIndex)
	if err != nil {
		return err
	}
	if lastKey == nil {
		panic(fmt.Sprintf("oracle: ordered set %s: missing entry at last index", s.lenNS))
	}

	if err := kv.Set(s.indexToKeyKey(index), lastKey); err != nil {
		return err
	}
	if err := kv.Set(s.keyToIndexKey(lastKey), u32beRaw(index)); err != nil {
		return err
	}
	if err := kv.Delete(s.indexToKeyKey(lastIndex)); err != nil {
		return err
	}
	if err := kv.Delete(s.keyToIndexKey(key)); err != nil {
		return err
	}
	return s.setLen(kv, lastIndex)
}

// Page returns up to limit keys starting at offset, in index order
// (spec §4.A: "Pagination returns keys in index order, not insertion
// order after removals").
func (s orderedSet) Page(kv store.KVStore, offset, limit uint32) ([][]byte, error) {
	total, err := s.Len(kv)
	if err != nil {
		return nil, err
	}
	if offset >= total || limit == 0 {
		return nil, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([][]byte, 0, end-offset)
	for i := offset; i < end; i++ {
		key, err := s.At(kv, i)
		if err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, nil
}

func byteKeyRaw(ns string, key []byte) []byte {
	out := make([]byte, 0, len(ns)+1+len(key))
	out = append(out, ns...)
	out = append(out, 0x00)
	out = append(out, key...)
	return out
}

func u32beRaw(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}
