package types

import "encoding/binary"

const (
	ModuleName = "oracle"
	StoreKey   = ModuleName
)

// Namespace strings mirror the stable persisted-state layout of the
// contract this module ports: each map/item keeps its own string
// prefix so a future migration can move one namespace without
// disturbing the others.
const (
	nsOwner         = "owner"
	nsPendingOwner  = "pending_owner"
	nsPaused        = "paused"
	nsToken         = "token"
	nsChainID       = "chain_id"
	nsTimeoutConfig = "timeout_config"
	nsStakingConfig = "staking_config"
	nsAllowlist     = "allowlist"
	nsEscrow        = "dr_staked_funds"
	nsAccountSeq    = "account_seq"

	nsRequests = "data_request_pool_reqs"

	nsStatusCommittingLen         = "data_request_pool_committing_len"
	nsStatusCommittingKeyToIndex  = "data_request_pool_committing_key_to_index"
	nsStatusCommittingIndexToKey  = "data_request_pool_committing_index_to_key"
	nsStatusRevealingLen          = "data_request_pool_revealing_len"
	nsStatusRevealingKeyToIndex   = "data_request_pool_revealing_key_to_index"
	nsStatusRevealingIndexToKey   = "data_request_pool_revealing_index_to_key"
	nsStatusTallyingLen           = "data_request_pool_tallying_len"
	nsStatusTallyingKeyToIndex    = "data_request_pool_tallying_key_to_index"
	nsStatusTallyingIndexToKey    = "data_request_pool_tallying_index_to_key"

	nsTimeoutsByHeight = "data_request_pool_timeouts"
	nsTimeoutsByID     = "data_request_pool_hash_to_timeout"

	nsStakers = "data_request_executors_stakers"

	nsStakerSetLen         = "data_request_executors_public_keys_len"
	nsStakerSetKeyToIndex  = "data_request_executors_public_keys_key_to_index"
	nsStakerSetIndexToKey  = "data_request_executors_public_keys_index_to_key"
)

// byteKey joins a namespace with raw key material behind a NUL
// separator so no namespace can accidentally prefix-collide with
// another (every namespace here is a distinct literal string, but
// the separator keeps concatenated namespaces from colliding with a
// key whose raw bytes happen to start with another namespace's name).
func byteKey(ns string, parts ...[]byte) []byte {
	n := len(ns) + 1
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	out = append(out, ns...)
	out = append(out, 0x00)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func u32be(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func u64be(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
