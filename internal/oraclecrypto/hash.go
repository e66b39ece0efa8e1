package oraclecrypto

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// Keccak256 hashes an arbitrary number of byte slices as a single
// concatenated message, matching the deterministic-serialization
// hashing the contract's request/reveal ids are built from.
func Keccak256(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

func be16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func be64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// be128 encodes the 128-bit value hi<<64 | lo as 16 big-endian
// bytes: hi fills the first 8 bytes, lo the last 8.
func be128(lo, hi uint64) []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[:8], hi)
	binary.BigEndian.PutUint64(b[8:], lo)
	return b
}

// RequestIDInput is the decoded (raw-bytes) form of a posted data
// request's fields, in the exact order spec.md §6 hashes them.
type RequestIDInput struct {
	VersionMajor, VersionMinor, VersionPatch uint16

	ExecProgramID []byte
	ExecInputs    []byte
	ExecGasLimit  uint64

	TallyProgramID []byte
	TallyInputs    []byte
	TallyGasLimit  uint64

	ReplicationFactor uint16
	ConsensusFilter   []byte

	GasPriceLo, GasPriceHi uint64 // 128-bit gas price, big-endian halves

	Memo []byte
}

// RequestID computes the 32-byte keccak256 request id (spec §6).
func RequestID(in RequestIDInput) []byte {
	return Keccak256(
		be16(in.VersionMajor), be16(in.VersionMinor), be16(in.VersionPatch),
		in.ExecProgramID,
		in.ExecInputs,
		be64(in.ExecGasLimit),
		in.TallyProgramID,
		in.TallyInputs,
		be64(in.TallyGasLimit),
		be16(in.ReplicationFactor),
		in.ConsensusFilter,
		be128(in.GasPriceLo, in.GasPriceHi),
		in.Memo,
	)
}

// RevealBodyInput is the decoded form of a RevealBody's fields, in
// declaration order, for hashing (spec §3 RevealBody, §6 "Reveal-body
// hash").
type RevealBodyInput struct {
	ID              []byte
	Salt            []byte
	ExitCode        uint8
	GasUsed         uint64
	RevealBytes     []byte
	ProxyPublicKeys [][]byte
}

// RevealBodyHash computes the reveal body's commitment hash.
func RevealBodyHash(in RevealBodyInput) []byte {
	parts := make([][]byte, 0, 5+len(in.ProxyPublicKeys))
	parts = append(parts, in.ID, in.Salt, []byte{in.ExitCode}, be64(in.GasUsed), in.RevealBytes)
	parts = append(parts, in.ProxyPublicKeys...)
	return Keccak256(parts...)
}

// Message kind tags for the authenticated-message hash (spec §4.G).
const (
	KindStake    = "stake"
	KindUnstake  = "unstake"
	KindWithdraw = "withdraw"
	KindCommit   = "commit_data_result"
	KindReveal   = "reveal_data_result"
)

// AuthMessageHash builds the domain-separated hash an authenticated
// executor message's VRF proof is taken over: concatenated keccak256
// digests of (kind tag, payload hash, chain id, contract address,
// freshness), per spec §4.G.
func AuthMessageHash(kind string, payloadHash, chainID, contractAddr, freshness []byte) []byte {
	return Keccak256(
		Keccak256([]byte(kind)),
		Keccak256(payloadHash),
		Keccak256(chainID),
		Keccak256(contractAddr),
		Keccak256(freshness),
	)
}
