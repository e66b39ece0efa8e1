package types

import (
	"encoding/json"

	sdkmath "cosmossdk.io/math"
)

// RequestStatus is the disjoint status set a live request belongs to
// (spec invariant D1).
type RequestStatus int32

const (
	StatusCommitting RequestStatus = iota
	StatusRevealing
	StatusTallying
)

func (s RequestStatus) String() string {
	switch s {
	case StatusCommitting:
		return "committing"
	case StatusRevealing:
		return "revealing"
	case StatusTallying:
		return "tallying"
	default:
		return "unknown"
	}
}

// ParseRequestStatus parses the wire-level status name used by
// GetDataRequestsByStatus (spec §6 query variant).
func ParseRequestStatus(s string) (RequestStatus, bool) {
	switch s {
	case "committing":
		return StatusCommitting, true
	case "revealing":
		return StatusRevealing, true
	case "tallying":
		return StatusTallying, true
	default:
		return 0, false
	}
}

// PostedDataRequestArgs is the user-supplied payload hashed into a
// request id (see keeper/requestid.go and internal/oraclecrypto/hash.go).
type PostedDataRequestArgs struct {
	VersionMajor uint16 `json:"version_major"`
	VersionMinor uint16 `json:"version_minor"`
	VersionPatch uint16 `json:"version_patch"`

	ExecProgramID string `json:"exec_program_id"` // hex
	ExecInputs    string `json:"exec_inputs"`      // base64
	ExecGasLimit  uint64 `json:"exec_gas_limit"`

	TallyProgramID string `json:"tally_program_id"` // hex
	TallyInputs    string `json:"tally_inputs"`      // base64
	TallyGasLimit  uint64 `json:"tally_gas_limit"`

	ReplicationFactor uint16 `json:"replication_factor"`
	ConsensusFilter   string `json:"consensus_filter"` // base64
	GasPrice          string `json:"gas_price"`        // decimal string, parsed as sdkmath.Int
	Memo              string `json:"memo"`              // base64
}

// Request is the persisted oracle task, identified by a 32-byte
// keccak256 hash of its posted args (hex-encoded as ID).
type Request struct {
	ID string `json:"id"` // hex, 32 bytes

	VersionMajor uint16 `json:"version_major"`
	VersionMinor uint16 `json:"version_minor"`
	VersionPatch uint16 `json:"version_patch"`

	ExecProgramID  string `json:"exec_program_id"`
	ExecInputs     string `json:"exec_inputs"`
	ExecGasLimit   uint64 `json:"exec_gas_limit"`
	TallyProgramID string `json:"tally_program_id"`
	TallyInputs    string `json:"tally_inputs"`
	TallyGasLimit  uint64 `json:"tally_gas_limit"`

	ReplicationFactor uint16 `json:"replication_factor"`
	ConsensusFilter   string `json:"consensus_filter"`
	GasPrice          string `json:"gas_price"`
	Memo              string `json:"memo"`

	PaybackAddress string `json:"payback_address"` // base64
	SedaPayload    string `json:"seda_payload"`     // base64

	// Commits/Reveals are keyed by the hex-encoded 33-byte compressed
	// public key of the committing/revealing executor.
	Commits map[string]string     `json:"commits"` // pk_hex -> commitment hash hex
	Reveals map[string]RevealBody `json:"reveals"` // pk_hex -> reveal body

	Height int64 `json:"height"`

	// Status tracks which of the three disjoint sets (spec invariant
	// D1) currently holds this request; kept on the record itself so
	// a lookup by id does not need to probe all three ordered sets.
	Status RequestStatus `json:"status"`
}

// RevealBody is the disclosed payload behind a commitment.
type RevealBody struct {
	ID              string   `json:"id"`
	Salt            string   `json:"salt"`
	ExitCode        uint8    `json:"exit_code"`
	GasUsed         uint64   `json:"gas_used"`
	RevealBytes     string   `json:"reveal"`       // base64
	ProxyPublicKeys []string `json:"proxy_public_keys"` // hex, 33 bytes each
}

// Escrow holds the funds attached to a request until settlement.
type Escrow struct {
	Amount sdkmath.Int `json:"amount"`
	Poster string      `json:"poster"` // bech32
}

// Staker is the per-public-key staking record.
type Staker struct {
	Memo                    string      `json:"memo,omitempty"`
	TokensStaked            sdkmath.Int `json:"tokens_staked"`
	TokensPendingWithdrawal sdkmath.Int `json:"tokens_pending_withdrawal"`
}

// IsZero reports whether the record is eligible for deletion (spec
// invariant S2).
func (s Staker) IsZero() bool {
	return s.TokensStaked.IsZero() && s.TokensPendingWithdrawal.IsZero()
}

// StakingConfig gates registration and committee eligibility.
type StakingConfig struct {
	MinimumStake                sdkmath.Int `json:"minimum_stake_to_register"`
	MinimumStakeForCommittee    sdkmath.Int `json:"minimum_stake_for_committee_eligibility"`
	AllowlistEnabled            bool        `json:"allowlist_enabled"`
}

func (c StakingConfig) Validate() error {
	if c.MinimumStake.IsNil() || !c.MinimumStake.IsPositive() {
		return ErrZeroMinToRegister
	}
	if c.MinimumStakeForCommittee.IsNil() || !c.MinimumStakeForCommittee.IsPositive() {
		return ErrZeroMinForCommittee
	}
	return nil
}

// TimeoutConfig governs commit/reveal expiry windows, in blocks.
type TimeoutConfig struct {
	CommitTimeoutBlocks uint64 `json:"commit_timeout_blocks"`
	RevealTimeoutBlocks uint64 `json:"reveal_timeout_blocks"`
}

// PostRequestResponse is the response-data payload of a successful
// post_request call (spec §4.E).
type PostRequestResponse struct {
	IDHex  string `json:"dr_id"`
	Height int64  `json:"height"`
}

// DistributionMessage is the three-variant settlement instruction sum
// (spec §4.F, §9 "Polymorphism").
type DistributionMessage struct {
	Kind string `json:"kind"` // "burn" | "proxy_reward" | "executor_reward"

	// Burn, ProxyReward, ExecutorReward all carry an amount.
	Amount sdkmath.Int `json:"amount"`

	// ProxyReward target address (bech32) or ExecutorReward target
	// identity (hex public key). Unused for Burn.
	Target string `json:"target,omitempty"`
}

const (
	DistBurn           = "burn"
	DistProxyReward    = "proxy_reward"
	DistExecutorReward = "executor_reward"
)

// StatusResult is one entry of a settlement call's per-request result
// vector (spec §4.F).
type StatusResult struct {
	ID         string `json:"id"`
	StatusCode int32  `json:"status_code"`
}

const (
	SettlementOK          int32 = 0
	SettlementInvalidID   int32 = 1
	SettlementNotFound    int32 = 2
)

// BankEffect is a deferred bank-module side effect returned to the
// host alongside events and response data, rather than applied
// directly (spec §1 "Out of scope: ... bank module").
type BankEffect struct {
	Kind   string      `json:"kind"` // "burn" | "send"
	To     string      `json:"to,omitempty"`
	Amount sdkmath.Int `json:"amount"`
	Denom  string      `json:"denom"`
}

const (
	BankEffectBurn = "burn"
	BankEffectSend = "send"
)

// Response is the (events, bank-messages, response-data) triple spec
// §2 describes as every invocation's output. Events land on the SDK
// event manager as a side effect of the mutating keeper calls
// themselves (§9 "Non-cryptographic event log"); Response carries the
// other two legs explicitly back to the dispatch caller.
type Response struct {
	Data        json.RawMessage `json:"data,omitempty"`
	BankEffects []BankEffect    `json:"bank_effects,omitempty"`
}
