package types

// Event type and attribute names are kept close to the contract this
// module ports, so off-chain indexers built against it need no
// remapping.
const (
	EventTypeDataRequest = "seda-data-request"
	EventTypeCommitment  = "seda-commitment"
	EventTypeReveal      = "seda-reveal"
	EventTypeRemoveDR    = "seda-remove-dr"

	EventTypeExecutor       = "seda-executor"
	EventTypeExecutorAction = "seda-executor-action"
	EventTypeStakingConfig  = "seda-staking-config"

	AttributeKeyDRID               = "dr_id"
	AttributeKeyDRPoster            = "dr_poster"
	AttributeKeyExecProgramID       = "exec_program_id"
	AttributeKeyExecInputs          = "exec_inputs"
	AttributeKeyExecGasLimit        = "exec_gas_limit"
	AttributeKeyTallyProgramID      = "tally_program_id"
	AttributeKeyTallyInputs         = "tally_inputs"
	AttributeKeyTallyGasLimit       = "tally_gas_limit"
	AttributeKeyReplicationFactor   = "replication_factor"
	AttributeKeyConsensusFilter     = "consensus_filter"
	AttributeKeyGasPrice            = "gas_price"
	AttributeKeyMemo                = "memo"
	AttributeKeySedaPayload         = "seda_payload"
	AttributeKeyPaybackAddress      = "payback_address"
	AttributeKeyVersion             = "version"

	AttributeKeyExecutor   = "executor"
	AttributeKeyCommitment = "commitment"

	AttributeKeyRevealer = "revealer"

	AttributeKeyStatusCode = "status"
	AttributeKeyKind       = "kind"
	AttributeKeyAmount     = "amount"
	AttributeKeyTarget     = "target"

	AttributeKeyIdentity                = "identity"
	AttributeKeySender                  = "sender"
	AttributeKeySeq                     = "seq"
	AttributeKeyAction                  = "action"
	AttributeKeyTokensStaked            = "tokens_staked"
	AttributeKeyTokensPendingWithdrawal = "tokens_pending_withdrawal"
	AttributeKeyMinStakeForCommittee    = "minimum_stake_for_committee_eligibility"
	AttributeKeyMinStakeToRegister      = "minimum_stake_to_register"
	AttributeKeyAllowlistEnabled        = "allowlist_enabled"
)
