package types

import (
	errorsmod "cosmossdk.io/errors"
	grpccodes "google.golang.org/grpc/codes"
)

// x/oracle sentinel errors. Codes are stable once assigned; never
// renumber an existing entry.
var (
	ErrInvalidRequest = errorsmod.RegisterWithGRPCCode(ModuleName, 1, grpccodes.InvalidArgument, "invalid request")

	// Authorization
	ErrNotOwner            = errorsmod.RegisterWithGRPCCode(ModuleName, 2, grpccodes.PermissionDenied, "not the owner")
	ErrNotPendingOwner     = errorsmod.RegisterWithGRPCCode(ModuleName, 3, grpccodes.PermissionDenied, "not the pending owner")
	ErrNoPendingOwnerFound = errorsmod.RegisterWithGRPCCode(ModuleName, 4, grpccodes.FailedPrecondition, "no pending owner")
	ErrNotOnAllowlist      = errorsmod.RegisterWithGRPCCode(ModuleName, 5, grpccodes.PermissionDenied, "public key not on allowlist")

	// Funds
	ErrNoFunds            = errorsmod.RegisterWithGRPCCode(ModuleName, 6, grpccodes.InvalidArgument, "no funds attached")
	ErrInsufficientFunds  = errorsmod.RegisterWithGRPCCode(ModuleName, 7, grpccodes.FailedPrecondition, "insufficient funds")
	ErrWrongDenom         = errorsmod.RegisterWithGRPCCode(ModuleName, 8, grpccodes.InvalidArgument, "wrong token denom")

	// Request state
	ErrAlreadyExists           = errorsmod.RegisterWithGRPCCode(ModuleName, 9, grpccodes.AlreadyExists, "data request already exists")
	ErrNotFound                = errorsmod.RegisterWithGRPCCode(ModuleName, 10, grpccodes.NotFound, "data request not found")
	ErrAlreadyCommitted        = errorsmod.RegisterWithGRPCCode(ModuleName, 11, grpccodes.FailedPrecondition, "executor already committed")
	ErrRevealStarted           = errorsmod.RegisterWithGRPCCode(ModuleName, 12, grpccodes.FailedPrecondition, "reveal stage already started")
	ErrRevealNotStarted        = errorsmod.RegisterWithGRPCCode(ModuleName, 13, grpccodes.FailedPrecondition, "reveal stage not started")
	ErrNotCommitted            = errorsmod.RegisterWithGRPCCode(ModuleName, 14, grpccodes.FailedPrecondition, "executor has not committed")
	ErrAlreadyRevealed         = errorsmod.RegisterWithGRPCCode(ModuleName, 15, grpccodes.FailedPrecondition, "executor already revealed")
	ErrRevealMismatch          = errorsmod.RegisterWithGRPCCode(ModuleName, 16, grpccodes.InvalidArgument, "reveal body does not match commitment")
	ErrNotEnoughReveals        = errorsmod.RegisterWithGRPCCode(ModuleName, 17, grpccodes.FailedPrecondition, "not enough reveals")
	ErrDataRequestExpired      = errorsmod.RegisterWithGRPCCode(ModuleName, 18, grpccodes.FailedPrecondition, "data request expired")
	ErrReplicationFactorZero   = errorsmod.RegisterWithGRPCCode(ModuleName, 19, grpccodes.InvalidArgument, "replication factor is zero")
	ErrReplicationFactorTooHigh = errorsmod.RegisterWithGRPCCode(ModuleName, 20, grpccodes.InvalidArgument, "replication factor exceeds staker count")

	// Configuration
	ErrZeroMinToRegister  = errorsmod.RegisterWithGRPCCode(ModuleName, 21, grpccodes.InvalidArgument, "minimum stake to register must be non-zero")
	ErrZeroMinForCommittee = errorsmod.RegisterWithGRPCCode(ModuleName, 22, grpccodes.InvalidArgument, "minimum stake for committee eligibility must be non-zero")

	// Pause
	ErrContractPaused    = errorsmod.RegisterWithGRPCCode(ModuleName, 23, grpccodes.FailedPrecondition, "module is paused")
	ErrContractNotPaused = errorsmod.RegisterWithGRPCCode(ModuleName, 24, grpccodes.FailedPrecondition, "module is not paused")

	// Parsing
	ErrInvalidHashLength      = errorsmod.RegisterWithGRPCCode(ModuleName, 25, grpccodes.InvalidArgument, "invalid hash length")
	ErrInvalidPublicKeyLength = errorsmod.RegisterWithGRPCCode(ModuleName, 26, grpccodes.InvalidArgument, "invalid public key length")
	ErrHexDecode              = errorsmod.RegisterWithGRPCCode(ModuleName, 27, grpccodes.InvalidArgument, "hex decode failed")

	// Auth protocol
	ErrInvalidProof = errorsmod.RegisterWithGRPCCode(ModuleName, 28, grpccodes.Unauthenticated, "invalid VRF proof")

	// Staker lookups
	ErrStakerNotFound = errorsmod.RegisterWithGRPCCode(ModuleName, 29, grpccodes.NotFound, "staker not found")

	// Internal invariant violation (spec open question 1): unreachable
	// by construction, surfaced distinctly from ordinary validation
	// failures so a panic recovery layer can tell the two apart.
	ErrInvariantViolation = errorsmod.RegisterWithGRPCCode(ModuleName, 30, grpccodes.Internal, "internal invariant violation")

	// Dispatch
	ErrUnknownVariant = errorsmod.RegisterWithGRPCCode(ModuleName, 31, grpccodes.InvalidArgument, "unrecognized message variant")
)
