package types

import (
	errorsmod "cosmossdk.io/errors"
)

// Engine sentinel errors. Per-record failures (ErrInvalidIntent,
// ErrCommitmentMismatch) are absorbed into count deltas and never abort a
// round; ErrRoundFailed always does.
var (
	ErrInvalidIntent      = errorsmod.Register(ModuleName, 2, "intent failed validation")
	ErrCommitmentMismatch = errorsmod.Register(ModuleName, 3, "intent commitment mismatch")
	ErrNoSignerKey        = errorsmod.Register(ModuleName, 4, "no signing key configured")
	ErrRoundFailed        = errorsmod.Register(ModuleName, 5, "round pipeline failed")
)
