package engine

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid phase transition")
	ErrInvalidState      = errors.New("invalid state")
	ErrVotingClosed      = errors.New("voting closed")
	ErrWindowNotOpen     = errors.New("voting window not open")
	ErrWindowNotClosed   = errors.New("voting window not closed")
	ErrWindowOutOfBounds = errors.New("voting window out of bounds")
	ErrUnknownVoter      = errors.New("unknown voter")
	ErrNotMember         = errors.New("account holds no stake")
	ErrInvalidWeight     = errors.New("invalid vote weight")
	ErrInvalidDirection  = errors.New("invalid vote direction")
	ErrAlreadyExecuted   = errors.New("proposal already executed")
	ErrSigInvalid        = errors.New("signature invalid")
	ErrRegistryApply     = errors.New("registry apply failed, proposal stays passed")
)
