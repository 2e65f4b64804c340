package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrValidation      = errors.New("validation failed")
	ErrCommitFailed    = errors.New("store commit failed")
	ErrRoleConstruct   = errors.New("role construction failed")
	ErrUnknownTool     = errors.New("unknown tool")
	ErrToolNotAllowed  = errors.New("tool not allowed for role")
)
