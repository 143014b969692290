package errors

import "errors"

var (
	ErrStackNotFound        = errors.New("stack not found")
	ErrTemplateNotFound     = errors.New("template file not found")
	ErrParamsFileNotFound   = errors.New("parameters file not found")
	ErrPlaceholderValue     = errors.New("parameters file contains unpopulated placeholder values")
	ErrPolicyViolation      = errors.New("template violates policy guardrails")
	ErrLockHeld             = errors.New("deployment lock held by another release")
	ErrImageTagNotFound     = errors.New("image tag not found in registry")
	ErrNoSuccessfulRelease  = errors.New("no successful release to promote")
	ErrUnknownEnvironment   = errors.New("environment is not part of the promotion ladder")
	ErrStackOperationFailed = errors.New("stack operation failed")
)
