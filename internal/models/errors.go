package models

import "errors"

var (
	// ErrValidation marks a malformed request payload or tool-call argument.
	ErrValidation = errors.New("validation error")
	// ErrExternalService marks a failure of the vector index, LLM or session store.
	ErrExternalService = errors.New("external service error")
	// ErrPersistence marks a failed booking write.
	ErrPersistence = errors.New("persistence error")
)
