package entities

import (
	"errors"
	"fmt"
)

// Error taxonomy. Callers classify with errors.Is; stores and clients wrap
// their driver errors around these.
var (
	ErrValidation      = errors.New("validation failed")
	ErrDuplicate       = errors.New("medication already exists")
	ErrExternalService = errors.New("external lookup failed")
	ErrPersistence     = errors.New("persistence failure")
	ErrNotFound        = errors.New("medication not found")

	// ErrPoolExhausted is returned when the store's wait queue is full.
	ErrPoolExhausted = fmt.Errorf("%w: connection pool queue is full", ErrPersistence)
)
