package field

import (
	"errors"
	"fmt"
)

// ErrFrozen is returned by Register once the registry has been frozen.
var ErrFrozen = errors.New("registry is frozen")

// DuplicateFieldError is returned when a field id is registered twice.
type DuplicateFieldError struct {
	ID ID
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("duplicate field %q", e.ID)
}

// UnknownFieldError is returned when a field id is not registered.
type UnknownFieldError struct {
	ID ID
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.ID)
}

// DescriptorError reports an invalid field descriptor.
type DescriptorError struct {
	ID      ID
	Field   string
	Message string
}

func (e *DescriptorError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("field descriptor: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("field %q: %s: %s", e.ID, e.Field, e.Message)
}

// IsConfigError reports whether err is a registry misuse error. These point
// at a broken test definition, not a product defect.
func IsConfigError(err error) bool {
	var dup *DuplicateFieldError
	var unknown *UnknownFieldError
	var desc *DescriptorError
	return errors.As(err, &dup) || errors.As(err, &unknown) || errors.As(err, &desc) || errors.Is(err, ErrFrozen)
}
