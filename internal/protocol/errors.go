package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrBadMagic     = errors.New("protocol: bad magic")
	ErrBadVersion   = errors.New("protocol: unsupported version")
	ErrBadLength    = errors.New("protocol: bad length")
	ErrBadEnumValue = errors.New("protocol: bad enum value")
)

// EnumError reports a closed-enumeration field holding an unknown value.
type EnumError struct {
	Field string
	Value uint8
}

func (e *EnumError) Error() string {
	return fmt.Sprintf("protocol: bad enum value field=%s value=%d", e.Field, e.Value)
}

func (e *EnumError) Unwrap() error {
	return ErrBadEnumValue
}

func badEnum(field string, v uint8) error {
	return &EnumError{Field: field, Value: v}
}

func badLength(got, want int) error {
	return fmt.Errorf("%w: got=%d want=%d", ErrBadLength, got, want)
}

// Reason maps a decode error to a short stable label for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBadLength):
		return "bad_length"
	case errors.Is(err, ErrBadMagic):
		return "bad_magic"
	case errors.Is(err, ErrBadVersion):
		return "bad_version"
	case errors.Is(err, ErrBadEnumValue):
		return "bad_enum"
	default:
		return "other"
	}
}
