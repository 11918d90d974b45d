package terrors

import "github.com/cockroachdb/errors"

// IsConnectionFailure .
func IsConnectionFailure(err error) bool {
	return errors.Is(err, ErrConnectionFailure)
}

// IsRequestFailure .
func IsRequestFailure(err error) bool {
	return errors.Is(err, ErrRequestFailure)
}

// IsMalformedResponse .
func IsMalformedResponse(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// IsInvalidData .
func IsInvalidData(err error) bool {
	return errors.Is(err, ErrInvalidData)
}

// IsConfiguration .
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsKeyNotExistsErr .
func IsKeyNotExistsErr(err error) bool {
	return errors.Is(err, ErrKeyNotExists)
}

// Mark attaches the class to err so errors.Is keeps matching after further wrapping.
func Mark(err error, class error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, class)
}

// Newf creates an error of the given class.
func Newf(class error, format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), class)
}
